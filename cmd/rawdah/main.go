package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rawdah/internal/bot"
	"rawdah/internal/config"
	"rawdah/internal/httpapi"
	"rawdah/internal/i18n"
	"rawdah/internal/notify"
	"rawdah/internal/remote"
	"rawdah/internal/repository"
	"rawdah/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	setupLogger(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	defer closeStore()
	state := repository.NewStateRepository(kv)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	clock := service.SystemClock

	tracker := service.NewTrackerService(state, clock)
	tracker.Load(ctx)

	matcher := service.NewAlertMatcher(clock, tracker)
	times := service.NewPrayerTimesService(
		remote.NewPrayerTimesClient(cfg.AladhanBaseURL, cfg.CalculationMethod, httpClient),
		matcher, clock,
	)

	reminder := service.NewReminderService()
	var streamer service.ChatStreamer
	if cfg.Gemini.APIKey != "" {
		gemini, err := remote.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("gemini")
		}
		streamer = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, the mentor will answer with the fallback reply")
	}
	mentor := service.NewMentorService(streamer, tracker, reminder, state, clock, float32(cfg.Gemini.Temperature))
	mentor.Load(ctx)

	tr, err := i18n.New(i18n.DefaultLang)
	if err != nil {
		log.Fatal().Err(err).Msg("i18n")
	}

	telegramBot, err := bot.New(cfg.TelegramToken, cfg.OwnerChatID, tr, bot.Services{
		Tracker:  tracker,
		Times:    times,
		Mentor:   mentor,
		Reminder: reminder,
		Clock:    clock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	slot := service.NewAudioSlot()
	quran := service.NewQuranService(
		remote.NewQuranClient(cfg.QuranBaseURL, cfg.AudioBaseURL, httpClient),
		telegramBot, slot,
	)
	telegramBot.SetQuran(quran)

	presenter := service.NewAlertPresenter(telegramBot, telegramBot, slot, tracker, matcher, cfg.NotificationSoundURL)
	telegramBot.SetPresenter(presenter)

	sinks := service.FanOut{presenter}
	if cfg.MQTT.Broker != "" {
		sink, client, err := notify.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			log.Warn().Err(err).Msg("mqtt disabled")
		} else {
			defer notify.Disconnect(client)
			sinks = append(sinks, sink)
		}
	}
	matcher.SetSink(sinks)

	if lat, lon, ok := cfg.DefaultLocation(); ok {
		if _, err := times.SetLocation(ctx, service.Location{Latitude: lat, Longitude: lon}); err != nil {
			log.Warn().Err(err).Msg("default location")
		}
	}

	scheduler := service.NewSchedulerService(time.Local)
	if err := scheduleJobs(ctx, scheduler, cfg, tracker, times, matcher, telegramBot); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.HTTPAddr != "" {
		api := httpapi.NewServer(tracker, times, quran, mentor, presenter)
		go func() {
			if err := api.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				log.Error().Err(err).Msg("http api stopped")
			}
		}()
	}

	log.Info().Msg("rawdah started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openStore(ctx context.Context, cfg config.Config) (repository.KV, func(), error) {
	if cfg.StoreBackend == config.BackendRedis {
		rdb, err := repository.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisRepository(rdb, "rawdah:"), func() { _ = rdb.Close() }, nil
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {}
	if sqlDB, err := db.DB(); err == nil {
		closeDB = func() { _ = sqlDB.Close() }
	}
	return repository.NewEntryRepository(db), closeDB, nil
}

func scheduleJobs(ctx context.Context, scheduler *service.SchedulerService, cfg config.Config, tracker *service.TrackerService, times *service.PrayerTimesService, matcher *service.AlertMatcher, telegramBot *bot.Bot) error {
	if _, err := scheduler.ScheduleInterval("alert-poll", cfg.PollInterval(), func() {
		matcher.Tick(ctx)
	}); err != nil {
		return err
	}

	if _, err := scheduler.ScheduleDaily("rollover", "00:00", func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if tracker.Rollover(jobCtx) {
			log.Info().Msg("progress rolled over to a new day")
		}
		if _, err := times.Refresh(jobCtx); err != nil && !errors.Is(err, service.ErrLocationUnavailable) {
			log.Warn().Err(err).Msg("midnight schedule refresh")
		}
	}); err != nil {
		return err
	}

	if interval := cfg.ReportInterval(); interval > 0 {
		if _, err := scheduler.ScheduleInterval("report", interval, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := telegramBot.SendReport(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("report")
			}
		}); err != nil {
			return err
		}
	}
	return nil
}
