// Package httpapi exposes the tracker, prayer times, Quran browser and mentor
// chat over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"rawdah/internal/remote"
	"rawdah/internal/service"
)

// Dismisser acknowledges the alert on screen.
type Dismisser interface {
	Dismiss(ctx context.Context) bool
}

// Server serves the JSON API.
type Server struct {
	tracker *service.TrackerService
	times   *service.PrayerTimesService
	quran   *service.QuranService
	mentor  *service.MentorService
	alerts  Dismisser
}

func NewServer(tracker *service.TrackerService, times *service.PrayerTimesService, quran *service.QuranService, mentor *service.MentorService, alerts Dismisser) *Server {
	return &Server{tracker: tracker, times: times, quran: quran, mentor: mentor, alerts: alerts}
}

// Router creates and configures the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/progress", s.handleProgress)
		r.Post("/progress/prayers/{prayer}/{field}", s.handleTogglePrayer)
		r.Post("/progress/adhkar/{field}", s.handleToggleAdhkar)
		r.Post("/progress/study/{field}", s.handleToggleStudy)
		r.Put("/progress/notes", s.handleSetNotes)
		r.Post("/progress/reset", s.handleReset)

		r.Get("/settings", s.handleSettings)
		r.Post("/settings/enabled", s.handleToggleEnabled)
		r.Post("/settings/sound", s.handleToggleSound)

		r.Put("/location", s.handleSetLocation)
		r.Get("/schedule", s.handleSchedule)
		r.Post("/schedule/refresh", s.handleRefreshSchedule)
		r.Post("/alert/ack", s.handleAck)

		r.Get("/chapters", s.handleChapters)
		r.Get("/chapters/{number}", s.handleChapter)

		r.Get("/mentor", s.handleTranscript)
		r.Post("/mentor", s.handleMentorSend)
		r.Delete("/mentor", s.handleMentorClear)
	})

	return r
}

// ListenAndServe runs the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("http api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnknownPrayer),
		errors.Is(err, service.ErrUnknownField),
		errors.Is(err, service.ErrEmptyMessage):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoSuchChapter):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrLocationUnavailable):
		status = http.StatusConflict
	case errors.Is(err, service.ErrMentorBusy):
		status = http.StatusConflict
	case errors.Is(err, remote.ErrUnavailable),
		errors.Is(err, remote.ErrBadStatus),
		errors.Is(err, remote.ErrMalformed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("http handler failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
