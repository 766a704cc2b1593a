package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
	"rawdah/internal/service"
)

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Progress(r.Context()))
}

func (s *Server) handleTogglePrayer(w http.ResponseWriter, r *http.Request) {
	key := model.PrayerKey(chi.URLParam(r, "prayer"))
	progress, err := s.tracker.TogglePrayer(r.Context(), key, chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleToggleAdhkar(w http.ResponseWriter, r *http.Request) {
	progress, err := s.tracker.ToggleAdhkar(r.Context(), chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleToggleStudy(w http.ResponseWriter, r *http.Request) {
	progress, err := s.tracker.ToggleStudy(r.Context(), chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.SetNotes(r.Context(), req.Notes))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Reset(r.Context()))
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Settings())
}

func (s *Server) handleToggleEnabled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.ToggleEnabled(r.Context()))
}

func (s *Server) handleToggleSound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.ToggleSound(r.Context()))
}

func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var loc service.Location
	if err := decodeJSON(r, &loc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	schedule, err := s.times.SetLocation(r.Context(), loc)
	if errors.Is(err, service.ErrLocationUnavailable) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	schedule, err := s.times.Schedule()
	switch {
	case err != nil:
		writeError(w, err)
	case schedule == nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, schedule)
	}
}

func (s *Server) handleRefreshSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.times.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	ok := s.alerts != nil && s.alerts.Dismiss(r.Context())
	writeJSON(w, http.StatusOK, ackResponse{Acknowledged: ok})
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.quran.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

type chapterResponse struct {
	*model.SurahDetail
	BasmalaHeader bool   `json:"basmalaHeader"`
	AudioURL      string `json:"audioUrl"`
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, service.ErrNoSuchChapter)
		return
	}
	detail, err := s.quran.Chapter(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}

	out := *detail
	out.Ayahs = make([]model.Ayah, 0, len(detail.Ayahs))
	for _, ayah := range detail.Ayahs {
		ayah.Text = service.VerseText(detail.Number, ayah)
		if ayah.Text != "" {
			out.Ayahs = append(out.Ayahs, ayah)
		}
	}
	writeJSON(w, http.StatusOK, chapterResponse{
		SurahDetail:   &out,
		BasmalaHeader: service.HasBasmalaHeader(detail.Number),
		AudioURL:      s.quran.AudioURL(detail.Number),
	})
}

type transcriptResponse struct {
	Messages []model.ChatMessage `json:"messages"`
	Busy     bool                `json:"busy"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, transcriptResponse{Messages: s.mentor.Transcript(), Busy: s.mentor.Busy()})
}

type mentorRequest struct {
	Message string `json:"message"`
}

type mentorFrame struct {
	Messages []model.ChatMessage `json:"messages"`
	Done     bool                `json:"done"`
}

// handleMentorSend streams transcript snapshots as newline-delimited JSON,
// one frame per update, the last one marked done.
func (s *Server) handleMentorSend(w http.ResponseWriter, r *http.Request) {
	var req mentorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started := false
	emit := func(frame mentorFrame) {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(frame); err != nil {
			log.Debug().Err(err).Msg("write mentor frame")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	final, err := s.mentor.Send(r.Context(), strings.TrimSpace(req.Message), func(messages []model.ChatMessage) {
		emit(mentorFrame{Messages: messages})
	})
	if err != nil {
		if !started {
			writeError(w, err)
			return
		}
		log.Warn().Err(err).Msg("mentor turn")
	}
	emit(mentorFrame{Messages: final, Done: true})
}

func (s *Server) handleMentorClear(w http.ResponseWriter, r *http.Request) {
	if err := s.mentor.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
