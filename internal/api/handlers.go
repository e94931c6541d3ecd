package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/solarwall/internal/models"
	"github.com/lox/solarwall/internal/scheduler"
	"github.com/lox/solarwall/internal/solar"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type HealthStatus struct {
	Status     string     `json:"status"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextUpdate *time.Time `json:"next_update,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type SolarStatus struct {
	Summary     string     `json:"summary"`
	PolarPeriod string     `json:"polar_period"`
	Sunrise     *time.Time `json:"sunrise,omitempty"`
	Sunset      *time.Time `json:"sunset,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type StatusResponse struct {
	ThemeID    string       `json:"theme_id,omitempty"`
	Segment    string       `json:"segment,omitempty"`
	Quarter    string       `json:"quarter,omitempty"`
	DayNight   *int         `json:"day_night,omitempty"`
	ImageID    *int         `json:"image_id,omitempty"`
	ImagePath  string       `json:"image_path,omitempty"`
	NextUpdate *time.Time   `json:"next_update,omitempty"`
	LastRun    *time.Time   `json:"last_run,omitempty"`
	LastError  string       `json:"last_error,omitempty"`
	SunUp      bool         `json:"sun_up"`
	Pending    bool         `json:"pending"`
	Solar      *SolarStatus `json:"solar,omitempty"`
}

type HistoryEntry struct {
	AppliedAt time.Time `json:"applied_at"`
	ThemeID   string    `json:"theme_id"`
	ImageID   int       `json:"image_id"`
	ImagePath string    `json:"image_path"`
	Segment   string    `json:"segment"`
	DarkMode  bool      `json:"dark_mode"`
}

// handleHealth reports 503 only for errors that need operator attention;
// transient failures are retried by the watchdog and reported as degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Status()
	health := HealthStatus{
		Status:     "ok",
		LastRun:    timePtr(st.LastRun),
		NextUpdate: timePtr(st.NextUpdate),
	}

	code := http.StatusOK
	if st.LastError != nil {
		health.Error = st.LastError.Error()
		health.Status = "degraded"
		if errors.Is(st.LastError, solar.ErrInvalidConfig) || errors.Is(st.LastError, scheduler.ErrNoImages) {
			health.Status = "error"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, health)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) status() StatusResponse {
	st := s.engine.Status()
	resp := StatusResponse{
		ThemeID:    st.ThemeID,
		ImagePath:  st.LastImagePath,
		NextUpdate: timePtr(st.NextUpdate),
		LastRun:    timePtr(st.LastRun),
		SunUp:      st.SunUp,
		Pending:    st.Pending,
	}
	if st.LastError != nil {
		resp.LastError = st.LastError.Error()
	}
	if !st.LastRun.IsZero() {
		dayNight := st.State.DayNight
		resp.Segment = st.State.Segment.String()
		resp.Quarter = st.State.Quarter.String()
		resp.DayNight = &dayNight
		if st.State.HasImage {
			id := st.State.ImageID
			resp.ImageID = &id
		}
	}
	if s.solar != nil {
		resp.Solar = s.solarStatus()
	}
	return resp
}

func (s *Server) solarStatus() *SolarStatus {
	data, err := s.solar.GetSolarData(s.now().In(s.loc))
	if err != nil {
		return &SolarStatus{Error: err.Error()}
	}
	out := &SolarStatus{
		Summary:     solar.Summary(data),
		PolarPeriod: data.PolarPeriod.String(),
	}
	if data.PolarPeriod == solar.PolarNone {
		out.Sunrise = timePtr(data.Sunrise)
		out.Sunset = timePtr(data.Sunset)
	}
	return out
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	changes, err := s.history.RecentWallpaperChanges(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, historyEntries(changes))
}

func historyEntries(changes []models.WallpaperChange) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, HistoryEntry{
			AppliedAt: c.AppliedAt,
			ThemeID:   c.ThemeID,
			ImageID:   c.ImageID,
			ImagePath: c.ImagePath,
			Segment:   c.Segment,
			DarkMode:  c.DarkMode,
		})
	}
	return entries
}

func (s *Server) handleDarkMode(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ToggleDarkMode(); err != nil {
		s.logger.Error().Err(err).Msg("toggle dark mode")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RunScheduler(true); err != nil {
		s.logger.Error().Err(err).Msg("forced refresh")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"status": "error", "error": msg})
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
