package api

import (
	"net/http"
	"time"

	"github.com/openqr/qrcode-generator/store"
)

type statusResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version"`
	Encoder  string `json:"encoder"`
	Sessions int    `json:"sessions"`
}

type historyResponse struct {
	OK          int                `json:"ok"`
	Failed      int                `json:"failed"`
	Generations []store.Generation `json:"generations"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.StartTime).Truncate(time.Second).String()

	writeJSON(w, http.StatusOK, statusResponse{
		Status:   "ok",
		Uptime:   uptime,
		Version:  s.Version,
		Encoder:  s.Encoder.Name(),
		Sessions: s.Sessions.Count(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := queryInt(r, "limit", s.HistoryLimit)

	gens, err := s.History.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if gens == nil {
		gens = []store.Generation{}
	}

	ok, failed, err := s.History.Counts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		OK:          ok,
		Failed:      failed,
		Generations: gens,
	})
}
