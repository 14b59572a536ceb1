package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/openqr/qrcode-generator/generator"
	"github.com/openqr/qrcode-generator/notify"
	"github.com/openqr/qrcode-generator/render"
)

type generateRequest struct {
	Text string `json:"text"`
}

type stateResponse struct {
	Text      string `json:"text"`
	ImageText string `json:"image_text,omitempty"`
	DataURL   string `json:"data_url,omitempty"`
}

type generateErrorResponse struct {
	Error       string `json:"error"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.existingSession(w, r); ok {
		writeJSON(w, http.StatusOK, snapshotResponse(sess.Generator.Snapshot()))
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(s.Sessions.Initial(context.WithoutCancel(r.Context())).Snapshot))
}

func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Outcomes go back in the response; the session's queue keeps only
	// toasts from other calls.
	var notices []notify.Notification
	collect := notify.Func(func(n notify.Notification) { notices = append(notices, n) })

	sess.Generator.SetText(req.Text)
	genErr := sess.Generator.GenerateTo(r.Context(), collect)
	if genErr == nil {
		writeJSON(w, http.StatusOK, snapshotResponse(sess.Generator.Snapshot()))
		return
	}

	resp := generateErrorResponse{Error: genErr.Error()}
	if len(notices) > 0 {
		last := notices[len(notices)-1]
		resp.Title = last.Title
		resp.Description = last.Description
	}

	status := http.StatusUnprocessableEntity
	if errors.Is(genErr, generator.ErrEmptyInput) || errors.Is(genErr, generator.ErrInputTooLong) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

// handleQRPNG renders ?text= directly, without touching any session.
func (s *Server) handleQRPNG(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "text query parameter is required")
		return
	}
	if s.MaxInputLength > 0 && utf8.RuneCountInString(text) > s.MaxInputLength {
		writeError(w, http.StatusBadRequest, "text is too long")
		return
	}

	surface := render.NewSurface()
	if err := s.Encoder.Encode(r.Context(), surface, text, s.Options); err != nil {
		s.Log.Warn("stateless encode failed", "error", err, "length", len(text))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b, err := surface.PNG()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func snapshotResponse(snap generator.Snapshot) stateResponse {
	resp := stateResponse{Text: snap.Text}
	if snap.HasImage() {
		resp.ImageText = snap.Image.Text
		resp.DataURL = snap.Image.DataURL
	}
	return resp
}
