package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/openqr/qrcode-generator/generator"
	"github.com/openqr/qrcode-generator/notify"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/index.html"))

type pageData struct {
	Text      string
	HasImage  bool
	ImageSrc  template.URL
	ImageText string
	Notices   []notify.Notification
	Version   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := s.view(w, r)
	snap := view.Snapshot
	data := pageData{
		Text:     snap.Text,
		HasImage: snap.HasImage(),
		Notices:  view.Notices,
		Version:  s.Version,
	}
	if snap.HasImage() {
		// Rendered data URLs are always data:image/png;base64.
		data.ImageSrc = template.URL(snap.Image.DataURL)
		data.ImageText = snap.Image.Text
	}

	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.Log.Error("render page failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleGenerate stores the submitted text and renders it, then sends the
// browser back to the page (post/redirect/get). Failures surface as toasts.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	sess.Generator.SetText(r.PostForm.Get("text"))
	if err := sess.Generator.Generate(r.Context()); err != nil {
		s.Log.Debug("generate rejected", "session", sess.ID, "error", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	_, err = sess.Generator.Download(attachmentSaver(w))
	if errors.Is(err, generator.ErrNoImage) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.Log.Error("download failed", "session", sess.ID, "error", err)
	}
}

// handleReset discards the caller's session; the next visit mounts a fresh one.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.Sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// attachmentSaver streams an image to the client as a file download.
func attachmentSaver(w http.ResponseWriter) generator.Saver {
	return generator.SaverFunc(func(name string, img generator.Image) error {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(img.PNG)
		return err
	})
}
