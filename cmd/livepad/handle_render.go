package main

import (
	"net/http"
)

// maxRenderBytes bounds the body of a render request.
const maxRenderBytes = 8 << 20

// handleRender renders the form field content and returns the annotated
// preview HTML.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRenderBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	rendered := s.renderer.Render(r.PostForm.Get("content"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if rendered.Title != "" {
		w.Header().Set("X-Livepad-Title", rendered.Title)
	}
	_, _ = w.Write([]byte(rendered.HTML))
}
