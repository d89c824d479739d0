package main

import (
	"net/http"

	"github.com/patrickward/livepad"
)

// showPageNotFound shows a 404 page.
func (s *Server) showPageNotFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	if err := s.executePage(w, "404.html", livepad.PageData{
		Title: "Page Not Found",
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// showServerError logs err and shows the 500 page.
func (s *Server) showServerError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")

	w.WriteHeader(http.StatusInternalServerError)
	if err := s.executePage(w, "500.html", livepad.PageData{
		Title:        "Server Error",
		ErrorMessage: err.Error(),
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
