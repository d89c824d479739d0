package main

import (
	"net/http"
)

// handleLive upgrades to the live sync websocket for a document.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	s.hub.ServeDocument(w, r, doc)
}
