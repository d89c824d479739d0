package main

import (
	"net/http"

	"github.com/patrickward/livepad"
)

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Serve static files
	fileServer := http.FileServer(http.FS(livepad.StaticFS))
	mux.Handle("GET /static/", fileServer)

	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("POST /documents", s.handleCreate)
	mux.HandleFunc("GET /edit/{id...}", s.handleEdit)
	mux.HandleFunc("GET /ws/{id...}", s.handleLive)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /", s.showPageNotFound)

	return mux
}
