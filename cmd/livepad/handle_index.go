package main

import (
	"net/http"

	"github.com/patrickward/livepad"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List()
	if err != nil {
		s.showServerError(w, r, err)
		return
	}

	data := livepad.PageData{
		Title:             "Documents",
		Documents:         docs,
		EncryptionEnabled: s.crypt.CanEncrypt(),
	}
	s.addFlash(w, r, &data)

	if err := s.executePage(w, "index.html", data); err != nil {
		s.showServerError(w, r, err)
	}
}

func (s *Server) addFlash(w http.ResponseWriter, r *http.Request, data *livepad.PageData) {
	if f := s.flash.Get(w, r); f != nil {
		data.FlashMessage = f.Message
		data.FlashMessageType = f.Type
	}
}
