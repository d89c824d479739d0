package main

import (
	"errors"
	"net/http"

	"github.com/patrickward/livepad"
	"github.com/patrickward/livepad/internal/files"
)

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.showPageNotFound(w, r)
		return
	}

	content, err := doc.Content()
	if err != nil {
		s.showServerError(w, r, err)
		return
	}

	rendered := s.renderer.Render(content)
	if rendered.Title == "" {
		rendered.Title = doc.Info.Title
	}

	data := livepad.PageData{
		Title:          rendered.Title,
		CurrentDoc:     doc.Info,
		Content:        rendered.HTML,
		RawContent:     content,
		SectionHeaders: rendered.SectionHeaders,
		TasksTotal:     rendered.TasksTotal,
		TasksCompleted: rendered.TasksCompleted,
		IsEditing:      true,
	}
	s.addFlash(w, r, &data)

	if err := s.executePage(w, "edit.html", data); err != nil {
		s.showServerError(w, r, err)
	}
}

// handleCreate creates a document from the form field id and opens it.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	doc, err := s.store.Create(id, "")
	if errors.Is(err, files.ErrInvalidID) {
		s.flash.SetError(w, "Invalid document name: "+id)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.showServerError(w, r, err)
		return
	}

	s.log.Info().Str("doc", doc.Info.ID).Msg("created document")
	s.flash.SetSuccess(w, "Created "+doc.Info.Title)
	http.Redirect(w, r, "/edit/"+doc.Info.ID, http.StatusSeeOther)
}
