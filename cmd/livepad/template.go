package main

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/patrickward/livepad"
)

func customFuncs() template.FuncMap {
	return template.FuncMap{
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"toLower":   strings.ToLower,
	}
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(customFuncs()).ParseFS(livepad.TemplateFS,
		"templates/layouts/*.html",
		"templates/partials/*.html",
	)
}

// executePage renders a full page template with the given data
func (s *Server) executePage(w http.ResponseWriter, page string, data livepad.PageData) error {
	// Clone the base template to avoid altering it
	tmpl, err := s.baseTempl.Clone()
	if err != nil {
		return err
	}

	if !strings.HasSuffix(page, ".html") {
		page = page + ".html"
	}

	tmpl, err = tmpl.ParseFS(livepad.TemplateFS, fmt.Sprintf("templates/pages/%s", page))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, page, data)
}
