// Package flash carries one-shot status messages across a redirect.
package flash

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Flash represents a single flash message
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Manager handles flash message operations using cookies
type Manager struct {
	cookieName string
	maxAge     int
	path       string
}

// NewManager creates a new Manager with sensible defaults
func NewManager() *Manager {
	return &Manager{
		cookieName: "livepad_flash",
		maxAge:     300, // 5 minutes
		path:       "/",
	}
}

// Set stores a flash message in a cookie
func (fm *Manager) Set(w http.ResponseWriter, msgType, message string) {
	data, err := json.Marshal(Flash{Type: msgType, Message: message})
	if err != nil {
		data = []byte(message)
	}

	http.SetCookie(w, fm.cookie(url.QueryEscape(string(data)), fm.maxAge))
}

func (fm *Manager) SetSuccess(w http.ResponseWriter, message string) {
	fm.Set(w, "success", message)
}

func (fm *Manager) SetError(w http.ResponseWriter, message string) {
	fm.Set(w, "danger", message)
}

// Get retrieves and clears the flash message, if any.
func (fm *Manager) Get(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(fm.cookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, fm.cookie("", -1))

	value, err := url.QueryUnescape(c.Value)
	if err != nil || value == "" {
		return nil
	}

	var f Flash
	if err := json.Unmarshal([]byte(value), &f); err == nil {
		return &f
	}
	// Plain text from an older cookie.
	return &Flash{Type: "success", Message: value}
}

func (fm *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     fm.cookieName,
		Value:    value,
		Path:     fm.path,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
