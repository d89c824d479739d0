// Package livepad holds the assets served by the livepad editor.
package livepad

import "embed"

//go:embed static
var StaticFS embed.FS

//go:embed templates
var TemplateFS embed.FS
