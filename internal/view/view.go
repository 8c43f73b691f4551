// Package view renders embedded mustache templates. Templates only use
// variable substitution and section iteration; anything smarter belongs in
// the caller that assembles the template data.
package view

import (
	"fmt"

	"github.com/cbroglie/mustache"

	"embed"
)

//go:embed views/*.mustache.html
var viewFS embed.FS

// Render renders the named template with the given data.
func Render(name string, data any) (string, error) {
	raw, err := viewFS.ReadFile("views/" + name)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	out, err := mustache.Render(string(raw), data)
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return out, nil
}
