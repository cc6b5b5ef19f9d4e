// Package views holds the HTML templates, embedded into the binary.
package views

import (
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed *.html
var files embed.FS

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"date": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04")
		},
		"now": func() time.Time {
			return time.Now()
		},
	}
}

// Templates parses every page. Each page is named after its file.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(FuncMap()).ParseFS(files, "*.html"))
}
