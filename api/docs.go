package api

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed docs.md
var docsMarkdown []byte

// markdown renderer configured with Goldmark and GFM tables
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

var (
	docsOnce sync.Once
	docsHTML template.HTML
)

func renderMarkdown(content []byte) string {
	var buf bytes.Buffer
	if err := md.Convert(content, &buf); err != nil {
		return template.HTMLEscapeString(string(content))
	}
	return buf.String()
}

// docs serves the API reference rendered from docs.md.
func (a *APIModule) docs(c *gin.Context) {
	docsOnce.Do(func() {
		docsHTML = template.HTML(renderMarkdown(docsMarkdown))
	})

	c.HTML(http.StatusOK, "api_docs.html", gin.H{
		"content": docsHTML,
	})
}
