// Package render converts assistant markup to HTML and sanitizes it
// before it is cached or served. Raw text is kept alongside the rendered
// form by callers; nothing unsanitized crosses this boundary.
package render

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

// Renderer turns lightweight markup into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a renderer with a CommonMark converter and the UGC
// sanitization policy.
func New() *Renderer {
	return &Renderer{
		// Raw HTML passes through the markdown conversion so that
		// sanitization happens in exactly one place: the policy below.
		md: goldmark.New(
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts raw markup to HTML, then sanitizes the HTML. On a
// conversion failure the raw text is sanitized directly rather than
// dropped.
func (r *Renderer) Render(raw string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(raw), &buf); err != nil {
		return r.policy.Sanitize(raw)
	}
	return r.policy.Sanitize(buf.String())
}

// SanitizeMessages renders every message's content in place, preserving
// the original text in RawContent.
func (r *Renderer) SanitizeMessages(messages []domain.Message) {
	for i := range messages {
		if messages[i].RawContent == "" {
			messages[i].RawContent = messages[i].Content
		}
		messages[i].Content = r.Render(messages[i].RawContent)
	}
}
