package render

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/recava/recava-server/internal/widget/conversation"
)

// sourceMarkerPattern matches the file-search citation artifacts some
// assistant responses embed inline, e.g. 【12:3†source】.
var sourceMarkerPattern = regexp.MustCompile(`【.*?†source】`)

var markdown = goldmark.New()

var sanitizer = bluemonday.UGCPolicy()

// Placeholder texts for citation fields absent from the server payload.
const (
	placeholderMarker = "[?]"
	placeholderQuote  = "Contenido no disponible."
	emptyResponseText = "El asistente no proporcionó una respuesta textual."
)

// EscapeText HTML-escapes user-supplied text before insertion.
func EscapeText(text string) string {
	return html.EscapeString(text)
}

// StripSourceMarkers removes inline citation artifacts from a response
// before display.
func StripSourceMarkers(text string) string {
	return strings.TrimSpace(sourceMarkerPattern.ReplaceAllString(text, ""))
}

// AssistantHTML transforms an assistant response body to HTML via markdown.
// Empty bodies render a placeholder notice.
func AssistantHTML(text string) string {
	if strings.TrimSpace(text) == "" {
		text = emptyResponseText
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		// Converting never fails for in-memory sources; fall back to
		// escaped plain text all the same.
		return EscapeText(text)
	}
	return buf.String()
}

// SanitizeHTML strips unsafe markup from rendered HTML. Used by the admin
// editor's preview before insertion.
func SanitizeHTML(rendered string) string {
	return sanitizer.Sanitize(rendered)
}

// CitationHTML renders one citation block. Marker and quote are always
// escaped regardless of source.
func CitationHTML(c conversation.Citation) string {
	marker := c.Marker
	if marker == "" {
		marker = placeholderMarker
	}
	quote := c.QuoteFromFile
	if quote == "" {
		quote = placeholderQuote
	}

	var b strings.Builder
	b.WriteString(`<span class="citation-marker">`)
	b.WriteString(EscapeText(marker))
	b.WriteString(`</span>`)
	b.WriteString(`<span class="citation-quote">`)
	b.WriteString(EscapeText(quote))
	b.WriteString(`</span>`)
	if c.FileID != "" {
		b.WriteString(`<span class="citation-file-id">ID Archivo: `)
		b.WriteString(EscapeText(c.FileID))
		b.WriteString(`</span>`)
	}
	return b.String()
}
