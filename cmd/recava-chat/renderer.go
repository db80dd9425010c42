package main

import (
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/recava/recava-server/internal/widget/conversation"
)

// stripTags reduces sanitized HTML to plain text for terminal output.
var stripTags = bluemonday.StrictPolicy()

// terminalRenderer writes the conversation to a terminal. It satisfies the
// controller's renderer contract; replay mode only suppresses the blank
// line between bubbles so restored history reads as one block.
type terminalRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	replay bool
}

func newTerminalRenderer(out io.Writer) *terminalRenderer {
	return &terminalRenderer{out: out}
}

func (r *terminalRenderer) AppendUserMessage(text string) {
	r.printBubble("tú", text)
}

func (r *terminalRenderer) AppendAssistantHTML(rendered string, citations []conversation.Citation) {
	text := html.UnescapeString(stripTags.Sanitize(rendered))
	r.printBubble("asistente", text)
	for _, c := range citations {
		marker := c.Marker
		if marker == "" {
			marker = "[?]"
		}
		r.printLine("    %s %s", marker, c.QuoteFromFile)
	}
}

func (r *terminalRenderer) AppendSystemMessage(text string) {
	r.printLine("  * %s", text)
}

func (r *terminalRenderer) ShowTypingIndicator() {
	r.printLine("  ... escribiendo")
}

func (r *terminalRenderer) RemoveTypingIndicator() {}

func (r *terminalRenderer) ShowStatus(text string) {
	r.printLine("  [%s]", text)
}

func (r *terminalRenderer) ShowVerifyBanner() {
	r.printLine("  ! Verifica tu correo electrónico. Usa /resend para reenviar el enlace y /verify cuando hayas terminado.")
}

func (r *terminalRenderer) SetInputEnabled(bool) {}

func (r *terminalRenderer) SetPlaceholder(text string) {
	r.printLine("  (%s)", text)
}

func (r *terminalRenderer) SetReplayMode(instant bool) {
	r.mu.Lock()
	r.replay = instant
	r.mu.Unlock()
}

func (r *terminalRenderer) printBubble(speaker, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.replay {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintf(r.out, "%s: %s\n", speaker, strings.TrimSpace(text))
}

func (r *terminalRenderer) printLine(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}
