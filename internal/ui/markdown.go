package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// maxRenderers bounds the renderer cache; resizing the terminal creates
// one renderer per width.
const maxRenderers = 8

type rendererKey struct {
	style string
	width int
}

// markdown renders card sides. Plain mode shows the source wrapped.
type markdown struct {
	plain     bool
	renderers map[rendererKey]*glamour.TermRenderer
}

func (md *markdown) render(src string, width int, style string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if md.plain {
		return renderPlain(src, width)
	}
	r, err := md.renderer(style, width)
	if err != nil {
		return renderPlain(src, width)
	}
	out, err := r.Render(src)
	if err != nil {
		return renderPlain(src, width)
	}
	return strings.Trim(out, "\n")
}

func (md *markdown) renderer(style string, width int) (*glamour.TermRenderer, error) {
	if style == "" {
		style = "dark"
	}
	k := rendererKey{style: style, width: width}
	if r, ok := md.renderers[k]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	if md.renderers == nil || len(md.renderers) >= maxRenderers {
		md.renderers = make(map[rendererKey]*glamour.TermRenderer)
	}
	md.renderers[k] = r
	return r, nil
}

func renderPlain(src string, width int) string {
	return lipgloss.NewStyle().Width(max(1, width)).Render(src)
}
