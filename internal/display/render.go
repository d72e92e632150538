package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// CodeRenderer renders generated code as a highlighted markdown block.
type CodeRenderer struct {
	renderer *glamour.TermRenderer
}

// NewCodeRenderer creates a renderer. style is a glamour style name
// ("auto", "dark", "light", "notty"); empty means auto.
func NewCodeRenderer(style string, width int) (*CodeRenderer, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("display: creating code renderer: %w", err)
	}
	return &CodeRenderer{renderer: r}, nil
}

// Render returns code fenced as lang and rendered for the terminal.
// On a render error the code is returned unstyled.
func (c *CodeRenderer) Render(lang, code string) string {
	md := "```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```\n"
	out, err := c.renderer.Render(md)
	if err != nil {
		return code
	}
	return strings.TrimRight(out, "\n")
}
