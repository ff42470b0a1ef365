package style

import (
	"regexp"

	"github.com/charmbracelet/lipgloss"
)

var tagPattern = regexp.MustCompile(`\[([a-z_]+)\](.*?)\[/([a-z_]+)\]`)

// MarkupParser renders [tag]text[/tag] markup with named styles.
type MarkupParser struct {
	styles map[string]lipgloss.Style
}

// NewMarkupParser creates a parser with the default tags.
func NewMarkupParser() *MarkupParser {
	return &MarkupParser{
		styles: map[string]lipgloss.Style{
			"title":   TitleStyle,
			"success": SuccessStyle,
			"error":   ErrorStyle,
			"warning": WarningStyle,
			"info":    InfoStyle,
			"code":    CodeStyle,
			"path":    PathStyle,
			"muted":   MutedStyle,
			"bold":    lipgloss.NewStyle().Bold(true),

			"formula": FormulaStyle,
			"version": VersionStyle,
			"option":  OptionStyle,
		},
	}
}

// Render replaces every known tag pair with its styled content. Tags do
// not nest; unknown tags are left as written.
func (p *MarkupParser) Render(text string) string {
	return p.replace(text, func(style lipgloss.Style, content string) string {
		return style.Render(content)
	})
}

// AddStyle registers a tag.
func (p *MarkupParser) AddStyle(tag string, style lipgloss.Style) {
	p.styles[tag] = style
}

// Strip removes known tags without styling their content.
func (p *MarkupParser) Strip(text string) string {
	return p.replace(text, func(_ lipgloss.Style, content string) string {
		return content
	})
}

func (p *MarkupParser) replace(text string, fn func(lipgloss.Style, string) string) string {
	return tagPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := tagPattern.FindStringSubmatch(match)
		style, ok := p.styles[m[1]]
		if !ok || m[1] != m[3] {
			return match
		}
		return fn(style, m[2])
	})
}

var defaultParser = NewMarkupParser()

// Render is a convenience function using the default parser
func Render(text string) string {
	return defaultParser.Render(text)
}

// Strip is a convenience function using the default parser
func Strip(text string) string {
	return defaultParser.Strip(text)
}
