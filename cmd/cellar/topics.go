package main

import (
	"embed"
	"io/fs"
	"os"

	"github.com/arthur-debert/cellar/pkg/cobrax/topics"
	"github.com/arthur-debert/cellar/pkg/style"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

//go:embed topics
var topicFiles embed.FS

// markdownRenderer renders markdown topics for the resolved output format.
type markdownRenderer struct {
	s *settings
}

func (r markdownRenderer) Render(content, format string) string {
	if format != ".md" {
		return content
	}
	f := r.s.resolved
	if f == style.FormatAuto {
		f, _ = style.ParseFormat(r.s.format)
		f = f.Resolve(os.Stdout)
	}
	width := 80
	if f == style.FormatTerminal {
		width = pterm.GetTerminalWidth()
	}
	return style.Markdown(content, width, f)
}

func initTopics(rootCmd *cobra.Command, s *settings) error {
	sub, err := fs.Sub(topicFiles, "topics")
	if err != nil {
		return err
	}
	return topics.InitializeWithOptions(rootCmd, sub, topics.Options{
		Extensions: []string{".md", ".txt"},
		Renderer:   markdownRenderer{s: s},
	})
}
