package excalidraw

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"
)

// EditorBaseURL is the hosted editor; the drawing travels in the fragment.
const EditorBaseURL = "https://excalidraw.com/#json="

// EditorURL embeds the raw drawing JSON into an editor link.
func EditorURL(content []byte) string {
	// encodeURIComponent semantics: spaces as %20, not "+".
	return EditorBaseURL + strings.ReplaceAll(url.QueryEscape(string(content)), "+", "%20")
}

// Opener shows a URL to the user.
type Opener interface {
	Open(ctx context.Context, target string) error
}

// BrowserOpener tries a preferred browser command first and falls back to
// the system default browser.
type BrowserOpener struct {
	// Command is split on whitespace; the URL is appended as the last argument.
	// Empty means go straight to the system default.
	Command string

	run         func(ctx context.Context, name string, args ...string) error
	openDefault func(string) error
}

// NewBrowserOpener returns an opener using command as the preferred browser.
func NewBrowserOpener(command string) *BrowserOpener {
	return &BrowserOpener{
		Command: command,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		openDefault: browser.OpenURL,
	}
}

func (o *BrowserOpener) Open(ctx context.Context, target string) error {
	if fields := strings.Fields(o.Command); len(fields) > 0 {
		args := append(fields[1:len(fields):len(fields)], target)
		err := o.run(ctx, fields[0], args...)
		if err == nil {
			return nil
		}
		log.WithField("command", fields[0]).Warnf("preferred browser failed, using system default: %v", err)
	}
	if err := o.openDefault(target); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
