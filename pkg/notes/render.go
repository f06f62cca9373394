// Package notes turns generated markdown summaries into note objects and
// persists them alongside the library.
package notes

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// noteSchemaVersion matches the note schema used by the host reference
// manager so rendered notes survive sync round-trips.
const noteSchemaVersion = 9

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderHTML converts a markdown summary into the note-HTML body expected by
// the host application: rendered markdown wrapped in a schema-versioned
// container div.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render summary markdown: %w", err)
	}
	return fmt.Sprintf("<div data-schema-version=\"%d\">\n%s</div>\n", noteSchemaVersion, buf.String()), nil
}

// RenderHTMLWithTitle renders a note body with a leading heading, used when
// the summary should carry the source document's title.
func RenderHTMLWithTitle(title, md string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return RenderHTML(md)
	}
	return RenderHTML(fmt.Sprintf("# %s\n\n%s", title, md))
}
