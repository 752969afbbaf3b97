package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"docsight/internal/models"
)

// Format selects the download representation of an analysis result.
type Format string

const (
	FormatDocument  Format = "document"
	FormatMarkdown  Format = "markdown"
	FormatJSON      Format = "json"
	FormatPlainText Format = "plainText"
)

// ParseFormat validates a format string from the request surface.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatDocument, FormatMarkdown, FormatJSON, FormatPlainText:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Render converts a result into a downloadable byte stream and returns the
// suggested file extension. The transform is pure; it never touches session
// state.
func Render(result *models.AnalysisResult, format Format) ([]byte, string, error) {
	if result == nil {
		return nil, "", models.ErrNoAnalysis
	}
	switch format {
	case FormatMarkdown:
		// Verbatim: the markdown artifact is the canonical content.
		return []byte(result.MarkdownContent), ".md", nil
	case FormatJSON:
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode result: %w", err)
		}
		return payload, ".json", nil
	case FormatPlainText:
		return []byte(stripMarkdown(result.MarkdownContent)), ".txt", nil
	case FormatDocument:
		return []byte(wrapDocument(result.MarkdownContent)), ".doc", nil
	default:
		return nil, "", fmt.Errorf("unknown export format %q", format)
	}
}

var (
	headingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.*)$`)
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*]+)\*`)
)

// wrapDocument applies minimal heading/bold/line-break transforms and wraps
// the markdown in an HTML shell that word processors open as a document.
func wrapDocument(markdown string) string {
	body := headingRe.ReplaceAllStringFunc(markdown, func(line string) string {
		m := headingRe.FindStringSubmatch(line)
		level := len(m[1])
		return fmt.Sprintf("<h%d>%s</h%d>", level, m[2], level)
	})
	body = boldRe.ReplaceAllString(body, "<b>$1</b>")
	body = italicRe.ReplaceAllString(body, "<i>$1</i>")
	body = strings.ReplaceAll(body, "\n", "<br>\n")

	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"></head><body>\n")
	b.WriteString(body)
	b.WriteString("\n</body></html>")
	return b.String()
}

func stripMarkdown(markdown string) string {
	text := headingRe.ReplaceAllString(markdown, "$2")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	return text
}
