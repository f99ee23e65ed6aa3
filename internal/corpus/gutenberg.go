// Package corpus reads Project Gutenberg texts and prepares them as
// plaintext for enciphering.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

const (
	firstLineMarker = "The Project Gutenberg eBook of "
	startMarker     = "*** START OF THE PROJECT GUTENBERG EBOOK "
	endMarker       = "*** END OF THE PROJECT GUTENBERG EBOOK "

	ebookURLPrefix = "https://www.gutenberg.org/ebooks/"
)

// ErrNotGutenberg is returned for content missing the Gutenberg boilerplate.
var ErrNotGutenberg = errors.New("not a Project Gutenberg text")

var ebookIDPattern = regexp.MustCompile(`\[eBook #([^\]]+)\]`)

// Document is a parsed Gutenberg text.
type Document struct {
	Title   string
	EbookID string
	URL     string
	Body    string // text between the start and end markers
}

// ParseGutenberg extracts the title, eBook id and body from a Gutenberg text.
func ParseGutenberg(content string) (Document, error) {
	content = normalizeNewlines(content)

	titleAt := strings.Index(content, firstLineMarker)
	if titleAt < 0 {
		return Document{}, fmt.Errorf("%w: missing first line", ErrNotGutenberg)
	}
	startAt := strings.Index(content, startMarker)
	if startAt < 0 {
		return Document{}, fmt.Errorf("%w: missing start marker", ErrNotGutenberg)
	}
	endAt := strings.Index(content, endMarker)
	if endAt < 0 {
		return Document{}, fmt.Errorf("%w: missing end marker", ErrNotGutenberg)
	}
	if endAt < startAt {
		return Document{}, fmt.Errorf("%w: end marker precedes start marker", ErrNotGutenberg)
	}

	title := content[titleAt+len(firstLineMarker):]
	if nl := strings.IndexByte(title, '\n'); nl >= 0 {
		title = title[:nl]
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Document{}, fmt.Errorf("%w: empty title", ErrNotGutenberg)
	}

	m := ebookIDPattern.FindStringSubmatch(content)
	if m == nil {
		return Document{}, fmt.Errorf("%w: missing eBook id", ErrNotGutenberg)
	}
	id := strings.TrimSpace(m[1])

	// the start marker line ends with " ***"
	body := content[startAt:endAt]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}

	return Document{
		Title:   title,
		EbookID: id,
		URL:     ebookURLPrefix + id,
		Body:    strings.Trim(body, "\n"),
	}, nil
}

// Simplify maps text onto set: letters are upper-cased, curly quotes and
// dashes are folded to their ASCII forms, and everything else outside the
// alphabet is dropped.
func Simplify(text string, set *charset.Set) string {
	if set == nil {
		set = charset.Default
	}
	return set.Filter(simplifier.Replace(strings.ToUpper(normalizeNewlines(text))))
}

var simplifier = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'",
	"\u201C", "\"", "\u201D", "\"",
	"\u2013", "-", "\u2014", "-",
	"\t", " ",
)

// ReadText reads a UTF-8 file with line endings normalized to "\n".
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return normalizeNewlines(strings.TrimPrefix(string(data), "\uFEFF")), nil
}

// WriteText writes text as UTF-8 with "\n" line endings, creating parent
// directories as needed.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, []byte(normalizeNewlines(text)), 0o644)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
