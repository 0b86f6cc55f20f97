package ytdlp

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

var cueTag = regexp.MustCompile(`<[^>]*>`)

// FlattenVTT turns a WebVTT document into running text. Header, NOTE and
// STYLE blocks, cue identifiers, timings and inline tags are dropped.
// Auto-generated captions repeat each line in the following cue, so a line
// equal to the previously emitted one is skipped.
func FlattenVTT(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		words []string
		last  string
		inCue bool
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			inCue = false
		case strings.Contains(line, "-->"):
			inCue = true
		case inCue:
			text := strings.TrimSpace(html.UnescapeString(cueTag.ReplaceAllString(line, "")))
			if text == "" || text == last {
				continue
			}
			words = append(words, text)
			last = text
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read subtitles: %w", err)
	}
	return strings.Join(words, " "), nil
}
