// Package videoid extracts the canonical identifier from a video URL.
package videoid

import (
	"fmt"
	"strings"

	"transcriptqa/internal/core/domain"
)

const shortHost = "youtu.be/"

// Resolve returns the video identifier embedded in rawURL.
//
// Two shapes are recognised, in order: a "v" query parameter terminated by
// '&' or end of string, and a "youtu.be/<id>" path segment terminated by '?'
// or end of string. The first shape present wins.
func Resolve(rawURL string) (string, error) {
	if id, ok := fromQuery(rawURL); ok {
		return id, nil
	}
	if id, ok := fromShortPath(rawURL); ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNoIdentifierFound, rawURL)
}

// Parse resolves rawURL into a VideoReference.
func Parse(rawURL string) (domain.VideoReference, error) {
	id, err := Resolve(rawURL)
	if err != nil {
		return domain.VideoReference{}, domain.NewError(domain.StageResolve, domain.KindInvalidInput, err)
	}
	return domain.VideoReference{URL: rawURL, ID: id}, nil
}

func fromQuery(s string) (string, bool) {
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], "v=")
		if j < 0 {
			return "", false
		}
		pos := i + j
		if pos > 0 && (s[pos-1] == '?' || s[pos-1] == '&') {
			rest := s[pos+2:]
			if end := strings.IndexByte(rest, '&'); end >= 0 {
				rest = rest[:end]
			}
			return rest, rest != ""
		}
		i = pos + 2
	}
	return "", false
}

func fromShortPath(s string) (string, bool) {
	pos := strings.Index(s, shortHost)
	if pos < 0 {
		return "", false
	}
	rest := s[pos+len(shortHost):]
	if end := strings.IndexByte(rest, '?'); end >= 0 {
		rest = rest[:end]
	}
	return rest, rest != ""
}
