package videoid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptqa/internal/core/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"query with trailing params", "https://x/watch?v=abc123&t=5", "abc123"},
		{"query at end", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"query after other param", "https://www.youtube.com/watch?feature=share&v=xyz", "xyz"},
		{"short link with params", "https://youtu.be/abc123?t=5", "abc123"},
		{"short link bare", "https://youtu.be/abc123", "abc123"},
		{"query wins over short path", "https://youtu.be/short?v=long", "long"},
		{"v= inside another param name is skipped", "https://youtu.be/real?dev=1", "real"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNoIdentifier(t *testing.T) {
	for _, u := range []string{
		"https://vimeo.com/12345",
		"https://www.youtube.com/watch?v=",
		"https://youtu.be/?t=5",
		"",
	} {
		t.Run(u, func(t *testing.T) {
			_, err := Resolve(u)
			assert.ErrorIs(t, err, domain.ErrNoIdentifierFound)
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	u := "https://x/watch?v=abc123&t=5"
	first, err := Resolve(u)
	require.NoError(t, err)
	second, err := Resolve(u)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParse(t *testing.T) {
	ref, err := Parse("https://youtu.be/abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.VideoReference{URL: "https://youtu.be/abc123", ID: "abc123"}, ref)

	_, err = Parse("https://example.com")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.Equal(t, domain.StageResolve, domain.StageOf(err))
}
