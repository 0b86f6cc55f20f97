package ytdlp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptqa/internal/core/domain"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

NOTE generated by a test

1
00:00:00.000 --> 00:00:02.000 align:start position:0%
hello<00:00:00.500><c> world</c>

2
00:00:02.000 --> 00:00:04.000
hello world
this &amp; that

00:00:04.000 --> 00:00:06.000
<v Speaker>the end</v>
`

func TestFlattenVTT(t *testing.T) {
	got, err := FlattenVTT(strings.NewReader(sampleVTT))
	require.NoError(t, err)
	assert.Equal(t, "hello world this & that the end", got)
}

func TestFlattenVTTEmpty(t *testing.T) {
	got, err := FlattenVTT(strings.NewReader("WEBVTT\n\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArgs(t *testing.T) {
	d := NewSubtitleFetcher("yt-dlp", "de", nil)
	args := d.args("/tmp/x", "https://youtu.be/abc")

	assert.Equal(t, "https://youtu.be/abc", args[len(args)-1])
	assert.Contains(t, strings.Join(args, " "), "--sub-langs de")
	assert.Contains(t, strings.Join(args, " "), "--sub-format vtt")
	assert.Contains(t, args, filepath.Join("/tmp/x", "subs.%(ext)s"))
}

// writeFakeBinary installs a shell script standing in for yt-dlp. It writes
// vtt (if non-empty) next to the -o template and prints title and channel.
func writeFakeBinary(t *testing.T, vtt string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	dir := t.TempDir()
	vttPath := filepath.Join(dir, "fixture.vtt")
	require.NoError(t, os.WriteFile(vttPath, []byte(vtt), 0644))

	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
if [ ` + strconv.Itoa(exitCode) + ` -ne 0 ]; then echo "ERROR: video unavailable" >&2; exit ` + strconv.Itoa(exitCode) + `; fi
if [ -s "` + vttPath + `" ]; then cp "` + vttPath + `" "$(dirname "$out")/subs.en.vtt"; fi
echo "Demo Title"
echo "Demo Channel"
`
	bin := filepath.Join(dir, "yt-dlp")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchWithFakeBinary(t *testing.T) {
	bin := writeFakeBinary(t, sampleVTT, 0)
	d := NewSubtitleFetcher(bin, "", quietLogger())

	rec, err := d.Fetch(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptRecord{
		Text:    "hello world this & that the end",
		Title:   "Demo Title",
		Channel: "Demo Channel",
		Source:  "ytdlp",
	}, rec)
}

func TestFetchNoSubtitles(t *testing.T) {
	bin := writeFakeBinary(t, "", 0)
	d := NewSubtitleFetcher(bin, "", quietLogger())

	_, err := d.Fetch(context.Background(), "https://youtu.be/abc")
	assert.ErrorIs(t, err, domain.ErrNoTranscript)
}

func TestFetchBinaryFails(t *testing.T) {
	bin := writeFakeBinary(t, sampleVTT, 1)
	d := NewSubtitleFetcher(bin, "", quietLogger())

	_, err := d.Fetch(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video unavailable")
	assert.Equal(t, domain.StageCollect, domain.StageOf(err))
}
