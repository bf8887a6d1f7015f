package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/internal/domain"
)

// fakeRunner replays canned responses and records every invocation
type fakeRunner struct {
	t          *testing.T
	calls      [][]string
	handle     func(name string, args []string) (string, error)
	mustNotRun bool
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	if f.mustNotRun {
		f.t.Fatalf("extraction tool invoked unexpectedly: %s %v", name, args)
	}
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.handle != nil {
		return f.handle(name, args)
	}
	return "", nil
}

// fakeProber returns a fixed duration
type fakeProber struct {
	duration float64
	err      error
}

func (f *fakeProber) ProbeDuration(context.Context, string) (float64, error) {
	return f.duration, f.err
}

func newTestDownloader(cfg domain.DownloadConfig, runner CommandRunner, prober DurationProber) *YTDLPDownloader {
	log := zap.NewNop()
	cookies := NewCookieProvider(CookieStrategy{Kind: CookieNone}, log)
	return NewYTDLPDownloader(cfg, cookies, runner, prober, NewJanitor(log), log)
}

func TestDownload_AlreadyPresentSkipsTool(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "dQw4w9WgXcQ.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("video"), 0644))

	runner := &fakeRunner{t: t, mustNotRun: true}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 120})

	result, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.NoError(t, err)
	assert.True(t, result.AlreadyPresent)
	assert.Equal(t, existing, result.FilePath)
	assert.Equal(t, "dQw4w9WgXcQ", result.Identifier)
	assert.Equal(t, 120.0, result.DurationSeconds)
}

func TestDownload_PartialFileDoesNotTriggerFastPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dQw4w9WgXcQ.mp4.part"), []byte("x"), 0644))

	final := filepath.Join(dir, "dQw4w9WgXcQ.mp4")
	runner := &fakeRunner{t: t, handle: func(name string, args []string) (string, error) {
		require.NoError(t, os.WriteFile(final, []byte("video"), 0644))
		return "[download] Destination: " + final + "\n", nil
	}}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 60})

	result, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.NoError(t, err)
	assert.False(t, result.AlreadyPresent)
	assert.Len(t, runner.calls, 1)

	// The janitor pre-pass removed the stale partial before the attempt.
	assert.NoFileExists(t, filepath.Join(dir, "dQw4w9WgXcQ.mp4.part"))
}

func TestDownload_DirectoryScanFallback(t *testing.T) {
	dir := t.TempDir()

	// The tool succeeds but reports nothing parseable; the artifact is
	// found by scanning for the identifier prefix.
	runner := &fakeRunner{t: t, handle: func(name string, args []string) (string, error) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dQw4w9WgXcQ.webm"), []byte("video"), 0644))
		return "some unrecognized chatter\n", nil
	}}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 60})

	result, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dQw4w9WgXcQ.webm"), result.FilePath)
}

func TestDownload_ToolFailureWrapsExtractionError(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{t: t, handle: func(name string, args []string) (string, error) {
		return "", &ProcessError{
			Command:  ShellEscapeCommand(name, args...),
			ExitCode: 1,
			Stderr:   "ERROR: unable to extract video data",
		}
	}}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 60})

	_, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Contains(t, domain.FailingCommand(err), "yt-dlp")
	assert.Contains(t, domain.FailingCommand(err), "--no-playlist")
}

func TestDownload_DurationCapDeletesArtifact(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "dQw4w9WgXcQ.mp4")
	runner := &fakeRunner{t: t, handle: func(name string, args []string) (string, error) {
		require.NoError(t, os.WriteFile(final, []byte("video"), 0644))
		// an interrupted merge leaves fragments behind too
		require.NoError(t, os.WriteFile(final+".part-Frag3", []byte("x"), 0644))
		return "[download] Destination: " + final + "\n", nil
	}}
	d := newTestDownloader(domain.DownloadConfig{
		YTDLPBinary:        "yt-dlp",
		MaxDurationSeconds: 1800,
	}, runner, &fakeProber{duration: 3600})

	_, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDurationExceeded)

	// Rejection leaves nothing behind for the identifier.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), "dQw4w9WgXcQ"),
			"leftover file after rejection: %s", entry.Name())
	}
}

func TestDownload_ZeroCapDisablesEnforcement(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "dQw4w9WgXcQ.mp4")
	runner := &fakeRunner{t: t, handle: func(name string, args []string) (string, error) {
		require.NoError(t, os.WriteFile(final, []byte("video"), 0644))
		return "[download] Destination: " + final + "\n", nil
	}}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 99999})

	result, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.NoError(t, err)
	assert.Equal(t, final, result.FilePath)
}

func TestDownload_ReportedDestinationMissing(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{t: t, handle: func(name string, args []string) (string, error) {
		return "[download] Destination: " + filepath.Join(dir, "vanished.mp4") + "\n", nil
	}}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 60})

	_, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestDownload_TikTokShortLinkFallback(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "tiktok_ZMabcdef.mp4")

	runner := &fakeRunner{t: t}
	runner.handle = func(name string, args []string) (string, error) {
		if len(runner.calls) == 1 {
			// primary strategy fails
			return "", &ProcessError{Command: name, ExitCode: 1, Stderr: "ERROR: no formats"}
		}
		// direct fallback writes the explicit target
		require.NoError(t, os.WriteFile(target, []byte("video"), 0644))
		return "", nil
	}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 30})

	result, err := d.Download(context.Background(), "https://vm.tiktok.com/ZMabcdef/", dir)
	require.NoError(t, err)
	assert.Equal(t, target, result.FilePath)
	require.Len(t, runner.calls, 2)

	fallback := runner.calls[1]
	assert.Contains(t, fallback, "-f")
	assert.Contains(t, fallback, "b")
	assert.Contains(t, fallback, "--no-check-certificates")
	assert.Contains(t, fallback, target)
}

func TestDownload_NoFallbackForCanonicalURLs(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{t: t, handle: func(name string, args []string) (string, error) {
		return "", &ProcessError{Command: name, ExitCode: 1, Stderr: "ERROR: no formats"}
	}}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{duration: 30})

	_, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.Error(t, err)
	assert.Len(t, runner.calls, 1, "canonical URLs get exactly one strategy")
}

func TestDownload_UnresolvableURL(t *testing.T) {
	runner := &fakeRunner{t: t, mustNotRun: true}
	d := newTestDownloader(domain.DownloadConfig{YTDLPBinary: "yt-dlp"}, runner, &fakeProber{})

	_, err := d.Download(context.Background(), "not a url", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrUnresolvable)
}

func TestNormalizeURL(t *testing.T) {
	d := newTestDownloader(domain.DownloadConfig{}, &fakeRunner{}, &fakeProber{})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "instagram login redirect unwrapped",
			input:    "https://www.instagram.com/accounts/login/?next=%2Freel%2FCabc123%2F",
			expected: "https://www.instagram.com/reel/Cabc123/",
		},
		{
			name:     "absolute next passes through",
			input:    "https://www.instagram.com/accounts/login/?next=https%3A%2F%2Fwww.instagram.com%2Fp%2FXyz%2F",
			expected: "https://www.instagram.com/p/Xyz/",
		},
		{
			name:     "tiktok embed left as-is",
			input:    "https://www.tiktok.com/embed/v2/7123456789",
			expected: "https://www.tiktok.com/embed/v2/7123456789",
		},
		{
			name:     "ordinary URL untouched",
			input:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.normalizeURL(tt.input))
		})
	}
}

func TestCompatFlags(t *testing.T) {
	assert.Equal(t,
		[]string{"--extractor-args", "youtube:player_client=android"},
		compatFlags("https://www.youtube.com/shorts/abc123"))

	flags := compatFlags("https://www.tiktok.com/@user/video/7123")
	assert.Contains(t, flags, "--user-agent")
	assert.Contains(t, flags, "--referer")

	assert.Nil(t, compatFlags("https://www.youtube.com/watch?v=abc"))
	assert.Nil(t, compatFlags("https://x.com/user/status/123"))
}

func TestParseDestination(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected string
	}{
		{
			name:     "destination line",
			output:   "[youtube] Extracting URL\n[download] Destination: /media/dQw4w9WgXcQ.mp4\n[download] 100%",
			expected: "/media/dQw4w9WgXcQ.mp4",
		},
		{
			name:     "merger line",
			output:   "[Merger] Merging formats into \"/media/dQw4w9WgXcQ.mkv\"\nDeleting original file",
			expected: "/media/dQw4w9WgXcQ.mkv",
		},
		{
			name:     "already downloaded",
			output:   "[download] /media/dQw4w9WgXcQ.mp4 has already been downloaded",
			expected: "/media/dQw4w9WgXcQ.mp4",
		},
		{
			name:     "ambiguous output",
			output:   "[youtube] Extracting URL\nnothing useful here",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseDestination(tt.output))
		})
	}
}

func TestFindArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.mp4.part"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.info.json"), []byte("{}"), 0644))
	assert.Empty(t, findArtifact(dir, "abc123"), "partials and sidecars are not artifacts")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.mp4"), []byte("x"), 0644))
	assert.Equal(t, filepath.Join(dir, "abc123.mp4"), findArtifact(dir, "abc123"))

	assert.Empty(t, findArtifact(dir, "zzz999"))
	assert.Empty(t, findArtifact(filepath.Join(dir, "missing"), "abc123"))
}

func TestIsTikTokShortLink(t *testing.T) {
	assert.True(t, isTikTokShortLink("https://vm.tiktok.com/ZMabcdef/"))
	assert.True(t, isTikTokShortLink("https://vt.tiktok.com/ZSxyz/"))
	assert.False(t, isTikTokShortLink("https://www.tiktok.com/@user/video/7123"))
	assert.False(t, isTikTokShortLink("https://www.youtube.com/watch?v=abc"))
}
