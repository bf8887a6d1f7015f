package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/internal/domain"
)

// tiktokUserAgent is pinned because tiktok serves a bot wall to the
// extraction tool's default agent
const tiktokUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CommandRunner executes an external command and returns its stdout
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// DurationProber measures a media file's duration in seconds
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// urlRewrite is one entry in the ordered normalization table. Transform
// returns the (possibly unchanged) URL to hand to the extraction tool.
type urlRewrite struct {
	name      string
	match     func(u *url.URL) bool
	transform func(u *url.URL, raw string, logger *zap.Logger) string
}

var urlRewrites = []urlRewrite{
	{
		// Instagram short-links bounce through a login wall; the original
		// URL rides along percent-encoded in ?next=.
		name: "instagram-login-redirect",
		match: func(u *url.URL) bool {
			return strings.HasSuffix(u.Hostname(), "instagram.com") &&
				strings.HasPrefix(u.Path, "/accounts/login") &&
				u.Query().Get("next") != ""
		},
		transform: func(u *url.URL, raw string, logger *zap.Logger) string {
			next := u.Query().Get("next")
			if !strings.HasPrefix(next, "http") {
				next = "https://www.instagram.com" + next
			}
			logger.Info("Normalized login-redirect URL",
				zap.String("from", raw), zap.String("to", next))
			return next
		},
	},
	{
		// The extraction tool does not understand tiktok embed URLs, and
		// there is no rewrite that reliably reaches the canonical page.
		// Warn and let the attempt fail naturally.
		name: "tiktok-embed",
		match: func(u *url.URL) bool {
			return strings.HasSuffix(u.Hostname(), "tiktok.com") &&
				strings.HasPrefix(u.Path, "/embed/")
		},
		transform: func(u *url.URL, raw string, logger *zap.Logger) string {
			logger.Warn("Embed URLs are not supported by the extraction tool, proceeding anyway",
				zap.String("url", raw))
			return raw
		},
	},
}

// downloadStrategy is one concrete way of invoking the extraction tool.
// Strategies are tried in a fixed order; a strategy is abandoned only on
// a production failure (non-zero exit or missing artifact).
type downloadStrategy struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// YTDLPDownloader orchestrates multi-tier downloads through yt-dlp and
// guarantees the returned artifact is verified present on disk.
type YTDLPDownloader struct {
	config  domain.DownloadConfig
	cookies *CookieProvider
	runner  CommandRunner
	prober  DurationProber
	janitor *Janitor
	logger  *zap.Logger
}

// NewYTDLPDownloader creates a new download orchestrator
func NewYTDLPDownloader(
	config domain.DownloadConfig,
	cookies *CookieProvider,
	runner CommandRunner,
	prober DurationProber,
	janitor *Janitor,
	logger *zap.Logger,
) *YTDLPDownloader {
	return &YTDLPDownloader{
		config:  config,
		cookies: cookies,
		runner:  runner,
		prober:  prober,
		janitor: janitor,
		logger:  logger,
	}
}

// Download resolves rawURL to an identifier, fetches the media into
// outputDir, enforces the duration cap, and returns a verified result.
// An artifact already on disk for the identifier is returned as a fast
// path without invoking the extraction tool.
func (d *YTDLPDownloader) Download(ctx context.Context, rawURL, outputDir string) (*domain.DownloadResult, error) {
	identifier, err := domain.ResolveIdentifier(rawURL)
	if err != nil {
		return nil, err
	}

	d.janitor.CleanupPartials(outputDir, identifier)

	if existing := findArtifact(outputDir, identifier); existing != "" {
		d.logger.Info("Artifact already present, skipping download",
			zap.String("identifier", identifier),
			zap.String("path", existing))
		duration, probeErr := d.prober.ProbeDuration(ctx, existing)
		if probeErr != nil {
			d.logger.Warn("Failed to probe existing artifact",
				zap.String("path", existing), zap.Error(probeErr))
		}
		return &domain.DownloadResult{
			Identifier:      identifier,
			FilePath:        existing,
			DurationSeconds: duration,
			AlreadyPresent:  true,
		}, nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	targetURL := d.normalizeURL(rawURL)

	var filePath string
	var lastErr error
	for _, strategy := range d.strategiesFor(identifier, targetURL, outputDir) {
		d.logger.Info("Trying download strategy",
			zap.String("strategy", strategy.name),
			zap.String("identifier", identifier))
		path, err := strategy.run(ctx)
		if err == nil {
			filePath = path
			break
		}
		lastErr = err
		d.logger.Warn("Download strategy failed",
			zap.String("strategy", strategy.name),
			zap.String("identifier", identifier),
			zap.Error(err))
	}

	if filePath == "" {
		return nil, domain.NewPipelineError(domain.ErrExtractionFailed, failedCommand(lastErr), lastErr)
	}

	if _, err := os.Stat(filePath); err != nil {
		return nil, domain.NewPipelineError(domain.ErrArtifactMissing, "",
			fmt.Errorf("winning strategy reported %s: %w", filePath, err))
	}

	duration, err := d.prober.ProbeDuration(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to measure duration of %s: %w", filePath, err)
	}

	// Duration is frequently unknown before fetching, so the cap is
	// enforced strictly after download, uniformly for all platforms.
	if d.config.MaxDurationSeconds > 0 && duration > d.config.MaxDurationSeconds {
		if err := os.Remove(filePath); err != nil {
			d.logger.Warn("Failed to delete over-length artifact",
				zap.String("path", filePath), zap.Error(err))
		}
		// Fragments from the rejected download must not linger either.
		d.janitor.CleanupPartials(outputDir, identifier)
		return nil, domain.NewPipelineError(domain.ErrDurationExceeded, "",
			fmt.Errorf("duration %.0fs exceeds maximum %.0fs", duration, d.config.MaxDurationSeconds))
	}

	d.janitor.CleanupPartials(outputDir, identifier)

	return &domain.DownloadResult{
		Identifier:      identifier,
		FilePath:        filePath,
		DurationSeconds: duration,
	}, nil
}

// normalizeURL walks the rewrite table and applies the first match
func (d *YTDLPDownloader) normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	for _, rw := range urlRewrites {
		if rw.match(u) {
			return rw.transform(u, rawURL, d.logger)
		}
	}
	return rawURL
}

// strategiesFor builds the ordered strategy list for one download
func (d *YTDLPDownloader) strategiesFor(identifier, targetURL, outputDir string) []downloadStrategy {
	strategies := []downloadStrategy{
		{
			name: "primary",
			run: func(ctx context.Context) (string, error) {
				return d.runPrimary(ctx, identifier, targetURL, outputDir)
			},
		},
	}

	// TikTok share short-links are known to defeat format negotiation;
	// a maximally permissive direct invocation is the last resort.
	if isTikTokShortLink(targetURL) {
		strategies = append(strategies, downloadStrategy{
			name: "direct-fallback",
			run: func(ctx context.Context) (string, error) {
				return d.runDirectFallback(ctx, identifier, targetURL, outputDir)
			},
		})
	}

	return strategies
}

// runPrimary invokes yt-dlp with auth arguments, the id-keyed output
// template, and platform compatibility flags. Ambiguous output never
// fails the strategy outright: it falls through to a directory scan.
func (d *YTDLPDownloader) runPrimary(ctx context.Context, identifier, targetURL, outputDir string) (string, error) {
	args := []string{
		"--no-playlist",
		"--restrict-filenames",
		"-o", filepath.Join(outputDir, "%(id)s.%(ext)s"),
	}

	cookieArgs, err := d.cookies.Args()
	if err != nil {
		return "", fmt.Errorf("failed to prepare cookie arguments: %w", err)
	}
	args = append(args, cookieArgs...)
	args = append(args, compatFlags(targetURL)...)
	args = append(args, targetURL)

	out, err := d.runner.Run(ctx, d.config.YTDLPBinary, args...)
	if err != nil {
		return "", err
	}

	if dest := parseDestination(out); dest != "" {
		return dest, nil
	}
	if found := findArtifact(outputDir, identifier); found != "" {
		return found, nil
	}
	return "", &ProcessError{
		Command:  ShellEscapeCommand(d.config.YTDLPBinary, args...),
		ExitCode: 0,
		Stderr:   "tool exited successfully but no destination was reported or found",
	}
}

// runDirectFallback invokes yt-dlp with a reduced, maximally permissive
// flag set and an explicit output filename. Success is defined strictly
// by the target file existing afterward.
func (d *YTDLPDownloader) runDirectFallback(ctx context.Context, identifier, targetURL, outputDir string) (string, error) {
	target := filepath.Join(outputDir, identifier+".mp4")
	args := []string{
		"-f", "b",
		"--no-check-certificates",
		"-o", target,
		targetURL,
	}

	if _, err := d.runner.Run(ctx, d.config.YTDLPBinary, args...); err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		return "", &ProcessError{
			Command:  ShellEscapeCommand(d.config.YTDLPBinary, args...),
			ExitCode: 0,
			Stderr:   "tool exited successfully but " + target + " does not exist",
		}
	}
	return target, nil
}

// compatFlags returns platform-specific flags for the primary strategy
func compatFlags(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case (host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")) &&
		strings.HasPrefix(u.Path, "/shorts/"):
		// short-form video paths need the alternate client
		return []string{"--extractor-args", "youtube:player_client=android"}
	case strings.HasSuffix(host, "tiktok.com"):
		return []string{
			"--user-agent", tiktokUserAgent,
			"--referer", "https://www.tiktok.com/",
		}
	}
	return nil
}

// isTikTokShortLink reports whether the URL is a vm/vt share short-link
func isTikTokShortLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	h := strings.ToLower(u.Hostname())
	return h == "vm.tiktok.com" || h == "vt.tiktok.com"
}

// parseDestination extracts the downloaded file path from yt-dlp output.
// Returns an empty string when the output is ambiguous.
func parseDestination(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "[download] Destination: "); ok {
			return rest
		}
		if rest, ok := strings.CutPrefix(line, "[Merger] Merging formats into \""); ok {
			return strings.TrimSuffix(rest, "\"")
		}
		if rest, ok := strings.CutPrefix(line, "[download] "); ok {
			if path, found := strings.CutSuffix(rest, " has already been downloaded"); found {
				return path
			}
		}
	}
	return ""
}

// findArtifact scans dir for a non-partial file prefixed by identifier
func findArtifact(dir, identifier string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, identifier) {
			continue
		}
		if isPartialFile(name) || strings.HasSuffix(name, ".info.json") {
			continue
		}
		return filepath.Join(dir, name)
	}
	return ""
}
