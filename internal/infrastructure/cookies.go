package infrastructure

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/internal/domain"
)

// netscapeHeader is the first-line comment yt-dlp requires in cookie files
const netscapeHeader = "# Netscape HTTP Cookie File"

// CookieStrategyKind tags the selected authentication mechanism
type CookieStrategyKind int

const (
	// CookieNone attaches no authentication
	CookieNone CookieStrategyKind = iota
	// CookieBrowser references a browser's own cookie store
	CookieBrowser
	// CookieFile points at a cookie file on disk
	CookieFile
)

// CookieStrategy is selected once per process from configuration and
// reused for every extraction command. Immutable after selection except
// for the lazy materialization of a non-native cookie file.
type CookieStrategy struct {
	Kind    CookieStrategyKind
	Browser string // browser name, Kind == CookieBrowser
	Profile string // optional profile, Kind == CookieBrowser
	Path    string // source cookie file, Kind == CookieFile
}

// SelectCookieStrategy chooses the strategy from configuration: a
// configured browser store wins over a cookie file path; neither means none.
func SelectCookieStrategy(cfg domain.CookiesConfig) CookieStrategy {
	if cfg.Browser != "" {
		return CookieStrategy{
			Kind:    CookieBrowser,
			Browser: cfg.Browser,
			Profile: cfg.BrowserProfile,
		}
	}
	if cfg.File != "" {
		return CookieStrategy{Kind: CookieFile, Path: cfg.File}
	}
	return CookieStrategy{Kind: CookieNone}
}

// CookieProvider renders yt-dlp auth arguments for the selected strategy,
// materializing file cookies into the Netscape dialect on first use.
// Safe for concurrent use; the first materialization for a source path
// wins and later callers observe the cached result.
type CookieProvider struct {
	strategy CookieStrategy
	logger   *zap.Logger

	mu          sync.Mutex
	materalized map[string]string // source path -> converted path
}

// NewCookieProvider creates a provider for the given strategy
func NewCookieProvider(strategy CookieStrategy, logger *zap.Logger) *CookieProvider {
	return &CookieProvider{
		strategy:    strategy,
		logger:      logger,
		materalized: make(map[string]string),
	}
}

// Strategy returns the selected strategy
func (p *CookieProvider) Strategy() CookieStrategy {
	return p.strategy
}

// Args returns the yt-dlp arguments attaching the selected authentication
func (p *CookieProvider) Args() ([]string, error) {
	switch p.strategy.Kind {
	case CookieBrowser:
		ref := p.strategy.Browser
		if p.strategy.Profile != "" {
			ref = ref + ":" + p.strategy.Profile
		}
		return []string{"--cookies-from-browser", ref}, nil
	case CookieFile:
		path, err := p.materializeFileCookies(p.strategy.Path)
		if err != nil {
			return nil, err
		}
		return []string{"--cookies", path}, nil
	default:
		return nil, nil
	}
}

// materializeFileCookies converts a foreign cookie-file dialect into the
// Netscape dialect yt-dlp requires. Files already carrying the header
// pass through unchanged. The result is cached by source path.
func (p *CookieProvider) materializeFileCookies(path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.materalized[path]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read cookie file: %w", err)
	}

	if strings.HasPrefix(strings.TrimSpace(string(data)), netscapeHeader) {
		p.materalized[path] = path
		return path, nil
	}

	converted, dropped := convertCookieLines(strings.Split(string(data), "\n"))

	outPath := path + ".netscape.txt"
	content := netscapeHeader + "\n" + strings.Join(converted, "\n")
	if len(converted) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(outPath, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write converted cookie file: %w", err)
	}

	p.logger.Info("Materialized cookie file",
		zap.String("source", path),
		zap.String("converted", outPath),
		zap.Int("cookies", len(converted)),
		zap.Int("dropped", dropped))

	p.materalized[path] = outPath
	return outPath, nil
}

// convertCookieLines accepts lines already in the 7-field Netscape dialect
// as-is and converts 6-field legacy lines by inserting the
// include-subdomains flag, derived from a leading dot on the domain.
// Malformed lines are dropped, not fatal.
func convertCookieLines(lines []string) (converted []string, dropped int) {
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		switch len(fields) {
		case 7:
			converted = append(converted, line)
		case 6:
			flag := "FALSE"
			if strings.HasPrefix(fields[0], ".") {
				flag = "TRUE"
			}
			out := []string{fields[0], flag}
			out = append(out, fields[1:]...)
			converted = append(converted, strings.Join(out, "\t"))
		default:
			dropped++
		}
	}
	return converted, dropped
}
