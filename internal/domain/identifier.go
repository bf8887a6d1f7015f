package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Identifier shapes:
//   - bare token:            dQw4w9WgXcQ (youtube) or 1234567890123456789 (x/twitter)
//   - platform-prefixed:     tiktok_<token>, instagram_<token>
//   - hash fallback:         url_<12 hex chars>
//
// The identifier doubles as the storage subdirectory name and the
// database lookup key, so it must be a deterministic function of the URL.

var (
	shortsPattern      = regexp.MustCompile(`^/shorts/([A-Za-z0-9_-]+)`)
	statusPattern      = regexp.MustCompile(`^/[^/]+/status/(\d+)`)
	tiktokVideoPattern = regexp.MustCompile(`^/@[^/]+/video/(\d+)`)
	tiktokEmbedPattern = regexp.MustCompile(`^/embed/v2/(\d+)`)
	instagramPattern   = regexp.MustCompile(`^/(?:p|reel|share)/([A-Za-z0-9_.-]+)`)
)

// hostRule pairs a host predicate with a resolve function. Rules are
// evaluated in order and the first matching host wins; if its resolve
// function extracts nothing the hash fallback applies.
type hostRule struct {
	match   func(host string) bool
	resolve func(u *url.URL) (string, bool)
}

// Populated in init: the instagram rule recurses into ResolveIdentifier,
// which walks this table, so a plain var initializer would be cyclic.
var identifierRules []hostRule

func init() {
	identifierRules = []hostRule{
		{
			// TikTok share short-links: https://vm.tiktok.com/ZMabcdef/
			match: func(h string) bool { return h == "vm.tiktok.com" || h == "vt.tiktok.com" },
			resolve: func(u *url.URL) (string, bool) {
				token := lastPathSegment(u.Path)
				if token == "" {
					// a bare short-link host without a path still names
					// something; fall back to the host's first label
					token = strings.SplitN(u.Hostname(), ".", 2)[0]
				}
				return "tiktok_" + token, true
			},
		},
		{
			// Canonical player short-links: https://youtu.be/<id>
			match: func(h string) bool { return h == "youtu.be" },
			resolve: func(u *url.URL) (string, bool) {
				token := strings.Trim(u.Path, "/")
				if i := strings.Index(token, "?"); i >= 0 {
					token = token[:i]
				}
				if token == "" {
					return "", false
				}
				return token, true
			},
		},
		{
			// Long-form youtube: watch?v=<id> or /shorts/<id>
			match: func(h string) bool { return h == "youtube.com" || strings.HasSuffix(h, ".youtube.com") },
			resolve: func(u *url.URL) (string, bool) {
				if v := u.Query().Get("v"); v != "" {
					return v, true
				}
				if m := shortsPattern.FindStringSubmatch(u.Path); m != nil {
					return m[1], true
				}
				return "", false
			},
		},
		{
			// X/Twitter status URLs yield the bare numeric token.
			match: func(h string) bool {
				return h == "x.com" || h == "www.x.com" || h == "twitter.com" || h == "www.twitter.com"
			},
			resolve: func(u *url.URL) (string, bool) {
				if m := statusPattern.FindStringSubmatch(u.Path); m != nil {
					return m[1], true
				}
				return "", false
			},
		},
		{
			// TikTok canonical video and embed URLs.
			match: func(h string) bool { return h == "tiktok.com" || strings.HasSuffix(h, ".tiktok.com") },
			resolve: func(u *url.URL) (string, bool) {
				if m := tiktokVideoPattern.FindStringSubmatch(u.Path); m != nil {
					return "tiktok_" + m[1], true
				}
				if m := tiktokEmbedPattern.FindStringSubmatch(u.Path); m != nil {
					return "tiktok_" + m[1], true
				}
				return "", false
			},
		},
		{
			// Instagram posts, reels and shares. A login-redirect URL carries
			// the original URL percent-encoded in ?next=; decode and recurse.
			match: func(h string) bool { return h == "instagram.com" || strings.HasSuffix(h, ".instagram.com") },
			resolve: func(u *url.URL) (string, bool) {
				if strings.HasPrefix(u.Path, "/accounts/login") {
					next := u.Query().Get("next")
					if next == "" {
						return "", false
					}
					if !strings.HasPrefix(next, "http") {
						next = "https://www.instagram.com" + next
					}
					id, err := ResolveIdentifier(next)
					if err != nil {
						return "", false
					}
					return id, true
				}
				if m := instagramPattern.FindStringSubmatch(u.Path); m != nil {
					return "instagram_" + m[1], true
				}
				return "", false
			},
		},
	}
}

// ResolveIdentifier maps a raw media URL to a stable opaque identifier.
// It is a pure function: the same URL always yields the same identifier,
// and no network access is involved.
func ResolveIdentifier(rawURL string) (string, error) {
	cleaned := strings.TrimSpace(rawURL)

	// Copy-pasted share links often carry tracking junk after the first
	// recognized query parameter; everything from the first '&' is noise.
	if i := strings.Index(cleaned, "&"); i > 0 {
		cleaned = cleaned[:i]
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnresolvable, rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", ErrUnresolvable, rawURL)
	}

	host := strings.ToLower(u.Hostname())
	for _, rule := range identifierRules {
		if rule.match(host) {
			if id, ok := rule.resolve(u); ok {
				return id, nil
			}
			break
		}
	}

	return hashIdentifier(cleaned), nil
}

// hashIdentifier derives the url_<digest> fallback: 12 hex characters
// of the xxhash64 of the full URL string.
func hashIdentifier(rawURL string) string {
	sum := xxhash.Sum64String(rawURL)
	return fmt.Sprintf("url_%012x", sum&0xffffffffffff)
}

// lastPathSegment returns the last non-empty slash-delimited path
// segment, with any trailing query fragment stripped.
func lastPathSegment(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if j := strings.Index(seg, "?"); j >= 0 {
			seg = seg[:j]
		}
		if seg != "" {
			return seg
		}
	}
	return ""
}
