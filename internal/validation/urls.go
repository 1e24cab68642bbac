// Package validation validates and normalizes user-submitted URLs.
package validation

import (
	"net/url"
	"regexp"
	"strings"
)

var splitPattern = regexp.MustCompile(`[\n,\s]+`)

var videoHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
	"www.youtu.be":      true,
}

// IsVideoURL reports whether the candidate is a supported YouTube URL.
// It is a total function: malformed input returns false, never an error.
func IsVideoURL(candidate string) bool {
	parsed, ok := parseCandidate(candidate)
	if !ok {
		return false
	}

	host := parsed.Hostname()
	if !videoHosts[host] {
		return false
	}

	// Short-link form carries the video ID as the path.
	if host == "youtu.be" || host == "www.youtu.be" {
		return len(parsed.Path) > 1
	}

	// Standard watch form.
	if parsed.Query().Get("v") != "" {
		return true
	}

	// Playlist form.
	if strings.HasPrefix(parsed.Path, "/playlist") && parsed.Query().Get("list") != "" {
		return true
	}

	// Shorts and embed forms carry the ID as a path segment.
	for _, part := range strings.Split(parsed.Path, "/") {
		if part == "shorts" || part == "embed" {
			return true
		}
	}

	return false
}

// ExtractVideoID returns the video ID for a supported URL, or "" when
// none can be determined (e.g. playlist form).
func ExtractVideoID(candidate string) string {
	parsed, ok := parseCandidate(candidate)
	if !ok {
		return ""
	}

	host := parsed.Hostname()
	if host == "youtu.be" || host == "www.youtu.be" {
		trimmed := strings.TrimPrefix(parsed.Path, "/")
		if i := strings.IndexByte(trimmed, '/'); i >= 0 {
			trimmed = trimmed[:i]
		}
		return trimmed
	}

	if !strings.Contains(host, "youtube.com") {
		return ""
	}

	if v := parsed.Query().Get("v"); v != "" {
		return v
	}

	parts := strings.Split(parsed.Path, "/")
	for i, part := range parts {
		if (part == "shorts" || part == "embed") && i+1 < len(parts) {
			return parts[i+1]
		}
	}

	return ""
}

// SanitizeURLs splits free-form input on newlines, commas and spaces,
// trims each entry, drops blanks and invalid URLs, and deduplicates by
// video ID (or by full URL when no ID can be extracted).
func SanitizeURLs(text string) []string {
	candidates := splitPattern.Split(strings.TrimSpace(text), -1)

	valid := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || !IsVideoURL(candidate) {
			continue
		}

		key := ExtractVideoID(candidate)
		if key == "" {
			key = candidate
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		valid = append(valid, candidate)
	}

	return valid
}

// ThumbnailURL derives the static thumbnail URL for a video URL.
// Returns "" when no video ID can be extracted.
func ThumbnailURL(candidate, quality string) string {
	id := ExtractVideoID(candidate)
	if id == "" {
		return ""
	}
	if quality == "" {
		quality = "mqdefault"
	}
	return "https://i.ytimg.com/vi/" + id + "/" + quality + ".jpg"
}

// parseCandidate parses a candidate URL, tolerating a missing scheme
// and rejecting non-HTTP schemes.
func parseCandidate(candidate string) (*url.URL, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, false
	}

	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return nil, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false
	}
	return parsed, true
}
