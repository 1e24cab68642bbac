package validation

import (
	"reflect"
	"testing"
)

func TestIsVideoURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"watch form", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", true},
		{"shorts", "https://www.youtube.com/shorts/abc123XYZ_-", true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", true},
		{"playlist", "https://www.youtube.com/playlist?list=PLabc123", true},
		{"mobile subdomain", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"schemeless", "youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"http scheme", "http://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"wrong host", "https://vimeo.com/12345", false},
		{"lookalike host", "https://notyoutube.com/watch?v=dQw4w9WgXcQ", false},
		{"watch without id", "https://www.youtube.com/watch", false},
		{"playlist without id", "https://www.youtube.com/playlist", false},
		{"bare short host", "https://youtu.be/", false},
		{"ftp scheme", "ftp://youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"channel page", "https://www.youtube.com/@somechannel", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsVideoURL(tt.url); got != tt.want {
				t.Errorf("IsVideoURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch form", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/abc123XYZ_-", "abc123XYZ_-"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"playlist has no video id", "https://www.youtube.com/playlist?list=PLabc123", ""},
		{"non-youtube", "https://example.com/watch?v=dQw4w9WgXcQ", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractVideoID(tt.url); got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSanitizeURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "mixed separators",
			text: "https://youtu.be/aaa111\nhttps://youtu.be/bbb222, https://youtu.be/ccc333",
			want: []string{"https://youtu.be/aaa111", "https://youtu.be/bbb222", "https://youtu.be/ccc333"},
		},
		{
			name: "duplicate video id across url forms",
			text: "https://www.youtube.com/watch?v=aaa111 https://youtu.be/aaa111",
			want: []string{"https://www.youtube.com/watch?v=aaa111"},
		},
		{
			name: "invalid entries dropped",
			text: "not-a-url https://vimeo.com/1 https://youtu.be/aaa111",
			want: []string{"https://youtu.be/aaa111"},
		},
		{
			name: "playlists dedupe by full url",
			text: "https://www.youtube.com/playlist?list=PLone https://www.youtube.com/playlist?list=PLone https://www.youtube.com/playlist?list=PLtwo",
			want: []string{"https://www.youtube.com/playlist?list=PLone", "https://www.youtube.com/playlist?list=PLtwo"},
		},
		{
			name: "empty input",
			text: "   \n ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeURLs(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SanitizeURLs(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestThumbnailURL(t *testing.T) {
	t.Parallel()

	if got := ThumbnailURL("https://youtu.be/aaa111", "hqdefault"); got != "https://i.ytimg.com/vi/aaa111/hqdefault.jpg" {
		t.Errorf("unexpected thumbnail URL %q", got)
	}
	if got := ThumbnailURL("https://youtu.be/aaa111", ""); got != "https://i.ytimg.com/vi/aaa111/mqdefault.jpg" {
		t.Errorf("expected mqdefault fallback, got %q", got)
	}
	if got := ThumbnailURL("https://www.youtube.com/playlist?list=PLone", "hqdefault"); got != "" {
		t.Errorf("expected empty result for playlist, got %q", got)
	}
}
