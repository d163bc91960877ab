package service

import (
	"net/http"
	"testing"
)

func TestSanitizeResponseHeaders(t *testing.T) {
	src := http.Header{
		"Content-Type":   {"audio/mpeg"},
		"Content-Length": {"1024"},
		"Accept-Ranges":  {"bytes"},
		"Etag":           {`"AbC-123"`},
		"Last-Modified":  {"Mon, 01 Jan 2025 00:00:00 GMT"},
		"Expires":        {"Tue, 02 Jan 2025 00:00:00 GMT"},

		"Server":                           {"nginx/1.24"},
		"Set-Cookie":                       {"session=abc"},
		"X-Powered-By":                     {"internal"},
		"Transfer-Encoding":                {"chunked"},
		"Access-Control-Allow-Credentials": {"true"},
	}

	dst := sanitizeResponseHeaders(src, cacheControlDefault)

	tests := []struct {
		name    string
		key     string
		wantLen int
	}{
		{"Content-Type forwarded", "Content-Type", 1},
		{"Content-Length forwarded", "Content-Length", 1},
		{"Accept-Ranges forwarded", "Accept-Ranges", 1},
		{"ETag forwarded", "ETag", 1},
		{"Last-Modified forwarded", "Last-Modified", 1},
		{"Expires forwarded", "Expires", 1},
		{"Server stripped", "Server", 0},
		{"Set-Cookie stripped", "Set-Cookie", 0},
		{"X-Powered-By stripped", "X-Powered-By", 0},
		{"Transfer-Encoding stripped", "Transfer-Encoding", 0},
		{"Allow-Credentials stripped", "Access-Control-Allow-Credentials", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := len(dst.Values(tt.key))
			if got != tt.wantLen {
				t.Errorf("header %q: got %d values, want %d", tt.key, got, tt.wantLen)
			}
		})
	}

	if got := dst.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
	}
	if got := dst.Get("ETag"); got != `"AbC-123"` {
		t.Errorf("ETag = %q, want value casing preserved", got)
	}
}

func TestSanitizeResponseHeaders_NeverLeaksUnknownNames(t *testing.T) {
	allowed := map[string]bool{
		"Access-Control-Allow-Origin": true,
		"Cache-Control":               true,
	}
	for _, key := range safeResponseHeaders {
		allowed[http.CanonicalHeaderKey(key)] = true
	}

	src := http.Header{
		"Content-Type":     {"text/html"},
		"Server":           {"Apache"},
		"Set-Cookie":       {"a=1", "b=2"},
		"X-Request-Id":     {"deadbeef"},
		"X-Amz-Cf-Id":      {"edge-trace"},
		"Www-Authenticate": {"Basic realm=internal"},
		"Location":         {"http://internal.host/admin"},
	}

	dst := sanitizeResponseHeaders(src, cacheControlDefault)

	for key := range dst {
		if !allowed[key] {
			t.Errorf("header %q leaked through sanitization", key)
		}
	}
}

func TestSanitizeResponseHeaders_CacheControl(t *testing.T) {
	tests := []struct {
		name     string
		src      http.Header
		fallback string
		want     string
	}{
		{
			name:     "default applied when absent",
			src:      http.Header{},
			fallback: cacheControlDefault,
			want:     "no-store",
		},
		{
			name:     "audio default applied when absent",
			src:      http.Header{},
			fallback: cacheControlAudio,
			want:     "public, max-age=3600",
		},
		{
			name:     "upstream value wins over default",
			src:      http.Header{"Cache-Control": {"max-age=60"}},
			fallback: cacheControlAudio,
			want:     "max-age=60",
		},
		{
			name:     "nil source still gets default",
			src:      nil,
			fallback: cacheControlDefault,
			want:     "no-store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := sanitizeResponseHeaders(tt.src, tt.fallback)
			if got := dst.Get("Cache-Control"); got != tt.want {
				t.Errorf("Cache-Control = %q, want %q", got, tt.want)
			}
			if got := dst.Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
			}
		})
	}
}

func TestAudioCacheControl(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, cacheControlAudio},
		{http.StatusPartialContent, cacheControlAudio},
		{http.StatusFound, cacheControlDefault},
		{http.StatusNotFound, cacheControlDefault},
		{http.StatusServiceUnavailable, cacheControlDefault},
	}

	for _, tt := range tests {
		if got := audioCacheControl(tt.status); got != tt.want {
			t.Errorf("audioCacheControl(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
