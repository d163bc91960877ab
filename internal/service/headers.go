package service

import "net/http"

// safeResponseHeaders are the only upstream response headers relayed to the
// caller. Everything else (Server, Set-Cookie, internal routing headers) stays
// behind the proxy.
var safeResponseHeaders = []string{
	"Content-Type",
	"Cache-Control",
	"Accept-Ranges",
	"Content-Length",
	"Content-Range",
	"ETag",
	"Last-Modified",
	"Expires",
}

const (
	cacheControlDefault = "no-store"

	// Successfully fetched audio is treated as cacheable for an hour unless
	// the upstream says otherwise.
	cacheControlAudio = "public, max-age=3600"
)

// audioCacheControl picks the Cache-Control fallback for a relayed audio
// response. Only 2xx responses get the long-lived default; a cached upstream
// error would otherwise be replayed until it expires.
func audioCacheControl(statusCode int) string {
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return cacheControlAudio
	}
	return cacheControlDefault
}

// sanitizeResponseHeaders builds a fresh outbound header set from an upstream
// response's headers. Only names on the safe-list are copied (value casing
// preserved); Access-Control-Allow-Origin is always * since the proxy is a
// public unauthenticated relay, and Cache-Control falls back to
// defaultCacheControl when the upstream supplied none.
func sanitizeResponseHeaders(src http.Header, defaultCacheControl string) http.Header {
	dst := make(http.Header, len(safeResponseHeaders)+1)
	for _, key := range safeResponseHeaders {
		if vals := src.Values(key); len(vals) > 0 {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	if dst.Get("Cache-Control") == "" {
		dst.Set("Cache-Control", defaultCacheControl)
	}
	dst.Set("Access-Control-Allow-Origin", "*")
	return dst
}
