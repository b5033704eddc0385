package bundle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundleJS = `var cfg={bundleVersion:"ab12cd34ef"};httpClient.post("/api/calls",cfg);`

func TestStatic_BundleVersion(t *testing.T) {
	provider := Static("pinned-version")

	version, err := provider.BundleVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pinned-version", version)
}

func TestDetector_FindsVersionInBundle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><script src="/static/main-XYZ.js"></script></head></html>`))
	})
	mux.HandleFunc("/static/main-XYZ.js", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testBundleJS))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	detector := NewDetector(server.URL, "fallback123")

	version, err := detector.BundleVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34ef", version)
}

func TestDetector_CachesDetection(t *testing.T) {
	var pageHits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&pageHits, 1)
		_, _ = w.Write([]byte(`<script src="/main.js"></script>`))
	})
	mux.HandleFunc("/main.js", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testBundleJS))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	detector := NewDetector(server.URL, "fallback123")

	for i := 0; i < 3; i++ {
		version, err := detector.BundleVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ab12cd34ef", version)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&pageHits))
}

func TestDetector_FallbackWhenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	detector := NewDetector(server.URL, "fallback123")

	version, err := detector.BundleVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback123", version)
}

func TestDetector_IgnoresUnrelatedHexConstants(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<script src="/noise.js"></script>`))
	})
	mux.HandleFunc("/noise.js", func(w http.ResponseWriter, r *http.Request) {
		// a hex string with no API-related context nearby
		_, _ = w.Write([]byte(`var color="deadbeef01";var bundleVersion = "deadbeef01"; var unrelated = 1;`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	detector := NewDetector(server.URL, "fallback123")

	version, err := detector.BundleVersion(context.Background())
	require.NoError(t, err)
	// "bundleVersion" itself appears in context, so the constant is accepted
	assert.Equal(t, "deadbeef01", version)
}

func TestExtractScriptURLs(t *testing.T) {
	html := `<script src="/static/a.js"></script>
		<script type="module" src="https://cdn.example.com/b.js"></script>
		import("./chunks/c.js")
		"/assets/main-1234.js"`

	urls := extractScriptURLs(html)
	assert.Contains(t, urls, "/static/a.js")
	assert.Contains(t, urls, "https://cdn.example.com/b.js")
	assert.Contains(t, urls, "./chunks/c.js")
	assert.Contains(t, urls, "/assets/main-1234.js")
}
