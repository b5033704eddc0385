package bundle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	cacheKey = "bundle-version"
	// detected versions stay valid for an hour before re-detection
	cacheTTL = time.Hour
)

var (
	scriptSrcPattern    = regexp.MustCompile(`(?i)<script[^>]+src=["']([^"']+\.js[^"']*)["']`)
	moduleImportPattern = regexp.MustCompile(`import\(["']([^"']+\.js[^"']*)["']\)`)
	mainAssetPattern    = regexp.MustCompile(`["'](/[^"']*main[^"']*\.js[^"']*)["']`)

	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)bundleVersion["']?\s*[:=]\s*["']([a-f0-9]{8,})["']`),
		regexp.MustCompile(`(?i)["']bundleVersion["']\s*[:=]\s*["']([a-f0-9]{8,})["']`),
	}

	// terms that must appear near a candidate for it to count as the real
	// bundle version rather than an unrelated hex constant
	contextTerms = []string{"api/calls", "requests", "httpclient", "axios", "fetch", "/api/", "bundleversion"}
)

// Detector discovers the bundleVersion by scraping the portal's main page
// for script bundles and searching them for the embedded constant. Results
// are cached for an hour; on any failure the configured fallback is used so
// polling never stalls on detection.
type Detector struct {
	httpClient *http.Client
	baseURL    string
	fallback   string
	cache      *gocache.Cache
}

var _ Provider = (*Detector)(nil)

// NewDetector creates a detector for the given portal base URL.
func NewDetector(baseURL, fallback string) *Detector {
	if fallback == "" {
		fallback = FallbackVersion
	}
	return &Detector{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		fallback:   fallback,
		cache:      gocache.New(cacheTTL, 10*time.Minute),
	}
}

// BundleVersion returns the cached version or runs one detection pass.
func (d *Detector) BundleVersion(ctx context.Context) (string, error) {
	if cached, ok := d.cache.Get(cacheKey); ok {
		return cached.(string), nil
	}

	version := d.detect(ctx)
	d.cache.Set(cacheKey, version, gocache.DefaultExpiration)
	return version, nil
}

// detect fetches the main page, walks its script bundles and returns the
// first validated bundleVersion, or the fallback.
func (d *Detector) detect(ctx context.Context) string {
	page, err := d.fetch(ctx, d.baseURL)
	if err != nil {
		return d.fallback
	}

	for _, jsURL := range extractScriptURLs(page) {
		content, err := d.fetch(ctx, d.resolveURL(jsURL))
		if err != nil {
			continue
		}
		if version := findBundleVersion(content); version != "" {
			return version
		}
	}
	return d.fallback
}

func (d *Detector) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (d *Detector) resolveURL(jsURL string) string {
	switch {
	case strings.HasPrefix(jsURL, "http"):
		return jsURL
	case strings.HasPrefix(jsURL, "/"):
		return d.baseURL + jsURL
	default:
		return d.baseURL + "/" + jsURL
	}
}

// extractScriptURLs collects candidate JavaScript bundle URLs from the
// portal's HTML: script tags, dynamic imports and main-asset references.
func extractScriptURLs(html string) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, pattern := range []*regexp.Regexp{scriptSrcPattern, moduleImportPattern, mainAssetPattern} {
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			url := match[1]
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			urls = append(urls, url)
		}
	}
	return urls
}

// findBundleVersion searches one bundle for a version constant that appears
// in an API-related context.
func findBundleVersion(js string) string {
	for _, pattern := range versionPatterns {
		for _, match := range pattern.FindAllStringSubmatchIndex(js, -1) {
			candidate := js[match[2]:match[3]]
			if validateContext(js, match[2]) {
				return candidate
			}
		}
	}
	return ""
}

// validateContext checks the surrounding 1000 characters for API-related
// terms, which filters out unrelated hex constants.
func validateContext(js string, pos int) bool {
	start := pos - 1000
	if start < 0 {
		start = 0
	}
	end := pos + 1000
	if end > len(js) {
		end = len(js)
	}
	window := strings.ToLower(js[start:end])
	for _, term := range contextTerms {
		if strings.Contains(window, term) {
			return true
		}
	}
	return false
}
