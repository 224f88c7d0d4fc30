package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Acme — Widgets as a Service</title>
  <meta name="description" content="Industrial widgets on subscription">
  <link rel="canonical" href="https://acme.example/">
  <script>console.log("tracking")</script>
</head>
<body>
  <h1>Widgets, delivered monthly</h1>
  <p>Acme builds industrial widgets for small manufacturers.</p>
  <style>.hidden { display: none }</style>
</body>
</html>`

func TestExtract(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bizclone/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage)) //nolint:errcheck
	}))
	defer ts.Close()

	e := New(Options{})
	pc, err := e.Extract(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, "Acme — Widgets as a Service", pc.Title)
	assert.Equal(t, "Industrial widgets on subscription", pc.Description)
	assert.Equal(t, "Widgets, delivered monthly", pc.PrimaryHeading)
	assert.Equal(t, "https://acme.example/", pc.CanonicalURL)
	assert.Contains(t, pc.TextExcerpt, "industrial widgets for small manufacturers")
	assert.NotContains(t, pc.TextExcerpt, "tracking", "script content must be stripped")
	assert.NotContains(t, pc.TextExcerpt, "display: none", "style content must be stripped")
}

func TestExtract_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	e := New(Options{})
	_, err := e.Extract(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestExtract_RateLimitedLowersRate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	limiter := NewAdaptiveLimiter(4, 4)
	e := New(Options{Limiter: limiter})

	_, err := e.Extract(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Less(t, float64(limiter.Limit()), 4.0)
}

func TestExtract_ExcerptTruncated(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("widget ", 1000) + "</p></body></html>"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(long)) //nolint:errcheck
	}))
	defer ts.Close()

	e := New(Options{})
	pc, err := e.Extract(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(pc.TextExcerpt), excerptLimit)
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	l := NewAdaptiveLimiter(2, 2)

	for i := 0; i < 20; i++ {
		l.OnSuccess()
	}
	assert.InDelta(t, 4.0, float64(l.Limit()), 1e-9, "rate caps at 2x initial")

	for i := 0; i < 20; i++ {
		l.OnRateLimit()
	}
	assert.InDelta(t, 0.5, float64(l.Limit()), 1e-9, "rate floors at initial/4")
}
