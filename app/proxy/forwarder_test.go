package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/metzger100/newznabrewritarr/app/rewrite"
)

const testSearchXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:newznab="http://www.newznab.com/DTD/2010/feeds/attributes/">
  <channel>
    <title>Test Indexer</title>
    <item>
      <title>Bad-Title-Music-FLAC-2020</title>
      <category>3000</category>
      <newznab:attr name="category" value="3000"/>
      <newznab:attr name="artist" value="Die Toten Hosen"/>
      <newznab:attr name="album" value="Alles ohne Strom"/>
    </item>
  </channel>
</rss>`

func newTestForwarder(timeout time.Duration) *Forwarder {
	return &Forwarder{
		client: &http.Client{Timeout: timeout},
		engine: rewrite.NewEngine(rewrite.Options{
			Music:      true,
			Books:      true,
			Audiobooks: true,
			BestEffort: true,
		}, rewrite.DefaultRules()),
		stats:     &Stats{},
		userAgent: "test-agent",
	}
}

func TestRedactAPIKey(t *testing.T) {
	got := RedactAPIKey("http://indexer.example.com/api?t=search&apikey=deadbeef&q=test")
	if strings.Contains(got, "deadbeef") {
		t.Errorf("API key must be redacted, got %q", got)
	}
	if !strings.Contains(got, "apikey=***") {
		t.Errorf("Expected masked API key, got %q", got)
	}

	// Case-insensitive match
	got = RedactAPIKey("http://indexer.example.com/api?APIKEY=deadbeef")
	if strings.Contains(got, "deadbeef") {
		t.Errorf("Upper-case API key must be redacted, got %q", got)
	}
}

func TestShouldRewrite(t *testing.T) {
	f := newTestForwarder(time.Second)

	searchURL, _ := url.Parse("http://indexer.example.com/api?t=search&apikey=x")
	capsURL, _ := url.Parse("http://indexer.example.com/api?t=caps&apikey=x")
	plainURL, _ := url.Parse("http://indexer.example.com/download/abc.nzb")

	if !f.shouldRewrite(searchURL, "application/rss+xml; charset=utf-8", nil) {
		t.Error("Search response with XML content type must qualify")
	}
	if !f.shouldRewrite(searchURL, "text/html", []byte("  <?xml version=\"1.0\"?><rss/>")) {
		t.Error("Sniffed XML prologue must qualify despite the content type")
	}
	if f.shouldRewrite(capsURL, "application/xml", []byte("<?xml version=\"1.0\"?>")) {
		t.Error("Capabilities responses must never be rewritten")
	}
	if f.shouldRewrite(plainURL, "application/rss+xml", nil) {
		t.Error("Non-search requests must never be rewritten")
	}
	if f.shouldRewrite(searchURL, "application/octet-stream", []byte{0x1f, 0x8b, 0x08}) {
		t.Error("Binary bodies must not qualify")
	}
}

func TestForwarderRewritesSearchResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Header().Set("X-Indexer", "test")
		w.Write([]byte(testSearchXML))
	}))
	defer upstream.Close()

	f := newTestForwarder(5 * time.Second)

	req := httptest.NewRequest(http.MethodGet, upstream.URL+"/api?t=search&apikey=secret", nil)
	rec := httptest.NewRecorder()
	f.Run(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "Die Toten Hosen-Alles ohne Strom-FLAC-2020") {
		t.Errorf("Expected rewritten title in response body, got: %s", body)
	}
	if strings.Contains(body, "Bad-Title-Music") {
		t.Error("Original broken title must not survive the rewrite")
	}

	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(rec.Body.Len()) {
		t.Errorf("Content-Length %s does not match body length %d", got, rec.Body.Len())
	}
	if rec.Header().Get("X-Indexer") != "test" {
		t.Error("Non-framing response headers must be forwarded")
	}
}

func TestForwarderLeavesNonSearchUntouched(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(testSearchXML))
	}))
	defer upstream.Close()

	f := newTestForwarder(5 * time.Second)

	req := httptest.NewRequest(http.MethodGet, upstream.URL+"/api?t=caps&apikey=secret", nil)
	rec := httptest.NewRecorder()
	f.Run(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != testSearchXML {
		t.Error("Capabilities response must be forwarded unmodified")
	}
}

func TestForwarderBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := upstream.URL
	upstream.Close()

	f := newTestForwarder(5 * time.Second)

	req := httptest.NewRequest(http.MethodGet, target+"/api?t=search", nil)
	rec := httptest.NewRecorder()
	f.Run(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for an unreachable upstream, got %d", rec.Code)
	}
}

func TestForwarderGatewayTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer upstream.Close()

	f := newTestForwarder(50 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, upstream.URL+"/api?t=search", nil)
	rec := httptest.NewRecorder()
	f.Run(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected 504 for a timed-out upstream, got %d", rec.Code)
	}
}

func TestForwarderStripsHopHeaders(t *testing.T) {
	var seen http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))
	defer upstream.Close()

	f := newTestForwarder(5 * time.Second)

	req := httptest.NewRequest(http.MethodGet, upstream.URL+"/api?t=search", nil)
	req.Header.Set("Proxy-Authorization", "Basic Zm9vOmJhcg==")
	req.Header.Set("Proxy-Connection", "keep-alive")
	req.Header.Set("X-Api-Key", "abc")
	rec := httptest.NewRecorder()
	f.Run(rec, req)

	if seen.Get("Proxy-Authorization") != "" || seen.Get("Proxy-Connection") != "" {
		t.Error("Proxy hop headers must not reach the upstream")
	}
	if seen.Get("X-Api-Key") != "abc" {
		t.Error("Ordinary headers must be forwarded")
	}
	if seen.Get("User-Agent") == "" {
		t.Error("A default user agent must be applied when the client sends none")
	}
}
