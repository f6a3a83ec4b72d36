package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/metzger100/newznabrewritarr/app/cfg"
	"github.com/metzger100/newznabrewritarr/app/rewrite"
)

// Headers that are ours, not the target's. Accept-Encoding is dropped so the
// transport negotiates compression itself and hands us a decoded body; the
// matching Content-Encoding response header is skipped on the way back.
var hopHeaders = map[string]struct{}{
	"host":                {},
	"proxy-connection":    {},
	"proxy-authorization": {},
	"accept-encoding":     {},
}

// Transport-framing headers recomputed for the possibly rewritten body.
var skipResponseHeaders = map[string]struct{}{
	"transfer-encoding": {},
	"content-length":    {},
	"content-encoding":  {},
	"connection":        {},
}

// Search operations whose responses may carry rewritable items. Capability
// responses (t=caps) never do, so "caps" is deliberately absent.
var searchOps = map[string]struct{}{
	"search":   {},
	"tvsearch": {},
	"music":    {},
	"book":     {},
	"movie":    {},
}

var apiKeyRe = regexp.MustCompile(`(?i)(apikey=)[^&]+`)

// RedactAPIKey masks API keys in a URL so it is safe to log.
func RedactAPIKey(target string) string {
	return apiKeyRe.ReplaceAllString(target, "${1}***")
}

// Forwarder proxies GET/POST requests to their absolute target URL,
// optionally via a second upstream proxy, and rewrites qualifying newznab
// responses on the way back.
type Forwarder struct {
	client    *http.Client
	engine    *rewrite.Engine
	stats     *Stats
	userAgent string
}

func NewForwarder(engine *rewrite.Engine, stats *Stats) (*Forwarder, error) {
	c := cfg.Get()

	transport := &http.Transport{}
	if c.UpstreamProxy != "" {
		proxyURL, err := url.Parse("http://" + c.UpstreamProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream proxy address %q: %w", c.UpstreamProxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		slog.Info("Chaining through upstream proxy", "proxy", c.UpstreamProxy)
	}

	return &Forwarder{
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(c.RequestTimeout) * time.Second,
		},
		engine:    engine,
		stats:     stats,
		userAgent: c.UserAgent,
	}, nil
}

func (f *Forwarder) Run(w http.ResponseWriter, r *http.Request) {
	target := r.URL.String()
	logURL := RedactAPIKey(target)
	slog.Debug("Proxying request", "method", r.Method, "url", logURL)

	var body io.Reader
	if r.Method == http.MethodPost && r.ContentLength > 0 {
		data, err := io.ReadAll(io.LimitReader(r.Body, r.ContentLength))
		if err != nil {
			slog.Error("Failed to read request body", "url", logURL, "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		slog.Error("Failed to build outbound request", "url", logURL, "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	for key, values := range r.Header {
		if _, skip := hopHeaders[strings.ToLower(key)]; skip {
			continue
		}
		req.Header[key] = values
	}
	if req.Header.Get("User-Agent") == "" && f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.stats.UpstreamErrors.Add(1)
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			slog.Error("Timeout proxying request", "url", logURL)
			http.Error(w, "Gateway Timeout", http.StatusGatewayTimeout)
		} else {
			slog.Error("Upstream request failed", "url", logURL, "error", err)
			http.Error(w, "Bad Gateway", http.StatusBadGateway)
		}
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		f.stats.UpstreamErrors.Add(1)
		slog.Error("Failed to read upstream response", "url", logURL, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	if f.shouldRewrite(r.URL, resp.Header.Get("Content-Type"), respBody) {
		f.stats.FeedsProcessed.Add(1)
		slog.Debug("Processing newznab response", "url", logURL, "bytes", len(respBody))

		outcome := f.engine.Run(respBody)
		if outcome.Passthrough {
			slog.Debug("Response passed through unchanged", "url", logURL, "reason", outcome.Reason)
		} else {
			f.stats.TitlesRewritten.Add(uint64(outcome.Rewritten))
		}
		respBody = outcome.Body
	}

	header := w.Header()
	for key, values := range resp.Header {
		if _, skip := skipResponseHeaders[strings.ToLower(key)]; skip {
			continue
		}
		header[key] = values
	}
	header.Set("Content-Length", strconv.Itoa(len(respBody)))
	w.WriteHeader(resp.StatusCode)

	if _, err := w.Write(respBody); err != nil {
		slog.Debug("Client write failed", "url", logURL, "error", err)
		return
	}
	f.stats.RequestsProxied.Add(1)
}

// shouldRewrite decides whether a response qualifies for the rewrite engine:
// a recognized search operation on the request side, and a feed-shaped body
// on the response side.
func (f *Forwarder) shouldRewrite(target *url.URL, contentType string, body []byte) bool {
	if _, ok := searchOps[target.Query().Get("t")]; !ok {
		return false
	}

	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xml") || strings.Contains(ct, "rss") {
		return true
	}

	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimSpace(head)
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<rss")) {
		return true
	}

	return gofeed.DetectFeedType(bytes.NewReader(trimmed)) != gofeed.FeedTypeUnknown
}
