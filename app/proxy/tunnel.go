package proxy

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/metzger100/newznabrewritarr/app/cfg"
)

const relayBufferSize = 64 * 1024

// Tunnel handles CONNECT requests by establishing an opaque bidirectional
// byte relay to the target. TLS traffic is never decrypted here, so no
// rewriting happens on this path.
type Tunnel struct {
	connectTimeout time.Duration
	idleTimeout    time.Duration
	safeHosts      map[string]struct{}
	stats          *Stats
}

func NewTunnel(stats *Stats) *Tunnel {
	c := cfg.Get()

	safeHosts := make(map[string]struct{}, len(c.SafeConnectHosts))
	for _, host := range c.SafeConnectHosts {
		safeHosts[host] = struct{}{}
	}

	return &Tunnel{
		connectTimeout: time.Duration(c.ConnectTimeout) * time.Second,
		idleTimeout:    time.Duration(c.IdleTimeout) * time.Second,
		safeHosts:      safeHosts,
		stats:          stats,
	}
}

func (t *Tunnel) Run(w http.ResponseWriter, r *http.Request) {
	target := r.Host
	if target == "" {
		target = r.URL.Host
	}
	if target == "" {
		http.Error(w, "missing target host", http.StatusBadRequest)
		return
	}

	// CONNECT targets are host:port; default to the standard TLS port.
	if _, _, err := net.SplitHostPort(target); err != nil {
		target = net.JoinHostPort(target, "443")
	}

	host, _, _ := net.SplitHostPort(target)
	if _, safe := t.safeHosts[host]; !safe {
		slog.Warn("CONNECT tunnel is opaque, titles in HTTPS responses cannot be rewritten; set the indexer URL to http:// for rewriting to work",
			"host", host)
	}

	upstream, err := net.DialTimeout("tcp", target, t.connectTimeout)
	if err != nil {
		t.stats.UpstreamErrors.Add(1)
		slog.Error("CONNECT dial failed", "target", target, "error", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		upstream.Close()
		slog.Error("Response writer does not support hijacking")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	client, brw, err := hijacker.Hijack()
	if err != nil {
		upstream.Close()
		slog.Error("Hijack failed", "target", target, "error", err)
		return
	}

	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			client.Close()
			upstream.Close()
		})
	}
	defer closeBoth()

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		slog.Debug("Failed to confirm tunnel to client", "target", target, "error", err)
		return
	}

	// Bytes the server may have buffered past the CONNECT header belong to
	// the tunnel.
	if n := brw.Reader.Buffered(); n > 0 {
		buffered, _ := brw.Reader.Peek(n)
		if _, err := upstream.Write(buffered); err != nil {
			slog.Debug("Failed to flush buffered tunnel bytes", "target", target, "error", err)
			return
		}
	}

	t.stats.TunnelsOpened.Add(1)
	slog.Debug("Tunnel established", "target", target)

	done := make(chan struct{}, 2)
	go t.pump(upstream, client, closeBoth, done)
	go t.pump(client, upstream, closeBoth, done)
	<-done
	<-done

	slog.Debug("Tunnel closed", "target", target)
}

// pump copies src to dst until EOF, an I/O error, or the idle deadline. The
// first direction to finish tears down both legs so the other unblocks.
func (t *Tunnel) pump(dst, src net.Conn, closeBoth func(), done chan<- struct{}) {
	defer func() {
		closeBoth()
		done <- struct{}{}
	}()

	buf := make([]byte, relayBufferSize)
	for {
		src.SetReadDeadline(time.Now().Add(t.idleTimeout))
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			// EOF, reset and idle expiry all end the session the same way.
			return
		}
	}
}
