package proxy

import (
	"log/slog"
	"net/http"
)

// Server dispatches each inbound request: CONNECT requests become opaque
// tunnels, absolute-URL requests are forwarded (explicit proxy semantics),
// and relative-URL requests are served by the local admin API.
type Server struct {
	forwarder *Forwarder
	tunnel    *Tunnel
	admin     http.Handler
}

func NewServer(forwarder *Forwarder, tunnel *Tunnel, admin http.Handler) *Server {
	return &Server{
		forwarder: forwarder,
		tunnel:    tunnel,
		admin:     admin,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Handler failure", "method", r.Method, "url", RedactAPIKey(r.URL.String()), "panic", rec)
			// Best effort; the connection may already be hijacked or the
			// header written.
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}()

	switch {
	case r.Method == http.MethodConnect:
		s.tunnel.Run(w, r)
	case r.URL.IsAbs():
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "Not Implemented", http.StatusNotImplemented)
			return
		}
		s.forwarder.Run(w, r)
	default:
		s.admin.ServeHTTP(w, r)
	}
}
