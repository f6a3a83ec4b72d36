package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metzger100/newznabrewritarr/app/cfg"
	"github.com/metzger100/newznabrewritarr/app/proxy"
)

func NewHandler(stats *proxy.Stats) *Handler {
	return &Handler{stats: stats}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   cfg.Get().Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"requests_proxied": h.stats.RequestsProxied.Load(),
		"tunnels_opened":   h.stats.TunnelsOpened.Load(),
		"feeds_processed":  h.stats.FeedsProcessed.Load(),
		"titles_rewritten": h.stats.TitlesRewritten.Load(),
		"upstream_errors":  h.stats.UpstreamErrors.Load(),
	})
}

func (h *Handler) GetRoot(c *gin.Context) {
	appCfg := cfg.Get()
	c.JSON(http.StatusOK, gin.H{
		"service":     "NewznabRewritarr",
		"version":     appCfg.Version,
		"description": "Transparent HTTP forward proxy rewriting newznab titles from attribute metadata",
		"endpoints": gin.H{
			"health": "/health",
			"stats":  "/stats",
		},
		"rewrite": gin.H{
			"music":      appCfg.RewriteMusic,
			"books":      appCfg.RewriteBooks,
			"audiobooks": appCfg.RewriteAudiobooks,
		},
		"usage": "Configure as an HTTP proxy in Prowlarr (Settings -> Indexers -> Add HTTP Proxy), tag your indexers and set their URLs to http://",
	})
}
