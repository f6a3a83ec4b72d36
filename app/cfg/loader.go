package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Proxy configuration
	Port          string `long:"port" env:"PROXY_PORT" default:"5008" description:"Proxy listen port"`
	UpstreamProxy string `long:"upstream-proxy" env:"UPSTREAM_PROXY" description:"Optional second upstream proxy as host:port (e.g. UmlautAdaptarr)"`

	// Rewrite feature toggles. Booleans are strings so they can be disabled
	// via environment variables while still defaulting to enabled.
	RewriteMusic      string `long:"rewrite-music" env:"REWRITE_MUSIC" default:"true" choice:"true" choice:"false" description:"Rewrite music titles (Lidarr)"`
	RewriteBooks      string `long:"rewrite-books" env:"REWRITE_BOOKS" default:"true" choice:"true" choice:"false" description:"Rewrite book titles (Readarr)"`
	RewriteAudiobooks string `long:"rewrite-audiobooks" env:"REWRITE_AUDIOBOOKS" default:"true" choice:"true" choice:"false" description:"Rewrite audiobook titles (Readarr)"`
	BestEffort        string `long:"best-effort" env:"BEST_EFFORT" default:"true" choice:"true" choice:"false" description:"Permit rewrites from partial attributes"`
	DebugAttrs        string `long:"debug-attrs" env:"DEBUG_ATTRS" default:"false" choice:"true" choice:"false" description:"Preserve the original title as a newznab:attr on rewritten items"`

	// Vocabulary and tunnel configuration
	RulesFile        string   `long:"rules-file" env:"RULES_FILE" description:"Optional YAML file overriding quality/format vocabularies"`
	SafeConnectHosts []string `long:"safe-connect-host" env:"SAFE_CONNECT_HOSTS" env-delim:"," default:"prowlarr.servarr.com" description:"CONNECT hosts that never need rewriting (no warning logged)"`

	// Timeouts
	RequestTimeout int `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"60" description:"Outbound request timeout in seconds"`
	ConnectTimeout int `long:"connect-timeout" env:"CONNECT_TIMEOUT" default:"10" description:"CONNECT tunnel dial timeout in seconds"`
	IdleTimeout    int `long:"idle-timeout" env:"IDLE_TIMEOUT" default:"30" description:"CONNECT tunnel idle timeout in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"NewznabRewritarr/1.0" description:"User agent for outbound requests without one"`
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log verbosity"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:              raw.Port,
		UpstreamProxy:     raw.UpstreamProxy,
		RewriteMusic:      raw.RewriteMusic == "true",
		RewriteBooks:      raw.RewriteBooks == "true",
		RewriteAudiobooks: raw.RewriteAudiobooks == "true",
		BestEffort:        raw.BestEffort == "true",
		DebugAttrs:        raw.DebugAttrs == "true",
		RulesFile:         raw.RulesFile,
		SafeConnectHosts:  raw.SafeConnectHosts,
		RequestTimeout:    raw.RequestTimeout,
		ConnectTimeout:    raw.ConnectTimeout,
		IdleTimeout:       raw.IdleTimeout,
		UserAgent:         raw.UserAgent,
		LogLevel:          raw.LogLevel,
		Version:           GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set installs a configuration directly, bypassing flag parsing. Used by tests.
func Set(cfg *Cfg) {
	globalCfg = cfg
}
