package cfg

type Cfg struct {
	// Proxy configuration
	Port          string
	UpstreamProxy string

	// Rewrite feature toggles
	RewriteMusic      bool
	RewriteBooks      bool
	RewriteAudiobooks bool
	BestEffort        bool
	DebugAttrs        bool

	// Vocabulary and tunnel configuration
	RulesFile        string
	SafeConnectHosts []string

	// Timeouts in seconds
	RequestTimeout int
	ConnectTimeout int
	IdleTimeout    int

	// Application metadata
	UserAgent string
	LogLevel  string
	Version   string
}
