package proxy

import "sync/atomic"

// Stats collects proxy-wide counters. Fields are atomics so handlers on
// different connections can update them without locks; everything else
// shared between connections is read-only configuration.
type Stats struct {
	RequestsProxied atomic.Uint64
	TunnelsOpened   atomic.Uint64
	FeedsProcessed  atomic.Uint64
	TitlesRewritten atomic.Uint64
	UpstreamErrors  atomic.Uint64
}
