package api

import (
	"github.com/metzger100/newznabrewritarr/app/proxy"
)

type Handler struct {
	stats *proxy.Stats
}
