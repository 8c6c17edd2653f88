package handlers

import (
	"net/http"

	"octane/relay/pkg/gateway"
	"octane/relay/pkg/relay"
)

// RelayHandler serves one vendor-format completion endpoint. The same
// gateway backs all three endpoints; the handler only fixes the wire
// format of the request and response.
type RelayHandler struct {
	gateway *gateway.Gateway
	format  relay.Format
}

// NewRelayHandler creates a handler for one wire format.
func NewRelayHandler(g *gateway.Gateway, format relay.Format) *RelayHandler {
	return &RelayHandler{gateway: g, format: format}
}

// ServeHTTP implements http.Handler.
func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.gateway.Handle(w, r, h.format)
}
