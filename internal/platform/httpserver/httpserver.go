package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with conservative timeouts. Document processing
// happens on background workers, so request handling itself stays short.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
