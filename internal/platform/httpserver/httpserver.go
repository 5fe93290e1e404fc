package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with bounded timeouts for the ops surface. The
// issuance pipeline never runs on a request goroutine, so short write
// deadlines are safe here.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
