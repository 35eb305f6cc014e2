package middlewares

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

// CorsOptions allows browser clients on the given origins to read the
// device list and post relay commands.
func CorsOptions(origins []string, debug bool) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", DefaultCorrelationHeader},
		ExposedHeaders: []string{"X-Txn-ID", DefaultCorrelationHeader},
		Debug:          debug,
	}
}

type corsLogger struct{}

func (corsLogger) Printf(format string, v ...interface{}) {
	logging.Logger(nil).Debugf("cors: "+format, v...)
}

type CorsMw struct {
	h http.Handler
}

// NewCors wraps the whole router rather than being added with Use, so that
// preflight requests are answered before route matching.
func NewCors(opts cors.Options, next http.Handler) *CorsMw {
	c := cors.New(opts)
	if opts.Debug {
		c.Log = corsLogger{}
	}

	return &CorsMw{
		h: c.Handler(next),
	}
}

// This should be the first Middleware in the chain
//
func (mw *CorsMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	mw.h.ServeHTTP(rw, r)
}
