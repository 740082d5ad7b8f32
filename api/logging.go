package api

import (
	"github.com/presic/chunker/logger"
	"github.com/rs/zerolog"
	"net/http"
)

var apiLogger = logger.NewLogger("API")

// makeRequestLogger derives a per-request child logger carrying the
// request method and url under a single request field.
func makeRequestLogger(request *http.Request) zerolog.Logger {
	return apiLogger.With().
		Dict("request", zerolog.Dict().
			Str("method", request.Method).
			Str("url", request.URL.String())).
		Logger()
}
