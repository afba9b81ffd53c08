// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/jellyplay/internal/log"
	"github.com/rs/zerolog"
)

// AccessLog writes one structured line per request. Probe endpoints log at
// debug level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r)

		logger := log.WithComponentFromContext(r.Context(), "api")
		var event *zerolog.Event
		switch {
		case sw.statusCode >= http.StatusInternalServerError:
			event = logger.Error()
		case isProbePath(r.URL.Path):
			event = logger.Debug()
		default:
			event = logger.Info()
		}
		event.
			Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str(log.FieldPath, routePattern(r)).
			Int(log.FieldStatus, sw.statusCode).
			Int("bytes", sw.bytesWritten).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func isProbePath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}
