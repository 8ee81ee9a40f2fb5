package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/http/respond"
	"github.com/hongminglow/fund-ledger/internal/logging"
)

// responseWriter captures the status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

const correlationHeader = "X-Correlation-ID"

// Logging tags each request with a correlation id and logs one line when it completes.
func Logging(log *logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get(correlationHeader)
			if corrID == "" {
				corrID = uuid.New().String()[:8]
			}
			w.Header().Set(correlationHeader, corrID)

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			event := log.Info()
			if rw.statusCode >= http.StatusInternalServerError {
				event = log.Error()
			} else if rw.statusCode >= http.StatusBadRequest {
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Int("bytes", rw.bytesWritten).
				Dur("duration", time.Since(start)).
				Str("correlation_id", corrID).
				Msg("HTTP request")
		})
	}
}

// Recovery turns a panic into a 500 response. If the handler already started
// its response, the panic is only logged.
func Recovery(log *logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Str("path", r.URL.Path).
						Bool("response_started", rw.wroteHeader).Msg("panic recovered")
					if !rw.wroteHeader {
						respond.Error(rw, http.StatusInternalServerError, apperr.CodeInternal, apperr.ErrInternal.Message)
					}
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
