package server

import (
	"net/http"
	"time"

	"github.com/telhawk-systems/hecrelay/common/httputil"
	"github.com/telhawk-systems/hecrelay/common/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// AccessLog logs one line per request after it completes.
func AccessLog(logger *logging.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.InfoContext(r.Context(), "request completed",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(rec.status),
			logging.IP(httputil.GetClientIP(r)),
			logging.Duration(time.Since(start).Milliseconds()),
		)
	})
}
