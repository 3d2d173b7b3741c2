package httpapi

import (
	"bytes"
	"log"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxLoggedBodyBytes = 512

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	bytesWritten int
	maxLogBytes  int
	logBody      bytes.Buffer
	truncated    bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.statusCode = statusCode
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(p)
	r.bytesWritten += n

	if room := r.maxLogBytes - r.logBody.Len(); room > 0 {
		if len(p) > room {
			r.logBody.Write(p[:room])
			r.truncated = true
		} else {
			r.logBody.Write(p)
		}
	} else if len(p) > 0 {
		r.truncated = true
	}

	return n, err
}

// logRequests writes one line per request. Error responses include the start
// of the body so failures can be diagnosed from the log alone.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			maxLogBytes:    maxLoggedBodyBytes,
		}

		next.ServeHTTP(recorder, r)

		requestID := chiMiddleware.GetReqID(r.Context())
		duration := time.Since(started).Round(time.Microsecond)
		if recorder.statusCode < http.StatusBadRequest {
			log.Printf("[%s] %s %s -> %d (%d bytes) in %s",
				requestID, r.Method, r.URL.Path, recorder.statusCode, recorder.bytesWritten, duration)
			return
		}

		body := bytes.TrimSpace(recorder.logBody.Bytes())
		suffix := ""
		if recorder.truncated {
			suffix = "..."
		}
		log.Printf("[%s] %s %s -> %d (%d bytes) in %s: %s%s",
			requestID, r.Method, r.URL.Path, recorder.statusCode, recorder.bytesWritten, duration, body, suffix)
	})
}
