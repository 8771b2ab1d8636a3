package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"todo-app-backend/internal/api/middleware"
	"todo-app-backend/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the request queue behind CORS and access
// logging. routeMiddleware (authentication) runs before the job is queued.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, routeMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		s.requestQueueManager.EnqueueJob(queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		})

		if err := <-errc; err != nil {
			s.writeError(w, r, err)
		}
	}

	finalHandler := middleware.Chain(baseHandler, routeMiddleware...)

	return middleware.Chain(finalHandler,
		middleware.CORS(s.cors),
		middleware.Logging(s.log),
	)
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= http.StatusInternalServerError {
			s.log.Error("request failed", "path", r.URL.Path, "status", httpErr.StatusCode, "error", httpErr.ErrorLog)
		} else {
			s.log.Debug("request rejected", "path", r.URL.Path, "status", httpErr.StatusCode, "error", httpErr.ErrorLog)
		}
		WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message})
		return
	}

	s.log.Error("request failed", "path", r.URL.Path, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
}
