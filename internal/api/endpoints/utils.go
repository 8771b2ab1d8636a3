package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"todo-app-backend/internal/api"
	authsvc "todo-app-backend/internal/service/auth"
	"todo-app-backend/internal/service/todolist"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

func decodeJSON(r *http.Request, v any, name string) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %s request: %w", name, err),
		}
	}
	return nil
}

// identityFrom reads the identity stored by the authentication middleware.
func identityFrom(r *http.Request) (authsvc.Identity, error) {
	identity, ok := authsvc.IdentityFrom(r.Context())
	if !ok {
		return authsvc.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   errors.New("request reached handler without identity"),
		}
	}
	return identity, nil
}

// serviceError maps auth and todolist service errors to HTTP errors.
func serviceError(err error) error {
	if err == nil {
		return nil
	}

	var (
		code    string
		message string
		cause   error
	)
	var authErr *authsvc.Error
	var listErr *todolist.Error
	switch {
	case errors.As(err, &authErr):
		code, message, cause = string(authErr.Code), authErr.Message, authErr.Err
	case errors.As(err, &listErr):
		code, message, cause = string(listErr.Code), listErr.Message, listErr.Err
	default:
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("service: %w", err),
		}
	}

	errorLog := err
	if cause != nil {
		errorLog = fmt.Errorf("%s: %w", message, cause)
	}

	status := http.StatusInternalServerError
	switch code {
	case string(authsvc.ErrorCodeValidation):
		status = http.StatusBadRequest
	case string(authsvc.ErrorCodeUnauthorized):
		status = http.StatusUnauthorized
	case string(todolist.ErrorCodeForbidden):
		status = http.StatusForbidden
	case string(authsvc.ErrorCodeNotFound):
		status = http.StatusNotFound
	case string(authsvc.ErrorCodeConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}

	return &HTTPError{
		StatusCode: status,
		Message:    message,
		ErrorLog:   errorLog,
	}
}
