// apperror.go
package apperror

import "net/http"

// AppError es el error de negocio que llega hasta el controller.
// Code identifica el tipo; HTTP es el status con el que se responde.
type AppError struct {
	Code    string
	HTTP    int
	Message string
	Fields  map[string]string
}

func (e *AppError) Error() string { return e.Message }

// Is compara por Code, así errors.Is funciona con las copias de WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func New(code string, httpStatus int, message string) *AppError {
	return &AppError{Code: code, HTTP: httpStatus, Message: message}
}

func (e *AppError) WithMessage(message string) *AppError {
	clone := *e
	clone.Message = message
	return &clone
}

func (e *AppError) WithFields(fields map[string]string) *AppError {
	clone := *e
	clone.Fields = fields
	return &clone
}

var (
	ErrValidation      = New("VALIDATION_FAILED", http.StatusBadRequest, "validation failed")
	ErrUnauthenticated = New("UNAUTHENTICATED", http.StatusUnauthorized, "authentication required")
	ErrInvalidToken    = New("INVALID_TOKEN", http.StatusUnauthorized, "invalid token")
	ErrTokenExpired    = New("TOKEN_EXPIRED", http.StatusUnauthorized, "token expired")
	ErrForbidden       = New("FORBIDDEN", http.StatusForbidden, "insufficient privileges")
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict        = New("CONFLICT", http.StatusConflict, "conflict")
	ErrRateLimited     = New("RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests, "too many requests")
	ErrUnavailable     = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// From normaliza cualquier error a *AppError. Los errores desconocidos
// se convierten en 500 genérico para no filtrar detalles internos.
func From(err error) *AppError {
	if app, ok := err.(*AppError); ok {
		return app
	}
	return ErrInternal
}
