package sdk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// User-facing messages returned by the upstream client.
const (
	MsgNoToken       = "No authentication token found. Please login."
	MsgTokenRejected = "Token expired or invalid. Please login again."
	MsgNetwork       = "No se pudo conectar con el servidor. Verifica tu conexión."
	MsgCORSRejected  = "Error de CORS: El servidor rechazó la petición. Verifica que el proxy esté funcionando correctamente o que el servidor permita peticiones desde este origen."
	MsgNoLoginToken  = "No se recibió token de autenticación. Por favor, verifica las credenciales o contacta al administrador."
)

var (
	// ErrNoToken is returned by Login when no JWT can be found in the response.
	ErrNoToken = errors.New(MsgNoLoginToken)
	// ErrIconRequired is returned by CreateAction when neither a file nor an icon is supplied.
	ErrIconRequired = errors.New("El icono (imagen) es requerido para crear la acción")
	// ErrInvalidResponse is returned when a success response carries no recognizable record.
	ErrInvalidResponse = errors.New("Respuesta inválida del servidor")
	// ErrContractViolation is returned in strict mode when a list response does not match the published envelope.
	ErrContractViolation = errors.New("response does not satisfy the action list contract")
)

// ErrorKind classifies failures of upstream calls.
type ErrorKind string

const (
	KindNetwork         ErrorKind = "network"
	KindCORS            ErrorKind = "cors"
	KindHTTP            ErrorKind = "http"
	KindServer          ErrorKind = "server"
	KindUnauthenticated ErrorKind = "unauthenticated"
)

// APIError is the normalized error returned by every Client call that reached,
// or tried to reach, the upstream API.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	// TokenExpired is set when the request was rejected locally because the
	// stored token failed validation.
	TokenExpired bool
	Body         []byte
	Err          error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthenticated reports whether err requires the caller to log in again.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthenticated
}

// ErrorMessage returns the user-facing message for err.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// extractMessage pulls a human readable message out of an error body,
// falling back to "Error {status}: {statusText}".
func extractMessage(body []byte, status int) string {
	if msg := bodyMessage(body); msg != "" {
		return msg
	}
	return fmt.Sprintf("Error %d: %s", status, http.StatusText(status))
}

// bodyMessage returns a bare string body, or the first non-empty of the
// message, error and Message fields.
func bodyMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if !gjson.Valid(trimmed) {
		return trimmed
	}
	root := gjson.Parse(trimmed)
	if root.Type == gjson.String {
		return root.String()
	}
	if root.IsObject() {
		for _, field := range []string{"message", "error", "Message"} {
			if v := root.Get(field); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	return ""
}

func isCORSMessage(msg string) bool {
	return strings.Contains(msg, "CORS") || strings.Contains(msg, "cors")
}
