package evaluator

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Kind clasifica los fallos del endpoint generativo
type Kind int

const (
	KindTransport        Kind = iota // error de red o timeout
	KindEndpointNotFound             // HTTP 404
	KindForbidden                    // HTTP 403
	KindRateLimited                  // HTTP 429
	KindRequestFailed                // cualquier otro estado no-2xx
	KindAPI                          // 2xx con payload error.message
	KindEmptyResponse                // 2xx sin candidates reconocibles
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindEndpointNotFound:
		return "endpoint_not_found"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindRequestFailed:
		return "request_failed"
	case KindAPI:
		return "api_error"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return "unknown"
	}
}

// Error es el resultado etiquetado de una llamada fallida
type Error struct {
	Kind       Kind
	StatusCode int    // solo para errores HTTP
	StatusText string // solo para KindRequestFailed
	Message    string // solo para KindAPI
	Err        error  // causa original, si la hay
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEndpointNotFound:
		return "API endpoint not found. Please check the API configuration"
	case KindForbidden:
		return "API access forbidden. Please check your API key"
	case KindRateLimited:
		return "API rate limit exceeded"
	case KindRequestFailed:
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.StatusText)
	case KindAPI:
		return "API Error: " + e.Message
	case KindEmptyResponse:
		return "No response content received from API"
	default:
		if e.Err != nil {
			return "error calling Gemini API: " + e.Err.Error()
		}
		return "error calling Gemini API"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind indica si err contiene un *Error del tipo dado
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// statusError traduce un estado HTTP no exitoso al error etiquetado
func statusError(code int, status string, detail error) *Error {
	switch code {
	case http.StatusNotFound:
		return &Error{Kind: KindEndpointNotFound, StatusCode: code, Err: detail}
	case http.StatusForbidden:
		return &Error{Kind: KindForbidden, StatusCode: code, Err: detail}
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, StatusCode: code, Err: detail}
	}
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return &Error{Kind: KindRequestFailed, StatusCode: code, StatusText: text, Err: detail}
}

// Apology convierte cualquier fallo en el texto que ve el usuario
func Apology(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error: %s. Please try again later.", err.Error())
}
