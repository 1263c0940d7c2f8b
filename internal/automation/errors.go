package automation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the automation package.
var (
	// ErrServiceUnavailable is returned when the automation service
	// cannot be reached.
	ErrServiceUnavailable = errors.New("automation service unavailable")

	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("title not found by automation service")
)

// Kind classifies a rejected add or search so callers can tell "it was
// already there" from a genuine failure without inspecting message text.
type Kind string

const (
	KindAlreadyExists Kind = "already_exists"
	KindGeneric       Kind = "generic"
)

// StatusError is a structured rejection from the automation service.
// Classification happens here, at the HTTP edge, from the service's
// error codes; callers must branch on Kind, never on Message.
type StatusError struct {
	Kind       Kind
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("automation service rejected request (%d): %s", e.StatusCode, e.Message)
}

// validationMessage is one entry of the service's 400-response array.
type validationMessage struct {
	PropertyName string `json:"propertyName"`
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
}

// classify turns a non-2xx response body into a StatusError. The body
// is either a validation-message array or a {"message": ...} object;
// anything else keeps the raw text. Error codes decide the Kind where
// present; matching on message text is the last resort and lives only
// here.
func classify(statusCode int, body []byte) *StatusError {
	se := &StatusError{
		Kind:       KindGeneric,
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	var msgs []validationMessage
	if err := json.Unmarshal(body, &msgs); err == nil && len(msgs) > 0 {
		parts := make([]string, 0, len(msgs))
		for _, m := range msgs {
			parts = append(parts, m.ErrorMessage)
			if strings.Contains(m.ErrorCode, "Exists") {
				se.Kind = KindAlreadyExists
			}
		}
		se.Message = strings.Join(parts, "; ")
	} else {
		var single struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &single); err == nil && single.Message != "" {
			se.Message = single.Message
		}
	}

	if statusCode == http.StatusConflict {
		se.Kind = KindAlreadyExists
	}
	if se.Kind == KindGeneric && alreadyExistsText(se.Message) {
		se.Kind = KindAlreadyExists
	}
	return se
}

func alreadyExistsText(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "already been added") ||
		strings.Contains(lower, "already exists")
}
