package backend

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	OpLogin         = "login"
	OpFetchProfile  = "fetch_profile"
	OpUpdateProfile = "update_profile"
	OpUpdatePhoto   = "update_photo"
)

var fallbackMessages = map[string]string{
	OpLogin:         "Error al iniciar sesión",
	OpFetchProfile:  "Error al obtener perfil",
	OpUpdateProfile: "Error al actualizar perfil",
	OpUpdatePhoto:   "Error al actualizar foto",
}

// Error is a failed backend call. Message is always safe to show to the
// user: it is the server-supplied message or the operation's fallback.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the backend rejected the credentials or token.
func (e *Error) Unauthorized() bool {
	return e != nil && e.Status == http.StatusUnauthorized
}

func FallbackMessage(op string) string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Error de comunicación con el servidor"
}

type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message json.RawMessage `json:"message"`
}

// messageFrom prefers the body's "error" field, then "detail", then
// "message", falling back to the operation default.
func messageFrom(body []byte, op string) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, raw := range []json.RawMessage{parsed.Error, parsed.Detail, parsed.Message} {
			if msg := asText(raw); msg != "" {
				return msg
			}
		}
	}

	return FallbackMessage(op)
}

func asText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, ", "))
	}

	return ""
}
