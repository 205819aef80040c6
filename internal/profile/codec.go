// Package profile is the only place that knows the backend wire formats.
// Everything else in the portal sees model.UserProfile.
package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"profile-portal/internal/model"
	"profile-portal/internal/session"
)

const (
	ContractLegacy  = "v1"
	ContractCurrent = "v2"
)

// Endpoints are the backend paths of one contract version, relative to the
// backend base URL.
type Endpoints struct {
	Login         string
	Profile       string
	UpdateProfile string
	UpdatePhoto   string
	PhotoField    string
}

// Codec converts between one backend contract and the portal model.
type Codec interface {
	Version() string
	Endpoints() Endpoints
	DecodeTokens(body []byte) (session.Tokens, error)
	DecodeProfile(body []byte) (*model.UserProfile, error)
	EncodeUpdate(dto model.UpdateProfileDto) ([]byte, error)
}

// ForContract returns the codec of the configured contract version. A
// deployment uses exactly one.
func ForContract(version string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case ContractCurrent:
		return currentCodec{}, nil
	case ContractLegacy:
		return legacyCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownContract, version)
	}
}

var bioPolicy = bluemonday.StrictPolicy()

// encodeUpdate is shared by both contracts: the write model did not change
// between versions.
func encodeUpdate(dto model.UpdateProfileDto) ([]byte, error) {
	flag, err := VerifiedFlag(dto.EstaVerificado)
	if err != nil {
		return nil, err
	}
	dto.EstaVerificado = flag
	dto.Biografia = PlainText(dto.Biografia)
	dto.User.FirstName = strings.TrimSpace(dto.User.FirstName)
	dto.User.LastName = strings.TrimSpace(dto.User.LastName)

	return json.Marshal(dto)
}

// VerifiedFlag normalizes the verification flag to the literal text the
// backend expects. An empty flag means unchecked; anything other than
// "true" or "false" is rejected.
func VerifiedFlag(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return "true", nil
	case "false", "":
		return "false", nil
	default:
		return "", fmt.Errorf("%w: esta_verificado %q", model.ErrInvalidInput, raw)
	}
}

func FormatVerified(verified bool) string {
	if verified {
		return "true"
	}
	return "false"
}

// PlainText strips markup from free text fields.
func PlainText(raw string) string {
	return html.UnescapeString(bioPolicy.Sanitize(raw))
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// unwrap returns the "data" member of an enveloped body, or the body itself.
func unwrap(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", model.ErrMalformedBody)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedBody, err)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) && data[0] == '{' {
		return data, nil
	}

	return trimmed, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
