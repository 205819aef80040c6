package profile

import (
	"encoding/json"
	"fmt"

	"profile-portal/internal/model"
	"profile-portal/internal/session"
)

type legacyCodec struct{}

type legacyTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Access       string `json:"access"`
	Refresh      string `json:"refresh"`
}

func (legacyCodec) Version() string {
	return ContractLegacy
}

func (legacyCodec) Endpoints() Endpoints {
	return Endpoints{
		Login:         "/auth/login/",
		Profile:       "/usuario/perfil/",
		UpdateProfile: "/usuario/perfil/",
		UpdatePhoto:   "/usuario/perfil/foto/",
		PhotoField:    "foto",
	}
}

func (legacyCodec) DecodeTokens(body []byte) (session.Tokens, error) {
	payload, err := unwrap(body)
	if err != nil {
		return session.Tokens{}, err
	}

	var wire legacyTokens
	if err := json.Unmarshal(payload, &wire); err != nil {
		return session.Tokens{}, fmt.Errorf("%w: %v", model.ErrMalformedBody, err)
	}

	tokens := session.Tokens{AccessToken: wire.AccessToken, RefreshToken: wire.RefreshToken}
	if tokens.AccessToken == "" {
		tokens = session.Tokens{AccessToken: wire.Access, RefreshToken: wire.Refresh}
	}
	if tokens.AccessToken == "" {
		return session.Tokens{}, fmt.Errorf("%w: login response has no access token", model.ErrMalformedBody)
	}

	return tokens, nil
}

func (legacyCodec) DecodeProfile(body []byte) (*model.UserProfile, error) {
	payload, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedBody, err)
	}
	if _, nested := fields["basic_info"]; nested {
		return nil, fmt.Errorf("%w: nested profile received on the legacy contract", model.ErrMalformedBody)
	}
	if _, ok := fields["username"]; !ok {
		return nil, fmt.Errorf("%w: profile has no username", model.ErrMalformedBody)
	}

	var wire model.LegacyUserProfile
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedBody, err)
	}

	return FromLegacy(wire), nil
}

func (legacyCodec) EncodeUpdate(dto model.UpdateProfileDto) ([]byte, error) {
	return encodeUpdate(dto)
}
