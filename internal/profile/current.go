package profile

import (
	"encoding/json"
	"fmt"

	"profile-portal/internal/model"
	"profile-portal/internal/session"
)

type currentCodec struct{}

type currentTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type currentProfile struct {
	BasicInfo          *model.BasicInfo       `json:"basic_info"`
	Educacion          []model.Education      `json:"educacion"`
	ExperienciaLaboral []model.WorkExperience `json:"experiencia_laboral"`
	Habilidades        []model.DetailedSkill  `json:"habilidades"`
	Portafolio         []model.PortfolioItem  `json:"portafolio"`
	TipoUsuario        string                 `json:"tipo_usuario"`
	EstaVerificado     bool                   `json:"esta_verificado"`
}

func (currentCodec) Version() string {
	return ContractCurrent
}

func (currentCodec) Endpoints() Endpoints {
	return Endpoints{
		Login:         "/login/",
		Profile:       "/perfil",
		UpdateProfile: "/usuario/perfil/",
		UpdatePhoto:   "/perfil/foto/",
		PhotoField:    "foto",
	}
}

func (currentCodec) DecodeTokens(body []byte) (session.Tokens, error) {
	payload, err := unwrap(body)
	if err != nil {
		return session.Tokens{}, err
	}

	var wire currentTokens
	if err := json.Unmarshal(payload, &wire); err != nil {
		return session.Tokens{}, fmt.Errorf("%w: %v", model.ErrMalformedBody, err)
	}
	if wire.Access == "" {
		return session.Tokens{}, fmt.Errorf("%w: login response has no access token", model.ErrMalformedBody)
	}

	return session.Tokens{AccessToken: wire.Access, RefreshToken: wire.Refresh}, nil
}

func (currentCodec) DecodeProfile(body []byte) (*model.UserProfile, error) {
	payload, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	var wire currentProfile
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedBody, err)
	}
	if wire.BasicInfo == nil {
		return nil, fmt.Errorf("%w: profile has no basic_info", model.ErrMalformedBody)
	}

	return &model.UserProfile{
		BasicInfo:          *wire.BasicInfo,
		Educacion:          nonNil(wire.Educacion),
		ExperienciaLaboral: nonNil(wire.ExperienciaLaboral),
		Habilidades:        nonNil(wire.Habilidades),
		Portafolio:         nonNil(wire.Portafolio),
		TipoUsuario:        wire.TipoUsuario,
		EstaVerificado:     wire.EstaVerificado,
	}, nil
}

func (currentCodec) EncodeUpdate(dto model.UpdateProfileDto) ([]byte, error) {
	return encodeUpdate(dto)
}
