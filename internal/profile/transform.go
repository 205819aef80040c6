package profile

import "profile-portal/internal/model"

// FromLegacy lifts a flat profile into the nested model. Collections the
// flat contract never had are empty.
func FromLegacy(legacy model.LegacyUserProfile) *model.UserProfile {
	return &model.UserProfile{
		BasicInfo: model.BasicInfo{
			IDUsuario: legacy.ID,
			Username:  legacy.Username,
			FirstName: legacy.User.FirstName,
			LastName:  legacy.User.LastName,
			Email:     legacy.User.Email,
			Biografia: legacy.Biografia,
			Documento: legacy.Documento,
			Telefono:  legacy.Telefono,
			Foto:      legacy.Foto,
			RedesSociales: model.SocialLinks{
				LinkedIn: legacy.LinkedIn,
				Twitter:  legacy.Twitter,
				GitHub:   legacy.GitHub,
				SitioWeb: legacy.SitioWeb,
			},
		},
		Educacion:          []model.Education{},
		ExperienciaLaboral: []model.WorkExperience{},
		Habilidades:        []model.DetailedSkill{},
		Portafolio:         []model.PortfolioItem{},
		TipoUsuario:        legacy.TipoUsuario,
		EstaVerificado:     legacy.EstaVerificado,
		Legacy: &model.LegacyAttributes{
			TipoNaturaleza:     legacy.TipoNaturaleza,
			FechaCreacion:      legacy.FechaCreacion,
			FechaActualizacion: legacy.FechaActualizacion,
		},
	}
}

// ToLegacy renders the flat view of a profile. Fields only the flat
// contract knew are empty unless the profile came from it.
func ToLegacy(p *model.UserProfile) model.LegacyUserProfile {
	info := p.BasicInfo
	out := model.LegacyUserProfile{
		ID:       info.IDUsuario,
		Username: info.Username,
		User: model.LegacyUserNames{
			FirstName: info.FirstName,
			LastName:  info.LastName,
			Email:     info.Email,
		},
		Telefono:       info.Telefono,
		TipoUsuario:    p.TipoUsuario,
		Biografia:      info.Biografia,
		Documento:      info.Documento,
		LinkedIn:       info.RedesSociales.LinkedIn,
		Twitter:        info.RedesSociales.Twitter,
		GitHub:         info.RedesSociales.GitHub,
		SitioWeb:       info.RedesSociales.SitioWeb,
		EstaVerificado: p.EstaVerificado,
		Foto:           info.Foto,
	}

	if p.Legacy != nil {
		out.TipoNaturaleza = p.Legacy.TipoNaturaleza
		out.FechaCreacion = p.Legacy.FechaCreacion
		out.FechaActualizacion = p.Legacy.FechaActualizacion
	}

	return out
}

// ToUpdateDto pre-fills the edit form from the loaded profile.
func ToUpdateDto(p *model.UserProfile) model.UpdateProfileDto {
	info := p.BasicInfo
	dto := model.UpdateProfileDto{
		User: model.ProfileUserNames{
			FirstName: info.FirstName,
			LastName:  info.LastName,
		},
		Telefono:       info.Telefono,
		TipoUsuario:    p.TipoUsuario,
		Biografia:      info.Biografia,
		Documento:      info.Documento,
		LinkedIn:       info.RedesSociales.LinkedIn,
		Twitter:        info.RedesSociales.Twitter,
		GitHub:         info.RedesSociales.GitHub,
		SitioWeb:       info.RedesSociales.SitioWeb,
		EstaVerificado: FormatVerified(p.EstaVerificado),
	}

	if p.Legacy != nil {
		dto.TipoNaturaleza = p.Legacy.TipoNaturaleza
	}

	return dto
}
