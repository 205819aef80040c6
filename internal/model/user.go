package model

// LegacyUserProfile is the flat profile rendering used by older screens and
// by the v1 backend contract.
type LegacyUserProfile struct {
	ID                 int64           `json:"id"`
	Username           string          `json:"username"`
	User               LegacyUserNames `json:"user"`
	Telefono           string          `json:"telefono"`
	TipoUsuario        string          `json:"tipo_usuario"`
	TipoNaturaleza     string          `json:"tipo_naturaleza"`
	Biografia          string          `json:"biografia"`
	Documento          string          `json:"documento"`
	LinkedIn           string          `json:"linkedin"`
	Twitter            string          `json:"twitter"`
	GitHub             string          `json:"github"`
	SitioWeb           string          `json:"sitio_web"`
	EstaVerificado     bool            `json:"esta_verificado"`
	Foto               string          `json:"foto,omitempty"`
	FechaCreacion      string          `json:"fecha_creacion"`
	FechaActualizacion string          `json:"fecha_actualizacion"`
}

type LegacyUserNames struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}
