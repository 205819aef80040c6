package model

type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ProfileUserNames struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// UpdateProfileDto is the write model for profile edits. EstaVerificado is
// text on purpose: the backend expects the literal "true" or "false".
type UpdateProfileDto struct {
	User           ProfileUserNames `json:"user"`
	Telefono       string           `json:"telefono"`
	TipoUsuario    string           `json:"tipo_usuario"`
	TipoNaturaleza string           `json:"tipo_naturaleza"`
	Biografia      string           `json:"biografia"`
	Documento      string           `json:"documento"`
	LinkedIn       string           `json:"linkedin"`
	Twitter        string           `json:"twitter"`
	GitHub         string           `json:"github"`
	SitioWeb       string           `json:"sitio_web"`
	EstaVerificado string           `json:"esta_verificado"`
}

// PhotoUpload is an in-memory image file chosen by the user.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (p PhotoUpload) Size() int64 {
	return int64(len(p.Data))
}
