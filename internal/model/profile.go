package model

// UserProfile is the canonical profile consumed by the portal. It follows the
// nested shape of the current backend contract; legacy responses are mapped
// onto it by the profile package.
type UserProfile struct {
	BasicInfo          BasicInfo         `json:"basic_info"`
	Educacion          []Education       `json:"educacion"`
	ExperienciaLaboral []WorkExperience  `json:"experiencia_laboral"`
	Habilidades        []DetailedSkill   `json:"habilidades"`
	Portafolio         []PortfolioItem   `json:"portafolio"`
	TipoUsuario        string            `json:"tipo_usuario"`
	EstaVerificado     bool              `json:"esta_verificado"`
	Legacy             *LegacyAttributes `json:"legacy,omitempty"`
}

type BasicInfo struct {
	IDUsuario     int64       `json:"id_usuario"`
	Username      string      `json:"username"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Email         string      `json:"email"`
	Biografia     string      `json:"biografia"`
	Documento     string      `json:"documento"`
	Telefono      string      `json:"telefono"`
	Foto          string      `json:"foto"`
	RedesSociales SocialLinks `json:"redes_sociales"`
}

type SocialLinks struct {
	LinkedIn string `json:"linkedin"`
	Twitter  string `json:"twitter"`
	GitHub   string `json:"github"`
	SitioWeb string `json:"sitio_web"`
}

type Education struct {
	ID           int64  `json:"id"`
	UsuarioID    int64  `json:"usuario_id"`
	Institucion  string `json:"institucion"`
	Titulo       string `json:"titulo"`
	CampoEstudio string `json:"campo_estudio"`
	FechaInicio  string `json:"fecha_inicio"`
	FechaFin     string `json:"fecha_fin"`
	Completado   bool   `json:"completado"`
}

type SkillTag struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

type WorkExperience struct {
	ID          int64      `json:"id"`
	Empresa     string     `json:"empresa"`
	Posicion    string     `json:"posicion"`
	Funciones   string     `json:"funciones"`
	FechaInicio string     `json:"fecha_inicio"`
	FechaFin    *string    `json:"fecha_fin"`
	Actualmente bool       `json:"actualmente"`
	Habilidades []SkillTag `json:"habilidades"`
}

type DetailedSkill struct {
	ID                 int64  `json:"id"`
	HabilidadID        int64  `json:"habilidad_id"`
	HabilidadNombre    string `json:"habilidad__nombre"`
	EmpresaAdquisicion string `json:"empresa_adquisicion"`
	TiempoExperiencia  int    `json:"tiempo_experiencia"`
	EstaVerificado     bool   `json:"esta_verificado"`
}

type PortfolioItem struct {
	ID          int64   `json:"id"`
	UsuarioID   int64   `json:"usuario_id"`
	Titulo      string  `json:"titulo"`
	Descripcion string  `json:"descripcion"`
	Tipo        string  `json:"tipo"`
	URL         *string `json:"url"`
	Archivo     string  `json:"archivo"`
	Imagen      string  `json:"imagen"`
	Fecha       string  `json:"fecha"`
}

// LegacyAttributes holds the flat-contract fields that have no place in the
// nested shape. Only the legacy decoder fills it.
type LegacyAttributes struct {
	TipoNaturaleza     string `json:"tipo_naturaleza"`
	FechaCreacion      string `json:"fecha_creacion"`
	FechaActualizacion string `json:"fecha_actualizacion"`
}

// Clone returns a deep copy so callers can never mutate state they only read.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}

	out := *p
	out.Educacion = append([]Education(nil), p.Educacion...)
	out.Habilidades = append([]DetailedSkill(nil), p.Habilidades...)
	out.Portafolio = make([]PortfolioItem, len(p.Portafolio))
	for i, item := range p.Portafolio {
		if item.URL != nil {
			u := *item.URL
			item.URL = &u
		}
		out.Portafolio[i] = item
	}
	if p.Portafolio == nil {
		out.Portafolio = nil
	}
	out.ExperienciaLaboral = make([]WorkExperience, len(p.ExperienciaLaboral))
	for i, exp := range p.ExperienciaLaboral {
		if exp.FechaFin != nil {
			end := *exp.FechaFin
			exp.FechaFin = &end
		}
		exp.Habilidades = append([]SkillTag(nil), exp.Habilidades...)
		out.ExperienciaLaboral[i] = exp
	}
	if p.ExperienciaLaboral == nil {
		out.ExperienciaLaboral = nil
	}
	if p.Legacy != nil {
		legacy := *p.Legacy
		out.Legacy = &legacy
	}

	return &out
}
