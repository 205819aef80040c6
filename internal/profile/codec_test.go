package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"profile-portal/internal/model"
)

const currentProfileBody = `{
  "status": "success",
  "message": "Perfil obtenido",
  "data": {
    "basic_info": {
      "id_usuario": 7,
      "username": "ana",
      "first_name": "Ana",
      "last_name": "Pérez",
      "email": "ana@example.cl",
      "biografia": "Backend dev",
      "documento": "12345678K",
      "telefono": "+56912345678",
      "foto": "https://cdn.example.cl/ana.png",
      "redes_sociales": {"linkedin": "https://linkedin.com/in/ana", "twitter": "", "github": "https://github.com/ana", "sitio_web": ""}
    },
    "educacion": [{"id": 1, "usuario_id": 7, "institucion": "Duoc UC", "titulo": "Ingeniería", "campo_estudio": "Informática", "fecha_inicio": "2019-03-01", "fecha_fin": "2023-12-01", "completado": true}],
    "experiencia_laboral": [{"id": 3, "empresa": "Acme", "posicion": "Dev", "funciones": "APIs", "fecha_inicio": "2024-01-01", "fecha_fin": null, "actualmente": true, "habilidades": [{"id": 9, "nombre": "Go"}]}],
    "habilidades": [{"id": 4, "habilidad_id": 9, "habilidad__nombre": "Go", "empresa_adquisicion": "Acme", "tiempo_experiencia": 2, "esta_verificado": true}],
    "portafolio": [{"id": 5, "usuario_id": 7, "titulo": "Portal", "descripcion": "", "tipo": "web", "url": null, "archivo": "", "imagen": "", "fecha": "2024-05-01"}],
    "tipo_usuario": "postulante",
    "esta_verificado": true
  }
}`

const legacyProfileBody = `{
  "id": 7,
  "username": "ana",
  "user": {"first_name": "Ana", "last_name": "Pérez", "email": "ana@example.cl"},
  "telefono": "+56912345678",
  "tipo_usuario": "postulante",
  "tipo_naturaleza": "natural",
  "biografia": "Backend dev",
  "documento": "12345678K",
  "linkedin": "https://linkedin.com/in/ana",
  "twitter": "",
  "github": "https://github.com/ana",
  "sitio_web": "",
  "esta_verificado": true,
  "foto": "https://cdn.example.cl/ana.png",
  "fecha_creacion": "2024-01-01T00:00:00Z",
  "fecha_actualizacion": "2024-06-01T00:00:00Z"
}`

func mustCodec(t *testing.T, version string) Codec {
	t.Helper()

	codec, err := ForContract(version)
	require.NoError(t, err)
	return codec
}

func TestForContract(t *testing.T) {
	t.Parallel()

	require.Equal(t, ContractCurrent, mustCodec(t, "V2").Version())
	require.Equal(t, ContractLegacy, mustCodec(t, "v1").Version())

	_, err := ForContract("v3")
	require.ErrorIs(t, err, model.ErrUnknownContract)
}

func TestCurrentDecodeProfile(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, ContractCurrent)

	p, err := codec.DecodeProfile([]byte(currentProfileBody))
	require.NoError(t, err)
	require.Equal(t, "Ana", p.BasicInfo.FirstName)
	require.Equal(t, int64(7), p.BasicInfo.IDUsuario)
	require.Equal(t, "https://github.com/ana", p.BasicInfo.RedesSociales.GitHub)
	require.Len(t, p.Educacion, 1)
	require.Nil(t, p.ExperienciaLaboral[0].FechaFin)
	require.Equal(t, "Go", p.ExperienciaLaboral[0].Habilidades[0].Nombre)
	require.Equal(t, "Go", p.Habilidades[0].HabilidadNombre)
	require.Nil(t, p.Portafolio[0].URL)
	require.True(t, p.EstaVerificado)
	require.Nil(t, p.Legacy)
}

func TestCurrentDecodeBareProfile(t *testing.T) {
	t.Parallel()

	p, err := mustCodec(t, ContractCurrent).DecodeProfile([]byte(`{"basic_info": {"first_name": "Ana"}}`))
	require.NoError(t, err)
	require.Equal(t, "Ana", p.BasicInfo.FirstName)
	require.NotNil(t, p.Educacion)
	require.Empty(t, p.Portafolio)
}

func TestShapesAreNeverMixed(t *testing.T) {
	t.Parallel()

	_, err := mustCodec(t, ContractCurrent).DecodeProfile([]byte(legacyProfileBody))
	require.ErrorIs(t, err, model.ErrMalformedBody)

	_, err = mustCodec(t, ContractLegacy).DecodeProfile([]byte(currentProfileBody))
	require.ErrorIs(t, err, model.ErrMalformedBody)
}

func TestLegacyDecodeProfile(t *testing.T) {
	t.Parallel()

	p, err := mustCodec(t, ContractLegacy).DecodeProfile([]byte(legacyProfileBody))
	require.NoError(t, err)
	require.Equal(t, "Ana", p.BasicInfo.FirstName)
	require.Equal(t, "ana@example.cl", p.BasicInfo.Email)
	require.Equal(t, "https://linkedin.com/in/ana", p.BasicInfo.RedesSociales.LinkedIn)
	require.Empty(t, p.Educacion)
	require.NotNil(t, p.Legacy)
	require.Equal(t, "natural", p.Legacy.TipoNaturaleza)
	require.Equal(t, "2024-06-01T00:00:00Z", p.Legacy.FechaActualizacion)
}

func TestBothContractsAgreeOnSharedFields(t *testing.T) {
	t.Parallel()

	current, err := mustCodec(t, ContractCurrent).DecodeProfile([]byte(currentProfileBody))
	require.NoError(t, err)
	legacy, err := mustCodec(t, ContractLegacy).DecodeProfile([]byte(legacyProfileBody))
	require.NoError(t, err)

	require.Equal(t, current.BasicInfo, legacy.BasicInfo)
	require.Equal(t, current.TipoUsuario, legacy.TipoUsuario)
	require.Equal(t, current.EstaVerificado, legacy.EstaVerificado)
}

func TestDecodeTokens(t *testing.T) {
	t.Parallel()

	tokens, err := mustCodec(t, ContractCurrent).DecodeTokens([]byte(`{"data": {"access": "a1", "refresh": "r1"}}`))
	require.NoError(t, err)
	require.Equal(t, "a1", tokens.AccessToken)
	require.Equal(t, "r1", tokens.RefreshToken)

	tokens, err = mustCodec(t, ContractLegacy).DecodeTokens([]byte(`{"access_token": "a2", "refresh_token": "r2"}`))
	require.NoError(t, err)
	require.Equal(t, "a2", tokens.AccessToken)
	require.Equal(t, "r2", tokens.RefreshToken)

	tokens, err = mustCodec(t, ContractLegacy).DecodeTokens([]byte(`{"access": "a3", "refresh": "r3"}`))
	require.NoError(t, err)
	require.Equal(t, "a3", tokens.AccessToken)

	_, err = mustCodec(t, ContractCurrent).DecodeTokens([]byte(`{"data": {}}`))
	require.ErrorIs(t, err, model.ErrMalformedBody)

	_, err = mustCodec(t, ContractCurrent).DecodeTokens([]byte(`<html>`))
	require.ErrorIs(t, err, model.ErrMalformedBody)
}

func TestEncodeUpdate(t *testing.T) {
	t.Parallel()

	dto := model.UpdateProfileDto{
		User:           model.ProfileUserNames{FirstName: " Ana ", LastName: "Pérez"},
		Telefono:       "+56912345678",
		Documento:      "12345678K",
		Biografia:      "Hola <b>mundo</b> & <script>alert(1)</script>más",
		EstaVerificado: "true",
	}

	body, err := mustCodec(t, ContractCurrent).EncodeUpdate(dto)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(body, &wire))
	require.Equal(t, "true", wire["esta_verificado"])
	require.Equal(t, "Hola mundo & más", wire["biografia"])
	require.Equal(t, "Ana", wire["user"].(map[string]any)["first_name"])
	require.NotContains(t, wire["user"].(map[string]any), "email")

	dto.EstaVerificado = ""
	body, err = mustCodec(t, ContractLegacy).EncodeUpdate(dto)
	require.NoError(t, err)
	require.Contains(t, string(body), `"esta_verificado":"false"`)

	dto.EstaVerificado = "no"
	_, err = mustCodec(t, ContractLegacy).EncodeUpdate(dto)
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestVerifiedFlagRoundTrip(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"true", "false"} {
		got, err := VerifiedFlag(flag)
		require.NoError(t, err)
		require.Equal(t, flag, got)
	}

	got, err := VerifiedFlag(" TRUE ")
	require.NoError(t, err)
	require.Equal(t, "true", got)

	got, err = VerifiedFlag("")
	require.NoError(t, err)
	require.Equal(t, "false", got)

	for _, flag := range []string{"no", "1", "verified"} {
		_, err := VerifiedFlag(flag)
		require.ErrorIs(t, err, model.ErrInvalidInput, flag)
	}
}

func TestTransforms(t *testing.T) {
	t.Parallel()

	p, err := mustCodec(t, ContractCurrent).DecodeProfile([]byte(currentProfileBody))
	require.NoError(t, err)

	dto := ToUpdateDto(p)
	require.Equal(t, "Ana", dto.User.FirstName)
	require.Equal(t, "true", dto.EstaVerificado)
	require.Equal(t, "", dto.TipoNaturaleza)
	require.Equal(t, "https://github.com/ana", dto.GitHub)

	flat := ToLegacy(p)
	require.Equal(t, int64(7), flat.ID)
	require.Equal(t, "ana@example.cl", flat.User.Email)
	require.Empty(t, flat.FechaCreacion)

	legacy, err := mustCodec(t, ContractLegacy).DecodeProfile([]byte(legacyProfileBody))
	require.NoError(t, err)
	require.Equal(t, "natural", ToUpdateDto(legacy).TipoNaturaleza)
	require.Equal(t, "2024-01-01T00:00:00Z", ToLegacy(legacy).FechaCreacion)
}
