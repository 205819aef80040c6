// Package validation holds the checks the portal runs before any backend
// call. Messages are user-facing and in Spanish, like the rest of the UI.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"profile-portal/internal/model"
)

const MaxImageSize = 5 * 1024 * 1024

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern    = regexp.MustCompile(`^[\d\s\-()+]+$`)
	documentPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	nonDigits       = regexp.MustCompile(`\D`)

	allowedImageTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/jpg":  {},
		"image/png":  {},
		"image/gif":  {},
	}
)

func Login(credentials model.LoginCredentials) []string {
	var errs []string

	if strings.TrimSpace(credentials.Username) == "" {
		errs = append(errs, "El nombre de usuario es requerido")
	}

	if strings.TrimSpace(credentials.Password) == "" {
		errs = append(errs, "La contraseña es requerida")
	}

	return errs
}

func Profile(dto model.UpdateProfileDto) []string {
	var errs []string

	if strings.TrimSpace(dto.User.FirstName) == "" {
		errs = append(errs, "El nombre es requerido")
	}

	if strings.TrimSpace(dto.User.LastName) == "" {
		errs = append(errs, "El apellido es requerido")
	}

	if phone := strings.TrimSpace(dto.Telefono); phone == "" {
		errs = append(errs, "El teléfono es requerido")
	} else if !IsPhone(phone) {
		errs = append(errs, "El teléfono no tiene un formato válido")
	}

	if document := strings.TrimSpace(dto.Documento); document == "" {
		errs = append(errs, "El documento es requerido")
	} else if !IsDocument(document) {
		errs = append(errs, "El documento no tiene un formato válido")
	}

	if dto.User.Email != "" && !IsEmail(dto.User.Email) {
		errs = append(errs, "El email no tiene un formato válido")
	}

	links := []struct {
		value   string
		message string
	}{
		{dto.LinkedIn, "La URL de LinkedIn no es válida"},
		{dto.Twitter, "La URL de Twitter no es válida"},
		{dto.GitHub, "La URL de GitHub no es válida"},
		{dto.SitioWeb, "La URL del sitio web no es válida"},
	}
	for _, link := range links {
		if link.value != "" && !IsURL(link.value) {
			errs = append(errs, link.message)
		}
	}

	if !IsVerifiedFlag(dto.EstaVerificado) {
		errs = append(errs, "El estado de verificación no es válido")
	}

	return errs
}

// Image checks an upload against the photo rules. contentType should be the
// sniffed type, not only what the browser declared.
func Image(contentType string, size int64, maxSize int64) []string {
	var errs []string

	if maxSize <= 0 {
		maxSize = MaxImageSize
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(contentType, "image/") {
		errs = append(errs, "El archivo debe ser una imagen")
	}

	if size > maxSize {
		errs = append(errs, fmt.Sprintf("La imagen no debe superar los %dMB", maxSize/(1024*1024)))
	}

	if _, ok := allowedImageTypes[contentType]; !ok {
		errs = append(errs, "Solo se permiten archivos JPG, PNG o GIF")
	}

	return errs
}

func IsEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsURL accepts absolute URLs only: a scheme plus a host.
func IsURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}

	return parsed.Scheme != "" && parsed.Host != ""
}

func IsPhone(phone string) bool {
	return phonePattern.MatchString(phone) && len(nonDigits.ReplaceAllString(phone, "")) >= 7
}

func IsDocument(document string) bool {
	return documentPattern.MatchString(document) && len(document) >= 5
}

// IsVerifiedFlag accepts "true", "false" or an empty value, which the form
// sends for an unchecked box.
func IsVerifiedFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "true", "false":
		return true
	default:
		return false
	}
}

// Join renders validation messages the way the UI shows them.
func Join(errs []string) string {
	return strings.Join(errs, ", ")
}
