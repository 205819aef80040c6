package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"profile-portal/internal/model"
	"profile-portal/internal/profile"
	"profile-portal/pkg/apierror"
)

const (
	photoField     = "foto"
	multipartSlack = 1 << 20
)

type ProfileHandler struct {
	sessions     Sessions
	maxPhotoSize int64
}

func NewProfileHandler(sessions Sessions, maxPhotoSize int64) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, maxPhotoSize: maxPhotoSize}
}

func (h *ProfileHandler) Reload(w http.ResponseWriter, r *http.Request) {
	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, machine, machine.LoadProfile(r.Context()))
}

// Form returns the edit form pre-filled from the loaded profile.
func (h *ProfileHandler) Form(w http.ResponseWriter, r *http.Request) {
	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	state := machine.State()
	if !state.IsAuthenticated {
		writeFailure(w, model.ErrNotAuthenticated, state)
		return
	}

	writeSuccess(w, http.StatusOK, profile.ToUpdateDto(state.User))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateProfileDto
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	respond(w, machine, machine.UpdateProfile(r.Context(), payload))
}

// UpdatePhoto accepts a multipart upload in the "foto" field. Bodies far
// above the photo limit are cut off here; anything smaller reaches the
// state machine, which owns the size rule.
func (h *ProfileHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxPhotoSize+multipartSlack)
	file, header, err := r.FormFile(photoField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "El archivo es demasiado grande", photoField, http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, apierror.BadRequest("Debes seleccionar una imagen", photoField))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apierror.BadRequest("No se pudo leer el archivo", photoField))
		return
	}

	upload := model.PhotoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	respond(w, machine, machine.UpdatePhoto(r.Context(), upload))
}
