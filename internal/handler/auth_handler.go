package handler

import (
	"encoding/json"
	"net/http"

	"profile-portal/internal/auth"
	"profile-portal/internal/model"
	"profile-portal/internal/profile"
	"profile-portal/pkg/apierror"
)

const maxJSONBody = 64 << 10

type AuthHandler struct {
	sessions Sessions
}

func NewAuthHandler(sessions Sessions) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// legacyState is the auth state with the user in the flat profile shape.
type legacyState struct {
	IsAuthenticated bool                     `json:"isAuthenticated"`
	User            *model.LegacyUserProfile `json:"user"`
	IsLoading       bool                     `json:"isLoading"`
	Error           *string                  `json:"error"`
}

func toLegacyState(state auth.State) legacyState {
	out := legacyState{
		IsAuthenticated: state.IsAuthenticated,
		IsLoading:       state.IsLoading,
		Error:           state.Error,
	}
	if state.User != nil {
		flat := profile.ToLegacy(state.User)
		out.User = &flat
	}
	return out
}

// State renders the session's auth state. ?format=legacy returns the user
// in the flat profile shape older screens read.
func (h *AuthHandler) State(w http.ResponseWriter, r *http.Request) {
	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "current":
		writeSuccess(w, http.StatusOK, machine.State())
	case "legacy":
		writeSuccess(w, http.StatusOK, toLegacyState(machine.State()))
	default:
		writeError(w, apierror.BadRequest("Formato de estado no soportado", "format"))
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.LoginCredentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	respond(w, machine, machine.Login(r.Context(), payload))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, machine, machine.Logout(r.Context()))
}

func (h *AuthHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	machine, err := machineFor(h.sessions, r)
	if err != nil {
		writeError(w, err)
		return
	}

	machine.ClearError()
	writeSuccess(w, http.StatusOK, machine.State())
}
