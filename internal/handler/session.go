package handler

import (
	"context"
	"net/http"

	"profile-portal/internal/auth"
	"profile-portal/internal/middleware"
	"profile-portal/internal/model"
)

// Sessions hands out the state machine of a browser session.
type Sessions interface {
	Get(ctx context.Context, sessionID string) *auth.Machine
}

func machineFor(sessions Sessions, r *http.Request) (*auth.Machine, error) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		return nil, model.ErrNoSession
	}
	return sessions.Get(r.Context(), sessionID), nil
}

// respond writes the machine's state after an action, as success or as the
// failure envelope.
func respond(w http.ResponseWriter, machine *auth.Machine, err error) {
	if err != nil {
		writeFailure(w, err, machine.State())
		return
	}
	writeSuccess(w, http.StatusOK, machine.State())
}
