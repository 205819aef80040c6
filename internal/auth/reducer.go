// Package auth holds the per-session authentication state machine.
package auth

import "profile-portal/internal/model"

// State is the record the UI renders. IsAuthenticated implies User != nil.
type State struct {
	IsAuthenticated bool               `json:"isAuthenticated"`
	User            *model.UserProfile `json:"user"`
	IsLoading       bool               `json:"isLoading"`
	Error           *string            `json:"error"`
}

func InitialState() State {
	return State{IsLoading: true}
}

func (s State) Clone() State {
	out := s
	out.User = s.User.Clone()
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	return out
}

func (s State) ErrorMessage() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

type ActionType string

const (
	ActionAuthStart      ActionType = "AUTH_START"
	ActionAuthSuccess    ActionType = "AUTH_SUCCESS"
	ActionAuthError      ActionType = "AUTH_ERROR"
	ActionOperationError ActionType = "OPERATION_ERROR"
	ActionLogout         ActionType = "LOGOUT"
	ActionUpdateUser     ActionType = "UPDATE_USER"
	ActionSetLoading     ActionType = "SET_LOADING"
	ActionClearError     ActionType = "CLEAR_ERROR"
)

// Action is a state transition request. Only the field matching Type is
// read.
type Action struct {
	Type    ActionType
	User    *model.UserProfile
	Message string
	Loading bool
}

func AuthStart() Action { return Action{Type: ActionAuthStart} }
func AuthSuccess(user *model.UserProfile) Action { return Action{Type: ActionAuthSuccess, User: user} }
func AuthError(message string) Action { return Action{Type: ActionAuthError, Message: message} }
func OperationError(message string) Action { return Action{Type: ActionOperationError, Message: message} }
func Logout() Action { return Action{Type: ActionLogout} }
func UpdateUser(user *model.UserProfile) Action { return Action{Type: ActionUpdateUser, User: user} }
func SetLoading(loading bool) Action { return Action{Type: ActionSetLoading, Loading: loading} }
func ClearError() Action { return Action{Type: ActionClearError} }

// Reduce returns the state after applying action. It never mutates s.
// AUTH_ERROR drops the identity; OPERATION_ERROR keeps it.
func Reduce(s State, action Action) State {
	switch action.Type {
	case ActionAuthStart:
		s.IsLoading = true
		s.Error = nil
	case ActionAuthSuccess:
		if action.User == nil {
			return s
		}
		s.IsAuthenticated = true
		s.User = action.User
		s.IsLoading = false
		s.Error = nil
	case ActionAuthError:
		s.IsAuthenticated = false
		s.User = nil
		s.IsLoading = false
		s.Error = errorText(action.Message)
	case ActionOperationError:
		s.IsLoading = false
		s.Error = errorText(action.Message)
	case ActionLogout:
		s.IsAuthenticated = false
		s.User = nil
		s.IsLoading = false
		s.Error = nil
	case ActionUpdateUser:
		if action.User == nil {
			return s
		}
		s.User = action.User
		s.Error = nil
	case ActionSetLoading:
		s.IsLoading = action.Loading
	case ActionClearError:
		s.Error = nil
	}

	return s
}

func errorText(text string) *string {
	return &text
}
