package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"profile-portal/internal/event"
	"profile-portal/internal/model"
	"profile-portal/internal/photo"
	"profile-portal/internal/session"
	"profile-portal/internal/validation"
)

const (
	msgLoginFailed  = "Error al iniciar sesión"
	msgLoadFailed   = "Error al cargar perfil"
	msgUpdateFailed = "Error al actualizar perfil"
	msgPhotoFailed  = "Error al actualizar foto"
	msgInvalidImage = "La imagen no es válida"
)

// Backend is the remote profile API as seen by one browser session.
type Backend interface {
	Login(ctx context.Context, credentials model.LoginCredentials) (session.Tokens, error)
	FetchProfile(ctx context.Context) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, dto model.UpdateProfileDto) (*model.UserProfile, error)
	UpdatePhoto(ctx context.Context, upload model.PhotoUpload) (*model.UserProfile, error)
}

type Options struct {
	SessionID         string
	MaxPhotoSize      int64
	PhotoMaxDimension int
	Bus               event.Bus
	Logger            *slog.Logger
}

// Machine serializes every transition of one session's State through Reduce.
//
// At most one backend round trip runs at a time; a second one is rejected
// with model.ErrBusy. Logout and Close start a new epoch, which cancels the
// round trip in flight and makes its result stale.
type Machine struct {
	mu      sync.Mutex
	state   State
	store   session.Store
	backend Backend
	opts    Options
	logger  *slog.Logger

	epoch    uint64
	life     context.Context
	cancel   context.CancelFunc
	inFlight bool
	closed   bool
}

func New(store session.Store, backend Backend, opts Options) *Machine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxPhotoSize <= 0 {
		opts.MaxPhotoSize = validation.MaxImageSize
	}

	life, cancel := context.WithCancel(context.Background())
	return &Machine{
		state:   InitialState(),
		store:   store,
		backend: backend,
		opts:    opts,
		logger:  opts.Logger,
		life:    life,
		cancel:  cancel,
	}
}

// Start decides the initial state: a stored token triggers a profile load,
// otherwise the session is simply unauthenticated.
func (m *Machine) Start(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if m.store.HasToken(ctx) {
		return m.LoadProfile(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.dispatchLocked(SetLoading(false))
	return nil
}

func (m *Machine) Login(ctx context.Context, credentials model.LoginCredentials) error {
	m.mu.Lock()
	epoch, err := m.beginLocked()
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.dispatchLocked(AuthStart())
	if errs := validation.Login(credentials); len(errs) > 0 {
		failure := authError(validation.Join(errs), true, model.ErrInvalidInput)
		m.inFlight = false
		m.failAuthLocked(ctx, event.TypeLoginFailed, failure)
		m.mu.Unlock()
		return failure
	}

	callCtx, done := m.callContextLocked(ctx)
	m.mu.Unlock()
	defer done()

	tokens, err := m.backend.Login(callCtx, credentials)

	m.mu.Lock()
	if !m.currentLocked(epoch) {
		m.mu.Unlock()
		return model.ErrStaleResponse
	}
	if err == nil {
		if saveErr := m.store.Save(context.WithoutCancel(ctx), tokens); saveErr != nil {
			err = fmt.Errorf("save session: %w", saveErr)
		}
	}
	if err != nil {
		failure := authError(userMessage(err, msgLoginFailed), false, err)
		m.inFlight = false
		m.failAuthLocked(ctx, event.TypeLoginFailed, failure)
		m.mu.Unlock()
		return failure
	}
	m.publishLocked(event.TypeLogin, nil)
	m.mu.Unlock()

	return m.fetchProfile(callCtx, epoch)
}

// LoadProfile fetches the profile for the stored token. Any failure
// deauthenticates and clears the session.
func (m *Machine) LoadProfile(ctx context.Context) error {
	m.mu.Lock()
	epoch, err := m.beginLocked()
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.dispatchLocked(SetLoading(true))
	callCtx, done := m.callContextLocked(ctx)
	m.mu.Unlock()
	defer done()

	return m.fetchProfile(callCtx, epoch)
}

func (m *Machine) fetchProfile(ctx context.Context, epoch uint64) error {
	user, err := m.backend.FetchProfile(ctx)
	if err == nil && user == nil {
		err = model.ErrMalformedBody
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(epoch) {
		return model.ErrStaleResponse
	}
	m.inFlight = false

	if err != nil {
		failure := authError(userMessage(err, msgLoadFailed), false, err)
		m.failAuthLocked(ctx, event.TypeProfileLoadFailed, failure)
		return failure
	}

	m.dispatchLocked(AuthSuccess(user))
	m.publishLocked(event.TypeProfileLoaded, nil)
	return nil
}

func (m *Machine) UpdateProfile(ctx context.Context, dto model.UpdateProfileDto) error {
	prepare := func() (string, error) {
		if errs := validation.Profile(dto); len(errs) > 0 {
			return validation.Join(errs), model.ErrInvalidInput
		}
		return "", nil
	}
	call := func(ctx context.Context) (*model.UserProfile, error) {
		return m.backend.UpdateProfile(ctx, dto)
	}

	return m.mutate(ctx, profileMutation, prepare, call)
}

// UpdatePhoto checks the upload by its sniffed content type and size,
// downsizes it when configured, then sends it.
func (m *Machine) UpdatePhoto(ctx context.Context, upload model.PhotoUpload) error {
	prepared := upload
	prepare := func() (string, error) {
		contentType := photo.Detect(upload.Data, upload.ContentType)
		if errs := validation.Image(contentType, upload.Size(), m.opts.MaxPhotoSize); len(errs) > 0 {
			return validation.Join(errs), model.ErrInvalidInput
		}

		data, err := photo.Normalize(upload.Data, contentType, m.opts.PhotoMaxDimension)
		if err != nil {
			return msgInvalidImage, err
		}

		prepared = model.PhotoUpload{Filename: upload.Filename, ContentType: contentType, Data: data}
		return "", nil
	}
	call := func(ctx context.Context) (*model.UserProfile, error) {
		return m.backend.UpdatePhoto(ctx, prepared)
	}

	return m.mutate(ctx, photoMutation, prepare, call)
}

type mutation struct {
	name      string
	succeeded event.Type
	failed    event.Type
	fallback  string
}

var (
	profileMutation = mutation{name: "update_profile", succeeded: event.TypeProfileUpdated, failed: event.TypeProfileFailed, fallback: msgUpdateFailed}
	photoMutation   = mutation{name: "update_photo", succeeded: event.TypePhotoUpdated, failed: event.TypePhotoFailed, fallback: msgPhotoFailed}
)

// mutate runs a post-login change. Failures only set the error; identity
// and the loaded user stay as they were.
func (m *Machine) mutate(ctx context.Context, op mutation, prepare func() (string, error), call func(context.Context) (*model.UserProfile, error)) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.state.IsAuthenticated {
		m.mu.Unlock()
		return model.ErrNotAuthenticated
	}
	epoch, err := m.beginLocked()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.dispatchLocked(SetLoading(true))
	m.mu.Unlock()

	if msg, err := prepare(); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()

		if !m.currentLocked(epoch) {
			return model.ErrStaleResponse
		}
		m.inFlight = false
		failure := operationError(msg, true, err)
		m.failOperationLocked(op, failure)
		return failure
	}

	m.mu.Lock()
	if !m.currentLocked(epoch) {
		m.mu.Unlock()
		return model.ErrStaleResponse
	}
	callCtx, done := m.callContextLocked(ctx)
	m.mu.Unlock()
	defer done()

	user, err := call(callCtx)
	if err == nil && user == nil {
		err = model.ErrMalformedBody
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(epoch) {
		return model.ErrStaleResponse
	}
	m.inFlight = false

	if err != nil {
		failure := operationError(userMessage(err, op.fallback), false, err)
		m.failOperationLocked(op, failure)
		return failure
	}

	m.dispatchLocked(UpdateUser(user))
	m.dispatchLocked(SetLoading(false))
	m.publishLocked(op.succeeded, nil)
	return nil
}

// Logout always ends unauthenticated, even when clearing the stored tokens
// fails.
func (m *Machine) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEpochLocked()
	err := m.store.Clear(context.WithoutCancel(ctx))
	m.dispatchLocked(Logout())
	m.publishLocked(event.TypeLogout, nil)

	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Machine) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dispatchLocked(ClearError())
}

// State returns a copy that callers may keep.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Clone()
}

func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.inFlight
}

// Close cancels any call in flight. The stored tokens are kept.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.nextEpochLocked()
}

func (m *Machine) beginLocked() (uint64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if m.inFlight {
		return 0, model.ErrBusy
	}

	m.inFlight = true
	return m.epoch, nil
}

func (m *Machine) currentLocked(epoch uint64) bool {
	return !m.closed && epoch == m.epoch
}

func (m *Machine) nextEpochLocked() {
	m.cancel()
	m.epoch++
	m.inFlight = false

	if !m.closed {
		m.life, m.cancel = context.WithCancel(context.Background())
	}
}

// callContextLocked derives the context for a backend round trip. It keeps
// the caller's values but not its cancellation: an aborted request must not
// turn into an auth failure that clears the session. The round trip ends with
// the epoch or the backend client's own timeout.
func (m *Machine) callContextLocked(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(m.life, cancel)

	return callCtx, func() {
		stop()
		cancel()
	}
}

func (m *Machine) failAuthLocked(ctx context.Context, failed event.Type, failure *Error) {
	m.dispatchLocked(AuthError(failure.Message))

	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("could not clear session after auth failure", slog.String("error", err.Error()))
	}

	m.logger.Info("authentication failed",
		slog.String("event", string(failed)),
		slog.String("message", failure.Message),
		slog.Bool("local", failure.Local),
	)
	m.publishLocked(failed, event.Failure{Message: failure.Message})
}

func (m *Machine) failOperationLocked(op mutation, failure *Error) {
	m.dispatchLocked(OperationError(failure.Message))
	m.dispatchLocked(SetLoading(false))

	m.logger.Info("profile operation failed",
		slog.String("op", op.name),
		slog.String("message", failure.Message),
		slog.Bool("local", failure.Local),
	)
	m.publishLocked(op.failed, event.Failure{Message: failure.Message})
}

func (m *Machine) dispatchLocked(action Action) {
	m.state = Reduce(m.state, action)
}

func (m *Machine) publishLocked(t event.Type, payload interface{}) {
	if m.opts.Bus == nil {
		return
	}
	m.opts.Bus.Publish(event.New(t, m.opts.SessionID, payload))
}
