package auth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"profile-portal/internal/backend"
	"profile-portal/internal/event"
	"profile-portal/internal/model"
	"profile-portal/internal/session"
)

type fixture struct {
	machine *Machine
	backend *MockBackend
	store   session.Store
	events  <-chan event.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	mb := &MockBackend{}
	store := session.Scoped(session.NewMemory(), "sid-1", time.Hour)
	m := New(store, mb, Options{SessionID: "sid-1", Bus: bus})
	t.Cleanup(m.Close)

	return &fixture{machine: m, backend: mb, store: store, events: events}
}

// authenticate brings the machine to the Authenticated state through a
// cold start with stored tokens.
func (f *fixture) authenticate(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, session.Tokens{AccessToken: "a-1", RefreshToken: "r-1"}))
	f.backend.On("FetchProfile", mock.Anything).Return(ana(), nil).Once()

	require.NoError(t, f.machine.Start(ctx))
	require.True(t, f.machine.State().IsAuthenticated)
	f.drain()
}

func (f *fixture) drain() []event.Type {
	var types []event.Type
	for {
		select {
		case e := <-f.events:
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func validDto() model.UpdateProfileDto {
	return model.UpdateProfileDto{
		User:           model.ProfileUserNames{FirstName: "Ana", LastName: "Pérez"},
		Telefono:       "+56912345678",
		Documento:      "12345678K",
		LinkedIn:       "https://linkedin.com/in/ana",
		EstaVerificado: "false",
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

// oversizedPNG is a tiny PNG whose header declares 20000x20000 pixels.
func oversizedPNG() []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 20000)
	binary.BigEndian.PutUint32(ihdr[4:8], 20000)
	ihdr[8] = 8
	ihdr[9] = 6

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.WriteString("IHDR")
	buf.Write(ihdr)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(append([]byte("IHDR"), ihdr...)))
	return buf.Bytes()
}

func TestStartWithoutToken(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.machine.Start(context.Background()))

	require.Equal(t, State{}, f.machine.State())
	f.backend.AssertNotCalled(t, "FetchProfile", mock.Anything)
}

func TestColdStartWithStoredToken(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	state := f.machine.State()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Nil(t, state.Error)
	require.Equal(t, "Ana", state.User.BasicInfo.FirstName)
}

func TestColdStartProfileFailureDeauthenticates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, session.Tokens{AccessToken: "a-1", RefreshToken: "r-1"}))
	f.backend.On("FetchProfile", mock.Anything).
		Return(nil, &backend.Error{Op: backend.OpFetchProfile, Status: 500, Message: "Error al obtener perfil"}).Once()

	err := f.machine.Start(ctx)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, KindAuth, authErr.Kind)
	require.False(t, authErr.Local)

	state := f.machine.State()
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.User)
	require.False(t, state.IsLoading)
	require.Equal(t, "Error al obtener perfil", state.ErrorMessage())
	require.False(t, f.store.HasToken(ctx))
	require.Empty(t, f.store.RefreshToken(ctx))
	require.Equal(t, []event.Type{event.TypeProfileLoadFailed}, f.drain())
}

func TestLoginLoadsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Start(ctx))

	creds := model.LoginCredentials{Username: "ana", Password: "secreto"}
	f.backend.On("Login", mock.Anything, creds).Return(session.Tokens{AccessToken: "a-1", RefreshToken: "r-1"}, nil).Once()
	f.backend.On("FetchProfile", mock.Anything).Return(ana(), nil).Once()

	require.NoError(t, f.machine.Login(ctx, creds))

	state := f.machine.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, "ana", state.User.BasicInfo.Username)
	require.Equal(t, "a-1", f.store.AccessToken(ctx))
	require.Equal(t, "r-1", f.store.RefreshToken(ctx))
	require.Equal(t, []event.Type{event.TypeLogin, event.TypeProfileLoaded}, f.drain())
	f.backend.AssertExpectations(t)
}

func TestLoginProfileFailureClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.backend.On("Login", mock.Anything, mock.Anything).Return(session.Tokens{AccessToken: "a-1", RefreshToken: "r-1"}, nil).Once()
	f.backend.On("FetchProfile", mock.Anything).Return(nil, errors.New("connection reset")).Once()

	err := f.machine.Login(ctx, model.LoginCredentials{Username: "ana", Password: "secreto"})
	require.Error(t, err)

	state := f.machine.State()
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.User)
	require.Equal(t, "Error al cargar perfil", state.ErrorMessage())
	require.False(t, f.store.HasToken(ctx))
	require.Empty(t, f.store.RefreshToken(ctx))
}

func TestLoginRejectedByBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.backend.On("Login", mock.Anything, mock.Anything).
		Return(session.Tokens{}, &backend.Error{Op: backend.OpLogin, Status: 401, Message: "Credenciales inválidas"}).Once()

	err := f.machine.Login(ctx, model.LoginCredentials{Username: "ana", Password: "mala"})

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "Credenciales inválidas", authErr.Message)
	require.Equal(t, "Credenciales inválidas", f.machine.State().ErrorMessage())
	require.False(t, f.machine.State().IsLoading)
	f.backend.AssertNotCalled(t, "FetchProfile", mock.Anything)
}

func TestLoginWithEmptyPasswordNeverCallsBackend(t *testing.T) {
	f := newFixture(t)

	err := f.machine.Login(context.Background(), model.LoginCredentials{Username: "ana"})

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.True(t, authErr.Local)
	require.ErrorIs(t, err, model.ErrInvalidInput)

	state := f.machine.State()
	require.False(t, state.IsAuthenticated)
	require.Equal(t, "La contraseña es requerida", state.ErrorMessage())
	f.backend.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	require.Equal(t, []event.Type{event.TypeLoginFailed}, f.drain())
}

func TestUpdateProfileSuccess(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	updated := ana()
	updated.BasicInfo.Telefono = "+56911111111"
	f.backend.On("UpdateProfile", mock.Anything, validDto()).Return(updated, nil).Once()

	require.NoError(t, f.machine.UpdateProfile(context.Background(), validDto()))

	state := f.machine.State()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Equal(t, "+56911111111", state.User.BasicInfo.Telefono)
	require.Equal(t, []event.Type{event.TypeProfileUpdated}, f.drain())
}

func TestUpdateProfileFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)
	before := f.machine.State()

	f.backend.On("UpdateProfile", mock.Anything, mock.Anything).
		Return(nil, &backend.Error{Op: backend.OpUpdateProfile, Status: 500, Message: "Error al actualizar perfil"}).Once()

	err := f.machine.UpdateProfile(context.Background(), validDto())

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, KindOperation, authErr.Kind)

	state := f.machine.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, before.User, state.User)
	require.False(t, state.IsLoading)
	require.Equal(t, "Error al actualizar perfil", state.ErrorMessage())
	require.True(t, f.store.HasToken(context.Background()))
	require.Equal(t, []event.Type{event.TypeProfileFailed}, f.drain())
}

func TestUpdateProfileInvalidLinkedInIsLocal(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)
	before := f.machine.State()

	dto := validDto()
	dto.LinkedIn = "not-a-url"
	err := f.machine.UpdateProfile(context.Background(), dto)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.True(t, authErr.Local)
	require.Equal(t, KindOperation, authErr.Kind)

	state := f.machine.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, before.User, state.User)
	require.Equal(t, "La URL de LinkedIn no es válida", state.ErrorMessage())
	f.backend.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
}

func TestUpdatePhotoTooLargeIsLocal(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	data := append(pngBytes(t), make([]byte, 6*1024*1024)...)
	err := f.machine.UpdatePhoto(context.Background(), model.PhotoUpload{Filename: "big.png", ContentType: "image/png", Data: data})

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.True(t, authErr.Local)
	require.Contains(t, f.machine.State().ErrorMessage(), "5MB")
	require.True(t, f.machine.State().IsAuthenticated)
	f.backend.AssertNotCalled(t, "UpdatePhoto", mock.Anything, mock.Anything)
}

func TestUpdatePhotoUsesSniffedType(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	data := pngBytes(t)
	f.backend.On("UpdatePhoto", mock.Anything, mock.MatchedBy(func(u model.PhotoUpload) bool {
		return u.ContentType == "image/png" && bytes.Equal(u.Data, data) && u.Filename == "avatar"
	})).Return(ana(), nil).Once()

	err := f.machine.UpdatePhoto(context.Background(), model.PhotoUpload{Filename: "avatar", ContentType: "application/octet-stream", Data: data})
	require.NoError(t, err)
	require.Equal(t, []event.Type{event.TypePhotoUpdated}, f.drain())
	f.backend.AssertExpectations(t)
}

func TestUpdatePhotoRejectsHugeDimensionsLocally(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	err := f.machine.UpdatePhoto(context.Background(), model.PhotoUpload{Filename: "bomb.png", ContentType: "image/png", Data: oversizedPNG()})

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, KindOperation, authErr.Kind)
	require.True(t, authErr.Local)
	require.Equal(t, "La imagen no es válida", authErr.Message)

	state := f.machine.State()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Equal(t, "La imagen no es válida", state.ErrorMessage())
	require.Equal(t, []event.Type{event.TypePhotoFailed}, f.drain())
	f.backend.AssertNotCalled(t, "UpdatePhoto", mock.Anything, mock.Anything)
}

func TestUpdatePhotoRejectsNonImages(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	err := f.machine.UpdatePhoto(context.Background(), model.PhotoUpload{Filename: "notes.png", ContentType: "image/png", Data: []byte("plain text, not a picture")})

	require.Error(t, err)
	require.Contains(t, f.machine.State().ErrorMessage(), "El archivo debe ser una imagen")
	f.backend.AssertNotCalled(t, "UpdatePhoto", mock.Anything, mock.Anything)
}

func TestMutationsRequireAuthentication(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.machine.Start(context.Background()))
	before := f.machine.State()

	require.ErrorIs(t, f.machine.UpdateProfile(context.Background(), validDto()), model.ErrNotAuthenticated)
	require.ErrorIs(t, f.machine.UpdatePhoto(context.Background(), model.PhotoUpload{}), model.ErrNotAuthenticated)
	require.Equal(t, before, f.machine.State())
}

func TestLogoutResetsEverything(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)
	ctx := context.Background()

	require.NoError(t, f.machine.Logout(ctx))

	require.Equal(t, State{}, f.machine.State())
	require.False(t, f.store.HasToken(ctx))
	require.Empty(t, f.store.AccessToken(ctx))
	require.Empty(t, f.store.RefreshToken(ctx))
	require.Equal(t, []event.Type{event.TypeLogout}, f.drain())
}

func TestClearErrorKeepsEverythingElse(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	dto := validDto()
	dto.Telefono = ""
	require.Error(t, f.machine.UpdateProfile(context.Background(), dto))
	before := f.machine.State()
	require.NotNil(t, before.Error)

	f.machine.ClearError()

	after := f.machine.State()
	require.Nil(t, after.Error)
	after.Error = before.Error
	require.Equal(t, before, after)
}

func TestConcurrentMutationIsRejected(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	release := make(chan struct{})
	f.backend.On("UpdateProfile", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(ana(), nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- f.machine.UpdateProfile(context.Background(), validDto())
	}()
	require.Eventually(t, f.machine.Busy, time.Second, time.Millisecond)

	during := f.machine.State()
	require.ErrorIs(t, f.machine.UpdateProfile(context.Background(), validDto()), model.ErrBusy)
	require.ErrorIs(t, f.machine.UpdatePhoto(context.Background(), model.PhotoUpload{}), model.ErrBusy)
	require.Equal(t, during, f.machine.State())

	close(release)
	require.NoError(t, <-done)
	require.False(t, f.machine.Busy())
	f.backend.AssertNumberOfCalls(t, "UpdateProfile", 1)
}

func TestLogoutDiscardsResponseInFlight(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	f.backend.On("UpdateProfile", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(ana(), nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- f.machine.UpdateProfile(context.Background(), validDto())
	}()
	require.Eventually(t, f.machine.Busy, time.Second, time.Millisecond)

	require.NoError(t, f.machine.Logout(context.Background()))

	select {
	case err := <-done:
		require.ErrorIs(t, err, model.ErrStaleResponse)
	case <-time.After(time.Second):
		t.Fatal("in-flight call was not canceled by logout")
	}

	require.Equal(t, State{}, f.machine.State())
	require.False(t, f.machine.Busy())
	require.Equal(t, []event.Type{event.TypeLogout}, f.drain())
}

func TestCallerCancelDoesNotEndSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(context.Background(), session.Tokens{AccessToken: "a", RefreshToken: "r"}))

	f.backend.On("FetchProfile", mock.Anything).
		Run(func(args mock.Arguments) {
			time.Sleep(150 * time.Millisecond)
			require.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(ana(), nil).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, f.machine.Start(ctx))
	require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)

	state := f.machine.State()
	require.True(t, state.IsAuthenticated)
	require.Nil(t, state.Error)
	require.True(t, f.store.HasToken(context.Background()))
	require.Equal(t, "r", f.store.RefreshToken(context.Background()))
	f.backend.AssertExpectations(t)
}

func TestCanceledMutationKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t)

	updated := ana()
	updated.BasicInfo.Telefono = "+56900000000"
	f.backend.On("UpdateProfile", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			time.Sleep(100 * time.Millisecond)
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(updated, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.machine.UpdateProfile(ctx, validDto())
	}()
	require.Eventually(t, f.machine.Busy, time.Second, time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	require.True(t, f.machine.State().IsAuthenticated)
	require.Equal(t, "+56900000000", f.machine.State().User.BasicInfo.Telefono)
	require.True(t, f.store.HasToken(context.Background()))
}

func TestClosedMachineRejectsWork(t *testing.T) {
	f := newFixture(t)
	f.machine.Close()

	require.ErrorIs(t, f.machine.Login(context.Background(), model.LoginCredentials{Username: "a", Password: "b"}), ErrClosed)
	require.ErrorIs(t, f.machine.LoadProfile(context.Background()), ErrClosed)
}
