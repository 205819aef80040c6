//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"profile-portal/internal/auth"
	"profile-portal/internal/backend"
	"profile-portal/internal/config"
	"profile-portal/internal/event"
	"profile-portal/internal/handler"
	"profile-portal/internal/model"
	"profile-portal/internal/profile"
	"profile-portal/internal/router"
	"profile-portal/internal/session"
)

// fakeBackend serves the current contract for a single account.
type fakeBackend struct {
	mu        sync.Mutex
	firstName string
	photo     string
	revoked   bool
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/login/" {
		var creds model.LoginCredentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username != "ana" || creds.Password != "secreto" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail": "Credenciales inválidas"}`)
			return
		}
		f.revoked = false
		_, _ = io.WriteString(w, `{"access": "a-1", "refresh": "r-1"}`)
		return
	}

	if f.revoked || r.Header.Get("Authorization") != "Bearer a-1" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail": "Token inválido"}`)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/perfil":
	case r.Method == http.MethodPut && r.URL.Path == "/usuario/perfil/":
		var dto model.UpdateProfileDto
		_ = json.NewDecoder(r.Body).Decode(&dto)
		f.firstName = dto.User.FirstName
	case r.Method == http.MethodPatch && r.URL.Path == "/perfil/foto/":
		if _, _, err := r.FormFile("foto"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error": ["Archivo requerido"]}`)
			return
		}
		f.photo = "https://cdn.example.cl/ana.png"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, _ := json.Marshal(map[string]any{
		"basic_info": map[string]any{
			"id_usuario":     7,
			"username":       "ana",
			"first_name":     f.firstName,
			"last_name":      "Pérez",
			"email":          "ana@example.cl",
			"foto":           f.photo,
			"redes_sociales": map[string]any{},
		},
		"tipo_usuario":    "postulante",
		"esta_verificado": false,
	})
	_, _ = w.Write(body)
}

func (f *fakeBackend) revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
}

type portal struct {
	server   *httptest.Server
	backend  *fakeBackend
	sessions *session.Memory
	bus      *event.InMemoryBus
	client   *http.Client
}

func newPortal(t *testing.T) *portal {
	t.Helper()

	fake := &fakeBackend{firstName: "Ana"}
	upstream := httptest.NewServer(fake)
	t.Cleanup(upstream.Close)

	codec, err := profile.ForContract(profile.ContractCurrent)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := backend.NewClient(upstream.URL, upstream.Client(), codec, logger)
	sessions := session.NewMemory()
	bus := event.NewBus()

	registry := auth.NewRegistry(auth.RegistryConfig{
		Sessions: sessions,
		Backends: func(store session.Store) auth.Backend {
			return client.ForSession(store)
		},
		SessionTTL: time.Hour,
		Machine: auth.Options{
			MaxPhotoSize: 1024 * 1024,
			Bus:          bus,
			Logger:       logger,
		},
		Logger: logger,
	})
	t.Cleanup(registry.Close)

	cfg := &config.Config{
		RequestTimeout:    10 * time.Second,
		SessionCookieName: "portal_session",
		RateLimitRPM:      1000,
		AuthRateLimitRPM:  1000,
	}

	server := httptest.NewServer(router.New(cfg, router.Handlers{
		Auth:    handler.NewAuthHandler(registry),
		Profile: handler.NewProfileHandler(registry, 1024*1024),
		Health:  handler.NewHealthHandler(codec.Version(), config.SessionBackendMemory, nil),
	}))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &portal{
		server:   server,
		backend:  fake,
		sessions: sessions,
		bus:      bus,
		client:   &http.Client{Jar: jar},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func (p *portal) csrfToken(t *testing.T) string {
	t.Helper()

	for _, c := range p.client.Jar.Cookies(mustParseURL(t, p.server.URL)) {
		if c.Name == "portal_csrf" {
			return c.Value
		}
	}
	return ""
}

func (p *portal) do(t *testing.T, method string, path string, contentType string, body []byte) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, p.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", p.csrfToken(t))
	}

	resp, err := p.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func (p *portal) doJSON(t *testing.T, method string, path string, payload any) (int, envelope) {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	return p.do(t, method, path, "application/json", body)
}

func (p *portal) state(t *testing.T) auth.State {
	t.Helper()

	status, resp := p.doJSON(t, http.MethodGet, "/api/v1/auth/state", nil)
	require.Equal(t, http.StatusOK, status)
	return decodeState(t, resp)
}

func (p *portal) login(t *testing.T) {
	t.Helper()

	p.state(t)
	status, resp := p.doJSON(t, http.MethodPost, "/api/v1/auth/login", model.LoginCredentials{Username: "ana", Password: "secreto"})
	require.Equal(t, http.StatusOK, status)
	require.True(t, decodeState(t, resp).IsAuthenticated)
}

func decodeState(t *testing.T, resp envelope) auth.State {
	t.Helper()

	var state auth.State
	require.NoError(t, json.Unmarshal(resp.Data, &state))
	return state
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
