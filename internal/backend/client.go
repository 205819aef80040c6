// Package backend talks to the remote profile API on behalf of one browser
// session at a time.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"profile-portal/internal/model"
	"profile-portal/internal/profile"
	"profile-portal/internal/session"
)

const maxResponseBytes = 4 << 20

// Observer receives one call per backend round trip. status is 0 when no
// response arrived.
type Observer interface {
	ObserveBackendCall(op string, status int, duration time.Duration)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	codec      profile.Codec
	logger     *slog.Logger
	observer   Observer
}

func NewClient(baseURL string, httpClient *http.Client, codec profile.Codec, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		codec:      codec,
		logger:     logger,
	}
}

func (c *Client) SetObserver(observer Observer) {
	c.observer = observer
}

func (c *Client) Contract() string {
	return c.codec.Version()
}

// ForSession returns a client that authenticates with, and clears on 401,
// the tokens held by store.
func (c *Client) ForSession(store session.Store) *Session {
	return &Session{client: c, store: store}
}

type Session struct {
	client *Client
	store  session.Store
}

func (s *Session) Login(ctx context.Context, credentials model.LoginCredentials) (session.Tokens, error) {
	payload, err := json.Marshal(credentials)
	if err != nil {
		return session.Tokens{}, &Error{Op: OpLogin, Message: FallbackMessage(OpLogin), Err: err}
	}

	body, status, err := s.do(ctx, OpLogin, http.MethodPost, s.client.codec.Endpoints().Login, bytes.NewReader(payload), "application/json")
	if err != nil {
		return session.Tokens{}, err
	}

	tokens, err := s.client.codec.DecodeTokens(body)
	if err != nil {
		return session.Tokens{}, s.client.decodeFailure(OpLogin, status, err)
	}

	return tokens, nil
}

func (s *Session) FetchProfile(ctx context.Context) (*model.UserProfile, error) {
	body, status, err := s.do(ctx, OpFetchProfile, http.MethodGet, s.client.codec.Endpoints().Profile, nil, "")
	if err != nil {
		return nil, err
	}

	return s.decodeProfile(OpFetchProfile, status, body)
}

func (s *Session) UpdateProfile(ctx context.Context, dto model.UpdateProfileDto) (*model.UserProfile, error) {
	payload, err := s.client.codec.EncodeUpdate(dto)
	if err != nil {
		return nil, &Error{Op: OpUpdateProfile, Message: FallbackMessage(OpUpdateProfile), Err: err}
	}

	body, status, err := s.do(ctx, OpUpdateProfile, http.MethodPut, s.client.codec.Endpoints().UpdateProfile, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	return s.decodeProfile(OpUpdateProfile, status, body)
}

func (s *Session) UpdatePhoto(ctx context.Context, upload model.PhotoUpload) (*model.UserProfile, error) {
	endpoints := s.client.codec.Endpoints()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, endpoints.PhotoField, uploadName(upload)))
	header.Set("Content-Type", upload.ContentType)

	part, err := writer.CreatePart(header)
	if err == nil {
		_, err = part.Write(upload.Data)
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		return nil, &Error{Op: OpUpdatePhoto, Message: FallbackMessage(OpUpdatePhoto), Err: err}
	}

	body, status, err := s.do(ctx, OpUpdatePhoto, http.MethodPatch, endpoints.UpdatePhoto, &buf, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	return s.decodeProfile(OpUpdatePhoto, status, body)
}

func (s *Session) decodeProfile(op string, status int, body []byte) (*model.UserProfile, error) {
	p, err := s.client.codec.DecodeProfile(body)
	if err != nil {
		return nil, s.client.decodeFailure(op, status, err)
	}
	return p, nil
}

func (s *Session) do(ctx context.Context, op string, method string, path string, body io.Reader, contentType string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, body)
	if err != nil {
		return nil, 0, &Error{Op: op, Message: FallbackMessage(op), Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := s.store.AccessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		s.client.observe(op, 0, time.Since(started))
		s.client.logger.Error("backend call failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, 0, &Error{Op: op, Message: FallbackMessage(op), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	s.client.observe(op, resp.StatusCode, time.Since(started))
	if err != nil {
		return nil, resp.StatusCode, &Error{Op: op, Status: resp.StatusCode, Message: FallbackMessage(op), Err: err}
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Op: op, Status: resp.StatusCode, Message: messageFrom(payload, op)}
		if apiErr.Unauthorized() {
			if clearErr := s.store.Clear(ctx); clearErr != nil {
				s.client.logger.Warn("could not clear session after 401", slog.String("error", clearErr.Error()))
			}
		}
		s.client.logger.Warn("backend rejected request",
			slog.String("op", op),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return nil, resp.StatusCode, apiErr
	}

	return payload, resp.StatusCode, nil
}

func (c *Client) decodeFailure(op string, status int, err error) error {
	c.logger.Error("unexpected backend response",
		slog.String("op", op),
		slog.String("contract", c.codec.Version()),
		slog.String("error", err.Error()),
	)
	return &Error{Op: op, Status: status, Message: FallbackMessage(op), Err: err}
}

func (c *Client) observe(op string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(op, status, duration)
	}
}

func uploadName(upload model.PhotoUpload) string {
	name := strings.TrimSpace(upload.Filename)
	if name == "" {
		return "foto"
	}
	return name
}
