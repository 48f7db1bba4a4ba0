// mitra/gateway/gateway.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mitra/mitra/config"
	"mitra/mitra/types"
	"mitra/mitra/utils/logging"
)

// ErrUnauthorized marks an authentication-rejected response. The gateway has
// already recovered globally (credential wipe + OnUnauthorized hook) by the
// time a caller sees it; it is not a per-call failure to retry.
var ErrUnauthorized = errors.New("unauthorized")

// RequestError is any non-success backend response or transport failure.
// Message comes from the error body's detail field when decodable.
type RequestError struct {
	Status  int
	Message string
	cause   error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.cause
}

// Gateway wraps every network call to the backend: attaches the bearer
// credential, raises typed failures, and on a 401 forces the whole client
// into an unauthenticated state.
type Gateway struct {
	baseURL        string
	client         *http.Client
	creds          *Credentials
	onUnauthorized func()
}

func New(cfg config.Config, creds *Credentials, onUnauthorized func()) *Gateway {
	return &Gateway{
		baseURL:        cfg.BaseURL,
		client:         &http.Client{Timeout: cfg.HTTPTimeout},
		creds:          creds,
		onUnauthorized: onUnauthorized,
	}
}

// Call performs one JSON request. body and out may be nil. A nil error means
// a 2xx response with out (when given) decoded from the body.
func (g *Gateway) Call(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return g.do(req, endpoint, out)
}

// CallMultipart submits an audio file plus contextual fields as
// multipart/form-data. Used only by the voice-query path.
func (g *Gateway) CallMultipart(ctx context.Context, endpoint, fileName string, file []byte, fields map[string]string, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("build multipart: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return g.do(req, endpoint, out)
}

func (g *Gateway) do(req *http.Request, endpoint string, out interface{}) error {
	if token := g.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		logging.ErrorLogger.Error("transport failure",
			zap.String("endpoint", endpoint), zap.Error(err))
		return &RequestError{Message: "network error", cause: err}
	}
	defer resp.Body.Close()

	logging.RequestLogger.Info("request",
		zap.String("method", req.Method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	// 401 preempts everything else: wipe the credential and force the client
	// back to an unauthenticated state before any caller sees the response.
	if resp.StatusCode == http.StatusUnauthorized {
		g.creds.Clear()
		if g.onUnauthorized != nil {
			g.onUnauthorized()
		}
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{Status: resp.StatusCode, Message: errorDetail(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &RequestError{Status: resp.StatusCode, Message: "invalid response body", cause: err}
		}
	}
	return nil
}

// errorDetail pulls the detail field out of an error body, falling back to a
// generic message when the body is not decodable.
func errorDetail(body io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return "request failed"
}

// Login authenticates and, on success, stores the returned credential and
// identity for all subsequent calls.
func (g *Gateway) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	var resp types.LoginResponse
	err := g.Call(ctx, http.MethodPost, "/auth/login", types.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	g.creds.Set(resp.AccessToken, &types.Identity{
		UserID: resp.UserID,
		Name:   resp.Name,
		Email:  resp.Email,
		Role:   resp.Role,
		CRPID:  resp.CRPID,
	})
	logging.AppLogger.Info("logged in", zap.String("user_id", resp.UserID), zap.String("role", resp.Role))
	return &resp, nil
}

// Logout clears the credential and the persisted identity record.
func (g *Gateway) Logout() {
	g.creds.Clear()
	logging.AppLogger.Info("logged out")
}
