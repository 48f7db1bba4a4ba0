// mitra/gateway/credentials.go
package gateway

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"mitra/mitra/types"
	"mitra/mitra/utils/logging"

	"go.uber.org/zap"
)

// Credentials is the process-wide session context: the bearer token plus the
// minimal identity record that travels with it. Set on successful login,
// cleared on logout or on an authentication-rejected response. An empty token
// means unauthenticated.
type Credentials struct {
	mu       sync.RWMutex
	token    string
	identity *types.Identity
	path     string
}

type stateFile struct {
	Token    string          `yaml:"token"`
	Identity *types.Identity `yaml:"identity,omitempty"`
}

// NewCredentials builds a credential store backed by the given state file.
// Path may be empty for a purely in-memory store (tests). An existing state
// file is loaded so a restarted client stays logged in.
func NewCredentials(path string) *Credentials {
	c := &Credentials{path: path}
	if path != "" {
		c.load()
	}
	return c
}

func (c *Credentials) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var st stateFile
	if err := yaml.Unmarshal(data, &st); err != nil {
		logging.ErrorLogger.Error("corrupt state file, ignoring", zap.String("path", c.path), zap.Error(err))
		return
	}
	if tokenExpired(st.Token) {
		logging.AppLogger.Info("stored credential expired, ignoring", zap.String("path", c.path))
		return
	}
	c.token = st.Token
	c.identity = st.Identity
}

// tokenExpired peeks at the token's exp claim without verifying the
// signature; verification is the backend's job. A token we cannot parse is
// left to the backend to reject.
func tokenExpired(token string) bool {
	if token == "" {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now())
}

// Set stores the token and identity and persists them to the state file.
func (c *Credentials) Set(token string, identity *types.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.identity = identity
	if c.path == "" {
		return
	}
	st := stateFile{Token: token, Identity: identity}
	data, err := yaml.Marshal(&st)
	if err != nil {
		logging.ErrorLogger.Error("state marshal failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		logging.ErrorLogger.Error("state dir create failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		logging.ErrorLogger.Error("state write failed", zap.String("path", c.path), zap.Error(err))
	}
}

// Clear wipes the token and identity together and removes the state file.
func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.identity = nil
	if c.path != "" {
		_ = os.Remove(c.path)
	}
}

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credentials) Identity() *types.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// Authenticated reports whether a credential is currently held.
func (c *Credentials) Authenticated() bool {
	return c.Token() != ""
}
