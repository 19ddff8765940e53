// Package auth defines the token provider contract every ARM call goes
// through. The core only ever depends on the TokenProvider interface; which
// credential backend is actually wired up is a deployment decision.
package auth

import (
	"context"
	"fmt"
	"os"
)

// TokenProvider is the external token-provider contract: acquire a bearer
// token, possibly suspending to do so (an interactive OAuth flow or a
// cached-credential refresh). It is called at the head of every ARM
// operation, never cached by the caller, so a rotated credential is picked
// up automatically.
type TokenProvider interface {
	Acquire(ctx context.Context) (string, error)
}

// EnvTokenProvider is the raw-token credential backend: it reads a
// pre-acquired bearer token from an environment variable. It is the
// simplest of the four backends the contract anticipates (interactive
// browser OAuth, CLI-cached credentials, and the ambient default-credential
// chain are deployment-specific and live outside this module).
type EnvTokenProvider struct {
	EnvVar string
}

// NewEnvTokenProvider returns a provider reading ARM_MCP_AUTH_TOKEN.
func NewEnvTokenProvider() *EnvTokenProvider {
	return &EnvTokenProvider{EnvVar: "ARM_MCP_AUTH_TOKEN"}
}

// Acquire returns the value of the configured environment variable, or an
// error if it is unset or empty.
func (p *EnvTokenProvider) Acquire(_ context.Context) (string, error) {
	token := os.Getenv(p.EnvVar)
	if token == "" {
		return "", fmt.Errorf("auth: environment variable %s is not set", p.EnvVar)
	}
	return token, nil
}
