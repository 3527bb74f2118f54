// FILE: src/internal/auth/token.go
package auth

import (
	"fmt"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
)

// Verifier validates bearer tokens presented on the remote push channel.
// Tokens are HS256 JWTs signed with a shared secret; the host process and
// the console agree on the secret out of band.
type Verifier struct {
	secret []byte
	logger *log.Logger

	// Statistics
	successes atomic.Uint64
	failures  atomic.Uint64
}

// NewVerifier creates a verifier. An empty secret disables verification;
// callers get a nil Verifier and must treat it as "allow everything".
func NewVerifier(secret string, logger *log.Logger) *Verifier {
	if secret == "" {
		return nil
	}
	logger.Info("msg", "Push channel token verification enabled",
		"component", "auth")
	return &Verifier{
		secret: []byte(secret),
		logger: logger,
	}
}

// Verify checks a presented token. A nil receiver accepts everything.
func (v *Verifier) Verify(token string) error {
	if v == nil {
		return nil
	}
	if token == "" {
		v.failures.Add(1)
		return fmt.Errorf("missing token")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		v.failures.Add(1)
		return fmt.Errorf("token verification failed: %w", err)
	}
	if !parsed.Valid {
		v.failures.Add(1)
		return fmt.Errorf("invalid token")
	}

	v.successes.Add(1)
	return nil
}

// GetStats returns verification statistics.
func (v *Verifier) GetStats() map[string]any {
	if v == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":   true,
		"successes": v.successes.Load(),
		"failures":  v.failures.Load(),
	}
}
