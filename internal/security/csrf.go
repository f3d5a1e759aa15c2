package security

import (
	"crypto/subtle"
	"sync"

	"github.com/google/uuid"
)

// CSRF holds the session-scoped anti-forgery token. It lives in memory only.
type CSRF struct {
	mu  sync.RWMutex
	tok string
}

func NewCSRF() *CSRF { return &CSRF{tok: uuid.NewString()} }

func (c *CSRF) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tok
}

// Rotate issues a fresh token and returns it.
func (c *CSRF) Rotate() string {
	t := uuid.NewString()
	c.mu.Lock()
	c.tok = t
	c.mu.Unlock()
	return t
}

func (c *CSRF) Validate(t string) bool {
	cur := c.Token()
	return t != "" && subtle.ConstantTimeCompare([]byte(t), []byte(cur)) == 1
}
