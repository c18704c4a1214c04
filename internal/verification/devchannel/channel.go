// Package devchannel generates and checks codes locally instead of calling an
// external verification provider. For development and tests only; enabled via
// VERIFY_DEV_MODE and refused in production by config validation.
package devchannel

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const codeLength = 6

// FixedCode, when passed to New, makes every issued code this value so manual
// testing does not depend on reading logs.
const FixedCode = "123456"

type entry struct {
	hash      string
	expiresAt time.Time
}

type Channel struct {
	mu        sync.Mutex
	codes     map[string]entry
	ttl       time.Duration
	fixedCode string
	log       *slog.Logger
	nowF      func() time.Time
}

// New returns a local channel holding codes in memory for ttl. If fixedCode is
// non-empty it is issued instead of a random code.
func New(ttl time.Duration, fixedCode string, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		codes:     make(map[string]entry),
		ttl:       ttl,
		fixedCode: fixedCode,
		log:       log,
		nowF:      time.Now,
	}
}

func (c *Channel) Send(_ context.Context, target string) error {
	code := c.fixedCode
	if code == "" {
		var err error
		code, err = generateCode(codeLength)
		if err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.codes[target] = entry{hash: hashCode(code), expiresAt: c.nowF().Add(c.ttl)}
	c.mu.Unlock()

	c.log.Info("dev verification code issued", "target", target, "code", code)
	return nil
}

func (c *Channel) Check(_ context.Context, target, code string) (bool, error) {
	c.mu.Lock()
	e, ok := c.codes[target]
	c.mu.Unlock()
	if !ok || c.nowF().After(e.expiresAt) {
		return false, nil
	}
	return codeEqual(e.hash, hashCode(code)), nil
}

func generateCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	digits := make([]byte, n)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func codeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
