// Package kvstore is the storefront's persistent key-value store: a synchronous
// get/set/remove API over a pluggable string backend.
//
// Two flavours exist. The plain store writes JSON as-is. The "secure" store
// base64-encodes the JSON before writing. That encoding is obfuscation only: it
// keeps values from being readable at a glance and gives no confidentiality at all.
package kvstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/logging"
)

var ErrNotFound = errors.New("kvstore: key not found")

// Backend stores raw strings. Load returns ErrNotFound for a missing key and
// Delete of a missing key is not an error.
type Backend interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type codec interface {
	encode(b []byte) string
	decode(s string) ([]byte, error)
}

type plainCodec struct{}

func (plainCodec) encode(b []byte) string          { return string(b) }
func (plainCodec) decode(s string) ([]byte, error) { return []byte(s), nil }

type base64Codec struct{}

func (base64Codec) encode(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
func (base64Codec) decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

const defaultTimeout = 2 * time.Second

type Store struct {
	backend Backend
	codec   codec
	log     *zap.Logger
	timeout time.Duration
}

// NewPlain stores values as JSON text.
func NewPlain(b Backend, log *zap.Logger) *Store {
	return &Store{backend: b, codec: plainCodec{}, log: logging.OrNop(log).Named("kvstore"), timeout: defaultTimeout}
}

// NewSecure stores values as base64 of their JSON. Not encryption.
func NewSecure(b Backend, log *zap.Logger) *Store {
	return &Store{backend: b, codec: base64Codec{}, log: logging.OrNop(log).Named("kvstore.secure"), timeout: defaultTimeout}
}

// Set serializes v to JSON, encodes it and writes it under key.
func (s *Store) Set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Save(ctx, key, s.codec.encode(b)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Get decodes and parses the value under key into out. Any failure (missing key,
// bad encoding, bad JSON, backend error) yields false and leaves out untouched.
func (s *Store) Get(key string, out any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.backend.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		s.log.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	b, err := s.codec.decode(raw)
	if err != nil {
		s.log.Warn("storage decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.log.Warn("storage parse failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key unconditionally.
func (s *Store) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Get is the typed form of Store.Get; the zero T comes back with false.
func Get[T any](s *Store, key string) (T, bool) {
	var v T
	if !s.Get(key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}
