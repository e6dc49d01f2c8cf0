// Package store persists session handles so a wizard survives restarts.
//
// Every implementation treats missing or unparsable data as "no session":
// Load returns (nil, nil) and the caller starts over.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Kinds accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindRedis  = "redis"
)

// Options selects and configures a SessionStore.
type Options struct {
	Kind     string
	Dir      string
	RedisURL string
	TTL      time.Duration
}

// Open builds the SessionStore named by opts.Kind. The returned close
// function releases any connection the store holds.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (port.SessionStore, func() error, error) {
	noop := func() error { return nil }

	switch opts.Kind {
	case "", KindMemory:
		s := NewMemoryWithTTL(opts.TTL)
		return s, s.Close, nil
	case KindFile:
		s, err := NewFile(opts.Dir, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case KindRedis:
		s, err := DialRedis(ctx, opts.RedisURL, opts.TTL, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown session store %q", opts.Kind)
	}
}

// decodeHandle parses stored bytes. Anything unusable yields nil.
func decodeHandle(raw []byte) *domain.SessionHandle {
	var h domain.SessionHandle
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil
	}
	if !h.Valid() {
		return nil
	}
	return &h
}

func encodeHandle(h *domain.SessionHandle) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("nil session handle")
	}
	return json.Marshal(h)
}
