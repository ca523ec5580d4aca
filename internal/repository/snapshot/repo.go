// Package snapshot caches finished search responses in a key-value store.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/db"
	"github.com/kailas-cloud/metasearch/internal/domain/query"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// store is the consumer interface for the snapshot cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo stores responses under a hash of the query and the engine list.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a snapshot repository.
func New(s store, prefix string, ttl time.Duration, logger *zap.Logger) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{store: s, prefix: prefix, ttl: ttl, logger: logger}
}

// Key returns the storage key for q over engines.
func (r *Repo) Key(q query.Query, engines []string) string {
	raw := strings.Join([]string{q.Text, strconv.Itoa(q.Page), strings.Join(engines, ",")}, "|")
	h := sha256.Sum256([]byte(raw))
	return r.prefix + "snapshot:" + hex.EncodeToString(h[:])
}

// Get returns the cached response. Store failures and undecodable values
// are reported as misses.
func (r *Repo) Get(ctx context.Context, q query.Query, engines []string) (*result.Response, bool) {
	key := r.Key(q, engines)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to get cached snapshot", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var resp result.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		r.logger.Warn("Failed to parse cached snapshot", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// Put stores resp. Failures are logged and otherwise ignored.
func (r *Repo) Put(ctx context.Context, q query.Query, engines []string, resp *result.Response) {
	key := r.Key(q, engines)
	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Warn("Failed to encode snapshot", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("Failed to cache snapshot", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached response for q over engines.
func (r *Repo) Invalidate(ctx context.Context, q query.Query, engines []string) error {
	if err := r.store.Del(ctx, r.Key(q, engines)); err != nil {
		return fmt.Errorf("invalidate snapshot: %w", err)
	}
	return nil
}
