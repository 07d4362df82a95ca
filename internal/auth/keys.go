package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const maxKeySetBytes = 1 << 20

// KeySetStore shares the raw key set document between replicas.
// Load returns (nil, nil) when nothing is stored.
type KeySetStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, doc []byte, ttl time.Duration) error
}

// KeyResolverConfig configures a KeyResolver.
type KeyResolverConfig struct {
	URL          string
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	HTTPClient   *http.Client
	Store        KeySetStore
}

// KeyResolver looks up the issuer's RSA public keys by key id.
type KeyResolver struct {
	url     string
	ttl     time.Duration
	timeout time.Duration
	client  *http.Client
	store   KeySetStore
	logger  *zap.Logger
	now     func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeyResolver builds a resolver. A zero CacheTTL fetches on every lookup.
func NewKeyResolver(cfg KeyResolverConfig, logger *zap.Logger) *KeyResolver {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyResolver{
		url:     cfg.URL,
		ttl:     cfg.CacheTTL,
		timeout: timeout,
		client:  client,
		store:   cfg.Store,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve returns the public key named by kid. Any failure to obtain the
// key set is reported as ErrKeyNotFound.
func (r *KeyResolver) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, ErrKeyNotFound
	}
	if key, ok := r.cached(kid); ok {
		return key, nil
	}

	if keys, ok := r.loadShared(ctx); ok {
		if key, found := keys[kid]; found {
			r.remember(keys)
			return key, nil
		}
	}

	// Cache miss, expiry or unknown kid after rotation: go to the issuer.
	v, err, _ := r.group.Do("jwks", func() (any, error) {
		return r.fetch(context.WithoutCancel(ctx))
	})
	if err != nil {
		r.logger.Warn("key set fetch failed", zap.String("url", r.url), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}
	keys := v.(map[string]*rsa.PublicKey)
	key, found := keys[kid]
	if !found {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

func (r *KeyResolver) cached(kid string) (*rsa.PublicKey, bool) {
	if r.ttl <= 0 {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.keys == nil || r.now().Sub(r.fetchedAt) >= r.ttl {
		return nil, false
	}
	key, ok := r.keys[kid]
	return key, ok
}

func (r *KeyResolver) remember(keys map[string]*rsa.PublicKey) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	r.keys = keys
	r.fetchedAt = r.now()
	r.mu.Unlock()
}

func (r *KeyResolver) loadShared(ctx context.Context) (map[string]*rsa.PublicKey, bool) {
	if r.store == nil || r.ttl <= 0 {
		return nil, false
	}
	doc, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Debug("shared key set unavailable", zap.Error(err))
		return nil, false
	}
	if doc == nil {
		return nil, false
	}
	keys, err := parseKeySet(doc)
	if err != nil {
		r.logger.Warn("discarding unreadable shared key set", zap.Error(err))
		return nil, false
	}
	return keys, true
}

func (r *KeyResolver) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch key set: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set endpoint returned status %d", resp.StatusCode)
	}
	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("read key set: %w", err)
	}
	keys, err := parseKeySet(doc)
	if err != nil {
		return nil, err
	}

	r.remember(keys)
	if r.store != nil && r.ttl > 0 {
		if err := r.store.Save(ctx, doc, r.ttl); err != nil {
			r.logger.Debug("unable to share key set", zap.Error(err))
		}
	}
	r.logger.Debug("key set refreshed", zap.Int("keys", len(keys)))
	return keys, nil
}

type keySetDocument struct {
	Keys []jsonWebKey `json:"keys"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseKeySet keeps the usable RSA entries of a JWKS document and skips the rest.
func parseKeySet(doc []byte) (map[string]*rsa.PublicKey, error) {
	var set keySetDocument
	if err := json.Unmarshal(doc, &set); err != nil {
		return nil, fmt.Errorf("parse key set: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kid == "" || k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func parseRSAPublicKey(nB64, eB64 string) (*rsa.PublicKey, error) {
	nBytes, err := DecodeSegment(nB64)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	if len(nBytes) == 0 {
		return nil, errors.New("empty modulus")
	}
	eBytes, err := DecodeSegment(eB64)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	if len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, fmt.Errorf("exponent is %d bytes, want 1 to 4", len(eBytes))
	}
	e := new(big.Int).SetBytes(eBytes)
	if e.Int64() < 3 {
		return nil, errors.New("exponent too small")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}
