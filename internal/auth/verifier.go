package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// KeySource resolves a signing key by id.
type KeySource interface {
	Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier checks RS256 id tokens against keys from a KeySource.
type Verifier struct {
	keys KeySource
	now  func() time.Time
}

// NewVerifier builds a verifier backed by keys.
func NewVerifier(keys KeySource) *Verifier {
	return &Verifier{keys: keys, now: time.Now}
}

// WithClock replaces the verifier's time source.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify runs the checks cheapest first so malformed, foreign or expired
// tokens never trigger a key fetch.
func (v *Verifier) Verify(ctx context.Context, token, expectedAudience string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	var header Header
	if err := decodeJSONSegment(parts[0], &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedToken, err)
	}
	if header.Alg != "" && header.Alg != "RS256" {
		return nil, fmt.Errorf("%w: unsupported alg %q", ErrMalformedToken, header.Alg)
	}
	var claims Claims
	if err := decodeJSONSegment(parts[1], &claims); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedToken, err)
	}

	if !claims.Audience.Contains(expectedAudience) {
		return nil, ErrInvalidAudience
	}
	// exp is the first second at which the token is no longer valid.
	if v.now().Unix() >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}

	key, err := v.keys.Resolve(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	sig, err := DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding", ErrInvalidSignature)
	}
	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
		return nil, ErrInvalidSignature
	}
	return &claims, nil
}

func decodeJSONSegment(seg string, dst any) error {
	raw, err := DecodeSegment(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
