package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce   sync.Once
	keyA      *rsa.PrivateKey
	keyB      *rsa.PrivateKey
	keyGenErr error
)

// testKeys returns two RSA keys shared by the package tests.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		keyA, keyGenErr = rsa.GenerateKey(rand.Reader, 2048)
		if keyGenErr != nil {
			return
		}
		keyB, keyGenErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, keyGenErr)
	return keyA, keyB
}

func jwkFor(kid string, pub *rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"kid": kid,
		"alg": "RS256",
		"use": "sig",
		"n":   EncodeSegment(pub.N.Bytes()),
		"e":   EncodeSegment(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// jwksServer serves a mutable key set and counts fetches.
type jwksServer struct {
	*httptest.Server
	hits  atomic.Int32
	mu    sync.Mutex
	keys  []map[string]string
	delay time.Duration
	fail  bool
}

func newJWKSServer(t *testing.T, keys ...map[string]string) *jwksServer {
	t.Helper()
	s := &jwksServer{keys: keys}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.mu.Lock()
		delay, fail, body := s.delay, s.fail, map[string]any{"keys": s.keys}
		s.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) setKeys(keys ...map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

func (s *jwksServer) setDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *jwksServer) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// mintToken signs claims with golang-jwt so the verifier is checked against
// an independent implementation.
func mintToken(t *testing.T, key *rsa.PrivateKey, kid string, claims gjwt.MapClaims) string {
	t.Helper()
	tok := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

// signSegments builds a token from raw header and payload segments.
func signSegments(t *testing.T, key *rsa.PrivateKey, header, payload string) string {
	t.Helper()
	digest := sha256.Sum256([]byte(header + "." + payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return header + "." + payload + "." + EncodeSegment(sig)
}

func validClaims(aud string) gjwt.MapClaims {
	return gjwt.MapClaims{
		"aud":     aud,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"email":   "ada@example.com",
		"name":    "Ada Lovelace",
		"sub":     "1234567890",
		"picture": "https://example.com/ada.png",
	}
}
