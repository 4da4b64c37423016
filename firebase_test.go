package medaware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "medaware-test"

type certServer struct {
	*httptest.Server

	key  *rsa.PrivateKey
	hits atomic.Int32
}

func newCertServer(t *testing.T, cacheControl string) *certServer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	cs := &certServer{key: key}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)

		w.Header().Set("Cache-Control", cacheControl)
		json.NewEncoder(w).Encode(map[string]string{"kid-1": string(certPEM)})
	}))
	t.Cleanup(cs.Close)

	return cs
}

func validClaims() jwt.MapClaims {
	now := time.Now()

	return jwt.MapClaims{
		"iss":   firebaseIssuerPrefix + testProject,
		"aud":   testProject,
		"sub":   "uid-123",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": "alice@example.com",
	}
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}

	signed, err := token.SignedString(key)
	require.NoError(t, err)

	return signed
}

func TestFirebaseVerifier(t *testing.T) {
	cs := newCertServer(t, "public, max-age=3600")
	verifier := NewFirebaseVerifier(testProject, NewGoogleCertSource(cs.URL, cs.Client()))

	claims, err := verifier.Verify(t.Context(), sign(t, cs.key, "kid-1", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "uid-123", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	with := func(key string, value any) jwt.MapClaims {
		c := validClaims()
		if value == nil {
			delete(c, key)
		} else {
			c[key] = value
		}

		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong audience", sign(t, cs.key, "kid-1", with("aud", "other-project"))},
		{"wrong issuer", sign(t, cs.key, "kid-1", with("iss", "https://accounts.google.com"))},
		{"expired", sign(t, cs.key, "kid-1", with("exp", time.Now().Add(-time.Hour).Unix()))},
		{"missing expiry", sign(t, cs.key, "kid-1", with("exp", nil))},
		{"issued in future", sign(t, cs.key, "kid-1", with("iat", time.Now().Add(time.Hour).Unix()))},
		{"empty subject", sign(t, cs.key, "kid-1", with("sub", ""))},
		{"long subject", sign(t, cs.key, "kid-1", with("sub", strings.Repeat("a", 129)))},
		{"missing kid", sign(t, cs.key, "", validClaims())},
		{"unknown kid", sign(t, cs.key, "kid-2", validClaims())},
		{"wrong key", sign(t, otherKey, "kid-1", validClaims())},
		{"garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(t.Context(), tt.token)
			assert.Error(t, err)
		})
	}
}

func TestFirebaseVerifierRejectsHMAC(t *testing.T) {
	cs := newCertServer(t, "max-age=3600")
	verifier := NewFirebaseVerifier(testProject, NewGoogleCertSource(cs.URL, cs.Client()))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	token.Header["kid"] = "kid-1"

	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(t.Context(), signed)
	assert.ErrorContains(t, err, "signing method HS256 is invalid")
}

func TestGoogleCertSourceCaching(t *testing.T) {
	cs := newCertServer(t, "public, max-age=60, must-revalidate")

	now := time.Now()
	src := NewGoogleCertSource(cs.URL, cs.Client()).(*googleCertSource)
	src.now = func() time.Time { return now }

	_, err := src.PublicKey(t.Context(), "kid-1")
	require.NoError(t, err)
	_, err = src.PublicKey(t.Context(), "kid-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cs.hits.Load())

	now = now.Add(61 * time.Second)

	_, err = src.PublicKey(t.Context(), "kid-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cs.hits.Load())

	_, err = src.PublicKey(t.Context(), "kid-9")
	assert.ErrorContains(t, err, `unknown signing key "kid-9"`)
}

func TestParseMaxAge(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"public, max-age=19302, must-revalidate, no-transform", 19302 * time.Second},
		{"max-age=60", time.Minute},
		{"no-cache", defaultCertsMaxAge},
		{"max-age=abc", defaultCertsMaxAge},
		{"", defaultCertsMaxAge},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, parseMaxAge(tt.header))
		})
	}
}
