package medaware

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	maxUIDLength         = 128
	defaultTokenLeeway   = 5 * time.Minute
	defaultCertsMaxAge   = time.Hour
)

// Claims are the fields of a Firebase ID token this service reads. The subject
// is the Firebase uid.
type Claims struct {
	jwt.RegisteredClaims

	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	AuthTime      int64  `json:"auth_time,omitempty"`
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// KeySource resolves the RSA key that signed a token from its key id.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type firebaseVerifier struct {
	projectID string
	keys      KeySource
	leeway    time.Duration
}

func NewFirebaseVerifier(projectID string, keys KeySource) TokenVerifier {
	return &firebaseVerifier{
		projectID: projectID,
		keys:      keys,
		leeway:    defaultTokenLeeway,
	}
}

func (v *firebaseVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid header")
			}

			return v.keys.PublicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Subject == "" || len(claims.Subject) > maxUIDLength {
		return nil, fmt.Errorf("invalid token subject")
	}

	return claims, nil
}

// googleCertSource serves the x509 certificates Google publishes for Firebase
// token signing, refreshing them when the Cache-Control max-age lapses.
type googleCertSource struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	keys   map[string]*rsa.PublicKey
	expiry time.Time
}

func NewGoogleCertSource(url string, client *http.Client) KeySource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &googleCertSource{
		url:    url,
		client: client,
		now:    time.Now,
	}
}

func (s *googleCertSource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys == nil || !s.now().Before(s.expiry) {
		if err := s.refresh(ctx); err != nil {
			return nil, err
		}
	}

	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	return key, nil
}

func (s *googleCertSource) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build certs request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certs: unexpected status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		key, err := parseRSACertificate(certPEM)
		if err != nil {
			return fmt.Errorf("parse cert %q: %w", kid, err)
		}

		keys[kid] = key
	}

	s.keys = keys
	s.expiry = s.now().Add(parseMaxAge(resp.Header.Get("Cache-Control")))

	return nil
}

func parseRSACertificate(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("no PEM block")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}

	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", cert.PublicKey)
	}

	return key, nil
}

func parseMaxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)

		value, ok := strings.CutPrefix(directive, "max-age=")
		if !ok {
			continue
		}

		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			break
		}

		return time.Duration(seconds) * time.Second
	}

	return defaultCertsMaxAge
}
