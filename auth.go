package medaware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/fx"

	"github.com/medaware/medaware/internal/config"
)

type authContextkey int

const (
	AuthHeaderName = "Authorization"
)

const (
	userContextKey authContextkey = iota
)

var (
	ErrMissingAuthHeader = errors.New("Missing Authorization header")
	ErrInvalidToken      = errors.New("Invalid or expired token")
)

type AuthService interface {
	AuthRequired() func(http.Handler) http.Handler
	AuthOptional() func(http.Handler) http.Handler
	GetUserFromCtx(ctx context.Context) (User, error)
}

type AuthServiceParams struct {
	fx.In

	Config   config.Config
	Logger   LoggerService
	Verifier TokenVerifier `optional:"true"`
}

type AuthServiceResult struct {
	fx.Out

	AuthService AuthService
}

type authService struct {
	logger   LoggerService
	verifier TokenVerifier
}

func NewAuthService(params AuthServiceParams) (AuthServiceResult, error) {
	var result AuthServiceResult

	verifier := params.Verifier
	if verifier == nil {
		keys := NewGoogleCertSource(params.Config.Firebase.CertsURL, nil)
		verifier = NewFirebaseVerifier(params.Config.Firebase.ProjectID, keys)
	}

	result.AuthService = NewAuth(verifier, params.Logger)

	return result, nil
}

func NewAuth(verifier TokenVerifier, logger LoggerService) AuthService {
	return &authService{
		logger:   logger,
		verifier: verifier,
	}
}

func (svc *authService) AuthRequired() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := svc.authenticate(r)
			if err != nil {
				render.Render(w, r, ErrUnauthorized(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// AuthOptional attaches the user when a bearer token is sent. Requests without
// one pass through anonymously; a token that fails verification is rejected.
func (svc *authService) AuthOptional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(AuthHeaderName) == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := svc.authenticate(r)
			if err != nil {
				render.Render(w, r, ErrUnauthorized(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

func (svc *authService) GetUserFromCtx(ctx context.Context) (User, error) {
	user, ok := ctx.Value(userContextKey).(User)
	if !ok {
		return nil, fmt.Errorf("could not get user from context")
	}

	return user, nil
}

func (svc *authService) authenticate(r *http.Request) (User, error) {
	tokenString, err := svc.getTokenStringFromAuthHeader(r)
	if err != nil {
		return nil, err
	}

	claims, err := svc.verifier.Verify(r.Context(), tokenString)
	if err != nil {
		svc.logger.Debug("token verification failed", "error", err)
		return nil, ErrInvalidToken
	}

	return newUserFromClaims(claims), nil
}

func (svc *authService) getTokenStringFromAuthHeader(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get(AuthHeaderName))

	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}

	return token, nil
}

// ContextWithUser returns ctx carrying user, as AuthRequired would set it.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
