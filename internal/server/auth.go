package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/onionboard/internal/database"
	"github.com/nao1215/onionboard/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// sourceAuth tags login events in the system log.
const sourceAuth = "AUTH"

var (
	// ErrInvalidToken is returned for missing, malformed or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidCredentials is returned when the username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type subjectKey struct{}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator returns an Authenticator signing with secret.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for username.
func (a *Authenticator) Issue(username string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify checks token and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if header == "" {
			s.writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			s.writeError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		subject, err := s.auth.Verify(strings.TrimSpace(token))
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
	})
}

// handleLogin exchanges credentials for a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := s.checkPassword(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.record(r.Context(), model.LogLevelWarn, sourceAuth, "Failed login attempt: "+req.Username)
			s.writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
			return
		}
		s.logger.Error("login failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := s.auth.Issue(req.Username)
	if err != nil {
		s.record(r.Context(), model.LogLevelError, sourceAuth, "Token creation failed: "+err.Error())
		s.writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	s.record(r.Context(), model.LogLevelSuccess, sourceAuth, "Successful login: "+req.Username)
	s.writeJSON(w, http.StatusOK, model.LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    req.Username,
	})
}

func (s *Server) checkPassword(ctx context.Context, username, password string) error {
	hash, err := s.store.PasswordHash(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SeedAdmin creates the first account when the user table is empty. When
// password is empty a random one is generated and returned so the caller
// can show it once. It returns "" when an account already exists or the
// given password was used.
func SeedAdmin(ctx context.Context, store *database.Store, username, password string) (string, error) {
	n, err := store.CountUsers(ctx)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	generated := ""
	if password == "" {
		if password, err = randomPassword(); err != nil {
			return "", err
		}
		generated = password
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := store.CreateUser(ctx, username, string(hash)); err != nil {
		return "", err
	}
	return generated, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// subject returns the authenticated username stored by requireAuth.
func subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}
