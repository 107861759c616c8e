package session

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const adminSubject = "admin"

type GuardConfig struct {
	// AdminSecret is either the plain admin password or its bcrypt hash.
	AdminSecret string
	SigningKey  string
	TTL         time.Duration
}

// Guard moves sessions between Unauthenticated and Authenticated and carries the
// authenticated state across requests as a signed token.
type Guard struct {
	secret     string
	hashed     bool
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewGuard(cfg GuardConfig, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = constants.SessionConfig.TTL
	}
	return &Guard{
		secret:     cfg.AdminSecret,
		hashed:     strings.HasPrefix(cfg.AdminSecret, "$2"),
		signingKey: []byte(cfg.SigningKey),
		ttl:        cfg.TTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Login authenticates a fresh session when password matches the configured secret.
func (g *Guard) Login(password string) (*Session, error) {
	if g.secret == "" {
		return nil, errors.NewNotConfiguredError("admin password not configured", "ADMIN_PASSWORD")
	}
	if !g.matches(password) {
		g.logger.Warn("Admin login rejected")
		return nil, errors.NewAuthorizationError("invalid admin password", "login")
	}

	g.logger.Info("Admin logged in")
	return &Session{state: Authenticated, expiresAt: g.now().Add(g.ttl)}, nil
}

func (g *Guard) Logout(sess *Session) {
	if sess.IsAuthenticated() {
		g.logger.Info("Admin logged out")
	}
	sess.Logout()
}

func (g *Guard) matches(password string) bool {
	if g.hashed {
		return bcrypt.CompareHashAndPassword([]byte(g.secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.secret), []byte(password)) == 1
}

// Issue signs an authenticated session into an HS256 token.
func (g *Guard) Issue(sess *Session) (string, error) {
	if err := sess.Require("issue session"); err != nil {
		return "", err
	}
	if len(g.signingKey) == 0 {
		return "", errors.NewNotConfiguredError("session signing key not configured", "SESSION_SECRET")
	}

	claims := jwt.RegisteredClaims{
		Issuer:    constants.SessionConfig.Issuer,
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(g.now()),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Resume rebuilds the session a token stands for. Anything invalid, expired or signed with
// another key resumes as Unauthenticated.
func (g *Guard) Resume(token string) *Session {
	if token == "" || len(g.signingKey) == 0 {
		return Anonymous()
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.signingKey, nil
	})
	if err != nil {
		g.logger.Debug("Session token rejected", zap.Error(err))
		return Anonymous()
	}

	now := g.now()
	if !claims.VerifyExpiresAt(now, true) ||
		!claims.VerifyIssuer(constants.SessionConfig.Issuer, true) ||
		claims.Subject != adminSubject {
		return Anonymous()
	}

	return &Session{state: Authenticated, expiresAt: claims.ExpiresAt.Time}
}
