package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nulzo/model-registry/internal/core/domain"
)

type callerKey struct{}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the authenticated caller. The zero Caller is not an admin.
func CallerFrom(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(domain.Caller)
	return caller, ok
}

// Claims are the JWT claims accepted by Auth.
type Claims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	APIKeys   []string
	AdminKeys []string
	JWTSecret string
}

// Auth resolves the bearer token into a domain.Caller. Static keys are checked
// first; anything else must be an HS256 JWT signed with JWTSecret.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	static := make(map[string]bool, len(cfg.APIKeys)+len(cfg.AdminKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			static[k] = false
		}
	}
	for _, k := range cfg.AdminKeys {
		if k != "" {
			static[k] = true
		}
	}
	secret := []byte(cfg.JWTSecret)

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c, "Missing Authorization header")
			return
		}

		caller, ok := resolve(token, static, secret)
		if !ok {
			unauthorized(c, "Invalid token")
			return
		}

		c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers before any handler reads the body.
// It must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := CallerFrom(c.Request.Context())
		if !caller.IsAdmin {
			_ = c.Error(domain.ForbiddenError())
			c.Abort()
			return
		}
		c.Next()
	}
}

func resolve(token string, static map[string]bool, secret []byte) (domain.Caller, bool) {
	if isAdmin, ok := static[token]; ok {
		return domain.Caller{ID: keyID(token), IsAdmin: isAdmin}, true
	}
	if len(secret) == 0 {
		return domain.Caller{}, false
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return domain.Caller{}, false
	}

	return domain.Caller{ID: claims.Subject, IsAdmin: claims.IsAdmin}, true
}

// IssueToken signs an HS256 token for subject. A zero ttl never expires.
func IssueToken(secret, subject string, isAdmin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// static keys are identified by a hash prefix so they never reach the logs
func keyID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "key_" + hex.EncodeToString(sum[:])[:12]
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(c *gin.Context, msg string) {
	_ = c.Error(domain.NewError(domain.KindUnauthorized, msg))
	c.Abort()
}
