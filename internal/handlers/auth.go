package handlers

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

const callerKey = "caller"

// Claims are the JWT claims issued by the external identity service.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator for the shared secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify parses and validates a token string.
func (a *Authenticator) Verify(token string) (models.Caller, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		return models.Caller{}, models.ErrUnauthorized.WithMessage("invalid token").Wrap(err)
	}

	role := models.Role(claims.Role)
	switch role {
	case models.RoleAdmin, models.RoleShopOwner, models.RoleCustomer:
	default:
		return models.Caller{}, models.ErrUnauthorized.WithMessage("unknown role %q", claims.Role)
	}
	if claims.UserID == "" {
		return models.Caller{}, models.ErrUnauthorized.WithMessage("token has no user_id")
	}
	return models.Caller{UserID: claims.UserID, Role: role}, nil
}

// Sign issues a token for caller. Production tokens come from the identity
// service; this exists for tooling and tests.
func (a *Authenticator) Sign(caller models.Caller, claims jwt.RegisteredClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           caller.UserID,
		Role:             string(caller.Role),
		RegisteredClaims: claims,
	}).SignedString(a.secret)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller on the context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, models.ErrUnauthorized.WithMessage("missing Authorization header"))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			respondError(c, models.ErrUnauthorized.WithMessage("invalid Authorization header format"))
			return
		}

		caller, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Warningf("Token validation failed for %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			respondError(c, err)
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles. Admins
// are always let through.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFrom(c)
		if caller.Role != models.RoleAdmin && !slices.Contains(roles, caller.Role) {
			respondError(c, models.ErrForbidden.WithMessage("role %s may not access this resource", caller.Role))
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) models.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(models.Caller); ok {
			return caller
		}
	}
	return models.Caller{}
}
