package httpkit

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Gin context keys set by AuthRequired.
const (
	ContextUserIDKey = "userID"
	ContextRolesKey  = "roles"
)

const tokenTypeAccess = "access"

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// AccessClaims is the payload of an access token. Refresh tokens share the
// signing key and differ only in Type.
type AccessClaims struct {
	Type  string   `json:"type"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired accepts HS256 access tokens signed with the configured secret.
// The caller's id (sub) and roles become the request Identity.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		userID, roles, err := verifyAccessToken(parser, raw, []byte(cfg.GetJWTAccessSecret()))
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRolesKey, roles)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.UserIDKey, userID.String()))
		c.Next()
	}
}

func verifyAccessToken(parser *jwt.Parser, raw string, secret []byte) (uuid.UUID, []string, error) {
	var claims AccessClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}); err != nil {
		return uuid.Nil, nil, err
	}
	if claims.Type != tokenTypeAccess {
		return uuid.Nil, nil, errInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, errInvalidToken
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}
	return userID, claims.Roles, nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), RequestID: requestID(c)})
}
