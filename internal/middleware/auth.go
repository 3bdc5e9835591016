package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/observ"
	"go.uber.org/zap"
)

// Authenticate verifies the bearer token and stores the caller's identity.
//
// The token comes from "Authorization: Bearer <token>". Browsers cannot set
// headers on a websocket handshake, so on upgrade requests only the
// access_token query parameter is accepted as a fallback. Plain requests
// must use the header.
//
// An expired token is answered with TOKEN_EXPIRED so the client knows to log
// in again; anything else wrong with the token is UNAUTHENTICATED.
func Authenticate(issuer *auth.Issuer, metrics *observ.Metrics) gin.HandlerFunc {
	reject := func(c *gin.Context, err *apperr.Error) {
		if metrics != nil {
			metrics.AuthErrorCounter.WithLabelValues(string(err.Kind)).Inc()
		}
		abort(c, err)
	}

	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			reject(c, err)
			return
		}

		claims, perr := issuer.Parse(tokenString)
		if perr != nil {
			if errors.Is(perr, auth.ErrTokenExpired) {
				reject(c, apperr.TokenExpired())
				return
			}
			reject(c, apperr.Unauthenticated("invalid token"))
			return
		}

		who, ierr := claims.Identity()
		if ierr != nil {
			reject(c, apperr.Unauthenticated("invalid token"))
			return
		}

		c.Set(ContextKeyIdentity, who)
		if logger := observ.FromContext(c.Request.Context(), nil); logger != nil {
			logger = logger.With(zap.String("user_id", who.UserID.String()), zap.String("role", who.Role.String()))
			c.Request = c.Request.WithContext(observ.WithLogger(c.Request.Context(), logger))
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, *apperr.Error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if websocket.IsWebSocketUpgrade(c.Request) {
			if token := c.Query("access_token"); token != "" {
				return token, nil
			}
		}
		return "", apperr.Unauthenticated("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.Unauthenticated("invalid authorization format, expected: Bearer <token>")
	}
	return strings.TrimSpace(parts[1]), nil
}

// RequireRoles lets the request through only if the caller's role is in
// roles. An empty list admits nobody.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		who, ok := GetIdentity(c)
		if !ok {
			abort(c, apperr.Unauthenticated("authentication required"))
			return
		}
		if !allowed[who.Role] {
			abort(c, apperr.Forbidden("insufficient permissions"))
			return
		}
		c.Next()
	}
}
