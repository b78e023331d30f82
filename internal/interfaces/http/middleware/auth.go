package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bakery/orderdesk/internal/infrastructure/auth"
	"github.com/bakery/orderdesk/internal/infrastructure/logger"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTTokenKey   = "jwt_token"
	JWTUserIDKey  = "jwt_user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// tokenQueryKey carries the token for EventSource clients, which cannot set headers
	tokenQueryKey = "access_token"
)

// JWTConfig holds configuration for the JWT middleware
type JWTConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// Revocations is optional; lookups fail open
	Revocations auth.RevocationList
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// QueryTokenPaths may pass the token as ?access_token=
	QueryTokenPaths []string
	Logger          *zap.Logger
}

// JWTAuth verifies the bearer token, rejects revoked ones and records the
// user on the request logger
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}

		raw, ok := bearerToken(c, cfg.QueryTokenPaths)
		if !ok {
			abortAuth(c, log, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.Parse(raw)
		if err != nil {
			abortAuth(c, log, err, "Token validation failed")
			return
		}

		if cfg.Revocations != nil && claims.ID != "" {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				log.Error("Failed to check token revocation",
					zap.String("jti", claims.ID),
					zap.Error(err))
			} else if revoked {
				abortAuth(c, log, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTTokenKey, raw)
		c.Set(JWTUserIDKey, claims.Subject)
		logger.SetGinUser(c, claims.Subject, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context, queryPaths []string) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		return token, token != ""
	}
	for _, p := range queryPaths {
		if c.FullPath() == p || c.Request.URL.Path == p {
			token := c.Query(tokenQueryKey)
			return token, token != ""
		}
	}
	return "", false
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, msg = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUserID),
		errors.Is(err, auth.ErrUnknownRole),
		errors.Is(err, auth.ErrMissingScope):
		code, msg = dto.ErrCodeTokenInvalid, err.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, msg, logger.GetRequestID(c.Request.Context())))
}

// GetJWTClaims retrieves the verified claims
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, ok := c.Get(JWTClaimsKey); ok {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTToken retrieves the raw bearer token forwarded to the order service
func GetJWTToken(c *gin.Context) string {
	return c.GetString(JWTTokenKey)
}

// GetJWTUserID retrieves the user id of the verified token
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}
