package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/core/domain"
)

// invoiceClaims is the token payload this service cares about. The subject
// carries the person id; roles come from a flat claim issued by the IdP.
type invoiceClaims struct {
	jwt.RegisteredClaims
	Username string   `json:"preferred_username"`
	Roles    []string `json:"roles"`
}

// AuthMiddleware creates a Gin middleware handler that validates JWT tokens
// and stores the decoded caller in the request context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Authorization header format invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		tokenString := parts[1]

		// Parse and validate the token
		token, err := jwt.ParseWithClaims(tokenString, &invoiceClaims{}, func(token *jwt.Token) (interface{}, error) {
			// Check the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})

		if err != nil {
			logger.Warn("Invalid token", "error", err)
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
				msg = "Token not valid yet"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		claims, ok := token.Claims.(*invoiceClaims)
		if !ok || !token.Valid {
			logger.Warn("Invalid token claims or token is not valid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		personID, err := uuid.Parse(claims.Subject)
		if err != nil {
			logger.Error("Person ID (subject) missing or malformed in valid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		roles := make([]domain.Role, len(claims.Roles))
		for i, r := range claims.Roles {
			roles[i] = domain.Role(strings.ToUpper(r))
		}

		caller := domain.Caller{
			Username: claims.Username,
			PersonID: personID,
			Roles:    roles,
			Token:    tokenString,
		}

		// Store the caller in the standard request context
		ctxWithCaller := context.WithValue(c.Request.Context(), callerCtxKey, caller)

		// Add caller identity to the logger
		enrichedLogger := GetLoggerFromCtx(c.Request.Context()).With(slog.String("username", caller.Username))

		// Store the *enriched* logger back into the standard context
		c.Request = c.Request.WithContext(WithLogger(ctxWithCaller, enrichedLogger))

		c.Next()
	}
}

// RequireCaller aborts with 401 when no authenticated caller is present. It
// backs handlers that must never run anonymously even if route wiring changes.
func RequireCaller(c *gin.Context) (domain.Caller, bool) {
	caller, ok := GetCallerFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return domain.Caller{}, false
	}
	return caller, true
}
