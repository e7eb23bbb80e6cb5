package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/requestdata"
	"github.com/waveroom/marketplace-backend/internal/types"
)

const sessionHeader = "X-Session-ID"

// SessionMiddleware derives the session mode for every cart request. A
// valid bearer token makes the request authenticated; otherwise the
// anonymous session id header identifies the local cart. A request carrying
// both is the login transition the merge coordinator watches for.
type SessionMiddleware struct {
	log          *logger.Logger
	jwtSecretKey string
}

func NewSessionMiddleware(log *logger.Logger, jwtSecretKey string) *SessionMiddleware {
	middlewareLog := log.With("middleware", "SessionMiddleware")
	return &SessionMiddleware{log: middlewareLog, jwtSecretKey: jwtSecretKey}
}

func (sm *SessionMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &requestdata.RequestData{
			SessionID: strings.TrimSpace(c.GetHeader(sessionHeader)),
			Mode:      types.SessionAnonymous,
		}

		if tokenString := extractBearerToken(c); tokenString != "" {
			userID, err := sm.parseUserID(tokenString)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			rd.UserID = userID
			rd.Mode = types.SessionAuthenticated
		} else if rd.SessionID == "" {
			// First anonymous request: hand the client a session id to keep.
			rd.SessionID = uuid.NewString()
			c.Header(sessionHeader, rd.SessionID)
		}

		ctx := requestdata.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (sm *SessionMiddleware) parseUserID(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(sm.jwtSecretKey), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, fmt.Errorf("token missing subject")
	}
	return uuid.Parse(claims.Subject)
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
