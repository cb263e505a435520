// middleware/session_auth.go
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/rotisserie/eris"
)

// SessionIDKey is the echo context key holding the wizard session id.
const SessionIDKey = "sessionId"

// SessionClaims are the claims of a wizard session token.
type SessionClaims struct {
	SessionID string `json:"sessionId"`
	jwt.StandardClaims
}

// IssueSessionToken signs a token for sessionID valid for ttl.
func IssueSessionToken(secret, sessionID string, ttl time.Duration, now time.Time) (string, error) {
	claims := &SessionClaims{
		SessionID: sessionID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
			Subject:   sessionID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", eris.Wrap(err, "failed to sign session token")
	}
	return token, nil
}

// ParseSessionToken validates raw and returns its session id.
func ParseSessionToken(secret, raw string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", eris.Wrap(err, "invalid session token")
	}
	if !token.Valid || claims.SessionID == "" {
		return "", eris.New("invalid session token")
	}
	return claims.SessionID, nil
}

// WizardSessionAuth requires a session token in the Authorization header.
// The websocket endpoint may pass it as the token query parameter instead.
func WizardSessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "missing session token",
				})
			}

			sessionID, err := ParseSessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "invalid or expired session token",
				})
			}

			c.Set(SessionIDKey, sessionID)
			return next(c)
		}
	}
}

// SessionID returns the session id set by WizardSessionAuth.
func SessionID(c echo.Context) string {
	id, _ := c.Get(SessionIDKey).(string)
	return id
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
