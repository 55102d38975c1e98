package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/core/domain/auth"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

// JWTMiddleware validates HS256 access tokens issued by the identity service and
// puts the subject into the request context.
type JWTMiddleware struct {
	secret []byte
	issuer string
	logger *logrus.Logger
}

func NewJWTMiddleware(secret, issuer string, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{secret: []byte(secret), issuer: issuer, logger: logger}
}

func (m *JWTMiddleware) parse(tokenString string) (*auth.Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	claims := &auth.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *JWTMiddleware) authenticate(c echo.Context, tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		if m.logger != nil {
			m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("JWT validation failed")
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	id, err := claims.SubjectID()
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}

	helpers.SetUserID(c, id)
	helpers.SetUserRole(c, claims.Role)

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"subject_id": id, "role": claims.Role}).Debug("jwt validated and user context set")
	}
	return nil
}

// OptionalJWT attaches the subject when a bearer token is present. A present but
// invalid token is still rejected.
func (m *JWTMiddleware) OptionalJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return err
			}
			if err := m.authenticate(c, tokenString); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireJWT creates middleware that validates JWT tokens and sets user context
func (m *JWTMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := helpers.GetUserIDRaw(c); ok {
				return next(c)
			}
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return err
			}
			if err := m.authenticate(c, tokenString); err != nil {
				return err
			}
			return next(c)
		}
	}
}
