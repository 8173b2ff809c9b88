package middleware

import (
	"crypto/rsa"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/mixmint/mixmint-downloads/internal/api/shared/errors"
	"github.com/mixmint/mixmint-downloads/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	AUTH_TYPE_KEY    contextKey = "auth_type"
	AUTH_SUBJECT_KEY contextKey = "auth_subject"
	JWT_CLAIMS_KEY   contextKey = "jwt_claims"

	AUTH_TYPE_JWT    = "jwt"
	AUTH_TYPE_APIKEY = "apikey"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret    string // HMAC secret for HS256 session tokens
	JWTPublicKey string // RSA public key in PEM format
	JWTAudience  string
	APIKeys      []string
}

// Claims are the session claims carried by a bearer token
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success     bool
	AuthType    string // "jwt" or "apikey"
	Claims      *Claims
	AuthSubject string
	Error       error
}

// Authenticator checks Authorization headers against keys parsed at construction
type Authenticator struct {
	cfg       AuthConfig
	publicKey *rsa.PublicKey
}

// NewAuthenticator parses the configured RSA public key, if any
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	a := &Authenticator{cfg: cfg}
	if cfg.JWTPublicKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		a.publicKey = key
	}
	return a, nil
}

// Authenticate validates the Authorization header and returns the authentication result
func (a *Authenticator) Authenticate(authHeader string) AuthResult {
	result := AuthResult{
		Success: false,
	}

	if authHeader == "" {
		result.Error = errors.New("missing Authorization header")
		return result
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		result.Error = errors.New("invalid Authorization header format")
		return result
	}

	authType := strings.ToLower(parts[0])
	credentials := strings.TrimSpace(parts[1])

	switch authType {
	case "bearer":
		claims, err := a.validateJWT(credentials)
		if err != nil {
			result.Error = err
			return result
		}
		if claims.Subject == "" {
			result.Error = errors.New("token has no subject")
			return result
		}
		result.Success = true
		result.AuthType = AUTH_TYPE_JWT
		result.Claims = claims
		result.AuthSubject = claims.Subject

	case "apikey":
		if err := validateAPIKey(credentials, a.cfg.APIKeys); err != nil {
			result.Error = err
			return result
		}
		result.Success = true
		result.AuthType = AUTH_TYPE_APIKEY

	default:
		result.Error = fmt.Errorf("unsupported authorization type: %s", authType)
		return result
	}

	return result
}

// Auth returns a gin middleware that requires a user session (Bearer JWT)
func Auth(a *Authenticator) gin.HandlerFunc {
	return authenticate(a, AUTH_TYPE_JWT)
}

// APIKeyAuth returns a gin middleware that requires an operator API key
func APIKeyAuth(a *Authenticator) gin.HandlerFunc {
	return authenticate(a, AUTH_TYPE_APIKEY)
}

func authenticate(a *Authenticator, required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := a.Authenticate(c.GetHeader("Authorization"))
		if result.Success && result.AuthType != required {
			result.Success = false
			result.Error = fmt.Errorf("%s authentication required", required)
		}

		if !result.Success {
			logger.WarnCtx(c.Request.Context(), "Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", result.Error.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		c.Set(string(AUTH_TYPE_KEY), result.AuthType)
		if result.Claims != nil {
			c.Set(string(JWT_CLAIMS_KEY), result.Claims)
		}
		if result.AuthSubject != "" {
			c.Set(string(AUTH_SUBJECT_KEY), result.AuthSubject)
			c.Request = c.Request.WithContext(
				logger.WithFields(c.Request.Context(), zap.String("user_id", result.AuthSubject)))
		}

		c.Next()
	}
}

// UserID returns the authenticated session subject, or "" for anonymous requests
func UserID(c *gin.Context) string {
	return c.GetString(string(AUTH_SUBJECT_KEY))
}

// SessionClaims returns the claims of the authenticated session, if any
func SessionClaims(c *gin.Context) *Claims {
	v, ok := c.Get(string(JWT_CLAIMS_KEY))
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// validateJWT validates a session token signed with either the HMAC secret
// or the RSA key, whichever the token header names
func (a *Authenticator) validateJWT(tokenString string) (*Claims, error) {
	if a.cfg.JWTSecret == "" && a.publicKey == nil {
		return nil, errors.New("JWT verification key not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "RS256"}),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.JWTAudience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if a.cfg.JWTSecret == "" {
				return nil, errors.New("HMAC tokens are not accepted")
			}
			return []byte(a.cfg.JWTSecret), nil
		case *jwt.SigningMethodRSA:
			if a.publicKey == nil {
				return nil, errors.New("RSA tokens are not accepted")
			}
			return a.publicKey, nil
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// validateAPIKey validates an API key
func validateAPIKey(apiKey string, validKeys []string) error {
	configured := false
	for _, key := range validKeys {
		if key == "" {
			continue
		}
		configured = true
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return nil
		}
	}

	if !configured {
		return errors.New("no API keys configured")
	}
	return errors.New("invalid API key")
}
