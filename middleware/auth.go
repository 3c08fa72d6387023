package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/config"
	"github.com/kendall-kelly/bakery-orders-api/logger"
)

// RoleClaim is the namespaced custom claim an Auth0 action adds with the user's role
const RoleClaim = "https://bakery-orders-api/role"

// API permissions granted to tokens by Auth0
const (
	ScopeReadOrders   = "read:orders"
	ScopeWriteOrders  = "write:orders"
	ScopeDeleteOrders = "delete:orders"
)

// AllScopes lists every permission the API checks
var AllScopes = []string{ScopeReadOrders, ScopeWriteOrders, ScopeDeleteOrders}

// gin context keys set by EnsureValidToken
const (
	userIDKey      = "user_id"
	claimsKey      = "validated_claims"
	accessTokenKey = "access_token"
)

// CustomClaims are the non-registered claims read from the access token
type CustomClaims struct {
	Scope string `json:"scope"`
	Role  string `json:"https://bakery-orders-api/role"`
}

// Validate satisfies validator.CustomClaims; the role is checked against the users table instead
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// HasScope reports whether the space separated scope claim contains expectedScope
func (c CustomClaims) HasScope(expectedScope string) bool {
	return slices.Contains(strings.Fields(c.Scope), expectedScope)
}

// EnsureValidToken returns a middleware that validates Auth0 RS256 access tokens
// and stores the subject, claims and raw token in the gin context.
func EnsureValidToken(cfg *config.Config) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(tokenErrorHandler),
	)

	return func(c *gin.Context) {
		validated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			validated = true
			claims := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set(userIDKey, claims.RegisteredClaims.Subject)
			c.Set(claimsKey, claims)
			// handlers call Auth0's /userinfo on the user's behalf
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				c.Set(accessTokenKey, bearer)
			}

			c.Request = r
			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !validated {
			// the error handler already answered
			c.Abort()
		}
	}, nil
}

// tokenErrorHandler answers rejected tokens with the API error envelope
func tokenErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.Component("auth")
	log.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected access token")

	code, message := "INVALID_TOKEN", "Failed to validate JWT."
	if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
		code, message = "MISSING_TOKEN", "Authorization header with a bearer token is required."
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := fmt.Sprintf(`{"success":false,"error":{"code":%q,"message":%q}}`, code, message)
	if _, writeErr := w.Write([]byte(body)); writeErr != nil {
		log.Error().Err(writeErr).Msg("failed to write error response")
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetAccessToken returns the raw bearer token of the current request
func GetAccessToken(c *gin.Context) (string, error) {
	token, exists := c.Get(accessTokenKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	tokenStr, ok := token.(string)
	if !ok || tokenStr == "" {
		return "", &AuthError{Code: "INVALID_TOKEN", Message: "Access token is not a string"}
	}

	return tokenStr, nil
}

// GetRole returns the role claim of the current token, empty when absent
func GetRole(c *gin.Context) string {
	if claims := customClaims(c); claims != nil {
		return claims.Role
	}
	return ""
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

func customClaims(c *gin.Context) *CustomClaims {
	claims, err := GetClaims(c)
	if err != nil {
		return nil
	}
	custom, _ := claims.CustomClaims.(*CustomClaims)
	return custom
}

// SetIdentity stores an already authenticated identity the way EnsureValidToken does
func SetIdentity(c *gin.Context, claims *validator.ValidatedClaims, accessToken string) {
	c.Set(userIDKey, claims.RegisteredClaims.Subject)
	c.Set(claimsKey, claims)
	if accessToken != "" {
		c.Set(accessTokenKey, accessToken)
	}
}

// RequireScope rejects requests whose token lacks scope.
// Requests without claims are unauthenticated.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := GetClaims(c); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHENTICATED",
					"message": "authentication required",
				},
			})
			return
		}

		claims := customClaims(c)
		if claims == nil || !claims.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INSUFFICIENT_SCOPE",
					"message": "Token is missing the " + scope + " permission",
				},
			})
			return
		}

		c.Next()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
