package testutil

import (
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/middleware"
)

// MockValidatedClaims builds the claims an Auth0 access token for subject would carry
func MockValidatedClaims(subject, role string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  "https://test.auth0.com/",
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
			Role:  role,
		},
	}
}

// SetMockAuthContext authenticates c as auth0ID with the given role claim and scopes
func SetMockAuthContext(c *gin.Context, auth0ID, role string, scopes []string) {
	middleware.SetIdentity(c, MockValidatedClaims(auth0ID, role, scopes), "test-token-"+auth0ID)
}

// MockAuthMiddleware authenticates every request as auth0ID with every API scope.
// An empty auth0ID leaves the request anonymous.
func MockAuthMiddleware(auth0ID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth0ID != "" {
			SetMockAuthContext(c, auth0ID, role, middleware.AllScopes)
		}
		c.Next()
	}
}

// HeaderAuthMiddleware authenticates each request as the user named in header,
// so one server can serve several users. Requests without the header are anonymous.
func HeaderAuthMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(header); id != "" {
			SetMockAuthContext(c, id, "", middleware.AllScopes)
		}
		c.Next()
	}
}
