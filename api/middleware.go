package api

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"pagetags/apperrors"
	"pagetags/auth"
	"pagetags/models"
	"pagetags/store"
)

const contextUserKey = "api_user"

// tokenFromRequest reads the token from the Authorization header, with the
// Bearer or JWT scheme, or from the api_key query parameter.
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && (strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "JWT")) {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("api_key")
}

// TokenAuth rejects requests without a valid token. A token is valid when
// it verifies and its jti is still the user's current one.
func TokenAuth(issuer *auth.TokenIssuer, s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			abortWithError(c, apperrors.Unauthorized("missing token"))
			return
		}

		claims, err := issuer.Parse(token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		user, err := s.AuthenticateJTI(c.Request.Context(), claims.Identity, claims.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if user == nil {
			log.Printf("rejected revoked token for user %d", claims.Identity)
			abortWithError(c, auth.ErrInvalidToken)
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user authenticated by TokenAuth.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}
