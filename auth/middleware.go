package auth

import (
	"fmt"
	"strings"

	"musicportal/apperr"
	"musicportal/model"

	"github.com/gin-gonic/gin"
)

const userKey = "musicportal/user"

// Required rejects requests without a valid bearer token and stores
// the user for CurrentUser.
func Required(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.Authenticate(c, bearerToken(c))
		if err != nil {
			apperr.Abort(c, err)
			return
		}
		SetUser(c, user)
		c.Next()
	}
}

// AdminOnly must run after Required.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			apperr.Abort(c, fmt.Errorf("%w: admin only", apperr.ErrForbidden))
			return
		}
		c.Next()
	}
}

func SetUser(c *gin.Context, u *model.User) {
	c.Set(userKey, u)
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
