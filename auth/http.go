package auth

import (
	"net/http"
	"time"

	"musicportal/apperr"
	"musicportal/model"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string
	Password string
}

type loginResponse struct {
	Token     string
	ExpiresAt string
	User      *model.User
}

// RegisterRoutes mounts:
//
//	POST /auth/register
//	POST /auth/login
//	POST /auth/logout  (token)
//	GET  /auth/me      (token)
func RegisterRoutes(r gin.IRouter, s *Service) {
	g := r.Group("/auth")
	g.POST("/register", s.postRegister)
	g.POST("/login", s.postLogin)

	authed := g.Group("", Required(s))
	authed.POST("/logout", s.postLogout)
	authed.GET("/me", getMe)
}

func (s *Service) postRegister(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.Register(c, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Service) postLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, user, err := s.Login(c, req.Email, req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		User:      user,
	})
}

func (s *Service) postLogout(c *gin.Context) {
	if err := s.Logout(c, bearerToken(c)); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func getMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c)})
}
