package admin

import (
	"fmt"
	"net/http"

	"musicportal/apperr"
	"musicportal/auth"
	"musicportal/catalog"
	"musicportal/model"

	"github.com/gin-gonic/gin"
)

func (a *Admin) listUsers(c *gin.Context) {
	users, err := a.users.ListUsers(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type RoleRequest struct {
	Role model.Role `binding:"required"`
}

// putUserRole handles: PUT /admin/users/:id/role {Role}
//
// Admins cannot change their own role.
func (a *Admin) putUserRole(c *gin.Context) {
	id, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if actor := auth.CurrentUser(c); actor != nil && actor.ID == id {
		apperr.Respond(c, fmt.Errorf("%w: cannot change your own role", apperr.ErrForbidden))
		return
	}

	user, err := a.users.SetRole(c, id, req.Role)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
