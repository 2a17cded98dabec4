package requests

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"musicportal/apperr"
	"musicportal/auth"
	"musicportal/model"

	"github.com/gin-gonic/gin"
)

// Handler is a request kind that can be mounted on a router.
type Handler interface {
	Name() string
	RegisterRoutes(r gin.IRouter)
	RegisterAdminRoutes(r gin.IRouter)
	CountByStatus(ctx context.Context) (map[model.RequestStatus]int64, error)
}

// RegisterRoutes mounts the owner endpoints under /requests/{name}.
// r must be behind auth.Required.
//
//	POST   /requests/{name}
//	GET    /requests/{name}
//	GET    /requests/{name}/:id
//	DELETE /requests/{name}/:id
func (k *Kind[T, PT]) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/requests/" + k.name)
	g.POST("", k.postRequest)
	g.GET("", k.listMine)
	g.GET("/:id", k.getRequest)
	g.DELETE("/:id", k.deleteRequest)
}

// RegisterAdminRoutes mounts the admin endpoints under
// /requests/{name}. r must be behind auth.AdminOnly.
//
//	GET   /requests/{name}?Status=&OwnerID=
//	GET   /requests/{name}/:id
//	PATCH /requests/{name}/:id {Status, AdminNote}
func (k *Kind[T, PT]) RegisterAdminRoutes(r gin.IRouter) {
	g := r.Group("/requests/" + k.name)
	g.GET("", k.listAll)
	g.GET("/:id", k.getRequest)
	g.PATCH("/:id", k.patchRequest)
}

func paramID(c *gin.Context) (uint, error) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: bad id %q", apperr.ErrInvalidInput, c.Param("id"))
	}
	return uint(v), nil
}

func (k *Kind[T, PT]) postRequest(c *gin.Context) {
	req := PT(new(T))
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := k.Create(c, auth.CurrentUser(c), req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": req})
}

func (k *Kind[T, PT]) listMine(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		apperr.Respond(c, apperr.ErrUnauthorized)
		return
	}
	items, err := k.List(c, Filter{OwnerID: user.ID})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": items})
}

type adminQuery struct {
	Status  model.RequestStatus `form:"Status"`
	OwnerID uint                `form:"OwnerID"`
}

func (k *Kind[T, PT]) listAll(c *gin.Context) {
	var q adminQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Status != "" && !q.Status.Valid() {
		apperr.Respond(c, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, q.Status))
		return
	}
	items, err := k.List(c, Filter{OwnerID: q.OwnerID, Status: q.Status})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": items})
}

func (k *Kind[T, PT]) getRequest(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	req, err := k.Get(c, auth.CurrentUser(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

func (k *Kind[T, PT]) deleteRequest(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := k.Withdraw(c, auth.CurrentUser(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PatchRequest is the admin update body.
type PatchRequest struct {
	Status    model.RequestStatus `binding:"required"`
	AdminNote string
}

func (k *Kind[T, PT]) patchRequest(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var body PatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := k.Update(c, auth.CurrentUser(c), id, body.Status, body.AdminNote)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}
