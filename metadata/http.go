package metadata

import (
	"net/http"

	"musicportal/apperr"
	"musicportal/model"

	"github.com/cdfmlr/crud/router"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes exposes the read only dropdown lists:
//
//	GET /metadata/:kind
func RegisterRoutes(r gin.IRouter) {
	r.GET("/metadata/:kind", GetDropdown)
}

// RegisterAdminRoutes exposes basic CRUDs of the dropdown values.
func RegisterAdminRoutes(r gin.IRouter) {
	router.Crud[model.Label](r, "/metadata/labels")
	router.Crud[model.Publisher](r, "/metadata/publishers")
	router.Crud[model.Category](r, "/metadata/categories")
	router.Crud[model.ContentType](r, "/metadata/content-types")
}

// GetDropdown handles: GET /metadata/:kind
//
// kind is one of labels, publishers, categories, content-types.
//
// Response:
//
//   - 200: {items: [{ID, Name}, ...]}
//   - 404: unknown kind
func GetDropdown(c *gin.Context) {
	items, err := Dropdown(c, c.Param("kind"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
