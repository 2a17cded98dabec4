package main

import (
	"musicportal/auth"
	"musicportal/catalog"
	"musicportal/metadata"

	"github.com/cdfmlr/crud/router"
	"github.com/gin-gonic/gin"
)

func MakeRouter(app *App) *gin.Engine {
	r := router.NewRouter()

	// public: sign up / in, and signed object URLs
	auth.RegisterRoutes(r, app.Auth)
	app.Store.RegisterRoutes(r)

	authed := r.Group("", auth.Required(app.Auth))

	metadata.RegisterRoutes(authed)
	catalog.RegisterRoutes(authed, app.Catalog)
	app.Upload.RegisterRoutes(authed)
	for _, h := range app.Requests {
		h.RegisterRoutes(authed)
	}

	app.Admin.RegisterRoutes(authed.Group("/admin", auth.AdminOnly()))

	return r
}
