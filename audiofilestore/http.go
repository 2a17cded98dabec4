package audiofilestore

import (
	"net/http"
	"strings"

	"musicportal/apperr"
	"musicportal/model"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the signed object routes under /storage.
// They are not behind auth: the signature is the credential.
func (a *AudioFileStore) RegisterRoutes(r gin.IRouter) {
	group := r.Group(model.StorageServePath)

	group.PUT("/*key", a.PutObject)
	group.GET("/*key", a.GetObject)
}

func (a *AudioFileStore) verified(c *gin.Context, method string) (string, bool) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := a.Verify(method, key, c.Query("expires"), c.Query("sig")); err != nil {
		apperr.Respond(c, err)
		return "", false
	}
	return key, true
}

// PutObject handles: PUT /storage/*key?expires=&sig=
//
// Body: the raw object bytes.
func (a *AudioFileStore) PutObject(c *gin.Context) {
	key, ok := a.verified(c, http.MethodPut)
	if !ok {
		return
	}

	n, err := a.Put(key, c.Request.Body)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"Key": key, "Size": n})
}

// GetObject handles: GET /storage/*key?expires=&sig=
func (a *AudioFileStore) GetObject(c *gin.Context) {
	key, ok := a.verified(c, http.MethodGet)
	if !ok {
		return
	}
	if !a.Exists(key) {
		apperr.Respond(c, apperr.ErrNotFound)
		return
	}

	p, _ := a.objectPath(key)
	c.File(p)
}
