package upload

import (
	"net/http"

	"musicportal/apperr"
	"musicportal/auth"
	"musicportal/catalog"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the upload endpoints. r must be behind
// auth.Required.
func (u *Coordinator) RegisterRoutes(r gin.IRouter) {
	group := r.Group("/upload")

	group.POST("/presign", u.PostPresign)
	group.PUT("/releases/:id/tracks/:trackId/audio", u.PutTrackAudio)
	group.PUT("/releases/:id/artwork", u.PutArtwork)
}

// LinkRequest names an object uploaded with a presigned URL.
type LinkRequest struct {
	Key string `binding:"required"`
}

// PostPresign handles: POST /upload/presign
//
// Body: {"Kind": "audio", "FileName": "song.mp3", "ContentType": "audio/mpeg"}
func (u *Coordinator) PostPresign(c *gin.Context) {
	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := u.Presign(auth.CurrentUser(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PutTrackAudio handles: PUT /upload/releases/:id/tracks/:trackId/audio
func (u *Coordinator) PutTrackAudio(c *gin.Context) {
	releaseID, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	trackID, err := catalog.ParamID(c, "trackId")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := u.LinkTrackAudio(c, auth.CurrentUser(c), releaseID, trackID, req.Key)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"track": t})
}

// PutArtwork handles: PUT /upload/releases/:id/artwork
func (u *Coordinator) PutArtwork(c *gin.Context) {
	releaseID, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := u.LinkArtwork(c, auth.CurrentUser(c), releaseID, req.Key)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release": r})
}
