package catalog

import (
	"fmt"
	"net/http"
	"strconv"

	"musicportal/apperr"
	"musicportal/auth"
	"musicportal/model"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the owner side of the catalog. r must be
// behind auth.Required.
//
//	POST   /releases
//	GET    /releases
//	GET    /releases/:id
//	PUT    /releases/:id
//	DELETE /releases/:id
//	POST   /releases/:id/submit
//	GET    /releases/:id/history
//	POST   /releases/:id/tracks
//	PUT    /releases/:id/tracks/:trackId
//	DELETE /releases/:id/tracks/:trackId
func RegisterRoutes(r gin.IRouter, s *Service) {
	g := r.Group("/releases")
	g.POST("", s.postRelease)
	g.GET("", s.listReleases)
	g.GET("/:id", s.getRelease)
	g.PUT("/:id", s.putRelease)
	g.DELETE("/:id", s.deleteRelease)
	g.POST("/:id/submit", s.submitRelease)
	g.GET("/:id/history", s.getHistory)

	g.POST("/:id/tracks", s.postTrack)
	g.PUT("/:id/tracks/:trackId", s.putTrack)
	g.DELETE("/:id/tracks/:trackId", s.deleteTrack)
}

// ParamID parses the uint path parameter name.
func ParamID(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: bad %s %q", apperr.ErrInvalidInput, name, c.Param(name))
	}
	return uint(v), nil
}

type listQuery struct {
	Status  model.ReleaseStatus `form:"Status"`
	OwnerID uint                `form:"OwnerID"`
}

// BindFilter reads ?Status=&OwnerID= into a ReleaseFilter.
func BindFilter(c *gin.Context) (ReleaseFilter, error) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return ReleaseFilter{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if q.Status != "" && !q.Status.Valid() {
		return ReleaseFilter{}, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, q.Status)
	}
	return ReleaseFilter{OwnerID: q.OwnerID, Status: q.Status}, nil
}

func (s *Service) postRelease(c *gin.Context) {
	var in ReleaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := s.Create(c, auth.CurrentUser(c), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"release": r})
}

func (s *Service) listReleases(c *gin.Context) {
	f, err := BindFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	releases, err := s.List(c, auth.CurrentUser(c), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": releases})
}

func (s *Service) getRelease(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	r, err := s.Get(c, auth.CurrentUser(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release": r})
}

func (s *Service) putRelease(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var in ReleaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := s.Update(c, auth.CurrentUser(c), id, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release": r})
}

func (s *Service) deleteRelease(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := s.Delete(c, auth.CurrentUser(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) submitRelease(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	r, err := s.Submit(c, auth.CurrentUser(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release": r})
}

func (s *Service) getHistory(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	events, err := s.History(c, auth.CurrentUser(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Service) postTrack(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var in TrackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := s.AddTrack(c, auth.CurrentUser(c), id, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"track": t})
}

func (s *Service) putTrack(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	trackID, err := ParamID(c, "trackId")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var in TrackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := s.UpdateTrack(c, auth.CurrentUser(c), id, trackID, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"track": t})
}

func (s *Service) deleteTrack(c *gin.Context) {
	id, err := ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	trackID, err := ParamID(c, "trackId")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := s.DeleteTrack(c, auth.CurrentUser(c), id, trackID); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
