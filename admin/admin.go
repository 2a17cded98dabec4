// Package admin serves the moderation side of the portal: review of
// submitted releases, user roles, dropdown values and request updates.
package admin

import (
	"context"
	"net/http"

	"musicportal/apperr"
	"musicportal/audiofilestore"
	"musicportal/auth"
	"musicportal/catalog"
	"musicportal/metadata"
	"musicportal/model"
	"musicportal/requests"

	"github.com/cdfmlr/crud/log"
	"github.com/gin-gonic/gin"
)

var logger = log.ZoneLogger("musicportal/admin")

type Admin struct {
	catalog  *catalog.Service
	users    *auth.Service
	store    *audiofilestore.AudioFileStore
	requests []requests.Handler
}

func New(releases *catalog.Service, users *auth.Service, store *audiofilestore.AudioFileStore, handlers []requests.Handler) *Admin {
	return &Admin{catalog: releases, users: users, store: store, requests: handlers}
}

// RegisterRoutes mounts every admin endpoint on r, which must be
// behind auth.Required and auth.AdminOnly.
func (a *Admin) RegisterRoutes(r gin.IRouter) {
	r.GET("/releases", a.listReleases)
	r.GET("/releases/:id", a.getRelease)
	r.POST("/releases/:id/approve", a.approveRelease)
	r.POST("/releases/:id/reject", a.rejectRelease)
	r.DELETE("/releases/:id", a.deleteRelease)
	r.GET("/releases/:id/downloads", a.getDownloads)
	r.GET("/export/releases.csv", a.exportReleases)

	r.GET("/stats", a.getStats)

	r.GET("/users", a.listUsers)
	r.PUT("/users/:id/role", a.putUserRole)

	metadata.RegisterAdminRoutes(r)
	for _, h := range a.requests {
		h.RegisterAdminRoutes(r)
	}
}

func (a *Admin) listReleases(c *gin.Context) {
	f, err := catalog.BindFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	releases, err := a.catalog.List(c, auth.CurrentUser(c), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": releases})
}

func (a *Admin) getRelease(c *gin.Context) {
	id, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	actor := auth.CurrentUser(c)
	r, err := a.catalog.Get(c, actor, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	events, err := a.catalog.History(c, actor, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release": r, "events": events})
}

func (a *Admin) approveRelease(c *gin.Context) {
	id, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	r, err := a.catalog.Approve(c, auth.CurrentUser(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release": r})
}

// RejectRequest is the body of POST /admin/releases/:id/reject.
type RejectRequest struct {
	Reason            string
	AllowResubmission bool
}

func (a *Admin) rejectRelease(c *gin.Context) {
	id, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := a.catalog.Reject(c, auth.CurrentUser(c), id, req.Reason, req.AllowResubmission)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release": r})
}

func (a *Admin) deleteRelease(c *gin.Context) {
	id, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := a.catalog.Delete(c, auth.CurrentUser(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TrackDownload is a signed GET URL for the audio of one track.
type TrackDownload struct {
	TrackID  uint
	Position int
	Title    string
	Audio    *audiofilestore.SignedURL
}

type Downloads struct {
	ReleaseID uint
	Artwork   *audiofilestore.SignedURL
	Tracks    []TrackDownload
}

// Downloads signs GET URLs for every stored object of the release.
// Objects not uploaded yet are left nil.
func (a *Admin) Downloads(ctx context.Context, actor *model.User, releaseID uint) (*Downloads, error) {
	r, err := a.catalog.Get(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}

	d := &Downloads{ReleaseID: r.ID, Tracks: make([]TrackDownload, 0, len(r.Tracks))}
	d.Artwork = a.signGet(r.ArtworkURL)
	for _, t := range r.Tracks {
		d.Tracks = append(d.Tracks, TrackDownload{
			TrackID:  t.ID,
			Position: t.Position,
			Title:    t.Title,
			Audio:    a.signGet(t.AudioURL),
		})
	}
	return d, nil
}

func (a *Admin) signGet(objectURL string) *audiofilestore.SignedURL {
	key, ok := model.ObjectKeyFromURL(objectURL)
	if !ok || !a.store.Exists(key) {
		return nil
	}
	signed, err := a.store.SignURL(http.MethodGet, key)
	if err != nil {
		logger.WithField("key", key).WithError(err).Warn("sign download failed")
		return nil
	}
	return &signed
}

func (a *Admin) getDownloads(c *gin.Context) {
	id, err := catalog.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	d, err := a.Downloads(c, auth.CurrentUser(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
