package admin

import (
	"context"
	"net/http"

	"musicportal/apperr"
	"musicportal/model"

	"github.com/cdfmlr/crud/orm"
	"github.com/gin-gonic/gin"
)

// this file implements the dashboard counters.

type Stats struct {
	Releases map[model.ReleaseStatus]int64
	Users    map[model.Role]int64
	Requests map[string]map[model.RequestStatus]int64
}

type statusCount struct {
	Bucket string
	Count  int64
}

// countBy groups the rows of m by column.
func countBy(ctx context.Context, m any, column string) ([]statusCount, error) {
	rows := make([]statusCount, 0)
	err := orm.DB.WithContext(ctx).
		Model(m).
		Select(column + " AS bucket, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		logger.WithContext(ctx).WithField("column", column).WithError(err).Error("countBy failed")
		return nil, err
	}
	return rows, nil
}

// Stats counts releases per status, users per role and requests per
// kind and status. Every known status is present, zero or not.
func (a *Admin) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{
		Releases: map[model.ReleaseStatus]int64{},
		Users:    map[model.Role]int64{},
		Requests: map[string]map[model.RequestStatus]int64{},
	}
	for _, st := range []model.ReleaseStatus{model.StatusDraft, model.StatusUnderReview, model.StatusApproved, model.StatusRejected} {
		s.Releases[st] = 0
	}

	releases, err := countBy(ctx, &model.Release{}, "status")
	if err != nil {
		return nil, err
	}
	for _, row := range releases {
		s.Releases[model.ReleaseStatus(row.Bucket)] = row.Count
	}

	users, err := countBy(ctx, &model.User{}, "role")
	if err != nil {
		return nil, err
	}
	for _, row := range users {
		s.Users[model.Role(row.Bucket)] = row.Count
	}

	for _, h := range a.requests {
		counts, err := h.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		for _, st := range []model.RequestStatus{model.RequestPending, model.RequestProcessing, model.RequestCompleted, model.RequestRejected} {
			if _, ok := counts[st]; !ok {
				counts[st] = 0
			}
		}
		s.Requests[h.Name()] = counts
	}
	return s, nil
}

// getStats handles: GET /admin/stats
//
// Response:
//
//   - 200: {Releases: {DRAFT: n, ...}, Users: {ARTIST: n, ...}, Requests: {kind: {PENDING: n, ...}}}
//   - 500: {error: "..."}
func (a *Admin) getStats(c *gin.Context) {
	s, err := a.Stats(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
