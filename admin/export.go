package admin

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"time"

	"musicportal/apperr"
	"musicportal/auth"
	"musicportal/catalog"
	"musicportal/model"

	"github.com/gin-gonic/gin"
)

var csvHeader = []string{
	"ID", "Title", "PrimaryArtist", "Label", "Publisher", "Category",
	"ContentType", "Language", "ReleaseDate", "UPC", "Status", "OwnerID",
	"Tracks", "SubmittedAt", "ReviewedAt", "RejectionReason",
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// WriteCSV writes one row per release, header first.
func WriteCSV(w io.Writer, releases []model.Release) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range releases {
		row := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Title,
			r.PrimaryArtist,
			r.Label,
			r.Publisher,
			r.Category,
			r.ContentType,
			r.Language,
			r.ReleaseDate,
			r.UPC,
			string(r.Status),
			strconv.FormatUint(uint64(r.OwnerID), 10),
			strconv.Itoa(len(r.Tracks)),
			formatTime(r.SubmittedAt),
			formatTime(r.ReviewedAt),
			r.RejectionReason,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// exportReleases handles: GET /admin/export/releases.csv
//
// Query: Status, OwnerID as in GET /admin/releases.
func (a *Admin) exportReleases(c *gin.Context) {
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

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="releases.csv"`)
	c.Status(http.StatusOK)
	if err := WriteCSV(c.Writer, releases); err != nil {
		logger.WithContext(c).WithError(err).Error("export releases failed")
	}
}
