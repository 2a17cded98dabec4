package admin_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"musicportal/admin"
	"musicportal/audiofilestore"
	"musicportal/auth"
	"musicportal/catalog"
	"musicportal/config"
	"musicportal/metadata"
	"musicportal/model"
	"musicportal/requests"
	"musicportal/testsupport"

	"github.com/gin-gonic/gin"
)

type fixture struct {
	ctx     context.Context
	catalog *catalog.Service
	store   *audiofilestore.AudioFileStore
	router  *gin.Engine
	owner   *model.User
	admin   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testsupport.NewDB(t)
	store, err := audiofilestore.NewAudioFileStore(config.StorageConfig{
		FileDir:          filepath.Join(t.TempDir(), "objects"),
		BaseUrl:          "http://portal.test",
		SigningSecret:    "test",
		URLExpiryMinutes: 10,
		MaxUploadMB:      1,
	})
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		ctx:     context.Background(),
		catalog: catalog.NewService(catalog.NewStore(db), nil),
		store:   store,
		owner:   &model.User{Email: "owner@portal.test", Role: model.RoleArtist},
		admin:   &model.User{Email: "admin@portal.test", Role: model.RoleAdmin},
	}
	for _, u := range []*model.User{f.owner, f.admin} {
		if err := db.Create(u).Error; err != nil {
			t.Fatal(err)
		}
	}

	a := admin.New(f.catalog, auth.NewService(db, time.Hour), store, requests.All(db, nil))
	f.router = gin.New()
	f.router.Use(testsupport.ActAs(map[string]*model.User{"owner": f.owner, "admin": f.admin}))
	a.RegisterRoutes(f.router.Group("/admin", auth.AdminOnly()))
	return f
}

func (f *fixture) submitted(t *testing.T, title string) *model.Release {
	t.Helper()
	r, err := f.catalog.Create(f.ctx, f.owner, catalog.ReleaseInput{
		Title:  title,
		Tracks: []catalog.TrackInput{{Title: "Rain"}, {Title: "Thunder"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.catalog.Submit(f.ctx, f.owner, r.ID); err != nil {
		t.Fatal(err)
	}
	return r
}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestAdminOnly(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/admin/stats", "/admin/releases", "/admin/users", "/admin/requests/agreements"} {
		if w := testsupport.Do(t, f.router, http.MethodGet, path, "owner", nil); w.Code != http.StatusForbidden {
			t.Fatalf("%s as owner: %d", path, w.Code)
		}
		if w := testsupport.Do(t, f.router, http.MethodGet, path, "admin", nil); w.Code != http.StatusOK {
			t.Fatalf("%s as admin: %d %s", path, w.Code, w.Body)
		}
	}
}

func TestModerationFlow(t *testing.T) {
	f := newFixture(t)
	r := f.submitted(t, "Monsoon")
	f.submitted(t, "Winter")
	base := "/admin/releases/" + id(r.ID)

	w := testsupport.Do(t, f.router, http.MethodGet, "/admin/releases?Status=UNDER_REVIEW", "admin", nil)
	var queue struct{ Releases []model.Release }
	testsupport.Decode(t, w, &queue)
	if len(queue.Releases) != 2 {
		t.Fatalf("review queue: %+v", queue.Releases)
	}

	if w := testsupport.Do(t, f.router, http.MethodPost, base+"/reject", "admin", map[string]any{"Reason": "  "}); w.Code != http.StatusBadRequest {
		t.Fatalf("reject without reason: %d", w.Code)
	}
	w = testsupport.Do(t, f.router, http.MethodPost, base+"/reject", "admin", map[string]any{
		"Reason": "artwork missing", "AllowResubmission": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", w.Code, w.Body)
	}
	var rejected struct{ Release model.Release }
	testsupport.Decode(t, w, &rejected)
	if rejected.Release.Status != model.StatusRejected || rejected.Release.ReviewedByID != f.admin.ID {
		t.Fatalf("unexpected release: %+v", rejected.Release)
	}

	if w := testsupport.Do(t, f.router, http.MethodPost, base+"/approve", "admin", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("approve rejected: %d", w.Code)
	}
	if _, err := f.catalog.Submit(f.ctx, f.owner, r.ID); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if w := testsupport.Do(t, f.router, http.MethodPost, base+"/approve", "admin", nil); w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body)
	}

	w = testsupport.Do(t, f.router, http.MethodGet, base, "admin", nil)
	var detail struct {
		Release model.Release
		Events  []model.ReleaseEvent
	}
	testsupport.Decode(t, w, &detail)
	if detail.Release.Status != model.StatusApproved || len(detail.Events) != 5 {
		t.Fatalf("detail: %+v, %d events", detail.Release, len(detail.Events))
	}

	if w := testsupport.Do(t, f.router, http.MethodDelete, base, "admin", nil); w.Code != http.StatusNoContent {
		t.Fatalf("admin delete approved: %d", w.Code)
	}
	if w := testsupport.Do(t, f.router, http.MethodGet, base, "admin", nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted release: %d", w.Code)
	}
}

func TestDownloads(t *testing.T) {
	f := newFixture(t)
	r := f.submitted(t, "Monsoon")

	key := model.NewObjectKey(model.ObjectAudio, "rain.mp3")
	if _, err := f.store.Put(key, bytes.NewReader(make([]byte, 600))); err != nil {
		t.Fatal(err)
	}
	tr := r.Tracks[0]
	tr.AudioURL = model.ObjectURL(key)
	if err := f.catalog.Store().SaveTrack(f.ctx, &tr); err != nil {
		t.Fatal(err)
	}

	w := testsupport.Do(t, f.router, http.MethodGet, "/admin/releases/"+id(r.ID)+"/downloads", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("downloads: %d %s", w.Code, w.Body)
	}
	var d admin.Downloads
	testsupport.Decode(t, w, &d)
	if d.Artwork != nil || len(d.Tracks) != 2 {
		t.Fatalf("unexpected downloads: %+v", d)
	}
	if d.Tracks[0].Audio == nil || d.Tracks[0].Audio.Method != http.MethodGet || d.Tracks[1].Audio != nil {
		t.Fatalf("unexpected track downloads: %+v", d.Tracks)
	}
	if d.Tracks[0].Audio.Key != key {
		t.Fatalf("signed wrong key: %+v", d.Tracks[0].Audio)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	f.submitted(t, "Monsoon")
	if _, err := f.catalog.Create(f.ctx, f.owner, catalog.ReleaseInput{Title: "Draft, with comma"}); err != nil {
		t.Fatal(err)
	}

	w := testsupport.Do(t, f.router, http.MethodGet, "/admin/export/releases.csv", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("content type %q", ct)
	}
	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "ID" {
		t.Fatalf("unexpected csv: %v", rows)
	}
	titles := map[string]string{rows[1][1]: rows[1][10], rows[2][1]: rows[2][10]}
	if titles["Monsoon"] != "UNDER_REVIEW" || titles["Draft, with comma"] != "DRAFT" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	w = testsupport.Do(t, f.router, http.MethodGet, "/admin/export/releases.csv?Status=DRAFT", "admin", nil)
	rows, _ = csv.NewReader(w.Body).ReadAll()
	if len(rows) != 2 {
		t.Fatalf("filtered export: %v", rows)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	r := f.submitted(t, "Monsoon")
	f.submitted(t, "Winter")
	if _, err := f.catalog.Approve(f.ctx, f.admin, r.ID); err != nil {
		t.Fatal(err)
	}

	w := testsupport.Do(t, f.router, http.MethodGet, "/admin/stats", "admin", nil)
	var s admin.Stats
	testsupport.Decode(t, w, &s)
	if s.Releases[model.StatusApproved] != 1 || s.Releases[model.StatusUnderReview] != 1 || s.Releases[model.StatusDraft] != 0 {
		t.Fatalf("release stats: %v", s.Releases)
	}
	if s.Users[model.RoleAdmin] != 1 || s.Users[model.RoleArtist] != 1 {
		t.Fatalf("user stats: %v", s.Users)
	}
	if len(s.Requests) != 6 {
		t.Fatalf("request stats: %v", s.Requests)
	}
	if counts, ok := s.Requests["agreements"]; !ok || counts[model.RequestPending] != 0 || len(counts) != 4 {
		t.Fatalf("agreement stats: %v", s.Requests["agreements"])
	}
}

func TestUserRoles(t *testing.T) {
	f := newFixture(t)

	w := testsupport.Do(t, f.router, http.MethodGet, "/admin/users", "admin", nil)
	var list struct{ Users []model.User }
	testsupport.Decode(t, w, &list)
	if len(list.Users) != 2 {
		t.Fatalf("users: %+v", list.Users)
	}

	path := "/admin/users/" + id(f.owner.ID) + "/role"
	if w := testsupport.Do(t, f.router, http.MethodPut, path, "admin", map[string]any{"Role": "SUPERSTAR"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: %d", w.Code)
	}
	if w := testsupport.Do(t, f.router, http.MethodPut, path, "admin", map[string]any{"Role": "LABEL"}); w.Code != http.StatusOK {
		t.Fatalf("set role: %d %s", w.Code, w.Body)
	}
	self := "/admin/users/" + id(f.admin.ID) + "/role"
	if w := testsupport.Do(t, f.router, http.MethodPut, self, "admin", map[string]any{"Role": "ARTIST"}); w.Code != http.StatusForbidden {
		t.Fatalf("own role: %d", w.Code)
	}
	if w := testsupport.Do(t, f.router, http.MethodPut, "/admin/users/999/role", "admin", map[string]any{"Role": "LABEL"}); w.Code != http.StatusNotFound {
		t.Fatalf("missing user: %d", w.Code)
	}
}

func TestDropdownAdmin(t *testing.T) {
	f := newFixture(t)

	w := testsupport.Do(t, f.router, http.MethodPost, "/admin/metadata/labels", "admin", map[string]any{"Name": "Mango Records"})
	if w.Code/100 != 2 {
		t.Fatalf("create label: %d %s", w.Code, w.Body)
	}
	items, err := metadata.Dropdown(f.ctx, "labels")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "Mango Records" {
		t.Fatalf("labels: %+v", items)
	}
}
