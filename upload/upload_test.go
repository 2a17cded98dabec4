package upload_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"musicportal/apperr"
	"musicportal/audiofilestore"
	"musicportal/catalog"
	"musicportal/config"
	"musicportal/model"
	"musicportal/testsupport"
	"musicportal/upload"

	"github.com/gin-gonic/gin"
)

type fixture struct {
	ctx     context.Context
	store   *audiofilestore.AudioFileStore
	catalog *catalog.Service
	up      *upload.Coordinator
	owner   *model.User
	other   *model.User
	release *model.Release
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testsupport.NewDB(t)

	store, err := audiofilestore.NewAudioFileStore(config.StorageConfig{
		FileDir:          filepath.Join(t.TempDir(), "objects"),
		SigningSecret:    "test",
		URLExpiryMinutes: 5,
		MaxUploadMB:      1,
	})
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		ctx:     context.Background(),
		store:   store,
		catalog: catalog.NewService(catalog.NewStore(db), nil),
		owner:   &model.User{Email: "owner@portal.test", Role: model.RoleArtist},
		other:   &model.User{Email: "other@portal.test", Role: model.RoleArtist},
	}
	for _, u := range []*model.User{f.owner, f.other} {
		if err := db.Create(u).Error; err != nil {
			t.Fatal(err)
		}
	}
	f.up = upload.New(store, f.catalog, config.ArtworkConfig{MinPixels: 8, MaxPixels: 32})

	f.release, err = f.catalog.Create(f.ctx, f.owner, catalog.ReleaseInput{
		Title:  "Monsoon",
		Tracks: []catalog.TrackInput{{Title: "Rain"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) put(t *testing.T, kind model.ObjectKind, name string, data []byte) string {
	t.Helper()
	key := model.NewObjectKey(kind, name)
	if _, err := f.store.Put(key, bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestPresign(t *testing.T) {
	f := newFixture(t)

	resp, err := f.up.Presign(f.owner, upload.PresignRequest{Kind: model.ObjectAudio, FileName: "Rain.MP3", ContentType: "audio/mpeg"})
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}
	if !strings.HasPrefix(resp.Key, "audio/") || resp.Method != http.MethodPut || resp.ObjectURL != model.ObjectURL(resp.Key) {
		t.Fatalf("unexpected response: %+v", resp)
	}
	u, err := url.Parse(resp.UploadURL)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.Verify(http.MethodPut, resp.Key, u.Query().Get("expires"), u.Query().Get("sig")); err != nil {
		t.Fatalf("upload url does not verify: %v", err)
	}

	bad := []upload.PresignRequest{
		{Kind: "video", FileName: "a.mp4"},
		{Kind: model.ObjectAudio, FileName: "a.wav"},
		{Kind: model.ObjectAudio, FileName: "a.mp3", ContentType: "image/png"},
		{Kind: model.ObjectArtwork, FileName: "cover.gif"},
		{Kind: model.ObjectArtwork, FileName: "cover"},
	}
	for _, req := range bad {
		if _, err := f.up.Presign(f.owner, req); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Fatalf("Presign(%+v): expected invalid input, got %v", req, err)
		}
	}
	if _, err := f.up.Presign(nil, upload.PresignRequest{Kind: model.ObjectArtwork, FileName: "c.png"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("anonymous presign: %v", err)
	}
	if _, err := f.up.Presign(f.owner, upload.PresignRequest{Kind: model.ObjectAgreement, FileName: "deal.pdf"}); err != nil {
		t.Fatalf("agreement presign: %v", err)
	}
}

func TestLinkTrackAudioBackfillsTags(t *testing.T) {
	f := newFixture(t)
	key := f.put(t, model.ObjectAudio, "rain.mp3", testsupport.MP3(
		testsupport.Frame{ID: "TIT2", Text: "Tagged Title"},
		testsupport.Frame{ID: "TPE1", Text: "Asha"},
		testsupport.Frame{ID: "TCOM", Text: "Ravi"},
	))
	trackID := f.release.Tracks[0].ID

	tr, err := f.up.LinkTrackAudio(f.ctx, f.owner, f.release.ID, trackID, key)
	if err != nil {
		t.Fatalf("LinkTrackAudio: %v", err)
	}
	if tr.AudioURL != model.ObjectURL(key) {
		t.Fatalf("unexpected AudioURL %q", tr.AudioURL)
	}
	if tr.Title != "Rain" || tr.Singer != "Asha" || tr.Composer != "Ravi" {
		t.Fatalf("unexpected credits: %+v", tr)
	}

	got, _ := f.catalog.Get(f.ctx, f.owner, f.release.ID)
	if got.Tracks[0].Singer != "Asha" || got.Tracks[0].AudioURL != model.ObjectURL(key) {
		t.Fatalf("link not persisted: %+v", got.Tracks[0])
	}
}

func TestLinkTrackAudioWithoutBackfill(t *testing.T) {
	f := newFixture(t)
	upload.TagBackfill = false
	t.Cleanup(func() { upload.TagBackfill = true })

	key := f.put(t, model.ObjectAudio, "rain.mp3", testsupport.MP3(testsupport.Frame{ID: "TPE1", Text: "Asha"}))
	tr, err := f.up.LinkTrackAudio(f.ctx, f.owner, f.release.ID, f.release.Tracks[0].ID, key)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Singer != "" {
		t.Fatalf("credits filled with backfill off: %+v", tr)
	}
}

func TestLinkTrackAudioErrors(t *testing.T) {
	f := newFixture(t)
	trackID := f.release.Tracks[0].ID
	key := f.put(t, model.ObjectAudio, "rain.mp3", make([]byte, 600))
	art := f.put(t, model.ObjectArtwork, "c.png", testsupport.PNG(t, 16, 16))

	cases := []struct {
		name  string
		actor *model.User
		track uint
		key   string
		want  error
	}{
		{"missing object", f.owner, trackID, "audio/none.mp3", apperr.ErrNotFound},
		{"wrong kind", f.owner, trackID, art, apperr.ErrInvalidInput},
		{"foreign release", f.other, trackID, key, apperr.ErrNotFound},
		{"missing track", f.owner, trackID + 100, key, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := f.up.LinkTrackAudio(f.ctx, tc.actor, f.release.ID, tc.track, tc.key); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestLinkArtwork(t *testing.T) {
	f := newFixture(t)

	good := f.put(t, model.ObjectArtwork, "cover.png", testsupport.PNG(t, 16, 16))
	r, err := f.up.LinkArtwork(f.ctx, f.owner, f.release.ID, good)
	if err != nil {
		t.Fatalf("LinkArtwork: %v", err)
	}
	if r.ArtworkURL != model.ObjectURL(good) {
		t.Fatalf("unexpected ArtworkURL %q", r.ArtworkURL)
	}

	invalid := map[string][]byte{
		"not square": testsupport.PNG(t, 16, 12),
		"too small":  testsupport.PNG(t, 4, 4),
		"too large":  testsupport.PNG(t, 40, 40),
		"not image":  []byte("definitely not a png"),
	}
	for name, data := range invalid {
		key := f.put(t, model.ObjectArtwork, "bad.png", data)
		if _, err := f.up.LinkArtwork(f.ctx, f.owner, f.release.ID, key); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
		if f.store.Exists(key) {
			t.Fatalf("%s: invalid artwork kept in store", name)
		}
	}

	got, _ := f.catalog.Get(f.ctx, f.owner, f.release.ID)
	if got.ArtworkURL != model.ObjectURL(good) {
		t.Fatalf("artwork replaced by invalid upload: %q", got.ArtworkURL)
	}

	foreign := f.put(t, model.ObjectArtwork, "cover.png", testsupport.PNG(t, 16, 16))
	if _, err := f.up.LinkArtwork(f.ctx, f.other, f.release.ID, foreign); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign release: %v", err)
	}
	if !f.store.Exists(foreign) {
		t.Fatal("valid artwork removed on permission failure")
	}
}

func TestHTTPUploadFlow(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.Use(testsupport.ActAs(map[string]*model.User{"owner": f.owner}))
	f.store.RegisterRoutes(r)
	f.up.RegisterRoutes(r)

	w := testsupport.Do(t, r, http.MethodPost, "/upload/presign", "owner", map[string]any{
		"Kind": "artwork", "FileName": "cover.png", "ContentType": "image/png",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("presign: %d %s", w.Code, w.Body)
	}
	var presigned upload.PresignResponse
	testsupport.Decode(t, w, &presigned)

	u, _ := url.Parse(presigned.UploadURL)
	if w := testsupport.Do(t, r, http.MethodPut, u.RequestURI(), "", testsupport.PNG(t, 16, 16)); w.Code != http.StatusCreated {
		t.Fatalf("storage put: %d %s", w.Code, w.Body)
	}

	path := "/upload/releases/" + itoa(f.release.ID) + "/artwork"
	if w := testsupport.Do(t, r, http.MethodPut, path, "owner", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing key: %d", w.Code)
	}
	w = testsupport.Do(t, r, http.MethodPut, path, "owner", map[string]any{"Key": presigned.Key})
	if w.Code != http.StatusOK {
		t.Fatalf("link artwork: %d %s", w.Code, w.Body)
	}
	var linked struct{ Release model.Release }
	testsupport.Decode(t, w, &linked)
	if linked.Release.ArtworkURL != presigned.ObjectURL {
		t.Fatalf("unexpected release: %+v", linked.Release)
	}

	if w := testsupport.Do(t, r, http.MethodPost, "/upload/presign", "", map[string]any{
		"Kind": "audio", "FileName": "a.mp3",
	}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous presign: %d", w.Code)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
