// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"musicportal/auth"
	"musicportal/config"
	"musicportal/metadata"
	"musicportal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewDB opens a migrated sqlite database under t.TempDir().
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := metadata.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "portal.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = metadata.Close(db) })
	return db
}

// Frame is one ID3v2 text frame, e.g. {"TIT2", "Blue Hour"}.
type Frame struct {
	ID   string
	Text string
}

// MP3 returns an ID3v2.3 tag with the given text frames followed by
// a few bytes of fake MPEG audio.
func MP3(frames ...Frame) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		payload := append([]byte{0x00}, []byte(f.Text)...) // ISO-8859-1
		body.WriteString(f.ID)
		_ = binary.Write(&body, binary.BigEndian, uint32(len(payload)))
		body.Write([]byte{0x00, 0x00})
		body.Write(payload)
	}

	size := body.Len()
	var out bytes.Buffer
	out.WriteString("ID3")
	out.Write([]byte{0x03, 0x00, 0x00})
	// syncsafe size
	out.Write([]byte{
		byte(size >> 21 & 0x7f),
		byte(size >> 14 & 0x7f),
		byte(size >> 7 & 0x7f),
		byte(size & 0x7f),
	})
	out.Write(body.Bytes())
	out.Write([]byte{0xff, 0xfb, 0x90, 0x64})
	out.Write(make([]byte, 512))
	return out.Bytes()
}

// PNG returns an encoded w x h image.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// UserHeader selects the acting user in routers built with ActAs.
const UserHeader = "X-Test-User"

// ActAs authenticates requests by the UserHeader value instead of a
// session token. Unknown or missing values leave the request anonymous.
func ActAs(users map[string]*model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, ok := users[c.GetHeader(UserHeader)]; ok {
			auth.SetUser(c, u)
		}
		c.Next()
	}
}

// Do sends body (JSON encoded unless it is []byte or nil) as user and
// returns the recorded response.
func Do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if _, raw := body.([]byte); !raw && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the response body into v.
func Decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}
