// Package audiofilestore keeps uploaded objects (audio, artwork,
// agreements) in a local directory and hands out signed URLs for them.
//
// Exposure an AudioFileStore with the following methods:
//   - SignURL: a time limited URL for PUT or GET of one object key
//   - Put / Open / Exists / Remove: direct access by key
//   - ImportDir: copy every mp3 of a directory into the store
//
// Exposure Routes (see RegisterRoutes):
//   - PUT /storage/*key: upload with a signed URL
//   - GET /storage/*key: download with a signed URL
package audiofilestore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"musicportal/apperr"
	"musicportal/config"
	"musicportal/model"

	"github.com/cdfmlr/crud/log"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = log.ZoneLogger("musicportal/audiofilestore")

func init() {
	// logger.Logger.SetLevel(logrus.DebugLevel)
	logger.Logger.SetLevel(logrus.InfoLevel)
}

// AudioFileStore stores objects in a local directory.
type AudioFileStore struct {
	FileDir string
	BaseUrl string

	secret   []byte
	expiry   time.Duration
	maxBytes int64
	now      func() time.Time
}

func NewAudioFileStore(cfg config.StorageConfig) (*AudioFileStore, error) {
	if err := os.MkdirAll(cfg.FileDir, 0755); err != nil {
		return nil, fmt.Errorf("NewAudioFileStore: MkdirAll failed: %w", err)
	}

	secret := cfg.SigningSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("no storage signing secret configured, signed URLs will not survive a restart")
	}

	return &AudioFileStore{
		FileDir:  cfg.FileDir,
		BaseUrl:  strings.TrimSuffix(cfg.BaseUrl, "/"),
		secret:   []byte(secret),
		expiry:   time.Duration(cfg.URLExpiryMinutes) * time.Minute,
		maxBytes: int64(cfg.MaxUploadMB) << 20,
		now:      time.Now,
	}, nil
}

// SignedURL is a time limited permission to PUT or GET one object.
type SignedURL struct {
	Method    string
	URL       string
	Key       string
	ExpiresAt time.Time
}

// SignURL returns:
//
//	{BaseUrl}/storage/{key}?expires={unix}&sig={hmac}
func (a *AudioFileStore) SignURL(method, key string) (SignedURL, error) {
	if _, err := a.objectPath(key); err != nil {
		return SignedURL{}, err
	}
	expires := a.now().Add(a.expiry).Truncate(time.Second)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("sig", a.sign(method, key, expires.Unix()))

	return SignedURL{
		Method:    method,
		URL:       a.BaseUrl + model.ObjectURL(key) + "?" + q.Encode(),
		Key:       key,
		ExpiresAt: expires.UTC(),
	}, nil
}

// Verify checks the expires and sig query values of a signed URL.
func (a *AudioFileStore) Verify(method, key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: missing or bad expires", apperr.ErrForbidden)
	}
	if a.now().Unix() > exp {
		return fmt.Errorf("%w: signed url expired", apperr.ErrForbidden)
	}
	want := a.sign(method, key, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return fmt.Errorf("%w: bad signature", apperr.ErrForbidden)
	}
	return nil
}

func (a *AudioFileStore) sign(method, key string, expires int64) string {
	mac := hmac.New(sha256.New, a.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", strings.ToUpper(method), key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// objectPath maps a key to its file under FileDir. Keys must be
// relative slash paths without "..".
func (a *AudioFileStore) objectPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: bad object key %q", apperr.ErrInvalidInput, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("%w: bad object key %q", apperr.ErrInvalidInput, key)
	}
	return filepath.Join(a.FileDir, filepath.FromSlash(clean)), nil
}

// Put writes r to key, replacing any previous object.
// Objects larger than the configured limit are refused.
func (a *AudioFileStore) Put(key string, r io.Reader) (int64, error) {
	dst, err := a.objectPath(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("Put: MkdirAll failed: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("Put: CreateTemp failed: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	n, err := io.Copy(tmp, io.LimitReader(r, a.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("Put: write failed: %w", err)
	}
	if n > a.maxBytes {
		return 0, fmt.Errorf("%w: object larger than %d bytes", apperr.ErrInvalidInput, a.maxBytes)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("Put: Rename failed: %w", err)
	}

	logger.WithField("key", key).WithField("size", n).Debug("Put: success")
	return n, nil
}

// Open returns the object for reading. The caller closes it.
func (a *AudioFileStore) Open(key string) (*os.File, error) {
	p, err := a.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: object %s", apperr.ErrNotFound, key)
	}
	return f, err
}

func (a *AudioFileStore) Exists(key string) bool {
	p, err := a.objectPath(key)
	if err != nil {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

// Remove deletes the object. Removing a missing object is not an error.
func (a *AudioFileStore) Remove(key string) error {
	p, err := a.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	logger.WithField("key", key).Info("Remove: object removed")
	return nil
}
