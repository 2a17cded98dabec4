// Package upload coordinates direct-to-storage uploads: it hands out
// presigned URLs and, once the bytes are stored, links the object to
// a track or release.
package upload

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"time"

	"musicportal/apperr"
	"musicportal/audiofilestore"
	"musicportal/catalog"
	"musicportal/config"
	"musicportal/model"

	"github.com/cdfmlr/crud/log"
	"github.com/dhowden/tag"
)

var logger = log.ZoneLogger("musicportal/upload")

const EnvTagBackfill = "MUSICPORTAL_TAG_BACKFILL"

// TagBackfill == true: fill empty track credits from the ID3 tags of
// linked audio.
//
// set by env MUSICPORTAL_TAG_BACKFILL
var TagBackfill bool = true

func init() {
	TagBackfill = config.EnvBool(EnvTagBackfill, TagBackfill)
}

type objectRule struct {
	exts         []string
	contentTypes []string
}

var rules = map[model.ObjectKind]objectRule{
	model.ObjectAudio: {
		exts:         []string{".mp3"},
		contentTypes: []string{"audio/mpeg", "audio/mp3"},
	},
	model.ObjectArtwork: {
		exts:         []string{".jpg", ".jpeg", ".png"},
		contentTypes: []string{"image/jpeg", "image/png"},
	},
	model.ObjectAgreement: {
		exts:         []string{".pdf"},
		contentTypes: []string{"application/pdf"},
	},
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type Coordinator struct {
	store   *audiofilestore.AudioFileStore
	catalog *catalog.Service
	artwork config.ArtworkConfig
}

func New(store *audiofilestore.AudioFileStore, releases *catalog.Service, artwork config.ArtworkConfig) *Coordinator {
	return &Coordinator{store: store, catalog: releases, artwork: artwork}
}

type PresignRequest struct {
	Kind        model.ObjectKind
	FileName    string
	ContentType string
}

// PresignResponse tells the client where to PUT the bytes, and the
// Key to link afterwards.
type PresignResponse struct {
	Key       string
	Method    string
	UploadURL string
	ObjectURL string
	ExpiresAt time.Time
}

// Presign validates the announced file and returns a signed PUT URL
// for a fresh object key.
func (u *Coordinator) Presign(actor *model.User, req PresignRequest) (*PresignResponse, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}
	rule, ok := rules[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown upload kind %q", apperr.ErrInvalidInput, req.Kind)
	}
	ext := strings.ToLower(path.Ext(req.FileName))
	if !contains(rule.exts, ext) {
		return nil, fmt.Errorf("%w: %s upload needs one of %v, got %q",
			apperr.ErrInvalidInput, req.Kind, rule.exts, req.FileName)
	}
	if ct := strings.ToLower(strings.TrimSpace(req.ContentType)); ct != "" && !contains(rule.contentTypes, ct) {
		return nil, fmt.Errorf("%w: content type %q not allowed for %s",
			apperr.ErrInvalidInput, req.ContentType, req.Kind)
	}

	key := model.NewObjectKey(req.Kind, req.FileName)
	signed, err := u.store.SignURL("PUT", key)
	if err != nil {
		return nil, err
	}

	logger.WithField("user", actor.ID).WithField("key", key).Debug("Presign: issued")
	return &PresignResponse{
		Key:       key,
		Method:    signed.Method,
		UploadURL: signed.URL,
		ObjectURL: model.ObjectURL(key),
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// storedObject checks that key names an uploaded object of kind.
func (u *Coordinator) storedObject(kind model.ObjectKind, key string) error {
	if !strings.HasPrefix(key, string(kind)+"/") {
		return fmt.Errorf("%w: %q is not a %s object", apperr.ErrInvalidInput, key, kind)
	}
	if !u.store.Exists(key) {
		return fmt.Errorf("%w: object %s has not been uploaded", apperr.ErrNotFound, key)
	}
	return nil
}

// LinkTrackAudio attaches the uploaded audio to a track.
func (u *Coordinator) LinkTrackAudio(ctx context.Context, actor *model.User, releaseID, trackID uint, key string) (*model.Track, error) {
	if err := u.storedObject(model.ObjectAudio, key); err != nil {
		return nil, err
	}

	var backfill func(*model.Track)
	if TagBackfill {
		tags, err := u.readTags(key)
		if err != nil {
			logger.WithContext(ctx).WithField("key", key).WithError(err).
				Warn("LinkTrackAudio: tags not readable, skip backfill")
		} else {
			backfill = func(t *model.Track) {
				if t.Title == "" {
					t.Title = tags.Title
				}
				if t.Singer == "" {
					t.Singer = tags.Singer
				}
				if t.Composer == "" {
					t.Composer = tags.Composer
				}
			}
		}
	}

	t, err := u.catalog.LinkTrackAudio(ctx, actor, releaseID, trackID, model.ObjectURL(key), backfill)
	if err != nil {
		return nil, err
	}

	logger.WithField("release", releaseID).WithField("track", trackID).WithField("key", key).
		Info("LinkTrackAudio: success")
	return t, nil
}

func (u *Coordinator) readTags(key string) (*model.Track, error) {
	f, err := u.store.Open(key)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tags := &model.Track{}
	if err := tags.FillFromTags(f); err != nil && !errors.Is(err, tag.ErrNoTagsFound) {
		return nil, err
	}
	return tags, nil
}

// LinkArtwork validates the uploaded image and sets it as the cover
// of the release. Invalid artwork is removed from the store.
func (u *Coordinator) LinkArtwork(ctx context.Context, actor *model.User, releaseID uint, key string) (*model.Release, error) {
	if err := u.storedObject(model.ObjectArtwork, key); err != nil {
		return nil, err
	}
	if err := u.catalog.CheckEditable(ctx, actor, releaseID); err != nil {
		return nil, err
	}

	if err := u.checkArtwork(key); err != nil {
		if rmErr := u.store.Remove(key); rmErr != nil {
			logger.WithField("key", key).WithError(rmErr).Error("LinkArtwork: remove invalid artwork failed")
		}
		return nil, err
	}

	r, err := u.catalog.LinkArtwork(ctx, actor, releaseID, model.ObjectURL(key))
	if err != nil {
		return nil, err
	}

	logger.WithField("release", releaseID).WithField("key", key).Info("LinkArtwork: success")
	return r, nil
}

// checkArtwork reads only the image header.
func (u *Coordinator) checkArtwork(key string) error {
	f, err := u.store.Open(key)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: artwork is not a JPEG or PNG image", apperr.ErrInvalidInput)
	}
	if format != "jpeg" && format != "png" {
		return fmt.Errorf("%w: artwork format %s not allowed", apperr.ErrInvalidInput, format)
	}
	if cfg.Width != cfg.Height {
		return fmt.Errorf("%w: artwork must be square, got %dx%d", apperr.ErrInvalidInput, cfg.Width, cfg.Height)
	}
	if cfg.Width < u.artwork.MinPixels || cfg.Width > u.artwork.MaxPixels {
		return fmt.Errorf("%w: artwork must be between %d and %d pixels, got %d",
			apperr.ErrInvalidInput, u.artwork.MinPixels, u.artwork.MaxPixels, cfg.Width)
	}
	return nil
}
