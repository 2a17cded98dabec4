package model

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// this file defines how uploaded files are named in the object store
// and how they are referenced from Release/Track records.

// ObjectKind is the top level directory of an object key.
type ObjectKind string

const (
	ObjectAudio     ObjectKind = "audio"
	ObjectArtwork   ObjectKind = "artwork"
	ObjectAgreement ObjectKind = "agreement"
)

// StorageServePath is the route prefix objects are served under.
const StorageServePath = "/storage"

// NewObjectKey returns "{kind}/{uuid}{ext}" where ext is taken
// from filename (lower cased, ".mp3" if missing for audio).
func NewObjectKey(kind ObjectKind, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" && kind == ObjectAudio {
		ext = ".mp3"
	}
	return string(kind) + "/" + uuid.NewString() + ext
}

// ObjectURL returns the unsigned reference stored on records:
//
//	/storage/{key}
func ObjectURL(key string) string {
	return StorageServePath + "/" + strings.TrimPrefix(key, "/")
}

// ObjectKeyFromURL is the inverse of ObjectURL.
func ObjectKeyFromURL(u string) (string, bool) {
	prefix := StorageServePath + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u, prefix)
	return key, key != ""
}
