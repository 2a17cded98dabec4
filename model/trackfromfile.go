package model

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// this file implements a Track contributor that
// reads track metadata from an audio file.

// TrackFromAudioFile reads the tags of the audio file at path.
//
// Only Title, Singer and Composer are filled. A file without a title
// tag is named after its file name.
func TrackFromAudioFile(path string) (*Track, error) {
	// open file
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	track := &Track{}
	err = track.FillFromTags(f)
	if err != nil && err != tag.ErrNoTagsFound {
		return nil, err
	}

	if track.Title == "" {
		track.Title = strings.TrimSuffix(
			filepath.Base(path), filepath.Ext(path))
	}

	return track, nil
}

// FillFromTags reads the tags from r and fills the credit fields
// that are still empty. Fields already set are left alone.
func (t *Track) FillFromTags(r io.ReadSeeker) error {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return err
	}

	if t.Title == "" {
		t.Title = m.Title()
	}
	if t.Singer == "" {
		t.Singer = m.Artist()
	}
	if t.Composer == "" {
		t.Composer = m.Composer()
	}
	return nil
}
