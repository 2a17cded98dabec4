package catalog

import (
	"fmt"
	"strings"
	"time"

	"musicportal/apperr"
	"musicportal/model"
)

// ReleaseInput is the editable part of a release.
// Tracks are only read on create.
type ReleaseInput struct {
	Title         string
	PrimaryArtist string
	Label         string
	Publisher     string
	Category      string
	ContentType   string
	Language      string
	ReleaseDate   string
	UPC           string

	Tracks []TrackInput
}

func (in *ReleaseInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: release title is required", apperr.ErrInvalidInput)
	}
	if in.ReleaseDate != "" {
		if _, err := time.Parse("2006-01-02", in.ReleaseDate); err != nil {
			return fmt.Errorf("%w: ReleaseDate must be YYYY-MM-DD", apperr.ErrInvalidInput)
		}
	}
	for i := range in.Tracks {
		if err := in.Tracks[i].validate(); err != nil {
			return fmt.Errorf("track %d: %w", i+1, err)
		}
	}
	return nil
}

func (in *ReleaseInput) apply(r *model.Release) {
	r.Title = strings.TrimSpace(in.Title)
	r.PrimaryArtist = strings.TrimSpace(in.PrimaryArtist)
	r.Label = strings.TrimSpace(in.Label)
	r.Publisher = strings.TrimSpace(in.Publisher)
	r.Category = strings.TrimSpace(in.Category)
	r.ContentType = strings.TrimSpace(in.ContentType)
	r.Language = strings.TrimSpace(in.Language)
	r.ReleaseDate = in.ReleaseDate
	r.UPC = strings.TrimSpace(in.UPC)
}

// TrackInput is the editable part of a track. AudioURL is set by
// the upload coordinator only.
type TrackInput struct {
	Title         string
	Singer        string
	Composer      string
	Lyricist      string
	MusicDirector string
	Producer      string
	Featuring     string
	ISRC          string
	Language      string
	Explicit      bool
	CrbtStart     int
	CrbtEnd       int
}

func (in *TrackInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: track title is required", apperr.ErrInvalidInput)
	}
	if in.CrbtStart == 0 && in.CrbtEnd == 0 {
		return nil
	}
	if in.CrbtStart < 0 || in.CrbtEnd <= in.CrbtStart {
		return fmt.Errorf("%w: CRBT window needs 0 <= CrbtStart < CrbtEnd", apperr.ErrInvalidInput)
	}
	return nil
}

func (in *TrackInput) apply(t *model.Track) {
	t.Title = strings.TrimSpace(in.Title)
	t.Singer = strings.TrimSpace(in.Singer)
	t.Composer = strings.TrimSpace(in.Composer)
	t.Lyricist = strings.TrimSpace(in.Lyricist)
	t.MusicDirector = strings.TrimSpace(in.MusicDirector)
	t.Producer = strings.TrimSpace(in.Producer)
	t.Featuring = strings.TrimSpace(in.Featuring)
	t.ISRC = strings.TrimSpace(in.ISRC)
	t.Language = strings.TrimSpace(in.Language)
	t.Explicit = in.Explicit
	t.CrbtStart = in.CrbtStart
	t.CrbtEnd = in.CrbtEnd
}
