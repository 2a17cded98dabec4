package model

import (
	"time"

	"github.com/cdfmlr/crud/orm"
)

// ReleaseStatus is the moderation state of a Release.
type ReleaseStatus string

const (
	StatusDraft       ReleaseStatus = "DRAFT"
	StatusUnderReview ReleaseStatus = "UNDER_REVIEW"
	StatusApproved    ReleaseStatus = "APPROVED"
	StatusRejected    ReleaseStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s ReleaseStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Release is an album or single owned by an artist/label user.
//
// RejectionReason and AllowResubmission only mean something while
// Status == StatusRejected.
type Release struct {
	orm.BasicModel

	OwnerID uint `gorm:"index"`

	Title         string
	PrimaryArtist string
	Label         string
	Publisher     string
	Category      string
	ContentType   string
	Language      string
	ReleaseDate   string // YYYY-MM-DD
	UPC           string
	ArtworkURL    string

	Status            ReleaseStatus `gorm:"index"`
	RejectionReason   string
	AllowResubmission bool
	SubmittedAt       *time.Time
	ReviewedAt        *time.Time
	ReviewedByID      uint

	Tracks []Track `gorm:"constraint:OnDelete:CASCADE"`
}

// Track is an audio item of a Release.
type Track struct {
	orm.BasicModel

	ReleaseID uint `gorm:"index"`
	Position  int

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

	AudioURL string

	// caller ring-back tone clip, in seconds. Both zero means unset.
	CrbtStart int
	CrbtEnd   int
}

// ReleaseEvent is one row of a release's status history.
type ReleaseEvent struct {
	orm.BasicModel

	ReleaseID  uint `gorm:"index"`
	ActorID    uint
	Action     string
	FromStatus ReleaseStatus
	ToStatus   ReleaseStatus
	Reason     string
}
