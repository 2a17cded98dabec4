package model

import (
	"errors"
	"net/url"
	"strings"

	"github.com/cdfmlr/crud/orm"
	"gorm.io/gorm"
)

// RequestStatus is the admin-handled state of an auxiliary request.
type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestProcessing RequestStatus = "PROCESSING"
	RequestCompleted  RequestStatus = "COMPLETED"
	RequestRejected   RequestStatus = "REJECTED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestProcessing, RequestCompleted, RequestRejected:
		return true
	}
	return false
}

// Terminal statuses accept no further updates.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestRejected
}

// RequestBase is embedded by every request kind.
type RequestBase struct {
	orm.BasicModel

	OwnerID   uint          `gorm:"index"`
	Status    RequestStatus `gorm:"index"`
	AdminNote string
}

// ServiceRequest is implemented by pointers to the request kinds.
type ServiceRequest interface {
	Request() *RequestBase
	Validate() error
}

// ReleaseRef is implemented by request kinds that point at a release.
// A zero ID means no release.
type ReleaseRef interface {
	ReferencedRelease() uint
}

// Completer is implemented by request kinds that have
// an effect once an admin completes them.
type Completer interface {
	OnCompleted(tx *gorm.DB) error
}

type YoutubeClaim struct {
	RequestBase

	ReleaseID uint
	TrackID   uint
	VideoURL  string
	Notes     string
}

func (r *YoutubeClaim) Request() *RequestBase { return &r.RequestBase }

func (r *YoutubeClaim) ReferencedRelease() uint { return r.ReleaseID }

func (r *YoutubeClaim) Validate() error {
	if r.ReleaseID == 0 {
		return errors.New("ReleaseID is required")
	}
	return requireURL("VideoURL", r.VideoURL)
}

// YoutubeOAC asks for an Official Artist Channel.
type YoutubeOAC struct {
	RequestBase

	ArtistName      string
	ChannelName     string
	ChannelURL      string
	TopicChannelURL string
}

func (r *YoutubeOAC) Request() *RequestBase { return &r.RequestBase }

func (r *YoutubeOAC) Validate() error {
	if strings.TrimSpace(r.ArtistName) == "" {
		return errors.New("ArtistName is required")
	}
	if err := requireURL("ChannelURL", r.ChannelURL); err != nil {
		return err
	}
	if r.TopicChannelURL != "" {
		return requireURL("TopicChannelURL", r.TopicChannelURL)
	}
	return nil
}

type SocialLink struct {
	RequestBase

	Platform   string
	ProfileURL string
	ReleaseID  uint
}

func (r *SocialLink) Request() *RequestBase { return &r.RequestBase }

func (r *SocialLink) ReferencedRelease() uint { return r.ReleaseID }

func (r *SocialLink) Validate() error {
	if strings.TrimSpace(r.Platform) == "" {
		return errors.New("Platform is required")
	}
	return requireURL("ProfileURL", r.ProfileURL)
}

// ProfileLink maps a release onto an existing artist profile
// on a streaming platform.
type ProfileLink struct {
	RequestBase

	Platform   string
	ArtistName string
	ProfileURL string
	ReleaseID  uint
}

func (r *ProfileLink) Request() *RequestBase { return &r.RequestBase }

func (r *ProfileLink) ReferencedRelease() uint { return r.ReleaseID }

func (r *ProfileLink) Validate() error {
	if strings.TrimSpace(r.Platform) == "" {
		return errors.New("Platform is required")
	}
	if strings.TrimSpace(r.ArtistName) == "" {
		return errors.New("ArtistName is required")
	}
	if r.ReleaseID == 0 {
		return errors.New("ReleaseID is required")
	}
	return requireURL("ProfileURL", r.ProfileURL)
}

type LabelPublisher struct {
	RequestBase

	LabelName     string
	PublisherName string
}

func (r *LabelPublisher) Request() *RequestBase { return &r.RequestBase }

func (r *LabelPublisher) Validate() error {
	if strings.TrimSpace(r.LabelName) == "" && strings.TrimSpace(r.PublisherName) == "" {
		return errors.New("one of LabelName and PublisherName is required")
	}
	return nil
}

// OnCompleted adds the requested names to the dropdowns.
func (r *LabelPublisher) OnCompleted(tx *gorm.DB) error {
	if name := strings.TrimSpace(r.LabelName); name != "" {
		if err := tx.Where(Label{Name: name}).FirstOrCreate(&Label{}).Error; err != nil {
			return err
		}
	}
	if name := strings.TrimSpace(r.PublisherName); name != "" {
		if err := tx.Where(Publisher{Name: name}).FirstOrCreate(&Publisher{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Agreement is a signed distribution agreement uploaded by the user.
type Agreement struct {
	RequestBase

	Title       string
	SignerName  string
	DocumentURL string
}

func (r *Agreement) Request() *RequestBase { return &r.RequestBase }

func (r *Agreement) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("Title is required")
	}
	if strings.TrimSpace(r.SignerName) == "" {
		return errors.New("SignerName is required")
	}
	if strings.TrimSpace(r.DocumentURL) == "" {
		return errors.New("DocumentURL is required")
	}
	return nil
}

func requireURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New(field + " is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New(field + " is not a valid http(s) url")
	}
	return nil
}
