// Package catalog stores releases and their tracks and runs them
// through the review lifecycle.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"musicportal/apperr"
	"musicportal/lifecycle"
	"musicportal/metadata"
	"musicportal/model"
	"musicportal/notify"

	"github.com/cdfmlr/crud/log"
)

var logger = log.ZoneLogger("musicportal/catalog")

// Notifier delivers status change events to the owner.
type Notifier interface {
	Notify(ctx context.Context, e notify.Event) error
}

type Service struct {
	store    *Store
	notifier Notifier
	now      func() time.Time
}

func NewService(store *Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, now: time.Now}
}

func (s *Service) Store() *Store {
	return s.store
}

// visible hides other owners' releases from non-admins.
func visible(actor *model.User, r *model.Release) error {
	if actor == nil {
		return apperr.ErrUnauthorized
	}
	if actor.IsAdmin() || r.OwnerID == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: release %d", apperr.ErrNotFound, r.ID)
}

func requireAdmin(actor *model.User) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin only", apperr.ErrForbidden)
	}
	return nil
}

func (s *Service) load(ctx context.Context, actor *model.User, id uint) (*model.Release, error) {
	r, err := s.store.GetRelease(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visible(actor, r); err != nil {
		return nil, err
	}
	return r, nil
}

// loadEditable loads a release the actor may change right now.
func (s *Service) loadEditable(ctx context.Context, actor *model.User, id uint) (*model.Release, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanEdit(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Create stores a new DRAFT release owned by actor.
func (s *Service) Create(ctx context.Context, actor *model.User, in ReleaseInput) (*model.Release, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkTitle(ctx, actor.ID, in.Title); err != nil {
		return nil, err
	}

	r := &model.Release{OwnerID: actor.ID, Status: model.StatusDraft}
	in.apply(r)
	for i := range in.Tracks {
		var t model.Track
		in.Tracks[i].apply(&t)
		r.Tracks = append(r.Tracks, t)
	}

	if err := s.store.CreateRelease(ctx, r); err != nil {
		return nil, fmt.Errorf("create release: %w", err)
	}
	s.record(ctx, actor, r, lifecycle.ActionCreate, "", model.StatusDraft, "")

	logger.WithField("release", r.ID).
		WithField("owner", actor.ID).
		WithField("tracks", len(r.Tracks)).
		Info("release created")
	return r, nil
}

// checkTitle refuses a second release of the owner with the same title.
func (s *Service) checkTitle(ctx context.Context, ownerID uint, title string) error {
	exists, err := metadata.ReleaseTitleExists(ctx, ownerID, title)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: release %q already exists", apperr.ErrConflict, strings.TrimSpace(title))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, actor *model.User, id uint) (*model.Release, error) {
	return s.load(ctx, actor, id)
}

// List returns the actor's releases; admins may list any owner.
func (s *Service) List(ctx context.Context, actor *model.User, f ReleaseFilter) ([]model.Release, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		f.OwnerID = actor.ID
	}
	return s.store.ListReleases(ctx, f)
}

// Update overwrites the release fields. Tracks are edited separately.
func (s *Service) Update(ctx context.Context, actor *model.User, id uint, in ReleaseInput) (*model.Release, error) {
	in.Tracks = nil
	if err := in.validate(); err != nil {
		return nil, err
	}
	r, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(in.Title); r.Title != title {
		if err := s.checkTitle(ctx, r.OwnerID, title); err != nil {
			return nil, err
		}
	}

	in.apply(r)
	if err := s.store.SaveRelease(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, actor, r, lifecycle.ActionEdit, r.Status, r.Status, "")
	return r, nil
}

// Delete removes a release and its tracks. Owners may only delete
// releases they can still edit; admins may delete any.
func (s *Service) Delete(ctx context.Context, actor *model.User, id uint) error {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if err := lifecycle.CanEdit(r); err != nil {
			return err
		}
	}
	if err := s.store.DeleteRelease(ctx, id); err != nil {
		return err
	}

	logger.WithField("release", id).WithField("actor", actor.ID).Info("release deleted")
	return nil
}

// Submit sends the release to the admins.
func (s *Service) Submit(ctx context.Context, actor *model.User, id uint) (*model.Release, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := r.Status
	if err := lifecycle.SubmitForReview(r); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	r.SubmittedAt = &now

	if err := s.store.SaveRelease(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, actor, r, lifecycle.ActionSubmit, from, r.Status, "")
	s.notify(ctx, notify.EventReleaseSubmitted, r)
	return r, nil
}

func (s *Service) Approve(ctx context.Context, admin *model.User, id uint) (*model.Release, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	r, err := s.store.GetRelease(ctx, id)
	if err != nil {
		return nil, err
	}
	from := r.Status
	if err := lifecycle.Approve(r); err != nil {
		return nil, err
	}
	s.stampReview(r, admin)

	if err := s.store.SaveRelease(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, admin, r, lifecycle.ActionApprove, from, r.Status, "")
	s.notify(ctx, notify.EventReleaseApproved, r)
	return r, nil
}

func (s *Service) Reject(ctx context.Context, admin *model.User, id uint, reason string, allowResubmission bool) (*model.Release, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	r, err := s.store.GetRelease(ctx, id)
	if err != nil {
		return nil, err
	}
	from := r.Status
	if err := lifecycle.Reject(r, reason, allowResubmission); err != nil {
		return nil, err
	}
	s.stampReview(r, admin)

	if err := s.store.SaveRelease(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, admin, r, lifecycle.ActionReject, from, r.Status, r.RejectionReason)
	s.notify(ctx, notify.EventReleaseRejected, r)
	return r, nil
}

func (s *Service) stampReview(r *model.Release, admin *model.User) {
	now := s.now().UTC()
	r.ReviewedAt = &now
	r.ReviewedByID = admin.ID
}

func (s *Service) AddTrack(ctx context.Context, actor *model.User, releaseID uint, in TrackInput) (*model.Track, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.loadEditable(ctx, actor, releaseID); err != nil {
		return nil, err
	}

	t := &model.Track{ReleaseID: releaseID}
	in.apply(t)
	if err := s.store.AddTrack(ctx, t); err != nil {
		return nil, err
	}
	s.touch(ctx, releaseID)
	return t, nil
}

func (s *Service) UpdateTrack(ctx context.Context, actor *model.User, releaseID, trackID uint, in TrackInput) (*model.Track, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t, err := s.editableTrack(ctx, actor, releaseID, trackID)
	if err != nil {
		return nil, err
	}

	in.apply(t)
	if err := s.store.SaveTrack(ctx, t); err != nil {
		return nil, err
	}
	s.touch(ctx, releaseID)
	return t, nil
}

func (s *Service) DeleteTrack(ctx context.Context, actor *model.User, releaseID, trackID uint) error {
	r, err := s.load(ctx, actor, releaseID)
	if err != nil {
		return err
	}
	if err := lifecycle.CanRemoveTrack(r); err != nil {
		return err
	}
	t, err := s.store.GetTrack(ctx, releaseID, trackID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTrack(ctx, t); err != nil {
		return err
	}
	s.touch(ctx, releaseID)
	return nil
}

// LinkTrackAudio stores the uploaded audio reference on the track.
// backfill, if not nil, may fill empty credits before saving.
func (s *Service) LinkTrackAudio(ctx context.Context, actor *model.User, releaseID, trackID uint, audioURL string, backfill func(*model.Track)) (*model.Track, error) {
	t, err := s.editableTrack(ctx, actor, releaseID, trackID)
	if err != nil {
		return nil, err
	}

	t.AudioURL = audioURL
	if backfill != nil {
		backfill(t)
	}
	if err := s.store.SaveTrack(ctx, t); err != nil {
		return nil, err
	}
	s.touch(ctx, releaseID)
	return t, nil
}

// LinkArtwork stores the uploaded cover art reference on the release.
func (s *Service) LinkArtwork(ctx context.Context, actor *model.User, releaseID uint, artworkURL string) (*model.Release, error) {
	r, err := s.loadEditable(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	r.ArtworkURL = artworkURL
	if err := s.store.SaveRelease(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CheckEditable reports whether actor may change the release now.
func (s *Service) CheckEditable(ctx context.Context, actor *model.User, releaseID uint) error {
	_, err := s.loadEditable(ctx, actor, releaseID)
	return err
}

func (s *Service) History(ctx context.Context, actor *model.User, id uint) ([]model.ReleaseEvent, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

func (s *Service) editableTrack(ctx context.Context, actor *model.User, releaseID, trackID uint) (*model.Track, error) {
	if _, err := s.loadEditable(ctx, actor, releaseID); err != nil {
		return nil, err
	}
	return s.store.GetTrack(ctx, releaseID, trackID)
}

func (s *Service) touch(ctx context.Context, releaseID uint) {
	if err := s.store.Touch(ctx, releaseID); err != nil {
		logger.WithContext(ctx).WithField("release", releaseID).WithError(err).Warn("touch release failed")
	}
}

// record appends to the release history. History is informational:
// a failed write is logged and the action stands.
func (s *Service) record(ctx context.Context, actor *model.User, r *model.Release, action lifecycle.Action, from, to model.ReleaseStatus, reason string) {
	e := &model.ReleaseEvent{
		ReleaseID:  r.ID,
		ActorID:    actor.ID,
		Action:     string(action),
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	}
	if err := s.store.AddEvent(ctx, e); err != nil {
		logger.WithContext(ctx).
			WithField("release", r.ID).
			WithField("action", action).
			WithError(err).
			Error("record release event failed")
	}
}

func (s *Service) notify(ctx context.Context, eventType string, r *model.Release) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, notify.Event{
		Type:      eventType,
		OwnerID:   r.OwnerID,
		SubjectID: r.ID,
		Kind:      "release",
		Status:    string(r.Status),
		Reason:    r.RejectionReason,
	})
	if err != nil {
		logger.WithContext(ctx).
			WithField("release", r.ID).
			WithField("event", eventType).
			WithError(err).
			Warn("notify failed")
	}
}
