package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musicportal/apperr"
	"musicportal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists releases, their tracks and the status history.
// Writes are last-write-wins.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ReleaseFilter narrows ListReleases. Zero values match everything.
type ReleaseFilter struct {
	OwnerID uint
	Status  model.ReleaseStatus
}

func orderedTracks(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

// CreateRelease inserts r and its tracks, numbering tracks 1..N.
func (s *Store) CreateRelease(ctx context.Context, r *model.Release) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tracks := r.Tracks
		r.Tracks = nil
		if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
			return err
		}
		for i := range tracks {
			tracks[i].ReleaseID = r.ID
			tracks[i].Position = i + 1
			if err := tx.Create(&tracks[i]).Error; err != nil {
				return err
			}
		}
		r.Tracks = tracks
		return nil
	})
}

// GetRelease loads a release with its tracks in order.
func (s *Store) GetRelease(ctx context.Context, id uint) (*model.Release, error) {
	var r model.Release
	err := s.db.WithContext(ctx).
		Preload("Tracks", orderedTracks).
		First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: release %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReleases(ctx context.Context, f ReleaseFilter) ([]model.Release, error) {
	tx := s.db.WithContext(ctx).Preload("Tracks", orderedTracks)
	if f.OwnerID != 0 {
		tx = tx.Where("owner_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}

	releases := make([]model.Release, 0)
	err := tx.Order("updated_at DESC, id DESC").Find(&releases).Error
	return releases, err
}

// SaveRelease overwrites every column of the release row, zero values
// included. Tracks are not touched.
func (s *Store) SaveRelease(ctx context.Context, r *model.Release) error {
	result := s.db.WithContext(ctx).
		Model(r).
		Select("*").
		Omit(clause.Associations, "created_at").
		Updates(r)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: release %d", apperr.ErrNotFound, r.ID)
	}
	return nil
}

// DeleteRelease removes the release together with its tracks.
func (s *Store) DeleteRelease(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("release_id = ?", id).Delete(&model.Track{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Release{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: release %d", apperr.ErrNotFound, id)
		}
		return nil
	})
}

// AddTrack appends t to the end of its release.
func (s *Store) AddTrack(ctx context.Context, t *model.Track) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		err := tx.Model(&model.Track{}).
			Where("release_id = ?", t.ReleaseID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}
		t.Position = last + 1
		return tx.Create(t).Error
	})
}

func (s *Store) GetTrack(ctx context.Context, releaseID, trackID uint) (*model.Track, error) {
	var t model.Track
	err := s.db.WithContext(ctx).
		Where("release_id = ?", releaseID).
		First(&t, trackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: track %d of release %d", apperr.ErrNotFound, trackID, releaseID)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) SaveTrack(ctx context.Context, t *model.Track) error {
	result := s.db.WithContext(ctx).
		Model(t).
		Select("*").
		Omit("created_at").
		Updates(t)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: track %d", apperr.ErrNotFound, t.ID)
	}
	return nil
}

func (s *Store) DeleteTrack(ctx context.Context, t *model.Track) error {
	return s.db.WithContext(ctx).Delete(t).Error
}

// Touch bumps the release's updated_at, e.g. after a track change.
func (s *Store) Touch(ctx context.Context, releaseID uint) error {
	return s.db.WithContext(ctx).
		Model(&model.Release{}).
		Where("id = ?", releaseID).
		Update("updated_at", time.Now()).Error
}

func (s *Store) AddEvent(ctx context.Context, e *model.ReleaseEvent) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) History(ctx context.Context, releaseID uint) ([]model.ReleaseEvent, error) {
	events := make([]model.ReleaseEvent, 0)
	err := s.db.WithContext(ctx).
		Where("release_id = ?", releaseID).
		Order("id").
		Find(&events).Error
	return events, err
}
