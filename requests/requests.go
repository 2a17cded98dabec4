// Package requests serves the auxiliary request workflows (YouTube
// claims, profile links, agreements, ...). Every kind shares the same
// PENDING -> PROCESSING -> COMPLETED/REJECTED handling.
package requests

import (
	"context"
	"errors"
	"fmt"

	"musicportal/apperr"
	"musicportal/lifecycle"
	"musicportal/model"
	"musicportal/notify"

	"github.com/cdfmlr/crud/log"
	"gorm.io/gorm"
)

var logger = log.ZoneLogger("musicportal/requests")

type Notifier interface {
	Notify(ctx context.Context, e notify.Event) error
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	OwnerID uint
	Status  model.RequestStatus
}

// Kind stores and serves one request type T.
type Kind[T any, PT interface {
	*T
	model.ServiceRequest
}] struct {
	name     string
	db       *gorm.DB
	notifier Notifier
}

func NewKind[T any, PT interface {
	*T
	model.ServiceRequest
}](name string, db *gorm.DB, notifier Notifier) *Kind[T, PT] {
	return &Kind[T, PT]{name: name, db: db, notifier: notifier}
}

// Name is the path segment, e.g. "youtube-claims".
func (k *Kind[T, PT]) Name() string {
	return k.name
}

// Create stores req as a new PENDING request of actor.
func (k *Kind[T, PT]) Create(ctx context.Context, actor *model.User, req PT) error {
	if actor == nil {
		return apperr.ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if ref, ok := any(req).(model.ReleaseRef); ok && ref.ReferencedRelease() != 0 {
		if err := k.checkRelease(ctx, actor, ref.ReferencedRelease()); err != nil {
			return err
		}
	}

	base := req.Request()
	base.ID = 0
	base.OwnerID = actor.ID
	base.Status = model.RequestPending
	base.AdminNote = ""

	if err := k.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create %s request: %w", k.name, err)
	}

	logger.WithField("kind", k.name).
		WithField("id", base.ID).
		WithField("owner", actor.ID).
		Info("request created")
	return nil
}

// checkRelease hides releases of other owners the same way the
// catalog does.
func (k *Kind[T, PT]) checkRelease(ctx context.Context, actor *model.User, releaseID uint) error {
	var r model.Release
	err := k.db.WithContext(ctx).Select("id", "owner_id").First(&r, releaseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && r.OwnerID != actor.ID && !actor.IsAdmin()) {
		return fmt.Errorf("%w: release %d", apperr.ErrNotFound, releaseID)
	}
	if err != nil {
		return fmt.Errorf("look up release %d: %w", releaseID, err)
	}
	return nil
}

func (k *Kind[T, PT]) List(ctx context.Context, f Filter) ([]T, error) {
	tx := k.db.WithContext(ctx)
	if f.OwnerID != 0 {
		tx = tx.Where("owner_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}

	items := make([]T, 0)
	err := tx.Order("id DESC").Find(&items).Error
	return items, err
}

func (k *Kind[T, PT]) find(tx *gorm.DB, id uint) (PT, error) {
	req := PT(new(T))
	err := tx.First(req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s request %d", apperr.ErrNotFound, k.name, id)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns the request if actor owns it or is an admin.
func (k *Kind[T, PT]) Get(ctx context.Context, actor *model.User, id uint) (PT, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthorized
	}
	req, err := k.find(k.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && req.Request().OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: %s request %d", apperr.ErrNotFound, k.name, id)
	}
	return req, nil
}

// Withdraw deletes a request of actor that no admin has picked up yet.
func (k *Kind[T, PT]) Withdraw(ctx context.Context, actor *model.User, id uint) error {
	req, err := k.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	base := req.Request()
	if base.OwnerID != actor.ID {
		return fmt.Errorf("%w: only the owner can withdraw a request", apperr.ErrForbidden)
	}
	if base.Status != model.RequestPending {
		return &lifecycle.TransitionError{
			Action: "withdraw",
			From:   string(base.Status),
			Hint:   "only pending requests can be withdrawn",
		}
	}

	if err := k.db.WithContext(ctx).Delete(req).Error; err != nil {
		return err
	}
	logger.WithField("kind", k.name).WithField("id", id).Info("request withdrawn")
	return nil
}

// Update moves a request to status to. Completing a request runs its
// OnCompleted hook in the same transaction.
func (k *Kind[T, PT]) Update(ctx context.Context, admin *model.User, id uint, to model.RequestStatus, note string) (PT, error) {
	if !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", apperr.ErrForbidden)
	}

	var req PT
	err := k.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = k.find(tx, id)
		if err != nil {
			return err
		}
		base := req.Request()
		if err := lifecycle.UpdateRequest(base, to, note); err != nil {
			return err
		}
		err = tx.Model(req).
			Select("status", "admin_note").
			Updates(map[string]any{"status": base.Status, "admin_note": base.AdminNote}).Error
		if err != nil {
			return err
		}
		if c, ok := any(req).(model.Completer); ok && base.Status == model.RequestCompleted {
			if err := c.OnCompleted(tx); err != nil {
				return fmt.Errorf("complete %s request %d: %w", k.name, id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	base := req.Request()
	logger.WithField("kind", k.name).
		WithField("id", id).
		WithField("status", base.Status).
		WithField("admin", admin.ID).
		Info("request updated")
	k.notify(ctx, base)
	return req, nil
}

// CountByStatus reports how many requests of this kind are in each status.
func (k *Kind[T, PT]) CountByStatus(ctx context.Context) (map[model.RequestStatus]int64, error) {
	var rows []struct {
		Status model.RequestStatus
		Count  int64
	}
	err := k.db.WithContext(ctx).
		Model(new(T)).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.RequestStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (k *Kind[T, PT]) notify(ctx context.Context, base *model.RequestBase) {
	if k.notifier == nil {
		return
	}
	err := k.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventRequestUpdated,
		OwnerID:   base.OwnerID,
		SubjectID: base.ID,
		Kind:      k.name,
		Status:    string(base.Status),
		Reason:    base.AdminNote,
	})
	if err != nil {
		logger.WithContext(ctx).
			WithField("kind", k.name).
			WithField("id", base.ID).
			WithError(err).
			Warn("notify failed")
	}
}
