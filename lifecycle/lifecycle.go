// Package lifecycle decides which status transitions of releases
// and auxiliary requests are legal, and applies them.
//
// Functions here only touch the status fields of the value they are
// given. Persisting the result is up to the caller.
package lifecycle

import (
	"fmt"
	"strings"

	"musicportal/apperr"
	"musicportal/model"
)

// Action names a release transition. They are also written
// into the release history.
type Action string

const (
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

var (
	ErrNoTracks    = fmt.Errorf("%w: release has no tracks", apperr.ErrInvalidInput)
	ErrEmptyReason = fmt.Errorf("%w: rejection reason is required", apperr.ErrInvalidInput)
)

// TransitionError is returned when an action is not allowed
// from the current status.
type TransitionError struct {
	Action Action
	From   string
	Hint   string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s from status %s", e.Action, e.From)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return apperr.ErrInvalidTransition
}

func denied(action Action, from model.ReleaseStatus, hint string) error {
	return &TransitionError{Action: action, From: string(from), Hint: hint}
}

// resubmittable is a rejected release the admin allowed to come back.
func resubmittable(r *model.Release) bool {
	return r.Status == model.StatusRejected && r.AllowResubmission
}

// CanEdit reports whether the owner may still change the release
// or its tracks.
func CanEdit(r *model.Release) error {
	switch {
	case r.Status == model.StatusDraft, r.Status == model.StatusUnderReview:
		return nil
	case resubmittable(r):
		return nil
	case r.Status == model.StatusRejected:
		return denied(ActionEdit, r.Status, "resubmission is not allowed, contact support")
	default:
		return denied(ActionEdit, r.Status, "")
	}
}

// CanRemoveTrack is CanEdit, except that once a release has left
// DRAFT its last track stays.
func CanRemoveTrack(r *model.Release) error {
	if err := CanEdit(r); err != nil {
		return err
	}
	if r.Status != model.StatusDraft && len(r.Tracks) <= 1 {
		return denied(ActionEdit, r.Status, "the last track of a submitted release cannot be removed")
	}
	return nil
}

// SubmitForReview moves a DRAFT or resubmittable release to UNDER_REVIEW.
// The release must carry at least one track.
func SubmitForReview(r *model.Release) error {
	switch {
	case r.Status == model.StatusDraft:
	case resubmittable(r):
	case r.Status == model.StatusRejected:
		return denied(ActionSubmit, r.Status, "resubmission is not allowed, contact support")
	default:
		return denied(ActionSubmit, r.Status, "")
	}
	if len(r.Tracks) == 0 {
		return ErrNoTracks
	}

	r.Status = model.StatusUnderReview
	r.RejectionReason = ""
	r.AllowResubmission = false
	return nil
}

// Approve is only allowed while UNDER_REVIEW and with at least one
// track. APPROVED is terminal.
func Approve(r *model.Release) error {
	if r.Status != model.StatusUnderReview {
		return denied(ActionApprove, r.Status, "")
	}
	if len(r.Tracks) == 0 {
		return ErrNoTracks
	}
	r.Status = model.StatusApproved
	r.RejectionReason = ""
	r.AllowResubmission = false
	return nil
}

// Reject is only allowed while UNDER_REVIEW and needs a reason.
func Reject(r *model.Release, reason string, allowResubmission bool) error {
	if r.Status != model.StatusUnderReview {
		return denied(ActionReject, r.Status, "")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	r.Status = model.StatusRejected
	r.RejectionReason = reason
	r.AllowResubmission = allowResubmission
	return nil
}
