package lifecycle

import (
	"fmt"
	"strings"

	"musicportal/apperr"
	"musicportal/model"
)

// UpdateRequest moves an auxiliary request to status to.
//
// COMPLETED and REJECTED are terminal. Rejecting needs a note that
// tells the user why.
func UpdateRequest(req *model.RequestBase, to model.RequestStatus, note string) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown request status %q", apperr.ErrInvalidInput, to)
	}
	if req.Status.Terminal() {
		return &TransitionError{Action: Action("set " + string(to)), From: string(req.Status)}
	}
	if req.Status == to {
		return &TransitionError{Action: Action("set " + string(to)), From: string(req.Status), Hint: "status unchanged"}
	}
	note = strings.TrimSpace(note)
	if to == model.RequestRejected && note == "" {
		return fmt.Errorf("%w: a note is required to reject a request", apperr.ErrInvalidInput)
	}

	req.Status = to
	if note != "" {
		req.AdminNote = note
	}
	return nil
}
