package metadata

// This file provides some APIs for other packages to use.
// Saves them from talking to crud/service or crud/orm directly.

import (
	"context"
	"fmt"
	"strings"

	"musicportal/apperr"
	"musicportal/model"

	"github.com/cdfmlr/crud/orm"
	"github.com/cdfmlr/crud/service"
)

// ReleaseTitleExists checks if the owner already has a release
// with the given title.
func ReleaseTitleExists(ctx context.Context, ownerID uint, title string) (bool, error) {
	cnt, err := service.Count[model.Release](ctx,
		service.FilterBy("owner_id", ownerID),
		service.FilterBy("title", strings.TrimSpace(title)))

	if err != nil {
		logger.WithContext(ctx).
			WithField("owner", ownerID).
			WithField("title", title).
			WithError(err).
			Error("ReleaseTitleExists: failed to count releases")
		return false, fmt.Errorf("count releases titled %q: %w", title, err)
	}

	return cnt > 0, nil
}

// DropdownItem is one selectable value.
type DropdownItem struct {
	ID   uint
	Name string
}

var dropdownModels = map[string]any{
	"labels":        &model.Label{},
	"publishers":    &model.Publisher{},
	"categories":    &model.Category{},
	"content-types": &model.ContentType{},
}

// Dropdown returns the values of the dropdown kind, ordered by name.
func Dropdown(ctx context.Context, kind string) ([]DropdownItem, error) {
	m, ok := dropdownModels[kind]
	if !ok {
		return nil, fmt.Errorf("%w: dropdown %q", apperr.ErrNotFound, kind)
	}

	items := make([]DropdownItem, 0)
	err := orm.DB.WithContext(ctx).
		Model(m).
		Select("id", "name").
		Order("name").
		Find(&items).Error
	return items, err
}
