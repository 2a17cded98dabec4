package requests

import (
	"musicportal/model"

	"gorm.io/gorm"
)

// All returns a Handler for every request kind the portal offers.
func All(db *gorm.DB, notifier Notifier) []Handler {
	return []Handler{
		NewKind[model.YoutubeClaim]("youtube-claims", db, notifier),
		NewKind[model.YoutubeOAC]("youtube-oac", db, notifier),
		NewKind[model.SocialLink]("social-links", db, notifier),
		NewKind[model.ProfileLink]("profile-links", db, notifier),
		NewKind[model.LabelPublisher]("label-publishers", db, notifier),
		NewKind[model.Agreement]("agreements", db, notifier),
	}
}
