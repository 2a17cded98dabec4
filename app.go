package main

import (
	"context"
	"fmt"
	"time"

	"musicportal/admin"
	"musicportal/audiofilestore"
	"musicportal/auth"
	"musicportal/catalog"
	"musicportal/config"
	"musicportal/metadata"
	"musicportal/notify"
	"musicportal/requests"
	"musicportal/upload"

	"github.com/cdfmlr/crud/log"
	"gorm.io/gorm"
)

var logger = log.ZoneLogger("musicportal")

// App holds the wired services of one portal instance.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Auth     *auth.Service
	Catalog  *catalog.Service
	Store    *audiofilestore.AudioFileStore
	Upload   *upload.Coordinator
	Requests []requests.Handler
	Admin    *admin.Admin
}

func NewApp(cfg *config.Config) (*App, error) {
	db, err := metadata.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	store, err := audiofilestore.NewAudioFileStore(cfg.Storage)
	if err != nil {
		_ = metadata.Close(db)
		return nil, err
	}

	notifier := notify.New(cfg.Notify.WebhookURL, time.Duration(cfg.Notify.TimeoutSeconds)*time.Second)

	app := &App{
		Config:   cfg,
		DB:       db,
		Auth:     auth.NewService(db, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour),
		Catalog:  catalog.NewService(catalog.NewStore(db), notifier),
		Store:    store,
		Requests: requests.All(db, notifier),
	}
	app.Upload = upload.New(store, app.Catalog, cfg.Artwork)
	app.Admin = admin.New(app.Catalog, app.Auth, store, app.Requests)
	return app, nil
}

// Bootstrap creates the configured admin account, if any.
func (a *App) Bootstrap(ctx context.Context) error {
	email := a.Config.Auth.BootstrapAdminEmail
	if email == "" {
		return nil
	}
	user, err := a.Auth.EnsureAdmin(ctx, email, a.Config.Auth.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin %s: %w", email, err)
	}
	logger.WithField("user", user.ID).WithField("email", user.Email).Info("bootstrap admin ready")
	return nil
}

func (a *App) Close() error {
	return metadata.Close(a.DB)
}
