// Package metadata owns the database connection, registers the portal
// models and serves the dropdown values used by the release form.
package metadata

import (
	"context"
	"fmt"
	"time"

	"musicportal/config"
	"musicportal/model"

	"github.com/cdfmlr/crud/log"
	"github.com/cdfmlr/crud/orm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/glebarez/sqlite" // pure go sqlite driver
)

var logger = log.ZoneLogger("musicportal/metadata")

// crudModels are exposed through crud's generic routes.
var crudModels = []any{
	&model.Label{},
	&model.Publisher{},
	&model.Category{},
	&model.ContentType{},
}

// Models lists every table of the portal.
var Models = []any{
	&model.User{},
	&model.Session{},
	&model.Release{},
	&model.Track{},
	&model.ReleaseEvent{},
	&model.YoutubeClaim{},
	&model.YoutubeOAC{},
	&model.SocialLink{},
	&model.ProfileLink{},
	&model.LabelPublisher{},
	&model.Agreement{},
}

// Open connects the database described by cfg, makes it the crud
// default (orm.DB) and migrates all models.
//
// There should be only one metadata database in a program.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := connectDB(cfg)
	if err != nil {
		return nil, err
	}
	orm.DB = db

	for _, m := range crudModels {
		orm.RegisterModel(m)
	}
	all := make([]any, 0, len(Models)+len(crudModels))
	all = append(all, Models...)
	all = append(all, crudModels...)
	if err := db.AutoMigrate(all...); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.WithField("driver", cfg.Driver).Info("database ready")
	return db, nil
}

func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: log.Logger4Gorm,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db handle: %w", err)
	}
	if cfg.Driver != "postgres" {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
