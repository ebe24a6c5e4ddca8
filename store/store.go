package store

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hemantmeena2005/chat/config"
	"github.com/hemantmeena2005/chat/entity"
)

// Models lists every table owned by the service, in migration order.
var Models = []interface{}{
	&entity.User{},
	&entity.Friendship{},
	&entity.FriendRequest{},
	&entity.Message{},
	&entity.MessageHide{},
	&entity.Post{},
	&entity.PostLike{},
	&entity.Comment{},
	&entity.Notification{},
}

// Open connects to the configured database and migrates all tables.
func Open(cfg config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Replies may point at a message that was hard-deleted afterwards.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "" || cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// a single connection keeps :memory: databases alive and avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if log != nil {
		log.Info("database ready", zap.String("driver", cfg.Driver))
	}
	return db, nil
}
