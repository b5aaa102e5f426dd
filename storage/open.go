package storage

import (
	"fmt"

	"github.com/ariebrainware/physio-pain-assessment/config"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Open selects the history backend named by cfg.StorageBackend.
// db and rdb may be nil when the corresponding backend is not selected.
func Open(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (KV, error) {
	switch cfg.StorageBackend {
	case config.StorageBadger, "":
		return OpenBadger(cfg.BadgerDir)
	case config.StorageRedis:
		return NewRedisKV(rdb)
	case config.StorageDatabase:
		return NewGormKV(db)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}
