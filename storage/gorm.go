package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/physio-pain-assessment/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKV stores records in the kv_records table of a MySQL or SQLite database.
type GormKV struct {
	db *gorm.DB
}

// NewGormKV migrates the kv_records table and returns a store backed by db.
func NewGormKV(db *gorm.DB) (*GormKV, error) {
	if db == nil {
		return nil, errors.New("database connection not available")
	}
	if err := db.AutoMigrate(&model.KVRecord{}); err != nil {
		return nil, fmt.Errorf("migrate kv_records: %w", err)
	}
	return &GormKV{db: db}, nil
}

func (g *GormKV) Get(ctx context.Context, key string) ([]byte, error) {
	var rec model.KVRecord
	err := g.db.WithContext(ctx).Where("kv_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return []byte(rec.Value), nil
}

func (g *GormKV) Put(ctx context.Context, key string, value []byte) error {
	rec := model.KVRecord{Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

func (g *GormKV) Close() error {
	return nil
}
