package model

import (
	"time"

	"gorm.io/datatypes"
)

// KVRecord is one durable key/value entry when history lives in a SQL database.
type KVRecord struct {
	Key       string         `json:"key" gorm:"primaryKey;column:kv_key;type:varchar(191)"`
	Value     datatypes.JSON `json:"value" gorm:"column:kv_value;type:json"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName keeps the table name stable regardless of gorm's pluralization.
func (KVRecord) TableName() string {
	return "kv_records"
}
