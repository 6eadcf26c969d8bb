package models

import (
	"time"

	"gorm.io/datatypes"
)

// AggregationRun tracks resumable sweep state per scope. The watermark is
// read at run start and written back by the run itself; there is no global
// mutable "last aggregation" key.
type AggregationRun struct {
	Scope         string         `gorm:"primaryKey;type:varchar(40)"`
	WatermarkTS   *time.Time     `gorm:"type:timestamptz"`
	Cursor        *string        `gorm:"type:text"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (AggregationRun) TableName() string {
	return "aggregation_runs"
}
