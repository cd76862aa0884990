package model

import (
	"time"

	"gorm.io/gorm"
)

type SyncStatus string

const (
	StatusSuccess SyncStatus = "SUCCESS"
	StatusFailed  SyncStatus = "FAILED"
)

type Tick struct {
	gorm.Model
	TickID     string     `gorm:"uniqueIndex;not null" json:"tick_id"`
	Status     SyncStatus `gorm:"not null" json:"status"`
	Copied     int        `json:"copied"`
	Removed    int        `json:"removed"`
	Bytes      int64      `json:"bytes"`
	ErrMsg     string     `json:"err_msg,omitempty"`
	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt time.Time  `gorm:"not null;index" json:"finished_at"`
}

type History struct {
	gorm.Model
	TickID   string     `gorm:"index;not null" json:"tick_id"`
	Action   ActionType `gorm:"not null" json:"action"`
	Name     string     `gorm:"not null" json:"name"`
	SrcPath  string     `json:"src_path"`
	DstPath  string     `gorm:"not null" json:"dst_path"`
	Size     int64      `json:"size"`
	SyncedAt time.Time  `gorm:"not null" json:"synced_at"`
}
