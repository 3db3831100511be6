package model

import (
	"time"

	"gorm.io/datatypes"
)

// Cron job run states
const (
	CronStatusRunning   = "running"
	CronStatusCompleted = "completed"
	CronStatusFailed    = "failed"
)

// CronJobLog records one run of a scheduled maintenance job
type CronJobLog struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	JobName     string            `gorm:"type:varchar(100);not null;index" json:"job_name"`
	Status      string            `gorm:"type:varchar(20);not null" json:"status"`
	StartedAt   time.Time         `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at"`
	Duration    int               `json:"duration_ms"`
	Message     string            `gorm:"type:text" json:"message"`
	ErrorMsg    string            `gorm:"type:text" json:"error_msg"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TableName specifies the table name for CronJobLog
func (CronJobLog) TableName() string {
	return "cron_job_logs"
}
