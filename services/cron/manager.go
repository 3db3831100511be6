package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services"
	"github.com/sahilchouksey/e-center-api/utils/metrics"
	"gorm.io/gorm"
)

// Job names as recorded in cron_job_logs
const (
	JobRefreshConnectionStatus = "refresh_connection_status"
	JobCleanupTokenBlacklist   = "cleanup_token_blacklist"
	JobCleanupEmptySessions    = "cleanup_empty_sessions"
	JobCleanupOldLogs          = "cleanup_old_logs"
)

// ProbeRefresher re-runs the completion service connectivity probe
type ProbeRefresher interface {
	RefreshConnectionStatus(ctx context.Context) services.ProbeResult
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron  *cron.Cron
	db    *gorm.DB
	probe ProbeRefresher
}

// NewCronManager creates a new cron manager. probe may be nil, in which
// case the connectivity refresh job is not scheduled.
func NewCronManager(db *gorm.DB, probe ProbeRefresher) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:  c,
		db:    db,
		probe: probe,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

type scheduledJob struct {
	spec string
	name string
	run  func(ctx context.Context) (string, error)
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	schedule := []scheduledJob{
		// Every hour: purge expired revoked tokens
		{"0 0 * * * *", JobCleanupTokenBlacklist, m.CleanupTokenBlacklist},
		// Daily at 3 AM: drop untouched sessions
		{"0 0 3 * * *", JobCleanupEmptySessions, m.CleanupEmptySessions},
		// Daily at 4 AM: drop old job logs
		{"0 0 4 * * *", JobCleanupOldLogs, m.CleanupOldLogs},
	}
	if m.probe != nil {
		// Every 5 minutes: keep the connectivity status warm
		schedule = append(schedule, scheduledJob{"0 */5 * * * *", JobRefreshConnectionStatus, m.RefreshConnectionStatus})
	}

	for _, job := range schedule {
		job := job
		if _, err := m.cron.AddFunc(job.spec, func() {
			m.runJob(job.name, 10*time.Minute, job.run)
		}); err != nil {
			return err
		}
	}

	log.Printf("All %d cron jobs registered successfully", len(schedule))
	return nil
}

// runJob executes fn with a timeout and records the run
func (m *CronManager) runJob(jobName string, timeout time.Duration, fn func(ctx context.Context) (string, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entry := m.logJobStart(jobName)
	message, err := fn(ctx)
	if err != nil {
		m.logJobError(entry, err)
		metrics.CronRuns.WithLabelValues(jobName, model.CronStatusFailed).Inc()
		return
	}
	m.logJobComplete(entry, message)
	metrics.CronRuns.WithLabelValues(jobName, model.CronStatusCompleted).Inc()
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusRunning,
		StartedAt: time.Now(),
	}
	if err := m.db.Create(entry).Error; err != nil {
		log.Printf("[CRON] Failed to record start of %s: %v", jobName, err)
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string) {
	log.Printf("[CRON] Completed job: %s - %s", entry.JobName, message)
	m.finish(entry, map[string]interface{}{
		"status":  model.CronStatusCompleted,
		"message": message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	log.Printf("[CRON] Error in job: %s - %v", entry.JobName, err)
	m.finish(entry, map[string]interface{}{
		"status":    model.CronStatusFailed,
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finish(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	now := time.Now()
	updates["completed_at"] = now
	updates["duration"] = int(now.Sub(entry.StartedAt).Milliseconds())
	if err := m.db.Model(entry).Updates(updates).Error; err != nil {
		log.Printf("[CRON] Failed to record end of %s: %v", entry.JobName, err)
	}
}
