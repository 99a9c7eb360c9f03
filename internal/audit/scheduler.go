package audit

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/talentlens/backend/internal/models"
)

// DefaultIntervalHours is the recalculation cadence when
// AUDIT_INTERVAL_HOURS is unset.
const DefaultIntervalHours = 24

// Scheduler runs the audit job on a recurring schedule. Each pass is a
// single serialized run; gocron's singleton mode prevents overlap with a
// long-running previous pass.
type Scheduler struct {
	scheduler *gocron.Scheduler
	engine    Engine
}

func New(engine Engine) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		engine:    engine,
	}
}

// Start begins the recurring audit without blocking.
func (s *Scheduler) Start() {
	hours := DefaultIntervalHours
	if v := os.Getenv("AUDIT_INTERVAL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}

	s.scheduler.Every(hours).Hours().SingletonMode().Do(s.runScheduled)
	s.scheduler.StartAsync()
	log.Printf("Audit scheduler started: every %d hours", hours)
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runScheduled() {
	if _, err := Run(context.Background(), s.engine, time.Now, models.AuditTriggerScheduled); err != nil {
		log.Printf("Scheduled audit failed: %v", err)
	}
}
