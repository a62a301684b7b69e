package middlewares

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type CronTask struct {
	cron      *cron.Cron
	cronJobs  map[string]cron.EntryID
	cronMutex sync.Mutex
}

func (m *CronTask) Start() {
	m.cron.Start()
}

func (m *CronTask) Stop() {
	<-m.cron.Stop().Done()
}

func newCronTask() *CronTask {
	return &CronTask{
		cron:     cron.New(),
		cronJobs: make(map[string]cron.EntryID),
	}
}

// AddCronJob schedules job under name, replacing any job with the same name.
func (m *CronTask) AddCronJob(name string, spec string, job func()) error {
	m.cronMutex.Lock()
	defer m.cronMutex.Unlock()
	if spec == "" {
		return fmt.Errorf("cron job %s: spec is required", name)
	}

	id, err := m.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("cron job %s: %w", name, err)
	}
	// delete previous job if exists
	if id, exists := m.cronJobs[name]; exists {
		m.cron.Remove(id)
	}
	m.cronJobs[name] = id
	return nil
}

func (m *CronTask) RemoveCronJob(name string) {
	m.cronMutex.Lock()
	defer m.cronMutex.Unlock()
	if id, exists := m.cronJobs[name]; exists {
		m.cron.Remove(id)
		delete(m.cronJobs, name)
	}
}

// NextRun returns when the named job fires next, or false if it isn't scheduled.
func (m *CronTask) NextRun(name string) (time.Time, bool) {
	m.cronMutex.Lock()
	defer m.cronMutex.Unlock()
	id, exists := m.cronJobs[name]
	if !exists {
		return time.Time{}, false
	}
	return m.cron.Entry(id).Next, true
}

// ValidateCronInterval rejects specs that fire more often than minInterval
// within the next day.
func ValidateCronInterval(spec string, minInterval time.Duration) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	now := time.Now()
	prev := schedule.Next(now)
	end := now.Add(24 * time.Hour)
	for prev.Before(end) {
		next := schedule.Next(prev)
		if next.After(end) {
			break
		}
		if interval := next.Sub(prev); interval < minInterval {
			return fmt.Errorf("cron spec %q fires too often: %s", spec, interval)
		}
		prev = next
	}
	return nil
}
