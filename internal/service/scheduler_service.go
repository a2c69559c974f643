package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"contact-reminder/internal/keylock"
	"contact-reminder/internal/model"
)

const taskQueueSize = 128

// Trigger tells why a reminder run was started.
type Trigger string

const (
	TriggerDaily Trigger = "daily"
	TriggerOnce  Trigger = "once"
)

// FireFunc delivers the reminder for one user.
type FireFunc func(ctx context.Context, userID uint) error

type reminderTask struct {
	userID  uint
	trigger Trigger
	runID   string
}

type dailyJob struct {
	entryID cron.EntryID
	at      ReminderTime
	enabled atomic.Bool
}

// SchedulerService keeps one daily cron entry per user and runs reminders on a
// worker pool. Runs for the same user never overlap.
type SchedulerService struct {
	cron    *cron.Cron
	fire    FireFunc
	log     *zap.Logger
	workers int
	timeout time.Duration
	locks   *keylock.Map[uint]

	mu   sync.Mutex
	jobs map[uint]*dailyJob

	tasks  chan reminderTask
	done   chan struct{}
	stop   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSchedulerService(loc *time.Location, workers int, timeout time.Duration, fire FireFunc, log *zap.Logger) *SchedulerService {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SchedulerService{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		fire:    fire,
		log:     log,
		workers: workers,
		timeout: timeout,
		locks:   keylock.New[uint](),
		jobs:    make(map[uint]*dailyJob),
		tasks:   make(chan reminderTask, taskQueueSize),
		done:    make(chan struct{}),
	}
}

// ScheduleDaily registers the daily reminder of a user, replacing an existing one.
func (s *SchedulerService) ScheduleDaily(userID uint, at ReminderTime, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &dailyJob{at: at}
	job.enabled.Store(enabled)
	if err := s.addEntry(userID, job); err != nil {
		return err
	}
	if old, ok := s.jobs[userID]; ok {
		s.cron.Remove(old.entryID)
	}
	s.jobs[userID] = job
	s.log.Info("daily reminder scheduled", zap.Uint("user_id", userID), zap.Stringer("at", at), zap.Bool("enabled", enabled))
	return nil
}

// Reschedule moves the daily reminder to a new time and keeps its enabled flag.
func (s *SchedulerService) Reschedule(userID uint, at ReminderTime) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[userID]
	if !ok {
		return ErrJobNotFound
	}
	oldEntry, oldAt := job.entryID, job.at
	job.at = at
	if err := s.addEntry(userID, job); err != nil {
		job.at = oldAt
		return err
	}
	s.cron.Remove(oldEntry)
	s.log.Info("daily reminder rescheduled", zap.Uint("user_id", userID), zap.Stringer("at", at))
	return nil
}

func (s *SchedulerService) addEntry(userID uint, job *dailyJob) error {
	id, err := s.cron.AddFunc(job.at.CronSpec(), func() { s.trigger(userID, job) })
	if err != nil {
		return err
	}
	job.entryID = id
	return nil
}

// SetEnabled turns the daily reminder of a user on or off.
func (s *SchedulerService) SetEnabled(userID uint, enabled bool) error {
	s.mu.Lock()
	job, ok := s.jobs[userID]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	job.enabled.Store(enabled)
	s.log.Info("daily reminder toggled", zap.Uint("user_id", userID), zap.Bool("enabled", enabled))
	return nil
}

// Enabled reports the enabled flag of the user's daily job.
func (s *SchedulerService) Enabled(userID uint) (enabled, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[userID]
	if !ok {
		return false, false
	}
	return job.enabled.Load(), true
}

// RunOnce queues an immediate reminder regardless of the enabled flag.
func (s *SchedulerService) RunOnce(userID uint) error {
	task := reminderTask{userID: userID, trigger: TriggerOnce, runID: uuid.NewString()}
	select {
	case s.tasks <- task:
		return nil
	default:
		s.log.Warn("reminder queue full", zap.Uint("user_id", userID))
		return ErrQueueFull
	}
}

// Seed schedules one job per stored user. Users with a broken reminder time are skipped.
func (s *SchedulerService) Seed(users []model.User) int {
	scheduled := 0
	for _, u := range users {
		at, err := ParseReminderTime(u.ReminderTime)
		if err != nil {
			s.log.Error("skip user with invalid reminder time", zap.Uint("user_id", u.ID), zap.String("reminder_time", u.ReminderTime))
			continue
		}
		if err := s.ScheduleDaily(u.ID, at, u.IsActive); err != nil {
			s.log.Error("schedule user", zap.Uint("user_id", u.ID), zap.Error(err))
			continue
		}
		scheduled++
	}
	return scheduled
}

func (s *SchedulerService) trigger(userID uint, job *dailyJob) {
	if !job.enabled.Load() {
		s.log.Debug("daily reminder disabled, skipping", zap.Uint("user_id", userID))
		return
	}
	task := reminderTask{userID: userID, trigger: TriggerDaily, runID: uuid.NewString()}
	select {
	case s.tasks <- task:
	case <-s.done:
	}
}

// Start launches the workers and the cron loop.
func (s *SchedulerService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work(ctx)
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("workers", s.workers))
}

// Stop waits for running cron callbacks, then stops the workers.
func (s *SchedulerService) Stop() {
	s.stop.Do(func() {
		cronCtx := s.cron.Stop()
		<-cronCtx.Done()
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.log.Info("scheduler stopped")
	})
}

func (s *SchedulerService) work(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.tasks:
			s.execute(ctx, task)
		}
	}
}

func (s *SchedulerService) execute(ctx context.Context, task reminderTask) {
	unlock := s.locks.Lock(task.userID)
	defer unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := s.log.With(zap.Uint("user_id", task.userID), zap.String("run_id", task.runID), zap.String("trigger", string(task.trigger)))
	started := time.Now()
	if err := s.fire(runCtx, task.userID); err != nil {
		log.Error("reminder run failed", zap.Error(err))
		return
	}
	log.Debug("reminder run finished", zap.Duration("took", time.Since(started)))
}
