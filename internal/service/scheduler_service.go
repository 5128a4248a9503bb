package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultJobTimeout = time.Minute

// Job is a unit of scheduled work. Its context ends when the job timeout
// elapses or the scheduler stops.
type Job func(ctx context.Context) error

// SchedulerService runs the periodic backup and the daily digest.
type SchedulerService struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration
	done    context.Context
	cancel  context.CancelFunc
}

func NewSchedulerService(loc *time.Location, log *zap.Logger) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	log = log.Named("scheduler")
	done, cancel := context.WithCancel(context.Background())
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
		log:     log,
		timeout: defaultJobTimeout,
		done:    done,
		cancel:  cancel,
	}
}

// WithJobTimeout bounds every job run started after the call.
func (s *SchedulerService) WithJobTimeout(d time.Duration) *SchedulerService {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Daily runs job every day at the local "HH:MM" time at.
func (s *SchedulerService) Daily(name, at string, job Job) (cron.EntryID, error) {
	spec, err := dailySpec(at)
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	id, err := s.cron.AddJob(spec, s.wrap(name, job))
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.String("at", at))
	return id, nil
}

// Every runs job at a fixed interval of at least one second.
func (s *SchedulerService) Every(name string, every time.Duration, job Job) (cron.EntryID, error) {
	if every < time.Second {
		return 0, fmt.Errorf("schedule %s: interval %s is shorter than a second", name, every)
	}
	id := s.cron.Schedule(cron.Every(every), s.wrap(name, job))
	s.log.Info("job scheduled", zap.String("job", name), zap.Duration("every", every))
	return id, nil
}

func (s *SchedulerService) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *SchedulerService) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for them to return.
func (s *SchedulerService) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *SchedulerService) wrap(name string, job Job) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.done, s.timeout)
		defer cancel()

		started := time.Now()
		err := job(ctx)
		switch {
		case err == nil:
			s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(started)))
		case errors.Is(err, context.Canceled):
			s.log.Info("job cancelled", zap.String("job", name))
		default:
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		}
	})
}

// dailySpec turns "HH:MM" into a seconds-first cron expression.
func dailySpec(at string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", at)
	}
	return fmt.Sprintf("0 %d %d * * *", t.Minute(), t.Hour()), nil
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
