package queue

import (
	"time"

	"github.com/jwcompdev/termkit/progress"
	"go.uber.org/zap"
)

// Metrics receives per-task timings.
type Metrics interface {
	ObserveTask(queue string, wait, run time.Duration, err error)
}

type Option func(*Service)

// WithConfig sets the queue configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithGracePeriod overrides the grace period slept after each task
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) {
		s.config.GracePeriod = d
	}
}

// WithFailurePolicy sets the failure policy
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(s *Service) {
		s.config.FailurePolicy = policy
	}
}

// WithName names the queue in logs, spans and metrics
func WithName(name string) Option {
	return func(s *Service) {
		s.name = name
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgress attaches a progress tracker updated on every state change
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.progress = tracker
	}
}

// WithMetrics attaches a metrics observer
func WithMetrics(metrics Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}
