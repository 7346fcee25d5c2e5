package usecase

import (
	"context"
	"time"

	"social-publisher/infrastructure/configuration"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds a poll or retry loop: at most MaxAttempts calls spaced
// Interval apart, after an optional Warmup.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
	Warmup      time.Duration
}

// Policies groups the ceilings of the publish state machine.
type Policies struct {
	StoryPoll    RetryPolicy
	VideoPoll    RetryPolicy
	PublishRetry RetryPolicy
}

func DefaultPolicies() Policies {
	return Policies{
		StoryPoll:    RetryPolicy{MaxAttempts: 24, Interval: 5 * time.Second, Warmup: 2 * time.Second},
		VideoPoll:    RetryPolicy{MaxAttempts: 60, Interval: 10 * time.Second},
		PublishRetry: RetryPolicy{MaxAttempts: 5, Interval: 3 * time.Second},
	}
}

func PoliciesFromConfig(cfg configuration.Publisher) Policies {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return Policies{
		StoryPoll:    RetryPolicy{MaxAttempts: cfg.StoryMaxPolls, Interval: sec(cfg.StoryPollSeconds), Warmup: sec(cfg.StoryWarmupSeconds)},
		VideoPoll:    RetryPolicy{MaxAttempts: cfg.VideoMaxPolls, Interval: sec(cfg.VideoPollSeconds)},
		PublishRetry: RetryPolicy{MaxAttempts: cfg.PublishMaxAttempts, Interval: sec(cfg.PublishRetrySeconds)},
	}
}

// TimerFactory hands out backoff timers; tests swap in timers that fire at once.
type TimerFactory func() backoff.Timer

type realTimer struct{ timer *time.Timer }

func (t *realTimer) C() <-chan time.Time {
	return t.timer.C
}

func (t *realTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
	} else {
		t.timer.Reset(d)
	}
}

func (t *realTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func NewRealTimer() backoff.Timer { return &realTimer{} }

// Run calls op until it succeeds, returns a backoff.Permanent error, the
// attempts run out or ctx ends. The last error is returned unwrapped.
func (p RetryPolicy) Run(ctx context.Context, newTimer TimerFactory, op func(attempt int) error, notify backoff.Notify) error {
	if newTimer == nil {
		newTimer = NewRealTimer
	}
	if p.Warmup > 0 {
		if err := sleep(ctx, newTimer(), p.Warmup); err != nil {
			return err
		}
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(attempts-1)),
		ctx,
	)
	attempt := 0
	return backoff.RetryNotifyWithTimer(func() error {
		attempt++
		return op(attempt)
	}, b, notify, newTimer())
}

func sleep(ctx context.Context, t backoff.Timer, d time.Duration) error {
	t.Start(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
