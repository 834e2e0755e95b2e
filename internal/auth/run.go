package auth

import (
	"context"
	"time"

	"github.com/harmonyui/harmonycn/internal/errors"
)

// Sleeper waits between polls.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper sleeps on a real timer and returns early when ctx ends.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Run drives flow from code request to a granted credential. Polls are
// strictly sequential, each preceded by the flow's current interval. The
// code's expires_in bounds the whole loop; reaching it, or ctx ending,
// expires the flow.
func Run(ctx context.Context, flow *Flow, prompter Prompter, sleeper Sleeper) (*Credential, error) {
	if sleeper == nil {
		sleeper = TimerSleeper
	}

	code, err := flow.RequestCode(ctx)
	if err != nil {
		return nil, err
	}
	if err := flow.Prompt(prompter); err != nil {
		return nil, err
	}

	if code.ExpiresIn > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, code.ExpiresIn)
		defer cancel()
	}

	for {
		if err := sleeper.Sleep(ctx, flow.Interval()); err != nil {
			flow.expire()
			return nil, expired(err)
		}
		if ctx.Err() != nil {
			flow.expire()
			return nil, expired(ctx.Err())
		}

		result, err := flow.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				flow.expire()
				return nil, expired(ctx.Err())
			}
			return nil, err
		}
		if result.Credential != nil {
			return result.Credential, nil
		}
	}
}

func expired(cause error) error {
	return errors.New(errors.CodeAuthExpired).
		WithDetail("gave up waiting for authorization").
		Wrap(cause)
}
