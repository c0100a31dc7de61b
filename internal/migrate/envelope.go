package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/roach88/schemasync/internal/schema"
)

// sessionClass is materialized lazily by the backend on its first record.
const sessionClass = "_Session"

// linearBackoff waits n×base before retry n and stops after maxRetries.
// exhausted is set when the budget runs out.
type linearBackoff struct {
	base       time.Duration
	maxRetries int
	attempt    int
	exhausted  bool
}

func (b *linearBackoff) Next() (time.Duration, bool) {
	if b.attempt >= b.maxRetries {
		b.exhausted = true
		return 0, true
	}
	b.attempt++
	return time.Duration(b.attempt) * b.base, false
}

// withRetry runs pass until it succeeds, returns a non-retryable error, or
// the retry budget is spent. Configuration errors and startup timeouts are
// returned as they are.
func (r *Reconciler) withRetry(ctx context.Context, log *slog.Logger, pass func(context.Context) error) error {
	b := &linearBackoff{base: r.opts.retryDelay, maxRetries: r.opts.maxRetries}

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := pass(ctx)
		if err == nil {
			return nil
		}
		if IsConfigError(err) || IsTimeout(err) || ctx.Err() != nil {
			return err
		}
		if b.attempt < b.maxRetries {
			log.Warn("migration pass failed, retrying",
				"attempt", b.attempt+1,
				"delay", time.Duration(b.attempt+1)*b.base,
				"error", err,
			)
		}
		return retry.RetryableError(err)
	})
	if err != nil && b.exhausted {
		return &Error{
			Code:    CodeRetriesExhausted,
			Message: fmt.Sprintf("migration failed after %d retries", b.maxRetries),
			Err:     err,
		}
	}
	return err
}

// snapshot bootstraps the session class and enumerates live schemas. In
// production mode both steps must finish within the startup timeout.
func (r *Reconciler) snapshot(ctx context.Context) ([]schema.Schema, error) {
	sctx := ctx
	if r.opts.production {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, r.opts.startupTimeout)
		defer cancel()
	}

	live, err := r.bootstrapAndEnumerate(sctx)
	if err != nil {
		if r.opts.production && ctx.Err() == nil && errors.Is(sctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{
				Code:    CodeTimeout,
				Message: fmt.Sprintf("backend did not answer within %s", r.opts.startupTimeout),
				Err:     err,
			}
		}
		return nil, err
	}
	return live, nil
}

func (r *Reconciler) bootstrapAndEnumerate(ctx context.Context) ([]schema.Schema, error) {
	id, err := r.backend.CreateRecord(ctx, sessionClass)
	if err != nil {
		return nil, &Error{Code: CodeStore, Message: "bootstrap session record", ClassName: sessionClass, Err: err}
	}
	if err := r.backend.DeleteRecord(ctx, sessionClass, id); err != nil {
		return nil, &Error{Code: CodeStore, Message: "remove bootstrap session record", ClassName: sessionClass, Err: err}
	}

	live, err := r.backend.AllSchemas(ctx)
	if err != nil {
		return nil, &Error{Code: CodeStore, Message: "enumerate live schemas", Err: err}
	}
	return live, nil
}
