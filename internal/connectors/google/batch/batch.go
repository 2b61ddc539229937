// Package batch executes several paginated Google API calls together.
//
// A batch is a set of queued requests. Each round runs every pending request
// once, concurrently and gated by a shared rate limiter. Requests that answer
// with a next page token are queued again for the following round. The batch
// finishes when no request has a next page.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// DefaultConcurrency is the number of calls in flight per round.
const DefaultConcurrency = 8

// ErrRepeatedPageToken indicates a request returned a page token it was
// already called with.
var ErrRepeatedPageToken = errors.New("batch: page token did not advance")

// Page is one page of results.
type Page[T any] struct {
	Items         []T
	NextPageToken string
}

// Request is one queued call. It is invoked with an empty token for the
// first page and with each continuation token after that.
type Request[T any] func(ctx context.Context, pageToken string) (Page[T], error)

// Options tunes batch execution.
type Options struct {
	// Concurrency bounds the calls in flight per round. Defaults to DefaultConcurrency.
	Concurrency int
	// MaxPages caps the pages fetched per request. Zero means unlimited.
	MaxPages int
	// Limiter, when set, is waited on before every call and told about 429s.
	Limiter *google.RateLimiter
}

// Result holds everything collected for one request, in page order.
type Result[T any] struct {
	Items []T
	Pages int
	// Err is the failure that stopped this request, if any.
	Err error
}

// Error describes a failed request within a batch.
type Error struct {
	// Index is the position of the request in the batch.
	Index int
	// Page is the zero-based page that failed.
	Page int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("batch request %d page %d: %v", e.Index, e.Page, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type pending struct {
	index int
	token string
}

type outcome[T any] struct {
	pending
	page Page[T]
	err  error
}

// Execute runs the queued requests until none has a next page.
// Results are returned in queue order even when some requests fail; the
// returned error joins one *Error per failed request. Context cancellation
// stops the batch between calls and is returned as is.
func Execute[T any](ctx context.Context, reqs []Request[T], opts Options) ([]Result[T], error) {
	results := make([]Result[T], len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	queue := make([]pending, len(reqs))
	for i := range reqs {
		queue[i] = pending{index: i}
	}

	seen := make([]map[string]struct{}, len(reqs))
	for i := range seen {
		seen[i] = make(map[string]struct{})
	}

	var errs []error
	for round := 1; len(queue) > 0; round++ {
		logger.Debug("Batch round %d: %d request(s)", round, len(queue))

		outcomes := runRound(ctx, reqs, queue, concurrency, opts.Limiter)
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var next []pending
		for _, o := range outcomes {
			res := &results[o.index]
			if o.err != nil {
				res.Err = &Error{Index: o.index, Page: res.Pages, Err: o.err}
				errs = append(errs, res.Err)
				continue
			}

			res.Items = append(res.Items, o.page.Items...)
			res.Pages++

			token := o.page.NextPageToken
			_, repeated := seen[o.index][token]
			switch {
			case token == "":
			case repeated:
				res.Err = &Error{Index: o.index, Page: res.Pages, Err: ErrRepeatedPageToken}
				errs = append(errs, res.Err)
			case opts.MaxPages > 0 && res.Pages >= opts.MaxPages:
				logger.Debug("Batch request %d: stopping at page limit %d", o.index, opts.MaxPages)
			default:
				seen[o.index][token] = struct{}{}
				next = append(next, pending{index: o.index, token: token})
			}
		}
		queue = next
	}

	return results, errors.Join(errs...)
}

// runRound calls every pending request once and returns the outcomes in queue order.
func runRound[T any](
	ctx context.Context, reqs []Request[T], queue []pending, concurrency int, limiter *google.RateLimiter,
) []outcome[T] {
	outcomes := make([]outcome[T], len(queue))
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i, p := range queue {
		outcomes[i].pending = p

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			outcomes[i].err = ctx.Err()
			continue
		}

		wg.Add(1)
		go func(i int, p pending) {
			defer wg.Done()
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					outcomes[i].err = err
					return
				}
			}

			page, err := reqs[p.index](ctx, p.token)
			if limiter != nil {
				limiter.Observe(err)
			}
			outcomes[i].page, outcomes[i].err = page, err
		}(i, p)
	}
	wg.Wait()

	return outcomes
}

// Collect runs a single paginated request to completion and returns all items.
func Collect[T any](ctx context.Context, req Request[T], opts Options) ([]T, error) {
	results, err := Execute(ctx, []Request[T]{req}, opts)
	if err != nil {
		var berr *Error
		if errors.As(err, &berr) {
			return results[0].Items, berr.Err
		}
		return results[0].Items, err
	}
	return results[0].Items, nil
}

// Errors returns the per-request errors contained in a batch error, also
// when the batch error was wrapped.
func Errors(err error) []*Error {
	var out []*Error
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case nil:
		case *Error:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}
