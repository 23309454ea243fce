// Package paginate walks page-numbered list endpoints until the data runs out.
package paginate

import (
	"context"
	"errors"
)

// Default configuration values
const (
	DefaultPageSize = 100 // Blockfrost's maximum page size
	FirstPage       = 1
)

// ErrEndOfData can be returned by a PageFunc to stop the walk without failing it.
// Whatever was accumulated before it is returned with a nil error.
var ErrEndOfData = errors.New("end of data")

// PageFunc fetches a single 1-based page of at most count records
type PageFunc[T any] func(ctx context.Context, page, count int) ([]T, error)

// Option configures a fetch
type Option func(*options)

type options struct {
	pageSize   int
	maxRecords int
	stopOn     []error
}

// WithPageSize sets the number of records requested per page
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithMaxRecords stops fetching once n records have been collected; 0 means no limit
func WithMaxRecords(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRecords = n
		}
	}
}

// WithEndOfDataErrors treats the given errors like ErrEndOfData
func WithEndOfDataErrors(errs ...error) Option {
	return func(o *options) { o.stopOn = append(o.stopOn, errs...) }
}

// FetchAll requests pages starting at page 1 and appends their records until a page
// comes back short or empty, or the record ceiling is reached.
//
// A failing page halts the walk: the records accumulated so far are returned together
// with the error and the caller decides whether the partial data is usable.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], opts ...Option) ([]T, error) {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	var all []T
	for page := FirstPage; ; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		// the page size stays fixed: page offsets are computed from it
		records, err := fetch(ctx, page, o.pageSize)
		if err != nil {
			if o.isEndOfData(err) {
				return all, nil
			}
			return all, err
		}

		all = append(all, records...)

		if o.maxRecords > 0 && len(all) >= o.maxRecords {
			return all[:o.maxRecords], nil
		}
		if len(records) == 0 || len(records) < o.pageSize {
			return all, nil
		}
	}
}

func (o options) isEndOfData(err error) bool {
	if errors.Is(err, ErrEndOfData) {
		return true
	}
	for _, target := range o.stopOn {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
