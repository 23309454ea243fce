package main

import (
	"context"
	"time"

	"github.com/bewie03/bubblemap/holders"
	"github.com/bewie03/bubblemap/pkg/metrics"
)

// meteredFinder bounds every lookup by a timeout and records its outcome
type meteredFinder struct {
	service *holders.Service
	metrics *metrics.Metrics
	timeout time.Duration
}

func newMeteredFinder(service *holders.Service, m *metrics.Metrics, timeout time.Duration) *meteredFinder {
	return &meteredFinder{service: service, metrics: m, timeout: timeout}
}

func (f *meteredFinder) Lookup(ctx context.Context, req holders.Request) (*holders.Result, error) {
	ctx, cancel := f.bound(ctx)
	defer cancel()

	start := time.Now()
	result, err := f.service.Lookup(ctx, req)
	f.record(result, err, time.Since(start))
	return result, err
}

func (f *meteredFinder) Stream(ctx context.Context, req holders.Request, events chan<- holders.Event) (*holders.Result, error) {
	ctx, cancel := f.bound(ctx)
	defer cancel()

	start := time.Now()
	result, err := f.service.Stream(ctx, req, events)
	f.record(result, err, time.Since(start))
	return result, err
}

func (f *meteredFinder) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

func (f *meteredFinder) record(result *holders.Result, err error, d time.Duration) {
	switch {
	case err != nil:
		f.metrics.RecordLookup(metrics.OutcomeFailure, d)
	case result.RelationsIncomplete:
		f.metrics.RecordLookup(metrics.OutcomeIncomplete, d)
	default:
		f.metrics.RecordLookup(metrics.OutcomeSuccess, d)
	}
}
