package holders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bewie03/bubblemap/pkg/blockfrost"
	"github.com/bewie03/bubblemap/pkg/clock"
	"github.com/bewie03/bubblemap/pkg/paginate"
)

// Resolver errors
var (
	ErrAddressLookupFailed = errors.New("address lookup failed")
	ErrAccountLookupFailed = errors.New("stake account lookup failed")
)

// BatchStats describes one completed relation batch
type BatchStats struct {
	Batch   int
	Batches int
	Size    int
	Failed  int
}

// ResolveStats summarises a Resolve call
type ResolveStats struct {
	Resolved  int
	CacheHits int
	Failed    int
	Batches   int
}

// Incomplete reports whether some holders could not be resolved
func (s ResolveStats) Incomplete() bool {
	return s.Failed > 0
}

// Resolver groups holders that share a staking key.
//
// The relation cache is keyed by address and only holds groups already
// intersected with one distribution, so a Resolver belongs to a single lookup.
type Resolver struct {
	api    RelationsAPI
	cfg    settings
	cache  *lru.Cache[string, []string]
	flight singleflight.Group
}

// NewResolver creates a Resolver with the given API and options
func NewResolver(api RelationsAPI, opts ...Option) *Resolver {
	cfg := newSettings(opts)

	cache, err := lru.New[string, []string](cfg.cacheSize)
	if err != nil {
		// only returned for a non-positive size, which options never allow
		panic(err)
	}

	return &Resolver{
		api:   api,
		cfg:   cfg,
		cache: cache,
	}
}

// Resolve looks up the staking key of every holder in fixed-size batches and
// relates holders whose staking keys match. Failed lookups are logged and
// counted; they never abort a batch. A cancelled context stops after the
// current batch and counts the remaining holders as failed.
func (r *Resolver) Resolve(ctx context.Context, holders []Holder) (Relations, ResolveStats) {
	members := make(map[string]struct{}, len(holders))
	for _, h := range holders {
		members[h.Address] = struct{}{}
	}

	relations := make(Relations)
	batches := slices.Collect(slices.Chunk(holders, r.cfg.batchSize))
	stats := ResolveStats{Batches: len(batches)}

	for i, batch := range batches {
		if i > 0 {
			if err := clock.Sleep(ctx, r.cfg.clock, r.cfg.batchDelay); err != nil {
				for _, rest := range batches[i:] {
					stats.Failed += len(rest)
				}
				break
			}
		}

		groups, cached, failed := r.resolveBatch(ctx, batch, members)
		for _, group := range groups {
			relations.Connect(group)
		}
		stats.Resolved += len(batch) - failed
		stats.CacheHits += cached
		stats.Failed += failed

		r.cfg.observeBatch(BatchStats{
			Batch:   i + 1,
			Batches: len(batches),
			Size:    len(batch),
			Failed:  failed,
		})
	}

	return relations, stats
}

// resolveBatch issues every lookup of the batch together and waits for all of them
func (r *Resolver) resolveBatch(ctx context.Context, batch []Holder, members map[string]struct{}) ([][]string, int, int) {
	type outcome struct {
		group  []string
		cached bool
		err    error
	}
	outcomes := make([]outcome, len(batch))

	var g errgroup.Group
	for i, h := range batch {
		g.Go(func() error {
			group, cached, err := r.groupOf(ctx, h.Address, members)
			outcomes[i] = outcome{group: group, cached: cached, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		groups         [][]string
		cached, failed int
	)
	for i, o := range outcomes {
		if o.err != nil {
			failed++
			r.cfg.logger.Warn("related wallet lookup failed",
				slog.String("address", batch[i].Address),
				slog.Any("error", o.err))
			continue
		}
		if o.cached {
			cached++
		}
		groups = append(groups, o.group)
	}

	return groups, cached, failed
}

// groupOf returns the holders sharing address's staking key, address included
func (r *Resolver) groupOf(ctx context.Context, address string, members map[string]struct{}) ([]string, bool, error) {
	if group, ok := r.cache.Get(address); ok {
		return group, true, nil
	}

	info, err := r.api.Address(ctx, address)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrAddressLookupFailed, err)
	}

	stake := info.Stake()
	if stake == "" {
		group := []string{address}
		r.cache.Add(address, group)
		return group, false, nil
	}

	v, err, _ := r.flight.Do(stake, func() (any, error) {
		return r.stakeGroup(ctx, stake, members)
	})
	if err != nil {
		return nil, false, err
	}

	group := v.([]string)
	if !slices.Contains(group, address) {
		// the account listing was capped before reaching this address
		group = append(slices.Clone(group), address)
		slices.Sort(group)
		r.cache.Add(address, group)
	}

	return group, false, nil
}

// stakeGroup lists the addresses under stake, keeps those in the distribution and caches the group
func (r *Resolver) stakeGroup(ctx context.Context, stake string, members map[string]struct{}) ([]string, error) {
	addresses, err := paginate.FetchAll(ctx,
		func(ctx context.Context, page, count int) ([]blockfrost.AccountAddress, error) {
			return r.api.AccountAddresses(ctx, stake, page, count)
		},
		paginate.WithPageSize(r.cfg.pageSize),
		paginate.WithMaxRecords(r.cfg.maxStakeAddresses),
		paginate.WithEndOfDataErrors(blockfrost.ErrMalformedResponse),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAccountLookupFailed, stake, err)
	}

	group := make([]string, 0)
	for _, a := range addresses {
		if _, ok := members[a.Address]; ok && !slices.Contains(group, a.Address) {
			group = append(group, a.Address)
		}
	}
	slices.Sort(group)

	for _, member := range group {
		r.cache.Add(member, group)
	}

	return group, nil
}
