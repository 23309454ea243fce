package holders

import (
	"context"

	"github.com/google/uuid"

	"github.com/bewie03/bubblemap/pkg/blockfrost"
	"github.com/bewie03/bubblemap/pkg/ratelimit"
)

// Session holds the mutable state of one lookup: its rate limiter and the
// relation cache inside its resolver. Sessions never share state.
type Session struct {
	ID       uuid.UUID
	api      API
	resolver *Resolver
}

func newSession(id uuid.UUID, api API, cfg settings, opts []Option) *Session {
	limiter := ratelimit.New(cfg.rps, cfg.burst,
		ratelimit.WithClock(cfg.clock),
		ratelimit.WithWaitObserver(cfg.observeWait),
	)
	limited := &limitedAPI{api: api, limiter: limiter}

	return &Session{
		ID:       id,
		api:      limited,
		resolver: NewResolver(limited, opts...),
	}
}

// limitedAPI sends every call through the session's rate limiter
type limitedAPI struct {
	api     API
	limiter *ratelimit.Limiter
}

func (l *limitedAPI) PolicyAssets(ctx context.Context, policyID string, page, count int) ([]blockfrost.PolicyAsset, error) {
	return ratelimit.Schedule(ctx, l.limiter, func(ctx context.Context) ([]blockfrost.PolicyAsset, error) {
		return l.api.PolicyAssets(ctx, policyID, page, count)
	})
}

func (l *limitedAPI) Asset(ctx context.Context, assetID string) (blockfrost.Asset, error) {
	return ratelimit.Schedule(ctx, l.limiter, func(ctx context.Context) (blockfrost.Asset, error) {
		return l.api.Asset(ctx, assetID)
	})
}

func (l *limitedAPI) AssetAddresses(ctx context.Context, assetID string, page, count int) ([]blockfrost.AssetHolder, error) {
	return ratelimit.Schedule(ctx, l.limiter, func(ctx context.Context) ([]blockfrost.AssetHolder, error) {
		return l.api.AssetAddresses(ctx, assetID, page, count)
	})
}

func (l *limitedAPI) Address(ctx context.Context, address string) (blockfrost.AddressInfo, error) {
	return ratelimit.Schedule(ctx, l.limiter, func(ctx context.Context) (blockfrost.AddressInfo, error) {
		return l.api.Address(ctx, address)
	})
}

func (l *limitedAPI) AccountAddresses(ctx context.Context, stakeAddress string, page, count int) ([]blockfrost.AccountAddress, error) {
	return ratelimit.Schedule(ctx, l.limiter, func(ctx context.Context) ([]blockfrost.AccountAddress, error) {
		return l.api.AccountAddresses(ctx, stakeAddress, page, count)
	})
}
