package holders

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bewie03/bubblemap/pkg/blockfrost"
	"github.com/bewie03/bubblemap/pkg/paginate"
)

var policyIDPattern = regexp.MustCompile(`^[0-9a-f]{56}$`)

// Service looks up the holder distribution of a policy
// -----------------------------------------------------------------
type Service struct {
	api  API
	opts []Option
	cfg  settings
}

// NewService constructs a Service with required dependencies and options
// ---------------------------------------------------------------------
// By default, it uses a real clock, 10 req/s with a burst of 10, the top 150
// holders, and resolves related wallets in batches of 5 one second apart.
func NewService(api API, opts ...Option) *Service {
	return &Service{
		api:  api,
		opts: opts,
		cfg:  newSettings(opts),
	}
}

// ValidatePolicyID normalises a policy id and checks it is 56 hex characters
func ValidatePolicyID(policyID string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(policyID))
	if !policyIDPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicyID, policyID)
	}
	return normalized, nil
}

// Lookup runs one lookup in a fresh session: assets, holders, then related wallets.
// Events go to the channel configured with WithEvents, if any.
func (s *Service) Lookup(ctx context.Context, req Request) (*Result, error) {
	return s.Stream(ctx, req, s.cfg.events)
}

// Stream runs one lookup like Lookup but delivers its events to the given channel.
// The channel is not closed; a nil channel disables events.
func (s *Service) Stream(ctx context.Context, req Request, events chan<- Event) (*Result, error) {
	l := &lookup{Service: s, id: uuid.New(), events: events}

	result, err := l.run(ctx, req)
	if err != nil {
		l.emit(ctx, LookupFailed{SessionID: l.id, Err: err})
		return nil, err
	}

	return result, nil
}

// lookup is a single run of the Service with its own id and event sink
type lookup struct {
	*Service
	id     uuid.UUID
	events chan<- Event
}

func (s *lookup) run(ctx context.Context, req Request) (*Result, error) {
	id, start := s.id, s.cfg.clock.Now()

	policyID, err := ValidatePolicyID(req.PolicyID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, LookupStarted{SessionID: id, PolicyID: policyID, StartedAt: start})

	session := newSession(id, s.api, s.cfg, append(slices.Clone(s.opts),
		WithBatchObserver(func(b BatchStats) {
			s.cfg.observeBatch(b)
			s.emit(ctx, RelationBatchCompleted{SessionID: id, BatchStats: b})
		}),
	))

	assets, inspected, err := s.fetchAssets(ctx, session, policyID)
	if err != nil {
		return nil, err
	}

	mode := classifyPolicy(assets, inspected)
	s.emit(ctx, AssetsFetched{SessionID: id, Count: len(assets), Mode: mode})

	targets, selected, err := s.selectAssets(ctx, session, mode, assets, inspected, req.AssetID)
	if err != nil {
		return nil, err
	}

	dist, err := s.distribution(ctx, session, targets)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, HoldersAggregated{SessionID: id, Holders: len(dist.Holders), TotalSupply: dist.TotalSupply})

	result := &Result{
		SessionID:    id,
		PolicyID:     policyID,
		Mode:         mode,
		Assets:       assets,
		Selected:     selected,
		Distribution: dist,
		Links:        []Link{},
	}

	if s.cfg.relations {
		relations, stats := session.resolver.Resolve(ctx, dist.Holders)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		Annotate(&result.Distribution, relations)
		result.Links = relations.Links()
		result.FailedRelationLookups = stats.Failed
		result.RelationsIncomplete = stats.Incomplete()
	}

	s.emit(ctx, LookupDone{
		SessionID:           id,
		Holders:             len(result.Distribution.Holders),
		Links:               len(result.Links),
		RelationsIncomplete: result.RelationsIncomplete,
		Duration:            s.cfg.clock.Now().Sub(start),
	})

	return result, nil
}

// fetchAssets lists every asset of the policy and loads the metadata of the
// first maxAssets of them. The remaining assets carry only their identifiers.
// It returns all assets together with the number that were inspected.
func (s *Service) fetchAssets(ctx context.Context, session *Session, policyID string) ([]Asset, int, error) {
	listed, err := paginate.FetchAll(ctx,
		func(ctx context.Context, page, count int) ([]blockfrost.PolicyAsset, error) {
			return session.api.PolicyAssets(ctx, policyID, page, count)
		},
		paginate.WithPageSize(s.cfg.pageSize),
		paginate.WithEndOfDataErrors(blockfrost.ErrMalformedResponse),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrAssetsFetchFailed, err)
	}

	assets := make([]Asset, 0, len(listed))
	for _, a := range listed {
		if a.Quantity.IsPositive() {
			assets = append(assets, bareAsset(policyID, a.Asset))
		}
	}
	if len(assets) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoAssets, policyID)
	}

	inspected := min(len(assets), s.cfg.maxAssets)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.batchSize)
	for i := range inspected {
		g.Go(func() error {
			asset, err := s.fetchAsset(gctx, session, assets[i].ID)
			if err != nil {
				return err
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return assets, inspected, nil
}

func (s *Service) fetchAsset(ctx context.Context, session *Session, assetID string) (Asset, error) {
	detail, err := session.api.Asset(ctx, assetID)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %s: %w", ErrAssetsFetchFailed, assetID, err)
	}
	return convertBlockfrostAsset(detail), nil
}

// classifyPolicy classifies a policy from its inspected assets.
// A policy with several assets of which only one was inspected is a collection.
func classifyPolicy(assets []Asset, inspected int) Mode {
	mode := Classify(assets[:inspected])
	if mode == ModeSingle && len(assets) > 1 {
		return ModeCollection
	}
	return mode
}

// selectAssets picks the assets whose holders make up the distribution
func (s *Service) selectAssets(ctx context.Context, session *Session, mode Mode, assets []Asset, inspected int, assetID string) ([]Asset, *Asset, error) {
	if assetID != "" {
		i := slices.IndexFunc(assets, func(a Asset) bool { return a.ID == assetID })
		if i < 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrAssetNotInPolicy, assetID)
		}

		if i >= inspected {
			asset, err := s.fetchAsset(ctx, session, assetID)
			if err != nil {
				return nil, nil, err
			}
			assets[i] = asset
		}
		return []Asset{assets[i]}, &assets[i], nil
	}

	switch mode {
	case ModeFungible:
		return assets, nil, nil
	case ModeCollection:
		return assets[:1], &assets[0], nil
	default:
		return assets[:1], nil, nil
	}
}

// distribution fetches the holders of every target asset and aggregates them
func (s *Service) distribution(ctx context.Context, session *Session, targets []Asset) (Distribution, error) {
	holdersByAsset := make([][]Holder, 0, len(targets))
	for _, asset := range targets {
		records, err := paginate.FetchAll(ctx,
			func(ctx context.Context, page, count int) ([]blockfrost.AssetHolder, error) {
				return session.api.AssetAddresses(ctx, asset.ID, page, count)
			},
			paginate.WithPageSize(s.cfg.pageSize),
			paginate.WithMaxRecords(s.cfg.maxHolders),
			paginate.WithEndOfDataErrors(blockfrost.ErrMalformedResponse),
		)
		if err != nil {
			return Distribution{}, fmt.Errorf("%w: %s: %w", ErrHoldersFetchFailed, asset.ID, err)
		}
		holdersByAsset = append(holdersByAsset, convertBlockfrostHolders(records))
	}

	dist := Aggregate(holdersByAsset, targets[0].Decimals)
	if len(dist.Holders) == 0 {
		return Distribution{}, ErrNoHolders
	}
	dist.Truncate(s.cfg.maxHolders)

	return dist, nil
}

func (s *lookup) emit(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// bareAsset describes a listed asset whose metadata was not fetched
func bareAsset(policyID, assetID string) Asset {
	name := strings.TrimPrefix(assetID, policyID)
	return Asset{
		ID:          assetID,
		PolicyID:    policyID,
		AssetName:   name,
		DecodedName: blockfrost.Asset{AssetName: &name}.DecodedAssetName(),
	}
}

// convertBlockfrostAsset converts an API asset to a domain asset
func convertBlockfrostAsset(a blockfrost.Asset) Asset {
	asset := Asset{
		ID:          a.Asset,
		PolicyID:    a.PolicyID,
		Fingerprint: a.Fingerprint,
		OnchainName: a.OnchainName(),
		DecodedName: a.DecodedAssetName(),
	}
	if a.AssetName != nil {
		asset.AssetName = *a.AssetName
	}
	if a.Metadata != nil {
		asset.Name = a.Metadata.Name
		asset.Ticker = a.Metadata.Ticker
		if a.Metadata.Decimals != nil && *a.Metadata.Decimals > 0 {
			asset.Decimals = *a.Metadata.Decimals
		}
	}
	return asset
}

// convertBlockfrostHolders converts API holders to domain holders
func convertBlockfrostHolders(records []blockfrost.AssetHolder) []Holder {
	holders := make([]Holder, len(records))
	for i, r := range records {
		holders[i] = Holder{
			Address:  r.Address,
			Quantity: r.Quantity,
		}
	}
	return holders
}
