// Package holders builds the ranked holder distribution of a Cardano policy
// and links holders that share a staking key.
package holders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bewie03/bubblemap/pkg/blockfrost"
)

// Sentinel errors for failure cases
var (
	ErrInvalidPolicyID    = errors.New("invalid policy id")
	ErrAssetsFetchFailed  = errors.New("fetching policy assets failed")
	ErrHoldersFetchFailed = errors.New("fetching asset holders failed")
	ErrNoAssets           = errors.New("no assets found for policy")
	ErrNoHolders          = errors.New("no holders found")
	ErrAssetNotInPolicy   = errors.New("asset does not belong to policy")
)

// Default configuration values
const (
	DefaultPageSize          = 100
	DefaultMaxHolders        = 150
	DefaultMaxAssets         = 100
	DefaultBatchSize         = 5
	DefaultBatchDelay        = time.Second
	DefaultCacheSize         = 4096
	DefaultMaxStakeAddresses = 1000
)

// RelationsAPI resolves staking keys and the addresses under them
// ----------------------------------------------------------------
type RelationsAPI interface {
	Address(ctx context.Context, address string) (blockfrost.AddressInfo, error)
	AccountAddresses(ctx context.Context, stakeAddress string, page, count int) ([]blockfrost.AccountAddress, error)
}

// API is the subset of the Blockfrost API a lookup needs
type API interface {
	RelationsAPI
	PolicyAssets(ctx context.Context, policyID string, page, count int) ([]blockfrost.PolicyAsset, error)
	Asset(ctx context.Context, assetID string) (blockfrost.Asset, error)
	AssetAddresses(ctx context.Context, assetID string, page, count int) ([]blockfrost.AssetHolder, error)
}

// Clock abstracts time for production and testing
// ------------------------------------------------
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// Event represents a lookup lifecycle event
// -----------------------------------------
type Event any

type LookupStarted struct {
	SessionID uuid.UUID
	PolicyID  string
	StartedAt time.Time
}

type AssetsFetched struct {
	SessionID uuid.UUID
	Count     int
	Mode      Mode
}

type HoldersAggregated struct {
	SessionID   uuid.UUID
	Holders     int
	TotalSupply string
}

type RelationBatchCompleted struct {
	SessionID uuid.UUID
	BatchStats
}

type LookupDone struct {
	SessionID           uuid.UUID
	Holders             int
	Links               int
	RelationsIncomplete bool
	Duration            time.Duration
}

type LookupFailed struct {
	SessionID uuid.UUID
	Err       error
}
