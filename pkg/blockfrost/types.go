package blockfrost

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Record validation errors
var (
	ErrEmptyAddress    = errors.New("empty address")
	ErrEmptyAssetID    = errors.New("empty asset id")
	ErrInvalidQuantity = errors.New("quantity must be a non-negative integer")
)

// PolicyAsset is an asset minted under a policy, as listed by /assets/policy/{policy_id}
type PolicyAsset struct {
	Asset    string          `json:"asset"`
	Quantity decimal.Decimal `json:"quantity"`
}

func (a PolicyAsset) validate() error {
	if a.Asset == "" {
		return ErrEmptyAssetID
	}
	return validateQuantity(a.Quantity)
}

// AssetMetadata is the off-chain token registry metadata of an asset
type AssetMetadata struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Decimals *int   `json:"decimals"`
}

// Asset is the detail view returned by /assets/{asset}
type Asset struct {
	Asset           string                     `json:"asset"`
	PolicyID        string                     `json:"policy_id"`
	AssetName       *string                    `json:"asset_name"`
	Fingerprint     string                     `json:"fingerprint"`
	Quantity        decimal.Decimal            `json:"quantity"`
	OnchainMetadata map[string]json.RawMessage `json:"onchain_metadata"`
	Metadata        *AssetMetadata             `json:"metadata"`
}

func (a Asset) validate() error {
	if a.Asset == "" {
		return ErrEmptyAssetID
	}
	return validateQuantity(a.Quantity)
}

// OnchainName returns the CIP-25 "name" field when it is a plain string
func (a Asset) OnchainName() string {
	raw, ok := a.OnchainMetadata["name"]
	if !ok {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return ""
	}
	return name
}

// DecodedAssetName returns the hex asset name as text when it is valid UTF-8
func (a Asset) DecodedAssetName() string {
	if a.AssetName == nil || *a.AssetName == "" {
		return ""
	}
	b, err := hex.DecodeString(*a.AssetName)
	if err != nil || !utf8.Valid(b) {
		return ""
	}
	return string(b)
}

// AssetHolder is one row of /assets/{asset}/addresses
type AssetHolder struct {
	Address  string          `json:"address"`
	Quantity decimal.Decimal `json:"quantity"`
}

func (h AssetHolder) validate() error {
	if h.Address == "" {
		return ErrEmptyAddress
	}
	return validateQuantity(h.Quantity)
}

// AddressInfo is the subset of /addresses/{address} used to find the staking key
type AddressInfo struct {
	Address      string  `json:"address"`
	StakeAddress *string `json:"stake_address"`
	Type         string  `json:"type"`
	Script       bool    `json:"script"`
}

func (a AddressInfo) validate() error {
	if a.Address == "" {
		return ErrEmptyAddress
	}
	return nil
}

// Stake returns the staking key of the address, or "" for enterprise/Byron addresses
func (a AddressInfo) Stake() string {
	if a.StakeAddress == nil {
		return ""
	}
	return *a.StakeAddress
}

// AccountAddress is one row of /accounts/{stake_address}/addresses
type AccountAddress struct {
	Address string `json:"address"`
}

func (a AccountAddress) validate() error {
	if a.Address == "" {
		return ErrEmptyAddress
	}
	return nil
}

func validateQuantity(q decimal.Decimal) error {
	if q.IsNegative() || !q.IsInteger() {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, q.String())
	}
	return nil
}
