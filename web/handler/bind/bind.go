package bind

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bewie03/bubblemap/holders"
	"github.com/bewie03/bubblemap/web/api"
)

// Sentinel errors for request binding
var (
	ErrInvalidPolicyID = errors.New("invalid policyID parameter")
	ErrInvalidAsset    = errors.New("invalid asset parameter")

	// Specific asset validation errors
	ErrAssetNotHex       = errors.New("asset must be hexadecimal")
	ErrAssetWrongPolicy  = errors.New("asset must start with the policy id")
	ErrAssetNameTooLong  = errors.New("asset name must be at most 32 bytes")
	ErrAssetNameOddBytes = errors.New("asset name must be whole bytes")
)

// maxAssetNameHex is the longest asset name Cardano allows (32 bytes), hex encoded
const maxAssetNameHex = 64

// HoldersRequest binds the path and query of a holders request to a lookup request
func HoldersRequest(r *http.Request) (holders.Request, error) {
	req := api.HoldersRequest{
		PolicyID: r.PathValue("policyID"),
		AssetID:  r.URL.Query().Get("asset"),
	}

	policyID, err := holders.ValidatePolicyID(req.PolicyID)
	if err != nil {
		return holders.Request{}, fmt.Errorf("%w: %w", ErrInvalidPolicyID, err)
	}

	assetID := strings.ToLower(strings.TrimSpace(req.AssetID))
	if assetID != "" {
		if err := validateAssetID(policyID, assetID); err != nil {
			return holders.Request{}, fmt.Errorf("%w: %w", ErrInvalidAsset, err)
		}
	}

	return holders.Request{PolicyID: policyID, AssetID: assetID}, nil
}

// validateAssetID checks the asset is the policy id followed by a hex asset name
func validateAssetID(policyID, assetID string) error {
	for _, c := range assetID {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return ErrAssetNotHex
		}
	}

	name, ok := strings.CutPrefix(assetID, policyID)
	if !ok {
		return ErrAssetWrongPolicy
	}
	if len(name) > maxAssetNameHex {
		return ErrAssetNameTooLong
	}
	if len(name)%2 != 0 {
		return ErrAssetNameOddBytes
	}

	return nil
}

// HoldersResponse binds a lookup result to the API response format
func HoldersResponse(result *holders.Result) api.HoldersResponse {
	return api.HoldersResponse{Data: distribution(result)}
}

// ResultMessage binds a lookup result to the final stream frame
func ResultMessage(result *holders.Result) api.StreamMessage {
	data := distribution(result)
	return api.StreamMessage{Type: api.MessageResult, Data: &data}
}

// ErrorMessage binds a lookup failure to the final stream frame
func ErrorMessage(err *api.Error) api.StreamMessage {
	return api.StreamMessage{Type: api.MessageError, Error: err}
}

// ProgressMessage binds a lifecycle event to a stream frame.
// Failures are reported by ErrorMessage, so LookupFailed yields false.
func ProgressMessage(ev holders.Event) (api.StreamMessage, bool) {
	var p api.Progress

	switch e := ev.(type) {
	case holders.LookupStarted:
		p = api.Progress{Stage: "started", SessionID: e.SessionID.String()}
	case holders.AssetsFetched:
		p = api.Progress{Stage: "assets", SessionID: e.SessionID.String(), Assets: e.Count, Mode: string(e.Mode)}
	case holders.HoldersAggregated:
		p = api.Progress{Stage: "holders", SessionID: e.SessionID.String(), Holders: e.Holders, TotalSupply: e.TotalSupply}
	case holders.RelationBatchCompleted:
		p = api.Progress{Stage: "relations", SessionID: e.SessionID.String(), Batch: e.Batch, Batches: e.Batches, Failed: e.Failed}
	case holders.LookupDone:
		p = api.Progress{Stage: "done", SessionID: e.SessionID.String(), Holders: e.Holders, Links: e.Links}
	default:
		return api.StreamMessage{}, false
	}

	return api.StreamMessage{Type: api.MessageProgress, Progress: &p}, true
}

func distribution(result *holders.Result) api.Distribution {
	dist := api.Distribution{
		SessionID:             result.SessionID.String(),
		PolicyID:              result.PolicyID,
		Mode:                  string(result.Mode),
		Assets:                make([]api.Asset, len(result.Assets)),
		Decimals:              result.Distribution.Decimals,
		TotalSupply:           result.Distribution.TotalSupply,
		Holders:               make([]api.Holder, len(result.Distribution.Holders)),
		Links:                 make([]api.Link, len(result.Links)),
		FailedRelationLookups: result.FailedRelationLookups,
		RelationsIncomplete:   result.RelationsIncomplete,
	}

	for i, a := range result.Assets {
		dist.Assets[i] = asset(a)
	}
	if result.Selected != nil {
		selected := asset(*result.Selected)
		dist.Selected = &selected
	}
	for i, h := range result.Distribution.Holders {
		related := h.Related
		if related == nil {
			related = []string{}
		}
		dist.Holders[i] = api.Holder{
			Rank:     i + 1,
			Address:  h.Address,
			Quantity: h.Quantity.String(),
			Amount:   h.Amount,
			Related:  related,
		}
	}
	for i, l := range result.Links {
		dist.Links[i] = api.Link{Source: l.Source, Target: l.Target}
	}

	return dist
}

func asset(a holders.Asset) api.Asset {
	return api.Asset{
		ID:          a.ID,
		Name:        a.DisplayName(),
		Ticker:      a.Ticker,
		Fingerprint: a.Fingerprint,
		Decimals:    a.Decimals,
	}
}
