package holders

import (
	"context"
	"errors"
	"fmt"

	"github.com/bewie03/bubblemap/pkg/blockfrost"
)

// UserMessage returns the message shown to the user for a lookup failure.
// Internal details stay in the logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPolicyID):
		return "Policy ID must be 56 hexadecimal characters."
	case errors.Is(err, ErrAssetNotInPolicy):
		return "The selected asset does not belong to this policy."
	case errors.Is(err, ErrNoHolders):
		return "No holders found for this asset."
	case errors.Is(err, ErrNoAssets), errors.Is(err, blockfrost.ErrNotFound):
		return "No assets found for this policy ID."
	case errors.Is(err, blockfrost.ErrMissingProjectID):
		return "The Blockfrost project ID is not configured."
	case errors.Is(err, blockfrost.ErrAccessDenied):
		return "Access to the Blockfrost API was denied. Check the project ID."
	case errors.Is(err, context.DeadlineExceeded):
		return "The lookup timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "The lookup was cancelled."
	case errors.Is(err, blockfrost.ErrInvalidRecord):
		return "Blockfrost returned invalid token data. Please try again."
	}

	var apiErr *blockfrost.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Blockfrost API error (status %d). Please try again.", apiErr.StatusCode)
	}
	return "Failed to fetch token data. Please try again."
}

// IsNotFound reports whether err means the requested data does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoAssets) ||
		errors.Is(err, ErrNoHolders) ||
		errors.Is(err, ErrAssetNotInPolicy) ||
		errors.Is(err, blockfrost.ErrNotFound)
}
