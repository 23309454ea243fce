package holders

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatQuantity renders a raw integer quantity with the given number of decimals.
// Trailing fractional zeros are dropped and the value is never rounded.
func FormatQuantity(raw decimal.Decimal, decimals int) string {
	if decimals <= 0 {
		return raw.String()
	}
	return raw.Shift(-int32(decimals)).String()
}

// Aggregate sums the balances of every address across the given holder sets
// and returns them ranked by raw quantity, largest first.
func Aggregate(holdersByAsset [][]Holder, decimals int) Distribution {
	totals := make(map[string]decimal.Decimal)
	for _, set := range holdersByAsset {
		for _, h := range set {
			if q, ok := totals[h.Address]; ok {
				totals[h.Address] = q.Add(h.Quantity)
				continue
			}
			totals[h.Address] = h.Quantity
		}
	}

	dist := Distribution{
		Holders:  make([]Holder, 0, len(totals)),
		Decimals: decimals,
	}
	total := decimal.Zero
	for address, q := range totals {
		total = total.Add(q)
		dist.Holders = append(dist.Holders, Holder{
			Address:  address,
			Quantity: q,
			Amount:   FormatQuantity(q, decimals),
			Related:  []string{},
		})
	}

	slices.SortFunc(dist.Holders, func(a, b Holder) int {
		if c := b.Quantity.Cmp(a.Quantity); c != 0 {
			return c
		}
		return strings.Compare(a.Address, b.Address)
	})
	dist.TotalSupply = FormatQuantity(total, decimals)

	return dist
}

// Classify decides how the assets of a policy are presented
func Classify(assets []Asset) Mode {
	if len(assets) <= 1 {
		return ModeSingle
	}

	name := assets[0].DisplayName()
	for _, a := range assets[1:] {
		if a.DisplayName() != name {
			return ModeCollection
		}
	}
	return ModeFungible
}

// Annotate copies the related addresses of each holder from relations
func Annotate(dist *Distribution, relations Relations) {
	for i := range dist.Holders {
		dist.Holders[i].Related = relations.Related(dist.Holders[i].Address)
	}
}
