package holders

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset represents a native asset in the holders domain model
type Asset struct {
	ID          string `json:"id"`
	PolicyID    string `json:"policy_id"`
	AssetName   string `json:"asset_name"`
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name,omitempty"`
	OnchainName string `json:"-"`
	DecodedName string `json:"-"`
	Ticker      string `json:"ticker,omitempty"`
	Decimals    int    `json:"decimals"`
}

// DisplayName picks the registry name, then the on-chain name, then the decoded asset name
func (a Asset) DisplayName() string {
	for _, name := range []string{a.Name, a.OnchainName, a.DecodedName} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return a.ID
}

// Holder is a single address and its balance of the selected asset(s)
type Holder struct {
	Address  string          `json:"address"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   string          `json:"amount"`
	Related  []string        `json:"related"`
}

// Distribution is the ranked list of holders
type Distribution struct {
	Holders     []Holder `json:"holders"`
	Decimals    int      `json:"decimals"`
	TotalSupply string   `json:"total_supply"`
}

// Truncate keeps the top n holders and recomputes the total supply
func (d *Distribution) Truncate(n int) {
	if n <= 0 || len(d.Holders) <= n {
		return
	}
	d.Holders = d.Holders[:n]

	total := decimal.Zero
	for _, h := range d.Holders {
		total = total.Add(h.Quantity)
	}
	d.TotalSupply = FormatQuantity(total, d.Decimals)
}

// Addresses returns the holder addresses in rank order
func (d Distribution) Addresses() []string {
	addresses := make([]string, len(d.Holders))
	for i, h := range d.Holders {
		addresses[i] = h.Address
	}
	return addresses
}

// Mode describes how the assets under a policy are presented
type Mode string

// Supported modes
const (
	ModeSingle     Mode = "single"
	ModeFungible   Mode = "fungible"
	ModeCollection Mode = "collection"
)

// Link is an undirected edge between two related holders
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Relations maps an address to the set of other addresses sharing its staking key
type Relations map[string]map[string]struct{}

// Connect relates every member of the group to every other member
func (r Relations) Connect(group []string) {
	for _, a := range group {
		for _, b := range group {
			if a == b {
				continue
			}
			if r[a] == nil {
				r[a] = make(map[string]struct{})
			}
			r[a][b] = struct{}{}
		}
	}
}

// Related returns the sorted addresses related to address
func (r Relations) Related(address string) []string {
	related := make([]string, 0, len(r[address]))
	for other := range r[address] {
		related = append(related, other)
	}
	slices.Sort(related)
	return related
}

// Links returns every edge once with Source < Target, sorted
func (r Relations) Links() []Link {
	links := make([]Link, 0)
	for a, others := range r {
		for b := range others {
			if a < b {
				links = append(links, Link{Source: a, Target: b})
			}
		}
	}
	slices.SortFunc(links, func(x, y Link) int {
		if c := strings.Compare(x.Source, y.Source); c != 0 {
			return c
		}
		return strings.Compare(x.Target, y.Target)
	})
	return links
}

// Request selects what to look up
type Request struct {
	PolicyID string
	// AssetID selects one asset of a collection; empty means the default
	AssetID string
}

// Result is the outcome of one lookup
type Result struct {
	SessionID             uuid.UUID    `json:"session_id"`
	PolicyID              string       `json:"policy_id"`
	Mode                  Mode         `json:"mode"`
	Assets                []Asset      `json:"assets"`
	Selected              *Asset       `json:"selected,omitempty"`
	Distribution          Distribution `json:"distribution"`
	Links                 []Link       `json:"links"`
	FailedRelationLookups int          `json:"failed_relation_lookups"`
	RelationsIncomplete   bool         `json:"relations_incomplete"`
}
