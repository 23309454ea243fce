package holders_test

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bewie03/bubblemap/pkg/blockfrost"
)

const testPolicyID = "f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a"

// fakeAsset is an asset served by the fake chain
type fakeAsset struct {
	unit     string // asset name on chain, defaults to name
	name     string
	ticker   string
	decimals int
	holders  []fakeBalance
}

type fakeBalance struct {
	address  string
	quantity string
}

// fakeChain serves the Blockfrost endpoints a lookup uses from memory
type fakeChain struct {
	assets   []fakeAsset
	stakes   map[string]string   // address -> stake address
	accounts map[string][]string // stake address -> addresses
	failing  map[string]int      // path -> status code

	mu    sync.Mutex
	calls map[string]int
}

func newFakeChain(assets ...fakeAsset) *fakeChain {
	return &fakeChain{
		assets:   assets,
		stakes:   map[string]string{},
		accounts: map[string][]string{},
		failing:  map[string]int{},
		calls:    map[string]int{},
	}
}

// withStake puts the addresses under one staking key
func (c *fakeChain) withStake(stake string, addresses ...string) *fakeChain {
	for _, a := range addresses {
		c.stakes[a] = stake
	}
	c.accounts[stake] = append(c.accounts[stake], addresses...)
	return c
}

// failingWith makes requests to path answer with status
func (c *fakeChain) failingWith(path string, status int) *fakeChain {
	c.failing[path] = status
	return c
}

func (c *fakeChain) callsTo(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

func (c *fakeChain) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (a fakeAsset) id() string {
	if a.unit != "" {
		return assetID(a.unit)
	}
	return assetID(a.name)
}

func assetID(name string) string {
	return testPolicyID + hex.EncodeToString([]byte(name))
}

func (c *fakeChain) handler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.calls[r.URL.Path]++
		c.mu.Unlock()

		if status, ok := c.failing[r.URL.Path]; ok {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"status_code":` + strconv.Itoa(status) + `,"message":"fake failure"}`))
			return
		}

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 3 && parts[0] == "assets" && parts[1] == "policy":
			rows := make([]map[string]string, 0)
			if parts[2] == testPolicyID {
				for _, a := range c.assets {
					rows = append(rows, map[string]string{"asset": a.id(), "quantity": "1"})
				}
			}
			writePage(t, w, r, rows)
		case len(parts) == 2 && parts[0] == "assets":
			a, ok := c.asset(parts[1])
			if !ok {
				http.NotFound(w, r)
				return
			}
			writeBody(t, w, map[string]any{
				"asset":       a.id(),
				"policy_id":   testPolicyID,
				"asset_name":  strings.TrimPrefix(a.id(), testPolicyID),
				"fingerprint": "asset1" + a.name,
				"quantity":    "1",
				"metadata": map[string]any{
					"name":     a.name,
					"ticker":   a.ticker,
					"decimals": a.decimals,
				},
			})
		case len(parts) == 3 && parts[0] == "assets" && parts[2] == "addresses":
			a, _ := c.asset(parts[1])
			rows := make([]map[string]string, 0, len(a.holders))
			for _, h := range a.holders {
				rows = append(rows, map[string]string{"address": h.address, "quantity": h.quantity})
			}
			writePage(t, w, r, rows)
		case len(parts) == 2 && parts[0] == "addresses":
			body := map[string]any{"address": parts[1], "stake_address": nil, "type": "shelley", "script": false}
			if stake, ok := c.stakes[parts[1]]; ok {
				body["stake_address"] = stake
			}
			writeBody(t, w, body)
		case len(parts) == 3 && parts[0] == "accounts" && parts[2] == "addresses":
			rows := make([]map[string]string, 0)
			for _, a := range c.accounts[parts[1]] {
				rows = append(rows, map[string]string{"address": a})
			}
			writePage(t, w, r, rows)
		default:
			http.NotFound(w, r)
		}
	}
}

func (c *fakeChain) asset(id string) (fakeAsset, bool) {
	for _, a := range c.assets {
		if a.id() == id {
			return a, true
		}
	}
	return fakeAsset{}, false
}

// client starts the fake chain and returns a Blockfrost client pointing to it
func (c *fakeChain) client(t *testing.T) *blockfrost.Client {
	t.Helper()

	server := httptest.NewServer(c.handler(t))
	t.Cleanup(server.Close)

	client, err := blockfrost.NewClient(server.Client(), server.URL, "testProject")
	require.NoError(t, err)

	return client
}

func writePage[T any](t *testing.T, w http.ResponseWriter, r *http.Request, rows []T) {
	t.Helper()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	if page < 1 {
		page = 1
	}
	if count < 1 {
		count = 100
	}

	from := min((page-1)*count, len(rows))
	to := min(from+count, len(rows))
	writeBody(t, w, rows[from:to])
}

func writeBody(t *testing.T, w http.ResponseWriter, body any) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Errorf("Failed to marshal test data: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// balances parses "address:quantity" pairs
func balances(pairs ...string) []fakeBalance {
	out := make([]fakeBalance, len(pairs))
	for i, p := range pairs {
		address, quantity, _ := strings.Cut(p, ":")
		out[i] = fakeBalance{address: address, quantity: quantity}
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
