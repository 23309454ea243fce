package api

// HoldersRequest represents the path and query parameters of the holder endpoints
type HoldersRequest struct {
	PolicyID string `path:"policyID"` // 56 hex characters
	AssetID  string `query:"asset"`   // Optional asset of a collection
}

// Asset represents an asset under the looked-up policy
type Asset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Ticker      string `json:"ticker,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Decimals    int    `json:"decimals"`
}

// Holder represents a ranked holder in the API response
type Holder struct {
	Rank     int      `json:"rank"`
	Address  string   `json:"address"`
	Quantity string   `json:"quantity"`
	Amount   string   `json:"amount"`
	Related  []string `json:"related"`
}

// Link represents an edge between two related holders
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Distribution is the lookup result as consumed by the bubble map
type Distribution struct {
	SessionID             string   `json:"session_id"`
	PolicyID              string   `json:"policy_id"`
	Mode                  string   `json:"mode"`
	Assets                []Asset  `json:"assets"`
	Selected              *Asset   `json:"selected,omitempty"`
	Decimals              int      `json:"decimals"`
	TotalSupply           string   `json:"total_supply"`
	Holders               []Holder `json:"holders"`
	Links                 []Link   `json:"links"`
	FailedRelationLookups int      `json:"failed_relation_lookups"`
	RelationsIncomplete   bool     `json:"relations_incomplete"`
}

// HoldersResponse represents the API response format for GET /api/policies/{policyID}/holders
type HoldersResponse struct {
	Data Distribution `json:"data"`
}

// Stream message types
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// Progress describes one lookup stage on the websocket stream
type Progress struct {
	Stage       string `json:"stage"`
	SessionID   string `json:"session_id"`
	Assets      int    `json:"assets,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Holders     int    `json:"holders,omitempty"`
	TotalSupply string `json:"total_supply,omitempty"`
	Batch       int    `json:"batch,omitempty"`
	Batches     int    `json:"batches,omitempty"`
	Failed      int    `json:"failed,omitempty"`
	Links       int    `json:"links,omitempty"`
}

// StreamMessage is one JSON frame of GET /api/policies/{policyID}/stream
type StreamMessage struct {
	Type     string        `json:"type"`
	Progress *Progress     `json:"progress,omitempty"`
	Data     *Distribution `json:"data,omitempty"`
	Error    *Error        `json:"error,omitempty"`
}

// HealthResponse represents the response of GET /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
