package blockfrost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Cardano mainnet endpoint
	DefaultBaseURL = "https://cardano-mainnet.blockfrost.io/api/v0"

	projectIDHeader = "project_id"
	maxErrorBody    = 4 << 10
)

// RequestObserver is notified after every round trip; status is 0 on transport failure
type RequestObserver func(endpoint string, status int, d time.Duration)

// Option configures the Client
type Option func(*Client)

// WithRequestObserver sets a callback invoked after each request
func WithRequestObserver(observe RequestObserver) Option {
	return func(c *Client) {
		if observe != nil {
			c.observe = observe
		}
	}
}

// Client represents a Blockfrost API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	observe    RequestObserver
}

// NewClient creates a new Blockfrost API client with the given HTTP client, base URL and project id
func NewClient(httpClient *http.Client, baseURL, projectID string, opts ...Option) (*Client, error) {
	if projectID == "" {
		return nil, ErrMissingProjectID
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		observe:    func(string, int, time.Duration) {},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// PolicyAssets returns one page of assets minted under the policy
func (c *Client) PolicyAssets(ctx context.Context, policyID string, page, count int) ([]PolicyAsset, error) {
	return getList[PolicyAsset](ctx, c, "assets/policy", "/assets/policy/"+url.PathEscape(policyID), page, count)
}

// Asset returns the details of a single asset
func (c *Client) Asset(ctx context.Context, assetID string) (Asset, error) {
	var asset Asset
	if err := c.getObject(ctx, "assets", "/assets/"+url.PathEscape(assetID), &asset); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// AssetAddresses returns one page of addresses holding the asset
func (c *Client) AssetAddresses(ctx context.Context, assetID string, page, count int) ([]AssetHolder, error) {
	return getList[AssetHolder](ctx, c, "assets/addresses", "/assets/"+url.PathEscape(assetID)+"/addresses", page, count)
}

// Address returns the details of an address including its staking key
func (c *Client) Address(ctx context.Context, address string) (AddressInfo, error) {
	var info AddressInfo
	if err := c.getObject(ctx, "addresses", "/addresses/"+url.PathEscape(address), &info); err != nil {
		return AddressInfo{}, err
	}
	return info, nil
}

// AccountAddresses returns one page of addresses controlled by the staking key
func (c *Client) AccountAddresses(ctx context.Context, stakeAddress string, page, count int) ([]AccountAddress, error) {
	return getList[AccountAddress](ctx, c, "accounts/addresses", "/accounts/"+url.PathEscape(stakeAddress)+"/addresses", page, count)
}

type record interface {
	validate() error
}

func getList[T record](ctx context.Context, c *Client, endpoint, path string, page, count int) ([]T, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("count", strconv.Itoa(count))

	body, err := c.get(ctx, endpoint, path+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s: expected a JSON array", ErrMalformedResponse, endpoint)
	}

	// an array whose records do not decode or validate is not the end of the data
	var records []T
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRecord, endpoint, err)
	}

	// one bad record rejects the page
	for i, r := range records {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %w", ErrInvalidRecord, endpoint, i, err)
		}
	}

	return records, nil
}

func (c *Client) getObject(ctx context.Context, endpoint, path string, out record) error {
	body, err := c.get(ctx, endpoint, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, endpoint, err)
	}
	if err := out.validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRecord, endpoint, err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, endpoint, pathAndQuery string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set(projectIDHeader, c.projectID)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	c.observe(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return body, nil
}
