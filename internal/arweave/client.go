package arweave

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// Client talks to an Arweave-style content gateway over HTTP. Every call
// carries the configured timeout so a stalled gateway cannot pin an
// issuance worker indefinitely.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a gateway client. timeout bounds each request including
// the upload body transfer.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Price returns the current cost in winston of storing size bytes. Prices
// fluctuate, so the quote is fetched live and never cached.
func (c *Client) Price(ctx context.Context, size int) (int64, error) {
	body, err := c.get(ctx, fmt.Sprintf("/price/%d", size))
	if err != nil {
		return 0, fmt.Errorf("fetch price terms: %w", err)
	}
	price, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed price %q: %w", body, err)
	}
	return price, nil
}

// Anchor returns a recent transaction anchor for the last_tx field.
func (c *Client) Anchor(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/tx_anchor")
	if err != nil {
		return "", fmt.Errorf("fetch tx anchor: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// Submit posts a signed transaction to the gateway.
func (c *Client) Submit(ctx context.Context, tx *Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tx", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("submit transaction: gateway returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Status queries the confirmation status of a submitted transaction. The
// gateway answers "Pending" as text until the transaction lands in a block,
// then a JSON confirmation document; either is returned verbatim.
func (c *Client) Status(ctx context.Context, txID id.TransactionID) (string, error) {
	body, err := c.get(ctx, "/tx/"+url.PathEscape(txID.String())+"/status")
	if err != nil {
		return "", fmt.Errorf("fetch status for %s: %w", txID, err)
	}
	return strings.TrimSpace(string(body)), nil
}

// Data fetches and decodes the payload of a published transaction.
func (c *Client) Data(ctx context.Context, txID id.TransactionID) ([]byte, error) {
	body, err := c.get(ctx, "/tx/"+url.PathEscape(txID.String())+"/data")
	if err != nil {
		return nil, fmt.Errorf("fetch data for %s: %w", txID, err)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("decode data for %s: %w", txID, err)
	}
	return decoded, nil
}

// graphqlQuery is the shape of a gateway GraphQL request.
type graphqlQuery struct {
	Query string `json:"query"`
}

// TransactionsByTag looks up transaction ids carrying the given tag on the
// gateway's GraphQL endpoint.
func (c *Client) TransactionsByTag(ctx context.Context, name, value string) ([]id.TransactionID, error) {
	query := fmt.Sprintf(`query {
	  transactions(tags: { name: %q, values: [%q] }) {
	    edges { node { id } }
	  }
	}`, name, value)

	payload, err := json.Marshal(graphqlQuery{Query: query})
	if err != nil {
		return nil, fmt.Errorf("encode graphql query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query transactions: gateway returned %d", resp.StatusCode)
	}

	var decoded struct {
		Data struct {
			Transactions struct {
				Edges []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"transactions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	ids := make([]id.TransactionID, 0, len(decoded.Data.Transactions.Edges))
	for _, edge := range decoded.Data.Transactions.Edges {
		ids = append(ids, id.TransactionID(edge.Node.ID))
	}
	return ids, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted:
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}
