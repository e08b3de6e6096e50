package starknet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Wallet is the connected-account collaborator. Execute submits an ordered
// list of calls as one atomic transaction and returns the transaction hash
// once the network has accepted it — acceptance, not finality.
type Wallet interface {
	Address(ctx context.Context) (string, error)
	BalanceOf(ctx context.Context, token string) (decimal.Decimal, error)
	Execute(ctx context.Context, calls []Call) (string, error)
}

// AgentClient implements Wallet against a wallet agent's HTTP API. The agent
// holds the account key and signs on our behalf; this service only shapes the
// calls.
type AgentClient struct {
	baseURL  string
	decimals int32
	client   *http.Client
}

var _ Wallet = (*AgentClient)(nil)

// NewAgentClient creates a client for the wallet agent at baseURL. decimals
// is the token's fractional precision, used to scale raw balances into
// currency units.
func NewAgentClient(baseURL string, decimals int32, client *http.Client) *AgentClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &AgentClient{
		baseURL:  baseURL,
		decimals: decimals,
		client:   client,
	}
}

// Address returns the agent's connected account address.
func (c *AgentClient) Address(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	if err := c.get(ctx, "/address", &resp); err != nil {
		return "", errors.Wrap(err, "query address")
	}
	return resp.Address, nil
}

// BalanceOf returns the account's balance of the given token in currency
// units (raw balance shifted down by the token's decimals).
func (c *AgentClient) BalanceOf(ctx context.Context, token string) (decimal.Decimal, error) {
	var resp struct {
		Balance string `json:"balance"`
	}
	if err := c.get(ctx, "/balance?token="+url.QueryEscape(token), &resp); err != nil {
		return decimal.Zero, errors.Wrap(err, "query balance")
	}

	raw, err := decimal.NewFromString(resp.Balance)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse balance %q", resp.Balance)
	}
	return raw.Shift(-c.decimals), nil
}

// Execute submits the calls as a single multicall transaction.
func (c *AgentClient) Execute(ctx context.Context, calls []Call) (string, error) {
	body, err := json.Marshal(struct {
		Calls []Call `json:"calls"`
	}{Calls: calls})
	if err != nil {
		return "", errors.Wrap(err, "encode calls")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		TransactionHash string `json:"transaction_hash"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", errors.Wrap(err, "execute transaction")
	}
	if resp.TransactionHash == "" {
		return "", errors.New("agent accepted the transaction but returned no hash")
	}
	return resp.TransactionHash, nil
}

func (c *AgentClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	return c.do(req, out)
}

func (c *AgentClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Agent errors carry a message body; surface it to the user.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(msg, &envelope) == nil && envelope.Error != "" {
			return errors.Errorf("wallet agent: %s", envelope.Error)
		}
		return errors.Errorf("wallet agent: unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
