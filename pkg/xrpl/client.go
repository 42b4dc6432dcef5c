package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/givefi/givefi-backend/pkg/config"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
)

const defaultHistoryLimit = 20

var errLoggerRequired = errors.New("xrpl logger is required")

// Client talks JSON-RPC to an XRPL node. It only implements the read surface
// the tracer needs; wallet management and submission live elsewhere.
type Client struct {
	rpcURL       string
	httpClient   *http.Client
	historyLimit int
	logger       *logger.Logger
}

// NewClient validates the endpoint configuration and builds the RPC wrapper.
func NewClient(ctx context.Context, cfg config.LedgerConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("xrpl rpc url is required")
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	c := &Client{
		rpcURL:       rpcURL,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		historyLimit: limit,
		logger:       logg,
	}

	logg.Info(ctx, "xrpl client initialized")
	return c, nil
}

// HistoryLimit returns the configured per-address page size.
func (c *Client) HistoryLimit() int {
	return c.historyLimit
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type accountTxParams struct {
	Account        string `json:"account"`
	LedgerIndexMax int    `json:"ledger_index_max"`
	Limit          int    `json:"limit"`
}

type accountTxResponse struct {
	Result struct {
		Status       string           `json:"status"`
		ErrorMessage string           `json:"error_message"`
		Transactions []rawTransaction `json:"transactions"`
	} `json:"result"`
}

// AccountTransactions fetches the most recent ledger history for an address
// and decodes it into the tagged transaction form. Entries of unknown types
// are dropped; a malformed entry fails the whole fetch so callers can treat
// the address as unreadable rather than silently partial.
func (c *Client) AccountTransactions(ctx context.Context, address string, limit int) ([]AccountTransaction, error) {
	if strings.TrimSpace(address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if limit <= 0 {
		limit = c.historyLimit
	}

	payload := rpcRequest{
		Method: "account_tx",
		Params: []any{accountTxParams{
			Account:        address,
			LedgerIndexMax: -1,
			Limit:          limit,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode account_tx request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build account_tx request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamLedger, err, "ledger request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamLedger, fmt.Sprintf("ledger returned status %d", resp.StatusCode))
	}

	var decoded accountTxResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamLedger, err, "decode account_tx response")
	}
	if decoded.Result.Status != "success" {
		msg := decoded.Result.ErrorMessage
		if msg == "" {
			msg = "account_tx returned non-success status"
		}
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamLedger, msg)
	}

	transactions := make([]AccountTransaction, 0, len(decoded.Result.Transactions))
	for _, raw := range decoded.Result.Transactions {
		tx, ok, err := raw.decode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamLedger, err, "decode ledger transaction")
		}
		if !ok {
			continue
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}

// Ping verifies the node answers a trivial request.
func (c *Client) Ping(ctx context.Context) error {
	body, err := json.Marshal(rpcRequest{Method: "server_state", Params: []any{}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger ping returned status %d", resp.StatusCode)
	}
	return nil
}
