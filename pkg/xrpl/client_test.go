package xrpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/givefi/givefi-backend/pkg/config"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logg := logger.New(logger.Options{ServiceName: "test"})
	client, err := NewClient(context.Background(), config.LedgerConfig{RPCURL: server.URL, HistoryLimit: 5}, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func TestAccountTransactionsDecodesHistory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "account_tx" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		_, _ = w.Write([]byte(`{
			"result": {
				"status": "success",
				"transactions": [
					{
						"tx_json": {"TransactionType": "Payment", "Account": "rA", "Destination": "rB", "Fee": "12"},
						"meta": {"delivered_amount": {"currency": "RLUSD", "value": "100", "issuer": "rI"}},
						"hash": "H1",
						"close_time_iso": "2024-03-01T10:00:00Z",
						"validated": true
					},
					{
						"tx_json": {"TransactionType": "AccountSet", "Account": "rA"},
						"meta": {},
						"hash": "H2"
					}
				]
			}
		}`))
	})

	txs, err := client.AccountTransactions(context.Background(), "rA", 10)
	if err != nil {
		t.Fatalf("AccountTransactions error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected the AccountSet entry to be dropped, got %d transactions", len(txs))
	}
	if txs[0].Hash != "H1" || txs[0].DeliveredAmount.Value.String() != "100" {
		t.Fatalf("unexpected decoded transaction: %+v", txs[0])
	}
}

func TestAccountTransactionsNonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"status":"error","error_message":"actNotFound"}}`))
	})

	_, err := client.AccountTransactions(context.Background(), "rMissing", 10)
	if err == nil {
		t.Fatal("expected error for non-success status")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUpstreamLedger {
		t.Fatalf("expected upstream ledger error, got %v", err)
	}
}

func TestAccountTransactionsHTTPFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.AccountTransactions(context.Background(), "rA", 10)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUpstreamLedger {
		t.Fatalf("expected upstream ledger error, got %v", err)
	}
}

func TestAccountTransactionsRequiresAddress(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.AccountTransactions(context.Background(), "  ", 10)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
