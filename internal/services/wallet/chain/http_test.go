package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/holiman/uint256"
)

// fakeRPC answers JSON-RPC methods from a canned result table.
func fakeRPC(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
		}
		result, ok := results[req.Method]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

func newTestClient(t *testing.T, server *httptest.Server) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(server.URL)
	if err != nil {
		t.Fatalf("new http client: %v", err)
	}
	return client
}

func TestStatus(t *testing.T) {
	t.Parallel()

	server := fakeRPC(t, map[string]any{
		"eth_chainId":     "0x3909", // 14601
		"eth_blockNumber": "0x10",
	})
	defer server.Close()

	status, err := newTestClient(t, server).Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.ChainID != 14601 {
		t.Fatalf("chain id = %d, want 14601", status.ChainID)
	}
	if status.BlockNumber != 16 {
		t.Fatalf("block number = %d, want 16", status.BlockNumber)
	}
}

func TestBalanceAt(t *testing.T) {
	t.Parallel()

	server := fakeRPC(t, map[string]any{
		"eth_getBalance": "0x14d1120d7b160000", // 1.5 ether
	})
	defer server.Close()

	balance, err := newTestClient(t, server).BalanceAt(context.Background(), "0x52908400098527886e0f7030069857d2e4169ee7")
	if err != nil {
		t.Fatalf("balance at: %v", err)
	}
	if FormatEther(balance) != "1.5" {
		t.Fatalf("balance = %s, want 1.5", FormatEther(balance))
	}
}

func TestEstimateGas(t *testing.T) {
	t.Parallel()

	server := fakeRPC(t, map[string]any{
		"eth_estimateGas": "0x5208", // 21000
	})
	defer server.Close()

	gas, err := newTestClient(t, server).EstimateGas(context.Background(), CallMsg{
		From:  "0x52908400098527886e0f7030069857d2e4169ee7",
		To:    "0x8617e340b3d01fa5f11f306f4090fd50e238070d",
		Value: uint256.NewInt(1),
	})
	if err != nil {
		t.Fatalf("estimate gas: %v", err)
	}
	if gas != 21000 {
		t.Fatalf("gas = %d, want 21000", gas)
	}
}

func TestFeeDataWithEIP1559Provider(t *testing.T) {
	t.Parallel()

	server := fakeRPC(t, map[string]any{
		"eth_gasPrice":             "0x3b9aca00", // 1 gwei
		"eth_maxPriorityFeePerGas": "0x3b9aca00",
		"eth_getBlockByNumber":     map[string]any{"baseFeePerGas": "0x3b9aca00"},
	})
	defer server.Close()

	fees, err := newTestClient(t, server).FeeData(context.Background())
	if err != nil {
		t.Fatalf("fee data: %v", err)
	}
	if fees.GasPrice == nil || fees.GasPrice.Uint64() != 1_000_000_000 {
		t.Fatalf("gas price = %v, want 1 gwei", fees.GasPrice)
	}
	// max fee = 2*baseFee + tip = 3 gwei
	if fees.MaxFeePerGas == nil || fees.MaxFeePerGas.Uint64() != 3_000_000_000 {
		t.Fatalf("max fee = %v, want 3 gwei", fees.MaxFeePerGas)
	}
	if fees.MaxPriorityFeePerGas == nil || fees.MaxPriorityFeePerGas.Uint64() != 1_000_000_000 {
		t.Fatalf("priority fee = %v, want 1 gwei", fees.MaxPriorityFeePerGas)
	}
}

func TestFeeDataLegacyProvider(t *testing.T) {
	t.Parallel()

	server := fakeRPC(t, map[string]any{
		"eth_gasPrice": "0x3b9aca00",
	})
	defer server.Close()

	fees, err := newTestClient(t, server).FeeData(context.Background())
	if err != nil {
		t.Fatalf("fee data: %v", err)
	}
	if fees.GasPrice == nil || fees.GasPrice.Uint64() != 1_000_000_000 {
		t.Fatalf("gas price = %v, want 1 gwei", fees.GasPrice)
	}
	if fees.MaxFeePerGas != nil || fees.MaxPriorityFeePerGas != nil {
		t.Fatal("legacy provider must not report 1559 fees")
	}
}

func TestSendRawTransaction(t *testing.T) {
	t.Parallel()

	wantHash := "0x6b2272e0bff1a4e4e1a775d2e3b89e0a24c7e4547c98f0f1fd7e25b1bcf0d234"
	server := fakeRPC(t, map[string]any{
		"eth_sendRawTransaction": wantHash,
	})
	defer server.Close()

	hash, err := newTestClient(t, server).SendRawTransaction(context.Background(), []byte{0x02, 0x01})
	if err != nil {
		t.Fatalf("send raw transaction: %v", err)
	}
	if hash != wantHash {
		t.Fatalf("hash = %q, want %q", hash, wantHash)
	}
}

func TestRPCErrorIsSurfaced(t *testing.T) {
	t.Parallel()

	server := fakeRPC(t, map[string]any{})
	defer server.Close()

	if _, err := newTestClient(t, server).Status(context.Background()); err == nil {
		t.Fatal("expected rpc error")
	}
}

func TestTxURL(t *testing.T) {
	t.Parallel()

	network := DefaultNetwork()
	want := "https://testnet.sonicscan.org/tx/0xabc"
	if got := network.TxURL("0xabc"); got != want {
		t.Fatalf("tx url = %q, want %q", got, want)
	}
}
