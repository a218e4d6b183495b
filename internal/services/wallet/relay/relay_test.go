package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/chain"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/derive"
)

type fakeClient struct {
	statusFunc      func(ctx context.Context) (chain.Status, error)
	balanceFunc     func(ctx context.Context, address string) (*uint256.Int, error)
	nonceFunc       func(ctx context.Context, address string) (uint64, error)
	codeFunc        func(ctx context.Context, address string) ([]byte, error)
	estimateGasFunc func(ctx context.Context, msg chain.CallMsg) (uint64, error)
	feeDataFunc     func(ctx context.Context) (chain.FeeData, error)
	sendFunc        func(ctx context.Context, rawTx []byte) (string, error)
	sendCalls       int
}

func (f *fakeClient) Status(ctx context.Context) (chain.Status, error) {
	if f.statusFunc != nil {
		return f.statusFunc(ctx)
	}
	return chain.Status{ChainID: 14601, BlockNumber: 1}, nil
}

func (f *fakeClient) BalanceAt(ctx context.Context, address string) (*uint256.Int, error) {
	if f.balanceFunc != nil {
		return f.balanceFunc(ctx, address)
	}
	return mustEther("10"), nil
}

func (f *fakeClient) NonceAt(ctx context.Context, address string) (uint64, error) {
	if f.nonceFunc != nil {
		return f.nonceFunc(ctx, address)
	}
	return 0, nil
}

func (f *fakeClient) CodeAt(ctx context.Context, address string) ([]byte, error) {
	if f.codeFunc != nil {
		return f.codeFunc(ctx, address)
	}
	return nil, nil
}

func (f *fakeClient) EstimateGas(ctx context.Context, msg chain.CallMsg) (uint64, error) {
	if f.estimateGasFunc != nil {
		return f.estimateGasFunc(ctx, msg)
	}
	return 21000, nil
}

func (f *fakeClient) FeeData(ctx context.Context) (chain.FeeData, error) {
	if f.feeDataFunc != nil {
		return f.feeDataFunc(ctx)
	}
	return chain.FeeData{
		GasPrice:             uint256.NewInt(1_000_000_000),
		MaxFeePerGas:         uint256.NewInt(3_000_000_000),
		MaxPriorityFeePerGas: uint256.NewInt(1_000_000_000),
	}, nil
}

func (f *fakeClient) SendRawTransaction(ctx context.Context, rawTx []byte) (string, error) {
	f.sendCalls++
	if f.sendFunc != nil {
		return f.sendFunc(ctx, rawTx)
	}
	return "0xdeadbeef", nil
}

func mustEther(s string) *uint256.Int {
	value, err := chain.ParseEther(s)
	if err != nil {
		panic(err)
	}
	return value
}

const testRecipient = "0x8617e340b3d01fa5f11f306f4090fd50e238070d"

func newTestRelay(t *testing.T, client chain.Client) *Relay {
	t.Helper()
	r, err := New(client, derive.NewDeriver(""), chain.DefaultNetwork())
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return r
}

func TestSendBroadcastsSignedTransfer(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		sendFunc: func(ctx context.Context, rawTx []byte) (string, error) {
			if len(rawTx) == 0 || rawTx[0] != 0x02 {
				t.Errorf("raw transaction misses the 0x02 type byte")
			}
			return "0xabc123", nil
		},
	}
	result, err := newTestRelay(t, client).Send(context.Background(), testRecipient, "1.5", "credential-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if result.Hash != "0xabc123" {
		t.Fatalf("hash = %q, want %q", result.Hash, "0xabc123")
	}
	if result.ExplorerURL != "https://testnet.sonicscan.org/tx/0xabc123" {
		t.Fatalf("explorer url = %q", result.ExplorerURL)
	}
	if result.To != testRecipient {
		t.Fatalf("to = %q, want %q", result.To, testRecipient)
	}
	if result.Value != "1.5" {
		t.Fatalf("value = %q, want %q", result.Value, "1.5")
	}

	key, err := derive.NewDeriver("").Derive("credential-1", chain.DefaultNetwork().ChainID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if result.From != key.Address() {
		t.Fatalf("from = %q, want registered address %q", result.From, key.Address())
	}
}

func TestSendInsufficientFundsSkipsBroadcast(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		balanceFunc: func(ctx context.Context, address string) (*uint256.Int, error) {
			return mustEther("0.25"), nil
		},
	}
	_, err := newTestRelay(t, client).Send(context.Background(), testRecipient, "1", "credential-1")
	if apperrors.GetCode(err) != apperrors.CodeInsufficientFunds {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeInsufficientFunds)
	}

	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("error %T is not a domain error", err)
	}
	if domainErr.Metadata["balance"] != "0.25" {
		t.Fatalf("balance metadata = %q, want %q", domainErr.Metadata["balance"], "0.25")
	}
	if client.sendCalls != 0 {
		t.Fatalf("broadcast ran %d times despite insufficient funds", client.sendCalls)
	}
}

func TestSendValidationFailsBeforeNetworkIO(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		balanceFunc: func(ctx context.Context, address string) (*uint256.Int, error) {
			t.Error("balance fetched for an invalid request")
			return nil, nil
		},
	}
	r := newTestRelay(t, client)

	if _, err := r.Send(context.Background(), "not-an-address", "1", "credential-1"); !errors.Is(err, account.ErrInvalidAddress) {
		t.Fatalf("invalid address error = %v, want %v", err, account.ErrInvalidAddress)
	}
	if _, err := r.Send(context.Background(), testRecipient, "1.2.3", "credential-1"); !errors.Is(err, chain.ErrInvalidAmount) {
		t.Fatalf("invalid amount error = %v, want %v", err, chain.ErrInvalidAmount)
	}
	if _, err := r.Send(context.Background(), testRecipient, "1", ""); !errors.Is(err, account.ErrEmptyCredentialID) {
		t.Fatalf("empty credential error = %v, want %v", err, account.ErrEmptyCredentialID)
	}
	if client.sendCalls != 0 {
		t.Fatalf("broadcast ran %d times for invalid requests", client.sendCalls)
	}
}

func TestSendWrapsBroadcastFailure(t *testing.T) {
	t.Parallel()

	providerErr := fmt.Errorf("nonce too low")
	client := &fakeClient{
		sendFunc: func(ctx context.Context, rawTx []byte) (string, error) {
			return "", providerErr
		},
	}
	_, err := newTestRelay(t, client).Send(context.Background(), testRecipient, "1", "credential-1")
	if apperrors.GetCode(err) != apperrors.CodeRelayFailed {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeRelayFailed)
	}
	if !errors.Is(err, providerErr) {
		t.Fatalf("error %v does not wrap the provider failure", err)
	}
}

func TestSendLegacyProviderPricing(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		feeDataFunc: func(ctx context.Context) (chain.FeeData, error) {
			return chain.FeeData{GasPrice: uint256.NewInt(2_000_000_000)}, nil
		},
	}
	if _, err := newTestRelay(t, client).Send(context.Background(), testRecipient, "1", "credential-1"); err != nil {
		t.Fatalf("send with legacy pricing: %v", err)
	}
	if client.sendCalls != 1 {
		t.Fatalf("broadcast ran %d times, want 1", client.sendCalls)
	}
}

func TestEstimateFee(t *testing.T) {
	t.Parallel()

	quote, err := newTestRelay(t, &fakeClient{}).EstimateFee(context.Background(), testRecipient, "1")
	if err != nil {
		t.Fatalf("estimate fee: %v", err)
	}
	if quote.GasLimit != 21000 {
		t.Fatalf("gas limit = %d, want 21000", quote.GasLimit)
	}
	// 21000 * 3 gwei
	want := new(uint256.Int).Mul(uint256.NewInt(21000), uint256.NewInt(3_000_000_000))
	if quote.EstimatedFee.Cmp(want) != 0 {
		t.Fatalf("estimated fee = %s, want %s", quote.EstimatedFee, want)
	}
}

func TestEstimateFeeRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	r := newTestRelay(t, &fakeClient{})
	if _, err := r.EstimateFee(context.Background(), "bogus", "1"); !errors.Is(err, account.ErrInvalidAddress) {
		t.Fatalf("error = %v, want %v", err, account.ErrInvalidAddress)
	}
	if _, err := r.EstimateFee(context.Background(), testRecipient, "-1"); !errors.Is(err, chain.ErrInvalidAmount) {
		t.Fatalf("error = %v, want %v", err, chain.ErrInvalidAmount)
	}
}
