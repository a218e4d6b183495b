package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"github.com/soniclabs/passkey-wallet/internal/platform/timeouts"
)

// HTTPClient implements Client over the standard Ethereum JSON-RPC HTTP
// transport. Every call carries an explicit deadline so a stalled provider
// cannot hang a wallet request indefinitely.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPClient builds a JSON-RPC client for the given endpoint.
func NewHTTPClient(endpoint string) (*HTTPClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		timeout:    timeouts.RPCRequest,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *HTTPClient) call(ctx context.Context, result any, method string, params ...any) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("rpc client is not configured")
	}
	if params == nil {
		params = []any{}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s: %w", method, decoded.Error)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Status reports the provider chain id and current block number.
func (c *HTTPClient) Status(ctx context.Context) (Status, error) {
	var chainIDHex string
	if err := c.call(ctx, &chainIDHex, "eth_chainId"); err != nil {
		return Status{}, err
	}
	chainID, err := parseHexUint64(chainIDHex)
	if err != nil {
		return Status{}, fmt.Errorf("parse chain id: %w", err)
	}

	var blockHex string
	if err := c.call(ctx, &blockHex, "eth_blockNumber"); err != nil {
		return Status{}, err
	}
	blockNumber, err := parseHexUint64(blockHex)
	if err != nil {
		return Status{}, fmt.Errorf("parse block number: %w", err)
	}
	return Status{ChainID: chainID, BlockNumber: blockNumber}, nil
}

// BalanceAt returns the wei balance of an address at the latest block.
func (c *HTTPClient) BalanceAt(ctx context.Context, address string) (*uint256.Int, error) {
	var balanceHex string
	if err := c.call(ctx, &balanceHex, "eth_getBalance", address, "latest"); err != nil {
		return nil, err
	}
	return parseHexUint256(balanceHex)
}

// NonceAt returns the pending transaction count for an address.
func (c *HTTPClient) NonceAt(ctx context.Context, address string) (uint64, error) {
	var nonceHex string
	if err := c.call(ctx, &nonceHex, "eth_getTransactionCount", address, "pending"); err != nil {
		return 0, err
	}
	return parseHexUint64(nonceHex)
}

// CodeAt returns the contract code deployed at an address, nil for
// externally owned accounts.
func (c *HTTPClient) CodeAt(ctx context.Context, address string) ([]byte, error) {
	var codeHex string
	if err := c.call(ctx, &codeHex, "eth_getCode", address, "latest"); err != nil {
		return nil, err
	}
	trimmed := strings.TrimPrefix(codeHex, "0x")
	if trimmed == "" {
		return nil, nil
	}
	code, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	return code, nil
}

// EstimateGas asks the provider for a gas limit covering msg.
func (c *HTTPClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	params := map[string]string{"to": msg.To}
	if msg.From != "" {
		params["from"] = msg.From
	}
	if msg.Value != nil {
		params["value"] = msg.Value.Hex()
	}
	var gasHex string
	if err := c.call(ctx, &gasHex, "eth_estimateGas", params); err != nil {
		return 0, err
	}
	return parseHexUint64(gasHex)
}

// FeeData returns current fee quotes. On EIP-1559 networks the max fee is
// twice the latest base fee plus the priority tip, matching the heuristic
// common wallet providers use.
func (c *HTTPClient) FeeData(ctx context.Context) (FeeData, error) {
	var gasPriceHex string
	if err := c.call(ctx, &gasPriceHex, "eth_gasPrice"); err != nil {
		return FeeData{}, err
	}
	gasPrice, err := parseHexUint256(gasPriceHex)
	if err != nil {
		return FeeData{}, fmt.Errorf("parse gas price: %w", err)
	}
	data := FeeData{GasPrice: gasPrice}

	var tipHex string
	if err := c.call(ctx, &tipHex, "eth_maxPriorityFeePerGas"); err != nil {
		// Pre-1559 providers miss this method; legacy pricing still works.
		return data, nil
	}
	tip, err := parseHexUint256(tipHex)
	if err != nil {
		return FeeData{}, fmt.Errorf("parse priority fee: %w", err)
	}
	data.MaxPriorityFeePerGas = tip

	var head struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := c.call(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return FeeData{}, err
	}
	if head.BaseFeePerGas == "" {
		return data, nil
	}
	baseFee, err := parseHexUint256(head.BaseFeePerGas)
	if err != nil {
		return FeeData{}, fmt.Errorf("parse base fee: %w", err)
	}
	maxFee := new(uint256.Int).Mul(baseFee, uint256.NewInt(2))
	maxFee.Add(maxFee, tip)
	data.MaxFeePerGas = maxFee
	return data, nil
}

// SendRawTransaction broadcasts a signed transaction and returns its hash.
func (c *HTTPClient) SendRawTransaction(ctx context.Context, rawTx []byte) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", "0x"+hex.EncodeToString(rawTx)); err != nil {
		return "", err
	}
	return hash, nil
}

func parseHexUint64(s string) (uint64, error) {
	value, err := parseHexUint256(s)
	if err != nil {
		return 0, err
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("quantity %s overflows uint64", s)
	}
	return value.Uint64(), nil
}

func parseHexUint256(s string) (*uint256.Int, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("quantity %q is not 0x-prefixed", s)
	}
	value, err := uint256.FromHex(s)
	if err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return value, nil
}
