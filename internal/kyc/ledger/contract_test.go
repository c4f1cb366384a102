package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// encodeRevert builds Error(string) revert data as a node returns it.
func encodeRevert(reason string) string {
	stringTy, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringTy}}.Pack(reason)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// fakeNode answers eth_chainId and eth_call for the KYC contract.
type fakeNode struct {
	t      *testing.T
	abi    abi.ABI
	record []any
	output []byte
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	require.NoError(n.t, json.NewDecoder(r.Body).Decode(&req))

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_chainId":
		resp["result"] = "0x539"
	case "eth_call":
		result, rerr := n.call(req.Params)
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
	default:
		resp["error"] = rpcError{Code: -32601, Message: "method not found: " + req.Method}
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(n.t, json.NewEncoder(w).Encode(resp))
}

func (n *fakeNode) call(params []json.RawMessage) (string, *rpcError) {
	var msg struct {
		Input hexutil.Bytes `json:"input"`
		Data  hexutil.Bytes `json:"data"`
	}
	require.NoError(n.t, json.Unmarshal(params[0], &msg))
	input := msg.Input
	if len(input) == 0 {
		input = msg.Data
	}

	var block string
	_ = json.Unmarshal(params[1], &block)
	if block == "0x7" {
		return "", &rpcError{Code: 3, Message: "execution reverted: Insufficient fee", Data: encodeRevert("Insufficient fee")}
	}

	if n.output != nil {
		return hexutil.Encode(n.output), nil
	}
	method, err := n.abi.MethodById(input[:4])
	require.NoError(n.t, err)
	switch method.Name {
	case MethodGet:
		out, err := method.Outputs.Pack(n.record...)
		require.NoError(n.t, err)
		return hexutil.Encode(out), nil
	case MethodFee:
		out, err := method.Outputs.Pack(big.NewInt(10_000_000_000_000_000))
		require.NoError(n.t, err)
		return hexutil.Encode(out), nil
	}
	return "", &rpcError{Code: -32000, Message: "unexpected method"}
}

func newTestContract(t *testing.T, node *fakeNode) *EthContract {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(KYCABI))
	require.NoError(t, err)
	node.t = t
	node.abi = parsed

	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	client, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c, err := NewEthContract(context.Background(), client, contractAddr, key)
	require.NoError(t, err)
	return c
}

func TestEthContractCall(t *testing.T) {
	hash := [32]byte(bytes.Repeat([]byte{0x11}, 32))
	node := &fakeNode{record: []any{"Jane Doe", "1990-01-01", "1 Main St", hash, "uploads/123-id.png", false, true}}
	c := newTestContract(t, node)

	t.Run("unpacks getKYCInfo by output name", func(t *testing.T) {
		var key [32]byte
		out, err := c.Call(context.Background(), MethodGet, key)
		require.NoError(t, err)

		assert.Equal(t, "Jane Doe", out["name"])
		assert.Equal(t, "1 Main St", out["homeAddress"])
		assert.Equal(t, hash, out["documentHash"])
		assert.Equal(t, "uploads/123-id.png", out["fileKey"])
		assert.Equal(t, false, out["isVerified"])
		assert.Equal(t, true, out["exists"])
	})

	t.Run("verificationFee", func(t *testing.T) {
		out, err := c.Call(context.Background(), MethodFee)
		require.NoError(t, err)
		assert.Equal(t, "10000000000000000", out["fee"].(*big.Int).String())
	})

	t.Run("wrong argument type fails before the node", func(t *testing.T) {
		_, err := c.Call(context.Background(), MethodGet, "not-bytes32")
		assert.Error(t, err)
	})
}

func TestEthContractCallNoCode(t *testing.T) {
	c := newTestContract(t, &fakeNode{output: []byte{}})
	_, err := c.Call(context.Background(), MethodGet, [32]byte{})
	assert.ErrorIs(t, err, bind.ErrNoCode)
}

func TestEthContractRevertReason(t *testing.T) {
	c := newTestContract(t, &fakeNode{})
	assert.Equal(t, big.NewInt(1337), c.chainID)

	tx := types.NewTx(&types.LegacyTx{Nonce: 1, To: &contractAddr, Value: DefaultFee, Gas: 300_000, GasPrice: big.NewInt(1)})
	reason, err := c.RevertReason(context.Background(), tx, &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(7)})
	require.NoError(t, err)
	assert.Equal(t, "Insufficient fee", reason)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, CategoryRejected, Classify(dataError{msg: "execution reverted", data: encodeRevert("KYC not found")}))
	assert.Equal(t, CategoryRejected, Classify(assertErr("execution reverted: KYC already exists")))
	assert.Equal(t, CategoryTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, CategoryTimeout, Classify(ErrNotConfirmed))
	assert.Equal(t, CategoryUnavailable, Classify(assertErr("insufficient funds for gas * price + value")))

	reason, ok := RevertReason(dataError{msg: "execution reverted", data: encodeRevert("KYC not found")})
	assert.True(t, ok)
	assert.Equal(t, "KYC not found", reason)

	reason, ok = RevertReason(dataError{msg: "execution reverted: custom", data: "0xdeadbeef"})
	assert.True(t, ok)
	assert.Equal(t, "execution reverted: custom", reason)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
