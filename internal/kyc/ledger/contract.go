package ledger

//go:generate mockgen -source=contract.go -destination=mocks/contract_mock.go -package=mocks -exclude_interfaces=Backend

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Contract is the transport to the KYC registry contract.
type Contract interface {
	// Transact signs and sends a call to method with value attached. It
	// returns once the node accepts the transaction, not when it is mined.
	Transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Transaction, error)
	// WaitMined blocks until tx has a receipt or ctx is done.
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	// Call runs a read-only method and returns its outputs by name.
	Call(ctx context.Context, method string, args ...any) (map[string]any, error)
	// RevertReason replays a failed transaction at its block to recover the
	// contract's revert message.
	RevertReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) (string, error)
}

// Backend is the node API EthContract needs; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// EthContract binds the KYC ABI to a deployed address and a signing key.
type EthContract struct {
	backend Backend
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int

	// sendMu serialises nonce assignment and broadcast for the one signer.
	// Confirmation happens outside it.
	sendMu    sync.Mutex
	nextNonce uint64
	nonceSet  bool
}

// Dial connects to rpcURL and binds the contract at address, signing with
// the hex private key (0x prefix optional).
func Dial(ctx context.Context, rpcURL, address, privateKeyHex string) (*EthContract, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial ledger rpc: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("parse ledger private key: %w", err)
	}
	c, err := NewEthContract(ctx, client, common.HexToAddress(address), key)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return c, client, nil
}

// NewEthContract binds the KYC ABI on backend. The chain id is fetched once
// for EIP-155 signing.
func NewEthContract(ctx context.Context, backend Backend, address common.Address, key *ecdsa.PrivateKey) (*EthContract, error) {
	parsed, err := abi.JSON(strings.NewReader(KYCABI))
	if err != nil {
		return nil, fmt.Errorf("parse KYC ABI: %w", err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	return &EthContract{
		backend: backend,
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// From is the address paying fees and gas.
func (c *EthContract) From() common.Address { return c.from }

// Transact assigns the signer's next nonce and broadcasts. Concurrent calls
// are serialised up to the broadcast so each gets a distinct nonce.
func (c *EthContract) Transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Transaction, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = value

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	pending, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("fetch pending nonce: %w", err)
	}
	nonce := pending
	// the node may not count a transaction it accepted a moment ago yet
	if c.nonceSet && c.nextNonce > nonce {
		nonce = c.nextNonce
	}
	opts.Nonce = new(big.Int).SetUint64(nonce)

	tx, err := c.bound.Transact(opts, method, args...)
	if err != nil {
		c.nonceSet = false
		return nil, err
	}
	c.nextNonce, c.nonceSet = nonce+1, true
	return tx, nil
}

// WaitMined waits for tx's receipt. When it gives up the local nonce is
// dropped so the next write resyncs from the node.
func (c *EthContract) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		c.sendMu.Lock()
		c.nonceSet = false
		c.sendMu.Unlock()
	}
	return receipt, err
}

func (c *EthContract) Call(ctx context.Context, method string, args ...any) (map[string]any, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.address,
		Data: input,
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, bind.ErrNoCode
	}
	out := make(map[string]any)
	if err := c.abi.UnpackIntoMap(out, method, output); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func (c *EthContract) RevertReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) (string, error) {
	if tx.To() == nil {
		return "", errors.New("transaction has no recipient")
	}
	_, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, receipt.BlockNumber)
	if err == nil {
		return "", errors.New("replayed call succeeded; revert reason unavailable")
	}
	if reason, ok := RevertReason(err); ok {
		return reason, nil
	}
	return "", err
}

var _ Contract = (*EthContract)(nil)
