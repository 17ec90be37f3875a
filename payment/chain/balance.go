package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrBalanceUnavailable = errors.New("balance lookup not configured")

// BalanceReader returns the settlement asset balance of an account in the
// asset's smallest unit.
type BalanceReader interface {
	Balance(ctx context.Context, owner string) (*big.Int, error)
}

// ContractCaller is the read-only part of ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type EVMBalances struct {
	caller  ContractCaller
	network string
	token   common.Address
}

func NewEVMBalances(caller ContractCaller, network, token string) (*EVMBalances, error) {
	if err := ValidateAddress(network, token); err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	return &EVMBalances{caller: caller, network: network, token: common.HexToAddress(token)}, nil
}

// DialEVM connects to a JSON-RPC endpoint and returns a token balance reader.
func DialEVM(ctx context.Context, rpcURL, network, token string) (*EVMBalances, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return NewEVMBalances(client, network, token)
}

func (b *EVMBalances) Balance(ctx context.Context, owner string) (*big.Int, error) {
	data, err := BalanceOfCalldata(b.network, owner)
	if err != nil {
		return nil, err
	}
	out, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &b.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("balanceOf: short return data (%d bytes)", len(out))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}
