package chain

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	transferSelector  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
)

// TransferCalldata encodes transfer(to, amount) for an ERC-20 or TRC-20 token.
func TransferCalldata(network, to string, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if amount.BitLen() > 256 {
		return nil, errors.New("amount overflows uint256")
	}
	word, err := addressWord(network, to)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, 4+64)
	data = append(data, transferSelector...)
	data = append(data, word...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data, nil
}

func BalanceOfCalldata(network, owner string) ([]byte, error) {
	word, err := addressWord(network, owner)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, balanceOfSelector...), word...), nil
}

// PaymentURI builds a wallet deep link for a token transfer: EIP-681 on EVM
// networks, a tron: URI on Tron.
func PaymentURI(network, token, payTo string, amount *big.Int) (string, error) {
	switch FamilyOf(network) {
	case FamilyEVM:
		uri := "ethereum:" + token
		if id := ChainID(network); id != "" {
			uri += "@" + id
		}
		return fmt.Sprintf("%s/transfer?address=%s&uint256=%s", uri, payTo, amount.String()), nil
	case FamilyTron:
		q := url.Values{}
		q.Set("token", token)
		q.Set("amount", amount.String())
		return "tron:" + payTo + "?" + q.Encode(), nil
	default:
		return "", fmt.Errorf("unsupported network %q", network)
	}
}
