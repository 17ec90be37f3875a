package chain

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
)

type Wallet struct {
	Network    string `json:"network"`
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"` // hex
}

// NewWallet generates a fresh secp256k1 key and derives the receiving
// address for the network family.
func NewWallet(network string) (*Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		Network:    network,
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(privateKey)),
	}
	switch FamilyOf(network) {
	case FamilyEVM:
		w.Address = crypto.PubkeyToAddress(privateKey.PublicKey).Hex()
	case FamilyTron:
		w.Address = address.PubkeyToAddress(privateKey.PublicKey).String()
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
	return w, nil
}
