// Package chain holds the network specific helpers of the settlement rail:
// address formats, token transfer calldata, balances and wallet generation.
package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
)

type Family int

const (
	FamilyUnknown Family = iota
	FamilyEVM
	FamilyTron
)

func (f Family) String() string {
	switch f {
	case FamilyEVM:
		return "evm"
	case FamilyTron:
		return "tron"
	default:
		return "unknown"
	}
}

var ErrInvalidAddress = errors.New("invalid address")

// named networks accepted besides CAIP-2 ids
var evmNetworks = map[string]string{
	"ethereum":         "1",
	"sepolia":          "11155111",
	"base":             "8453",
	"base-sepolia":     "84532",
	"polygon":          "137",
	"polygon-amoy":     "80002",
	"avalanche":        "43114",
	"avalanche-fuji":   "43113",
	"arbitrum":         "42161",
	"arbitrum-sepolia": "421614",
}

// Namespace returns the CAIP-2 namespace of a network id ("eip155" for
// "eip155:8453"). Named networks map to their family namespace.
func Namespace(network string) string {
	network = strings.ToLower(strings.TrimSpace(network))
	if ns, _, ok := strings.Cut(network, ":"); ok {
		return ns
	}
	switch FamilyOf(network) {
	case FamilyEVM:
		return "eip155"
	case FamilyTron:
		return "tron"
	}
	return network
}

func FamilyOf(network string) Family {
	network = strings.ToLower(strings.TrimSpace(network))
	switch {
	case strings.HasPrefix(network, "eip155:"):
		return FamilyEVM
	case network == "tron" || strings.HasPrefix(network, "tron:") || strings.HasPrefix(network, "tron-"):
		return FamilyTron
	}
	if _, ok := evmNetworks[network]; ok {
		return FamilyEVM
	}
	return FamilyUnknown
}

// ChainID returns the numeric chain id of an EVM network, or "" if unknown.
func ChainID(network string) string {
	network = strings.ToLower(strings.TrimSpace(network))
	if id, ok := strings.CutPrefix(network, "eip155:"); ok {
		if _, err := strconv.ParseUint(id, 10, 64); err == nil {
			return id
		}
		return ""
	}
	return evmNetworks[network]
}

// ValidateAddress checks that addr is well formed for the network family.
func ValidateAddress(network, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	switch FamilyOf(network) {
	case FamilyEVM:
		if !common.IsHexAddress(addr) || !strings.HasPrefix(addr, "0x") {
			return fmt.Errorf("%w: %q is not a hex address", ErrInvalidAddress, addr)
		}
		if common.HexToAddress(addr) == (common.Address{}) {
			return fmt.Errorf("%w: zero address", ErrInvalidAddress)
		}
		return nil
	case FamilyTron:
		if _, err := address.Base58ToAddress(addr); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported network %q", network)
	}
}

// addressWord returns the 20 byte account of addr left padded to an ABI word.
func addressWord(network, addr string) ([]byte, error) {
	if err := ValidateAddress(network, addr); err != nil {
		return nil, err
	}
	switch FamilyOf(network) {
	case FamilyTron:
		a, _ := address.Base58ToAddress(addr)
		raw := a.Bytes()
		if len(raw) != 21 {
			return nil, fmt.Errorf("%w: unexpected tron address length %d", ErrInvalidAddress, len(raw))
		}
		// drop the 0x41 network prefix
		return common.LeftPadBytes(raw[1:], 32), nil
	default:
		return common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32), nil
	}
}
