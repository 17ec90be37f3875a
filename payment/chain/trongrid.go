// TronGrid account lookups, used for balances on Tron deployments.

package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/imroc/req/v3"
)

const accountPath = "/v1/accounts/%s"

type AccountResponse struct {
	Data    []Account `json:"data"`
	Success bool      `json:"success"`
	Meta    Meta      `json:"meta"`
}

type Account struct {
	Address string              `json:"address"`
	Balance int64               `json:"balance"` // TRX, in sun
	TRC20   []map[string]string `json:"trc20"`   // contract -> amount
}

type Meta struct {
	At       int64 `json:"at"`
	PageSize int   `json:"page_size"`
}

type TronBalances struct {
	client  *req.Client
	network string
	token   string
}

func NewTronBalances(baseURL, apiKey, network, token string) (*TronBalances, error) {
	if err := ValidateAddress(network, token); err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	c := req.C().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15 * time.Second)
	if apiKey != "" {
		c.SetCommonHeader("TRON-PRO-API-KEY", apiKey)
	}
	return &TronBalances{client: c, network: network, token: token}, nil
}

func (b *TronBalances) Balance(ctx context.Context, owner string) (*big.Int, error) {
	if err := ValidateAddress(b.network, owner); err != nil {
		return nil, err
	}

	var result AccountResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetSuccessResult(&result).
		Get(fmt.Sprintf(accountPath, owner))
	if err != nil {
		return nil, fmt.Errorf("trongrid: %w", err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("trongrid: %s", resp.Status)
	}

	// unactivated accounts come back with an empty data list
	if len(result.Data) == 0 {
		return new(big.Int), nil
	}
	for _, entry := range result.Data[0].TRC20 {
		for contract, amount := range entry {
			if contract != b.token {
				continue
			}
			v, ok := new(big.Int).SetString(amount, 10)
			if !ok {
				return nil, fmt.Errorf("trongrid: bad amount %q", amount)
			}
			return v, nil
		}
	}
	return new(big.Int), nil
}
