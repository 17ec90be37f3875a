package tools

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"go-agentcommerce/mcp"
	"go-agentcommerce/payment/chain"
	"go-agentcommerce/payment/facilitator"
	"go-agentcommerce/payment/intent"
	"go-agentcommerce/payment/qrcode"
)

type Payment struct {
	svc      *intent.Service
	balances chain.BalanceReader
}

// NewPayment builds the payment construction tools. balances may be nil, in
// which case get_balance reports that lookups are unavailable.
func NewPayment(svc *intent.Service, balances chain.BalanceReader) *Payment {
	return &Payment{svc: svc, balances: balances}
}

type buildTransferInput struct {
	IntentID string `json:"intentId" validate:"required"`
	From     string `json:"from"`
}

type verifyPayloadInput struct {
	PaymentHeader string `json:"paymentHeader" validate:"required"`
}

type balanceInput struct {
	Address string `json:"address" validate:"required"`
}

type convertInput struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"required"`
}

type Transfer struct {
	Network    string `json:"network"`
	ChainID    string `json:"chainId,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to"` // token contract
	Value      string `json:"value"`
	Data       string `json:"data"`
	PayTo      string `json:"payTo"`
	Amount     string `json:"amount"`
	Display    string `json:"display"`
	PaymentURI string `json:"paymentUri"`
	QRCode     string `json:"qrCode,omitempty"`
}

func (p *Payment) Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("build_transfer", "Build the unsigned token transfer that pays an order intent, with a wallet link and QR code.",
			mcp.Object(map[string]*mcp.Schema{
				"intentId": mcp.String("Order intent id."),
				"from":     mcp.String("Optional payer address."),
			}, "intentId"), p.buildTransfer),
		mcp.NewTool("get_payment_requirements", "Get the payment requirements of an order intent.", intentSchema, p.requirements),
		mcp.NewTool("verify_payment_payload", "Check the structure of a signed payment payload without settling it. No cryptographic verification is done.",
			mcp.Object(map[string]*mcp.Schema{
				"paymentHeader": mcp.String("Base64 encoded signed payment payload."),
			}, "paymentHeader"), p.verifyPayload),
		mcp.NewTool("get_balance", "Get the settlement asset balance of an address.",
			mcp.Object(map[string]*mcp.Schema{
				"address": mcp.String("Account address on the settlement network."),
			}, "address"), p.balance),
		mcp.NewTool("convert_to_settlement_units", "Convert a price into the settlement asset's smallest unit at the configured rate.",
			mcp.Object(map[string]*mcp.Schema{
				"amount":   mcp.String("Decimal amount, e.g. \"10.00\"."),
				"currency": mcp.String("Currency of the amount, e.g. USD."),
			}, "amount", "currency"), p.convert),
	}
}

func (p *Payment) buildTransfer(ctx context.Context, in buildTransferInput) (any, error) {
	it, err := p.svc.Get(ctx, in.IntentID)
	if err != nil {
		return nil, err
	}
	if it.Status != intent.StatusPending {
		return nil, &intent.Error{Kind: intent.KindConflict, Message: fmt.Sprintf("intent %s is %s", it.ID, it.Status), Status: it.Status}
	}
	if in.From != "" {
		if err := chain.ValidateAddress(it.Network, in.From); err != nil {
			return nil, &intent.Error{Kind: intent.KindValidation, Message: "from", Err: err}
		}
	}

	amount, ok := new(big.Int).SetString(it.TotalAmount, 10)
	if !ok {
		return nil, fmt.Errorf("intent %s has a malformed total %q", it.ID, it.TotalAmount)
	}
	data, err := chain.TransferCalldata(it.Network, it.PayToAddress, amount)
	if err != nil {
		return nil, err
	}
	uri, err := chain.PaymentURI(it.Network, it.Asset, it.PayToAddress, amount)
	if err != nil {
		return nil, err
	}

	t := Transfer{
		Network:    it.Network,
		ChainID:    chain.ChainID(it.Network),
		From:       in.From,
		To:         it.Asset,
		Value:      "0",
		Data:       hexutil.Encode(data),
		PayTo:      it.PayToAddress,
		Amount:     it.TotalAmount,
		Display:    p.svc.Pricing().Display(amount) + " " + it.Currency,
		PaymentURI: uri,
	}
	if png, err := qrcode.DataURL(uri); err == nil {
		t.QRCode = png
	}
	return t, nil
}

func (p *Payment) requirements(ctx context.Context, in intentInput) (any, error) {
	req, err := p.svc.Requirements(ctx, in.IntentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"x402Version": facilitator.Version,
		"accepts":     []*facilitator.Requirements{req},
	}, nil
}

func (p *Payment) verifyPayload(_ context.Context, in verifyPayloadInput) (any, error) {
	payload, err := facilitator.DecodePayload(in.PaymentHeader)
	if err == nil {
		err = facilitator.ValidatePayload(payload, p.svc.Pricing().Network)
	}
	if err != nil {
		return map[string]any{"valid": false, "reason": err.Error()}, nil
	}
	return map[string]any{
		"valid":   true,
		"version": payload.Version,
		"scheme":  payload.Scheme,
		"network": payload.Network,
		"note":    "structure only; the signature is checked when the checkout is finalized",
	}, nil
}

func (p *Payment) balance(ctx context.Context, in balanceInput) (any, error) {
	if p.balances == nil {
		return nil, chain.ErrBalanceUnavailable
	}
	pricing := p.svc.Pricing()
	if err := chain.ValidateAddress(pricing.Network, in.Address); err != nil {
		return nil, &intent.Error{Kind: intent.KindValidation, Message: "address", Err: err}
	}
	bal, err := p.balances.Balance(ctx, in.Address)
	if errors.Is(err, chain.ErrInvalidAddress) {
		return nil, &intent.Error{Kind: intent.KindValidation, Message: "address", Err: err}
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"address": in.Address,
		"network": pricing.Network,
		"asset":   pricing.Asset,
		"balance": bal.String(),
		"display": pricing.Display(bal) + " " + pricing.Currency,
	}, nil
}

func (p *Payment) convert(_ context.Context, in convertInput) (any, error) {
	pricing := p.svc.Pricing()
	units, err := pricing.ToSmallestUnit(in.Amount, in.Currency)
	if err != nil {
		return nil, &intent.Error{Kind: intent.KindValidation, Message: err.Error()}
	}
	return map[string]any{
		"amount":           in.Amount,
		"currency":         in.Currency,
		"settlementAmount": units.String(),
		"settlementAsset":  pricing.Asset,
		"settlementSymbol": pricing.Currency,
		"decimals":         pricing.Decimals,
		"network":          pricing.Network,
	}, nil
}
