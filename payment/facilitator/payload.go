package facilitator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go-agentcommerce/payment/chain"
)

var ErrMalformedPayload = errors.New("malformed payment payload")

type wirePayload struct {
	X402Version     *int          `json:"x402Version"`
	ProtocolVersion *int          `json:"protocolVersion"`
	Scheme          string        `json:"scheme"`
	Network         string        `json:"network"`
	Payload         SignedPayment `json:"payload"`
}

// DecodePayload decodes a base64 JSON signed-payment header. Both standard and
// URL alphabets are accepted, with or without padding.
func DecodePayload(header string) (*PaymentPayload, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	raw, err := decodeBase64(header)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrMalformedPayload)
	}

	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p := &PaymentPayload{
		Version: Version,
		Scheme:  w.Scheme,
		Network: w.Network,
		Payload: w.Payload,
	}
	switch {
	case w.X402Version != nil:
		p.Version = *w.X402Version
	case w.ProtocolVersion != nil:
		p.Version = *w.ProtocolVersion
	}

	if p.Payload.Signature == "" {
		return nil, fmt.Errorf("%w: missing payload.signature", ErrMalformedPayload)
	}
	if p.Payload.Transaction == "" {
		return nil, fmt.Errorf("%w: missing payload.transaction", ErrMalformedPayload)
	}
	return p, nil
}

// ValidatePayload runs the structural checks an agent can do before spending a
// real finalize attempt. It performs no cryptographic verification.
func ValidatePayload(p *PaymentPayload, network string) error {
	if p.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedPayload, p.Version)
	}
	if p.Scheme == "" {
		return fmt.Errorf("%w: missing scheme", ErrMalformedPayload)
	}
	if p.Network == "" {
		return fmt.Errorf("%w: missing network", ErrMalformedPayload)
	}
	if chain.Namespace(p.Network) != chain.Namespace(network) {
		return fmt.Errorf("%w: network %q does not match %q", ErrMalformedPayload, p.Network, network)
	}
	return nil
}

// EncodePayload is the inverse of DecodePayload.
func EncodePayload(p *PaymentPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// EncodeSettlement renders a settle result for the X-PAYMENT-RESPONSE header.
func EncodeSettlement(r *SettleResult) string {
	b, _ := json.Marshal(r)
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("invalid base64")
}
