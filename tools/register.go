package tools

import (
	"go-agentcommerce/catalog"
	"go-agentcommerce/mcp"
	"go-agentcommerce/payment/chain"
	"go-agentcommerce/payment/intent"
)

// Register adds the ordering and payment tool groups to s.
func Register(s *mcp.Server, svc *intent.Service, cat catalog.Catalog, balances chain.BalanceReader) error {
	if err := s.Register(NewOrdering(svc, cat).Tools()...); err != nil {
		return err
	}
	return s.Register(NewPayment(svc, balances).Tools()...)
}
