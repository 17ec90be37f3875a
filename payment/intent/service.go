package intent

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"go-agentcommerce/catalog"
	"go-agentcommerce/logger"
	"go-agentcommerce/metrics"
	"go-agentcommerce/payment/chain"
	"go-agentcommerce/payment/facilitator"
	"go-agentcommerce/utils"
)

const (
	DefaultTTL   = 15 * time.Minute
	DefaultLease = 2 * time.Minute
)

// Facilitator is the two-step payment protocol client.
type Facilitator interface {
	Verify(ctx context.Context, p *facilitator.PaymentPayload, r facilitator.Requirements) (*facilitator.VerifyResult, error)
	Settle(ctx context.Context, p *facilitator.PaymentPayload, r facilitator.Requirements) (*facilitator.SettleResult, error)
}

// Dispatcher hands a paid intent to fulfillment. A nil ref with a nil error
// means the work was queued and the ref is recorded later.
type Dispatcher interface {
	Dispatch(ctx context.Context, in *Intent) (*FulfillmentRef, error)
}

type Service struct {
	store   Store
	catalog catalog.Catalog
	fac     Facilitator
	ful     Dispatcher
	pricing *Pricing

	ttl       time.Duration
	lease     time.Duration
	publicURL string
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithLease bounds how long a finalize claim blocks other writers.
func WithLease(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lease = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithPublicURL sets the base used for the resource field of payment
// requirements.
func WithPublicURL(u string) Option {
	return func(s *Service) { s.publicURL = strings.TrimRight(u, "/") }
}

func NewService(store Store, cat catalog.Catalog, fac Facilitator, ful Dispatcher, pricing *Pricing, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: cat,
		fac:     fac,
		ful:     ful,
		pricing: pricing,
		ttl:     DefaultTTL,
		lease:   DefaultLease,
		now:     time.Now,
		newID:   utils.GenerateUUID,
		log:     logger.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Pricing() *Pricing {
	return s.pricing
}

type LineRequest struct {
	ProductRef string `json:"productId"`
	VariantRef string `json:"variantId"`
	Quantity   int    `json:"quantity"`
}

type InitiateRequest struct {
	StoreRef        string
	Items           []LineRequest
	ShippingAddress *Address
	Description     string
}

// Initiate prices the requested items from the catalog and persists a
// pending intent. Nothing is written unless every line resolves.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*Intent, *facilitator.Requirements, error) {
	if req.StoreRef == "" {
		return nil, nil, newError(KindValidation, "store is required")
	}
	if len(req.Items) == 0 {
		return nil, nil, newError(KindValidation, "at least one item is required")
	}
	for i, it := range req.Items {
		if it.ProductRef == "" || it.VariantRef == "" {
			return nil, nil, newError(KindValidation, "item %d: product and variant are required", i)
		}
		if it.Quantity <= 0 {
			return nil, nil, newError(KindValidation, "item %d: quantity must be positive", i)
		}
	}
	if a := req.ShippingAddress; a != nil && (a.Line1 == "" || a.City == "" || a.Country == "") {
		return nil, nil, newError(KindValidation, "shipping address needs line1, city and country")
	}

	store, err := s.catalog.GetStore(ctx, req.StoreRef)
	if errors.Is(err, catalog.ErrStoreNotFound) {
		return nil, nil, newError(KindNotFound, "store %s not found", req.StoreRef)
	}
	if err != nil {
		return nil, nil, internal(err, "load store %s", req.StoreRef)
	}
	if err := chain.ValidateAddress(s.pricing.Network, store.PayToAddress); err != nil {
		return nil, nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("store %s has no valid payout address", store.ID), Err: err}
	}

	total := new(big.Int)
	items := make([]Item, 0, len(req.Items))
	for _, line := range req.Items {
		product, variant, err := s.catalog.GetVariant(ctx, store.ID, line.ProductRef, line.VariantRef)
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			return nil, nil, newError(KindNotFound, "product %s not found", line.ProductRef)
		case errors.Is(err, catalog.ErrVariantNotFound):
			return nil, nil, newError(KindNotFound, "variant %s of product %s not found", line.VariantRef, line.ProductRef)
		case err != nil:
			return nil, nil, internal(err, "load variant %s", line.VariantRef)
		}
		if !variant.Available {
			return nil, nil, newError(KindUnavailable, "variant %s of product %s is unavailable", variant.ID, product.ID)
		}

		unit, err := s.pricing.ToSmallestUnit(variant.Price, store.Currency)
		if err != nil {
			return nil, nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("price of variant %s", variant.ID), Err: err}
		}
		total.Add(total, new(big.Int).Mul(unit, big.NewInt(int64(line.Quantity))))

		items = append(items, Item{
			ProductRef:   product.ID,
			VariantRef:   variant.ID,
			Quantity:     line.Quantity,
			UnitPrice:    unit.String(),
			DisplayPrice: variant.Price,
			Title:        lineTitle(product, variant),
		})
	}

	now := s.now()
	in := &Intent{
		ID:              s.newID(),
		StoreRef:        store.ID,
		Items:           items,
		TotalAmount:     total.String(),
		Currency:        s.pricing.Currency,
		Network:         s.pricing.Network,
		Asset:           s.pricing.Asset,
		PayToAddress:    store.PayToAddress,
		Description:     req.Description,
		Status:          StatusPending,
		ShippingAddress: req.ShippingAddress,
		ExpiresAt:       now.Add(s.ttl),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Description == "" {
		in.Description = fmt.Sprintf("%s order, %d line(s)", store.Name, len(items))
	}
	if err := s.store.Create(ctx, in); err != nil {
		return nil, nil, internal(err, "persist intent")
	}

	s.metrics.IntentCreated()
	s.log.Info().
		Str("intent", in.ID).
		Str("store", in.StoreRef).
		Str("total", in.TotalAmount).
		Msg("intent created")

	return in, s.requirements(in), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Intent, error) {
	return s.load(ctx, id)
}

// Requirements rebuilds the payment contract from the intent's frozen
// fields.
func (s *Service) Requirements(ctx context.Context, id string) (*facilitator.Requirements, error) {
	in, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.requirements(in), nil
}

// Cancel moves a pending intent to cancelled. An intent past its deadline is
// recorded as expired instead.
func (s *Service) Cancel(ctx context.Context, id string) (*Intent, error) {
	in, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != StatusPending {
		return nil, conflict(in)
	}
	now := s.now()
	if now.After(in.ExpiresAt) {
		return nil, s.expire(ctx, in, now)
	}

	out, err := s.store.Transition(ctx, Transition{ID: id, To: StatusCancelled, At: now, Lease: s.lease})
	if err != nil {
		return nil, s.storeError(ctx, id, err)
	}
	s.transitioned(out, StatusPending)
	return out, nil
}

// RecordFulfillment attaches the storefront order to a paid intent.
func (s *Service) RecordFulfillment(ctx context.Context, id string, ref FulfillmentRef) error {
	if err := s.store.SetFulfillment(ctx, id, ref); err != nil {
		return s.storeError(ctx, id, err)
	}
	return nil
}

func (s *Service) requirements(in *Intent) *facilitator.Requirements {
	r := &facilitator.Requirements{
		Scheme:            "exact",
		Network:           in.Network,
		MaxAmountRequired: in.TotalAmount,
		Description:       in.Description,
		MimeType:          "application/json",
		PayTo:             in.PayToAddress,
		MaxTimeoutSeconds: int(in.ExpiresAt.Sub(in.CreatedAt) / time.Second),
		Asset:             in.Asset,
	}
	if s.publicURL != "" {
		r.Resource = s.publicURL + "/orders/" + in.ID
	}
	return r
}

func (s *Service) load(ctx context.Context, id string) (*Intent, error) {
	if id == "" {
		return nil, newError(KindValidation, "intent id is required")
	}
	in, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNoIntent) {
		return nil, newError(KindNotFound, "intent %s not found", id)
	}
	if err != nil {
		return nil, internal(err, "load intent %s", id)
	}
	return in, nil
}

func (s *Service) expire(ctx context.Context, in *Intent, now time.Time) error {
	out, err := s.store.Transition(ctx, Transition{ID: in.ID, To: StatusExpired, At: now, Lease: s.lease})
	if err != nil {
		return s.storeError(ctx, in.ID, err)
	}
	s.transitioned(out, StatusPending)
	return newError(KindExpired, "intent %s expired at %s", in.ID, in.ExpiresAt.UTC().Format(time.RFC3339))
}

// storeError maps a failed conditional write to the caller-facing error.
func (s *Service) storeError(ctx context.Context, id string, err error) error {
	switch {
	case errors.Is(err, ErrNoIntent):
		return newError(KindNotFound, "intent %s not found", id)
	case errors.Is(err, ErrStale):
		cur, lerr := s.load(ctx, id)
		if lerr != nil {
			return lerr
		}
		if cur.Status != StatusPending {
			return conflict(cur)
		}
		return &Error{
			Kind:    KindConflict,
			Message: fmt.Sprintf("intent %s is being finalized", id),
			Status:  StatusPending,
		}
	default:
		return internal(err, "update intent %s", id)
	}
}

func (s *Service) transitioned(in *Intent, from Status) {
	s.metrics.Transition(string(from), string(in.Status))
	s.log.Info().
		Str("intent", in.ID).
		Str("from", string(from)).
		Str("to", string(in.Status)).
		Msg("intent transition")
}

func lineTitle(p *catalog.Product, v *catalog.Variant) string {
	if v.Title == "" || v.Title == "Default Title" || v.Title == p.Title {
		return p.Title
	}
	return p.Title + " - " + v.Title
}
