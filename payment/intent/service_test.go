package intent_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-agentcommerce/catalog"
	"go-agentcommerce/logger"
	"go-agentcommerce/payment/facilitator"
	"go-agentcommerce/payment/intent"
)

const (
	network = "eip155:84532"
	asset   = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	payTo   = "0x1111111111111111111111111111111111111111"
)

type fakeCatalog struct {
	stores   map[string]catalog.Store
	products map[string]catalog.Product
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		stores: map[string]catalog.Store{
			"store-1": {ID: "store-1", Name: "Roastery", PayToAddress: payTo, Currency: "USD"},
		},
		products: map[string]catalog.Product{
			"prod-a": {ID: "prod-a", StoreID: "store-1", Title: "House Blend", Variants: []catalog.Variant{
				{ID: "var-a", Title: "250g", Price: "10.00", Available: true},
				{ID: "var-b", Title: "1kg", Price: "32.50", Available: false},
			}},
			"prod-b": {ID: "prod-b", StoreID: "store-1", Title: "Cup", Variants: []catalog.Variant{
				{ID: "var-c", Title: "Default Title", Price: "4.99", Available: true},
			}},
		},
	}
}

func (c *fakeCatalog) ListStores(context.Context) ([]catalog.Store, error) {
	var out []catalog.Store
	for _, s := range c.stores {
		out = append(out, s)
	}
	return out, nil
}

func (c *fakeCatalog) GetStore(_ context.Context, id string) (*catalog.Store, error) {
	s, ok := c.stores[id]
	if !ok {
		return nil, catalog.ErrStoreNotFound
	}
	return &s, nil
}

func (c *fakeCatalog) ListProducts(_ context.Context, storeID, _ string, _ int) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range c.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetVariant(_ context.Context, storeID, productID, variantID string) (*catalog.Product, *catalog.Variant, error) {
	p, ok := c.products[productID]
	if !ok || p.StoreID != storeID {
		return nil, nil, catalog.ErrProductNotFound
	}
	for _, v := range p.Variants {
		if v.ID == variantID {
			return &p, &v, nil
		}
	}
	return nil, nil, catalog.ErrVariantNotFound
}

type fakeFacilitator struct {
	verify func(*facilitator.PaymentPayload) (*facilitator.VerifyResult, error)
	settle func(*facilitator.PaymentPayload) (*facilitator.SettleResult, error)

	verifies atomic.Int32
	settles  atomic.Int32

	// settleBlocks makes Settle wait for its context like a hung facilitator.
	settleBlocks bool
	mu           sync.Mutex
	deadlines    []time.Time
}

func (f *fakeFacilitator) sawDeadline(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dl, _ := ctx.Deadline()
	f.deadlines = append(f.deadlines, dl)
}

func okFacilitator() *fakeFacilitator {
	return &fakeFacilitator{
		verify: func(*facilitator.PaymentPayload) (*facilitator.VerifyResult, error) {
			return &facilitator.VerifyResult{IsValid: true, Payer: "0xpayer", Raw: []byte(`{"isValid":true}`)}, nil
		},
		settle: func(*facilitator.PaymentPayload) (*facilitator.SettleResult, error) {
			return &facilitator.SettleResult{Success: true, Transaction: "0xsettled", Network: network, Raw: []byte(`{"success":true}`)}, nil
		},
	}
}

func (f *fakeFacilitator) Verify(ctx context.Context, p *facilitator.PaymentPayload, _ facilitator.Requirements) (*facilitator.VerifyResult, error) {
	f.verifies.Add(1)
	f.sawDeadline(ctx)
	return f.verify(p)
}

func (f *fakeFacilitator) Settle(ctx context.Context, p *facilitator.PaymentPayload, _ facilitator.Requirements) (*facilitator.SettleResult, error) {
	f.settles.Add(1)
	f.sawDeadline(ctx)
	if f.settleBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.settle(p)
}

type dispatcherFunc func(context.Context, *intent.Intent) (*intent.FulfillmentRef, error)

func (f dispatcherFunc) Dispatch(ctx context.Context, in *intent.Intent) (*intent.FulfillmentRef, error) {
	return f(ctx, in)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *intent.Service
	store *intent.MemoryStore
	fac   *fakeFacilitator
	clock *clock
}

func newFixture(t *testing.T, ful intent.Dispatcher) *fixture {
	t.Helper()
	logger.Discard()
	pricing, err := intent.NewPricing(network, asset, "USDC", 8, map[string]string{"USD": "1"})
	require.NoError(t, err)

	f := &fixture{
		store: intent.NewMemoryStore(),
		fac:   okFacilitator(),
		clock: &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = intent.NewService(f.store, newFakeCatalog(), f.fac, ful, pricing,
		intent.WithClock(f.clock.Now),
		intent.WithTTL(15*time.Minute),
		intent.WithLease(time.Minute),
		intent.WithLogger(logger.Logger),
		intent.WithPublicURL("https://shop.example/"),
	)
	return f
}

func (f *fixture) initiate(t *testing.T) *intent.Intent {
	t.Helper()
	in, _, err := f.svc.Initiate(context.Background(), intent.InitiateRequest{
		StoreRef: "store-1",
		Items:    []intent.LineRequest{{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 2}},
	})
	require.NoError(t, err)
	return in
}

func (f *fixture) pendingIDs(t *testing.T) []string {
	t.Helper()
	ids, err := f.store.ListExpired(context.Background(), f.clock.Now().Add(24*time.Hour), 0, 0)
	require.NoError(t, err)
	return ids
}

func paymentHeader(t *testing.T) string {
	t.Helper()
	h, err := facilitator.EncodePayload(&facilitator.PaymentPayload{
		Version: facilitator.Version,
		Scheme:  "exact",
		Network: network,
		Payload: facilitator.SignedPayment{Signature: "0xsig", Transaction: "0xsignedtx"},
	})
	require.NoError(t, err)
	return h
}

func assertKind(t *testing.T, err error, kind intent.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, intent.KindOf(err), err.Error())
}

func TestInitiateTotal(t *testing.T) {
	f := newFixture(t, nil)

	in, req, err := f.svc.Initiate(context.Background(), intent.InitiateRequest{
		StoreRef: "store-1",
		Items:    []intent.LineRequest{{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, "2000000000", in.TotalAmount)
	assert.Equal(t, intent.StatusPending, in.Status)
	assert.Equal(t, "1000000000", in.Items[0].UnitPrice)
	assert.Equal(t, "10.00", in.Items[0].DisplayPrice)
	assert.Equal(t, "House Blend - 250g", in.Items[0].Title)
	assert.Equal(t, payTo, in.PayToAddress)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), in.ExpiresAt)

	assert.Equal(t, "exact", req.Scheme)
	assert.Equal(t, network, req.Network)
	assert.Equal(t, asset, req.Asset)
	assert.Equal(t, payTo, req.PayTo)
	assert.Equal(t, "2000000000", req.MaxAmountRequired)
	assert.Equal(t, 900, req.MaxTimeoutSeconds)
	assert.Equal(t, "https://shop.example/orders/"+in.ID, req.Resource)

	stored, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.TotalAmount, stored.TotalAmount)
}

func TestInitiateSumsLines(t *testing.T) {
	f := newFixture(t, nil)

	in, _, err := f.svc.Initiate(context.Background(), intent.InitiateRequest{
		StoreRef: "store-1",
		Items: []intent.LineRequest{
			{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 1},
			{ProductRef: "prod-b", VariantRef: "var-c", Quantity: 3},
		},
		ShippingAddress: &intent.Address{Name: "A", Line1: "1 Main St", City: "Town", Country: "US"},
	})
	require.NoError(t, err)
	// 10.00 + 3 * 4.99 = 24.97
	assert.Equal(t, "2497000000", in.TotalAmount)
	assert.Equal(t, "Cup", in.Items[1].Title)
	require.NotNil(t, in.ShippingAddress)
	assert.Equal(t, "Town", in.ShippingAddress.City)
}

func TestInitiateRejects(t *testing.T) {
	cases := []struct {
		name string
		req  intent.InitiateRequest
		kind intent.Kind
	}{
		{"no items", intent.InitiateRequest{StoreRef: "store-1"}, intent.KindValidation},
		{"zero quantity", intent.InitiateRequest{StoreRef: "store-1", Items: []intent.LineRequest{
			{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 0},
		}}, intent.KindValidation},
		{"unknown store", intent.InitiateRequest{StoreRef: "nope", Items: []intent.LineRequest{
			{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 1},
		}}, intent.KindNotFound},
		{"unknown product", intent.InitiateRequest{StoreRef: "store-1", Items: []intent.LineRequest{
			{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 1},
			{ProductRef: "prod-x", VariantRef: "var-a", Quantity: 1},
		}}, intent.KindNotFound},
		{"unknown variant", intent.InitiateRequest{StoreRef: "store-1", Items: []intent.LineRequest{
			{ProductRef: "prod-a", VariantRef: "var-x", Quantity: 1},
		}}, intent.KindNotFound},
		{"unavailable", intent.InitiateRequest{StoreRef: "store-1", Items: []intent.LineRequest{
			{ProductRef: "prod-a", VariantRef: "var-b", Quantity: 1},
		}}, intent.KindUnavailable},
		{"bad address", intent.InitiateRequest{StoreRef: "store-1", Items: []intent.LineRequest{
			{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 1},
		}, ShippingAddress: &intent.Address{Name: "A"}}, intent.KindValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, _, err := f.svc.Initiate(context.Background(), tc.req)
			assertKind(t, err, tc.kind)
			assert.Empty(t, f.pendingIDs(t))
		})
	}
}

func TestFinalizeNotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Finalize(context.Background(), "missing", paymentHeader(t))
	assertKind(t, err, intent.KindNotFound)
	assert.True(t, errors.Is(err, intent.ErrNotFound))
	assert.Zero(t, f.fac.verifies.Load())
}

func TestFinalizeExpiredOnce(t *testing.T) {
	f := newFixture(t, nil)
	in := f.initiate(t)
	f.clock.Advance(16 * time.Minute)

	_, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindExpired)

	_, err = f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindConflict)
	var ierr *intent.Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, intent.StatusExpired, ierr.Status)

	got, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusExpired, got.Status)
	assert.Zero(t, f.fac.verifies.Load())
}

func TestFinalizeMalformedPayload(t *testing.T) {
	f := newFixture(t, nil)
	in := f.initiate(t)

	for _, header := range []string{"", "%%%", "eyJ4NDAyVmVyc2lvbiI6MX0"} {
		_, err := f.svc.Finalize(context.Background(), in.ID, header)
		assertKind(t, err, intent.KindValidation)
	}

	got, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusPending, got.Status)
	assert.Zero(t, f.fac.verifies.Load())

	// still finalizable
	_, err = f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	require.NoError(t, err)
}

func TestFinalizeVerifyFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fac.verify = func(*facilitator.PaymentPayload) (*facilitator.VerifyResult, error) {
		return &facilitator.VerifyResult{IsValid: false, InvalidReason: "invalid_signature"}, nil
	}
	in := f.initiate(t)

	_, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindPaymentVerificationFailed)
	assert.Contains(t, err.Error(), "invalid_signature")

	got, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusFailed, got.Status)
	assert.Equal(t, "invalid_signature", got.FailureReason)
	assert.Nil(t, got.PaymentProof)
	assert.Zero(t, f.fac.settles.Load())
}

func TestFinalizeSettleFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fac.settle = func(*facilitator.PaymentPayload) (*facilitator.SettleResult, error) {
		return &facilitator.SettleResult{Success: false, ErrorReason: "insufficient_funds"}, nil
	}
	in := f.initiate(t)

	_, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindPaymentSettlementFailed)
	assert.False(t, errors.Is(err, intent.ErrPaymentVerificationFailed))

	got, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusFailed, got.Status)
	assert.Nil(t, got.PaymentProof)
}

func TestFinalizeSettleWithoutTransaction(t *testing.T) {
	f := newFixture(t, nil)
	f.fac.settle = func(*facilitator.PaymentPayload) (*facilitator.SettleResult, error) {
		return &facilitator.SettleResult{Success: true}, nil
	}
	in := f.initiate(t)

	_, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindPaymentSettlementFailed)
}

func TestFinalizePaid(t *testing.T) {
	var dispatched atomic.Int32
	f := newFixture(t, dispatcherFunc(func(_ context.Context, in *intent.Intent) (*intent.FulfillmentRef, error) {
		dispatched.Add(1)
		assert.Equal(t, intent.StatusPaid, in.Status)
		return &intent.FulfillmentRef{ExternalOrderID: "1001", ExternalOrderNumber: "1001", ExternalOrderLabel: "#1001"}, nil
	}))
	in := f.initiate(t)
	header := paymentHeader(t)

	paid, err := f.svc.Finalize(context.Background(), in.ID, header)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentProof)
	assert.Equal(t, "0xsettled", paid.PaymentProof.Transaction)
	assert.Equal(t, header, paid.PaymentProof.Payload)
	assert.Equal(t, "0xpayer", paid.PaymentProof.Payer)
	assert.JSONEq(t, `{"verify":{"isValid":true},"settle":{"success":true}}`, string(paid.PaymentProof.FacilitatorResponse))
	require.NotNil(t, paid.Fulfillment)
	assert.Equal(t, "#1001", paid.Fulfillment.ExternalOrderLabel)
	assert.EqualValues(t, 1, dispatched.Load())

	got, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, "1001", got.Fulfillment.ExternalOrderID)
}

func TestFinalizeFulfillmentFailureKeepsPaid(t *testing.T) {
	cases := map[string]intent.Dispatcher{
		"error": dispatcherFunc(func(context.Context, *intent.Intent) (*intent.FulfillmentRef, error) {
			return nil, errors.New("storefront down")
		}),
		"panic": dispatcherFunc(func(context.Context, *intent.Intent) (*intent.FulfillmentRef, error) {
			panic("boom")
		}),
	}
	for name, ful := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, ful)
			in := f.initiate(t)

			paid, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
			require.NoError(t, err)
			assert.Equal(t, intent.StatusPaid, paid.Status)
			assert.Nil(t, paid.Fulfillment)

			got, err := f.svc.Get(context.Background(), in.ID)
			require.NoError(t, err)
			assert.Equal(t, intent.StatusPaid, got.Status)
			assert.NotEmpty(t, got.PaymentProof.Transaction)
		})
	}
}

func TestFinalizeTwiceOnPaid(t *testing.T) {
	f := newFixture(t, nil)
	in := f.initiate(t)

	paid, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
		assertKind(t, err, intent.KindConflict)
		assert.Contains(t, err.Error(), "paid")
	}

	got, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, paid.PaymentProof, got.PaymentProof)
	assert.EqualValues(t, 1, f.fac.settles.Load())
}

func TestConcurrentFinalize(t *testing.T) {
	f := newFixture(t, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.fac.verify = func(*facilitator.PaymentPayload) (*facilitator.VerifyResult, error) {
		once.Do(func() { close(entered) })
		<-release
		return &facilitator.VerifyResult{IsValid: true}, nil
	}
	in := f.initiate(t)
	header := paymentHeader(t)

	type result struct {
		in  *intent.Intent
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			out, err := f.svc.Finalize(context.Background(), in.ID, header)
			results <- result{out, err}
		}()
	}

	<-entered
	loser := <-results
	assertKind(t, loser.err, intent.KindConflict)

	close(release)
	winner := <-results
	require.NoError(t, winner.err)
	assert.Equal(t, intent.StatusPaid, winner.in.Status)
	assert.EqualValues(t, 1, f.fac.verifies.Load())
	assert.EqualValues(t, 1, f.fac.settles.Load())
}

func TestFinalizeVerifyTransportError(t *testing.T) {
	f := newFixture(t, nil)
	calls := 0
	f.fac.verify = func(*facilitator.PaymentPayload) (*facilitator.VerifyResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return &facilitator.VerifyResult{IsValid: true}, nil
	}
	in := f.initiate(t)

	_, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindInternal)

	got, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusPending, got.Status)

	paid, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	require.NoError(t, err)
	assert.Equal(t, intent.StatusPaid, paid.Status)
}

func TestFinalizeSettleTransportErrorHoldsClaim(t *testing.T) {
	f := newFixture(t, nil)
	f.fac.settle = func(*facilitator.PaymentPayload) (*facilitator.SettleResult, error) {
		return nil, errors.New("timeout")
	}
	in := f.initiate(t)

	_, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindInternal)

	_, err = f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindConflict)
	_, err = f.svc.Cancel(context.Background(), in.ID)
	assertKind(t, err, intent.KindConflict)

	f.clock.Advance(2 * time.Minute)
	f.fac.settle = okFacilitator().settle
	paid, err := f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	require.NoError(t, err)
	assert.Equal(t, intent.StatusPaid, paid.Status)
}

func TestFinalizeFacilitatorCallsBoundedByLease(t *testing.T) {
	f := newFixture(t, nil)
	pricing, err := intent.NewPricing(network, asset, "USDC", 8, map[string]string{"USD": "1"})
	require.NoError(t, err)
	const lease = 200 * time.Millisecond
	svc := intent.NewService(f.store, newFakeCatalog(), f.fac, nil, pricing,
		intent.WithClock(f.clock.Now),
		intent.WithLease(lease),
		intent.WithLogger(logger.Logger),
	)
	in, _, err := svc.Initiate(context.Background(), intent.InitiateRequest{
		StoreRef: "store-1",
		Items:    []intent.LineRequest{{ProductRef: "prod-a", VariantRef: "var-a", Quantity: 1}},
	})
	require.NoError(t, err)

	f.fac.settleBlocks = true
	start := time.Now()
	_, err = svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindInternal)
	assert.Less(t, time.Since(start), 5*time.Second)

	f.fac.mu.Lock()
	deadlines := append([]time.Time(nil), f.fac.deadlines...)
	f.fac.mu.Unlock()
	require.Len(t, deadlines, 2)
	for _, dl := range deadlines {
		require.False(t, dl.IsZero(), "facilitator call without deadline")
		assert.WithinDuration(t, start.Add(lease), dl, 100*time.Millisecond)
	}

	// the claim is still held, so nobody settles a second time
	_, err = svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindConflict)
	assert.EqualValues(t, 1, f.fac.settles.Load())

	// once the lease has lapsed the abandoned attempt can be retried
	f.clock.Advance(time.Second)
	f.fac.settleBlocks = false
	paid, err := svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	require.NoError(t, err)
	assert.Equal(t, intent.StatusPaid, paid.Status)
	assert.EqualValues(t, 2, f.fac.settles.Load())
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	in := f.initiate(t)

	out, err := f.svc.Cancel(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusCancelled, out.Status)

	_, err = f.svc.Cancel(context.Background(), in.ID)
	assertKind(t, err, intent.KindConflict)
	_, err = f.svc.Finalize(context.Background(), in.ID, paymentHeader(t))
	assertKind(t, err, intent.KindConflict)

	_, err = f.svc.Cancel(context.Background(), "missing")
	assertKind(t, err, intent.KindNotFound)

	late := f.initiate(t)
	f.clock.Advance(time.Hour)
	_, err = f.svc.Cancel(context.Background(), late.ID)
	assertKind(t, err, intent.KindExpired)
}

func TestRequirementsFrozen(t *testing.T) {
	f := newFixture(t, nil)
	in := f.initiate(t)

	req, err := f.svc.Requirements(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.PayToAddress, req.PayTo)
	assert.Equal(t, in.TotalAmount, req.MaxAmountRequired)

	assert.Equal(t, 900, req.MaxTimeoutSeconds)

	// a later TTL change does not alter the contract of existing intents
	pricing, err := intent.NewPricing(network, asset, "USDC", 8, map[string]string{"USD": "1"})
	require.NoError(t, err)
	shorter := intent.NewService(f.store, newFakeCatalog(), f.fac, nil, pricing,
		intent.WithClock(f.clock.Now),
		intent.WithTTL(5*time.Minute),
		intent.WithLogger(logger.Logger),
		intent.WithPublicURL("https://shop.example/"),
	)
	f.clock.Advance(10 * time.Minute)
	again, err := shorter.Requirements(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, req, again)

	_, err = f.svc.Requirements(context.Background(), "missing")
	assertKind(t, err, intent.KindNotFound)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t, nil)
	a := f.initiate(t)
	f.clock.Advance(10 * time.Minute)
	b := f.initiate(t)
	f.clock.Advance(10 * time.Minute)

	n, err := f.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusExpired, got.Status)
	got, err = f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusPending, got.Status)

	n, err = f.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunSweeperStops(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.svc.RunSweeper(ctx, time.Millisecond), context.Canceled)
	assert.Error(t, f.svc.RunSweeper(context.Background(), 0))
}
