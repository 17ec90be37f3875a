package intent

import (
	"context"
	"encoding/json"
	"time"

	"go-agentcommerce/payment/facilitator"
)

// Finalize verifies and settles a signed payment for a pending intent, marks
// it paid and then attempts fulfillment.
//
// Between decoding and the first facilitator call the intent is claimed, so
// of two racing calls only one ever reaches the facilitator. A verify
// transport error releases the claim. A settle transport error keeps it until
// the lease runs out, since the payment may already be on its way. Both
// facilitator calls share a deadline of one lease from the claim, so a claim
// can only lapse once the calls made under it have been abandoned.
func (s *Service) Finalize(ctx context.Context, id, header string) (*Intent, error) {
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

	payload, err := facilitator.DecodePayload(header)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: "malformed payment payload", Err: err}
	}

	token := s.newID()
	if err := s.store.Claim(ctx, id, token, now, s.lease); err != nil {
		return nil, s.storeError(ctx, id, err)
	}
	log := s.log.With().Str("intent", id).Logger()
	req := *s.requirements(in)

	// The outcome of a facilitator call must be recorded even when the
	// caller has gone away.
	wctx := context.WithoutCancel(ctx)
	fctx, cancel := context.WithTimeout(ctx, s.lease)
	defer cancel()

	start := time.Now()
	verified, err := s.fac.Verify(fctx, payload, req)
	s.metrics.ObserveFacilitator("verify", start)
	if err != nil {
		if rerr := s.store.Release(wctx, id, token); rerr != nil {
			log.Error().Err(rerr).Msg("release finalize claim")
		}
		return nil, internal(err, "verify payment for intent %s", id)
	}
	if !verified.IsValid {
		reason := orDefault(verified.InvalidReason, "payment verification failed")
		if err := s.fail(wctx, id, token, reason); err != nil {
			return nil, err
		}
		return nil, newError(KindPaymentVerificationFailed, "%s", reason)
	}

	start = time.Now()
	settled, err := s.fac.Settle(fctx, payload, req)
	s.metrics.ObserveFacilitator("settle", start)
	if err != nil {
		log.Error().Err(err).Msg("settlement outcome unknown, intent stays claimed")
		return nil, internal(err, "settle payment for intent %s: outcome unknown", id)
	}
	if !settled.Success || settled.Transaction == "" {
		reason := orDefault(settled.ErrorReason, "payment settlement failed")
		if err := s.fail(wctx, id, token, reason); err != nil {
			return nil, err
		}
		return nil, newError(KindPaymentSettlementFailed, "%s", reason)
	}

	proof := &PaymentProof{
		Transaction:         settled.Transaction,
		Payload:             header,
		Payer:               orDefault(settled.Payer, verified.Payer),
		VerifiedAt:          s.now(),
		FacilitatorResponse: auditRecord(verified.Raw, settled.Raw),
	}
	paid, err := s.store.Transition(wctx, Transition{
		ID:    id,
		To:    StatusPaid,
		Token: token,
		At:    s.now(),
		Proof: proof,
	})
	if err != nil {
		log.Error().Err(err).Str("transaction", settled.Transaction).Msg("payment settled but intent could not be marked paid")
		return nil, s.storeError(wctx, id, err)
	}
	s.transitioned(paid, StatusPending)

	s.fulfill(wctx, paid)
	return paid, nil
}

func (s *Service) fail(ctx context.Context, id, token, reason string) error {
	out, err := s.store.Transition(ctx, Transition{
		ID:            id,
		To:            StatusFailed,
		Token:         token,
		At:            s.now(),
		FailureReason: reason,
	})
	if err != nil {
		return s.storeError(ctx, id, err)
	}
	s.transitioned(out, StatusPending)
	return nil
}

// fulfill never fails the caller: the intent is already paid.
func (s *Service) fulfill(ctx context.Context, in *Intent) {
	if s.ful == nil {
		return
	}
	log := s.log.With().Str("intent", in.ID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("fulfillment panicked")
		}
	}()

	ref, err := s.ful.Dispatch(ctx, in.clone())
	if err != nil {
		log.Warn().Err(err).Msg("fulfillment failed")
		return
	}
	if ref == nil {
		return
	}
	if err := s.store.SetFulfillment(ctx, in.ID, *ref); err != nil {
		log.Error().Err(err).Str("order", ref.ExternalOrderID).Msg("record fulfillment")
		return
	}
	in.Fulfillment = ref
	log.Info().Str("order", ref.ExternalOrderID).Msg("fulfilled")
}

func auditRecord(verify, settle json.RawMessage) json.RawMessage {
	rec := map[string]json.RawMessage{}
	if len(verify) > 0 {
		rec["verify"] = verify
	}
	if len(settle) > 0 {
		rec["settle"] = settle
	}
	if len(rec) == 0 {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	return b
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
