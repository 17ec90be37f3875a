package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go-agentcommerce/payment/db"
)

// GormStore persists intents in mysql or sqlite. Every state change is a
// single conditional UPDATE whose affected row count decides the winner.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb}
}

func (s *GormStore) Create(ctx context.Context, in *Intent) error {
	row, err := toRow(in)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*Intent, error) {
	var row db.Intent
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoIntent
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (s *GormStore) Claim(ctx context.Context, id, token string, now time.Time, lease time.Duration) error {
	now = now.UTC()
	res := s.pendingUnclaimed(ctx, id, now, lease).
		Updates(map[string]any{
			"claim_token": token,
			"claimed_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missOrStale(ctx, id)
	}
	return nil
}

func (s *GormStore) Release(ctx context.Context, id, token string) error {
	return s.db.WithContext(ctx).Model(&db.Intent{}).
		Where("id = ? AND claim_token = ?", id, token).
		Updates(map[string]any{
			"claim_token": "",
			"claimed_at":  nil,
		}).Error
}

func (s *GormStore) Transition(ctx context.Context, t Transition) (*Intent, error) {
	at := t.At.UTC()
	var q *gorm.DB
	if t.Token != "" {
		q = s.db.WithContext(ctx).Model(&db.Intent{}).
			Where("id = ? AND status = ? AND claim_token = ?", t.ID, StatusPending, t.Token)
	} else {
		q = s.pendingUnclaimed(ctx, t.ID, at, t.Lease)
	}

	updates := map[string]any{
		"status":         string(t.To),
		"failure_reason": t.FailureReason,
		"claim_token":    "",
		"claimed_at":     nil,
		"updated_at":     at,
	}
	if p := t.Proof; p != nil {
		verified := p.VerifiedAt.UTC()
		updates["payment_transaction"] = p.Transaction
		updates["payment_payload"] = p.Payload
		updates["payment_payer"] = p.Payer
		updates["verified_at"] = &verified
		updates["facilitator_response"] = datatypes.JSON(p.FacilitatorResponse)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.missOrStale(ctx, t.ID)
	}
	return s.Get(ctx, t.ID)
}

func (s *GormStore) SetFulfillment(ctx context.Context, id string, ref FulfillmentRef) error {
	res := s.db.WithContext(ctx).Model(&db.Intent{}).
		Where("id = ? AND status = ?", id, StatusPaid).
		Updates(map[string]any{
			"external_order_id":     ref.ExternalOrderID,
			"external_order_number": ref.ExternalOrderNumber,
			"external_order_label":  ref.ExternalOrderLabel,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missOrStale(ctx, id)
	}
	return nil
}

func (s *GormStore) ListExpired(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]string, error) {
	now = now.UTC()
	var ids []string
	q := s.db.WithContext(ctx).Model(&db.Intent{}).
		Where("status = ? AND expires_at < ?", StatusPending, now).
		Where("(claim_token = '' OR claimed_at IS NULL OR claimed_at < ?)", now.Add(-lease)).
		Order("expires_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) pendingUnclaimed(ctx context.Context, id string, now time.Time, lease time.Duration) *gorm.DB {
	return s.db.WithContext(ctx).Model(&db.Intent{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Where("(claim_token = '' OR claimed_at IS NULL OR claimed_at < ?)", now.Add(-lease))
}

func (s *GormStore) missOrStale(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&db.Intent{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNoIntent
	}
	return ErrStale
}

func toRow(in *Intent) (*db.Intent, error) {
	items, err := json.Marshal(in.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	row := &db.Intent{
		ID:            in.ID,
		StoreID:       in.StoreRef,
		Items:         datatypes.JSON(items),
		TotalAmount:   in.TotalAmount,
		Currency:      in.Currency,
		Network:       in.Network,
		Asset:         in.Asset,
		PayTo:         in.PayToAddress,
		Description:   in.Description,
		Status:        string(in.Status),
		FailureReason: in.FailureReason,
		ExpiresAt:     in.ExpiresAt.UTC(),
		CreatedAt:     in.CreatedAt.UTC(),
		UpdatedAt:     in.UpdatedAt.UTC(),
	}
	if in.ShippingAddress != nil {
		addr, err := json.Marshal(in.ShippingAddress)
		if err != nil {
			return nil, fmt.Errorf("encode shipping address: %w", err)
		}
		row.ShippingAddress = datatypes.JSON(addr)
	}
	return row, nil
}

func fromRow(row *db.Intent) (*Intent, error) {
	in := &Intent{
		ID:            row.ID,
		StoreRef:      row.StoreID,
		TotalAmount:   row.TotalAmount,
		Currency:      row.Currency,
		Network:       row.Network,
		Asset:         row.Asset,
		PayToAddress:  row.PayTo,
		Description:   row.Description,
		Status:        Status(row.Status),
		FailureReason: row.FailureReason,
		ExpiresAt:     row.ExpiresAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		claimToken:    row.ClaimToken,
		claimedAt:     row.ClaimedAt,
	}
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &in.Items); err != nil {
			return nil, fmt.Errorf("decode items of %s: %w", row.ID, err)
		}
	}
	if len(row.ShippingAddress) > 0 && string(row.ShippingAddress) != "null" {
		in.ShippingAddress = &Address{}
		if err := json.Unmarshal(row.ShippingAddress, in.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address of %s: %w", row.ID, err)
		}
	}
	if row.PaymentTransaction != "" {
		in.PaymentProof = &PaymentProof{
			Transaction:         row.PaymentTransaction,
			Payload:             row.PaymentPayload,
			Payer:               row.PaymentPayer,
			FacilitatorResponse: json.RawMessage(row.FacilitatorResponse),
		}
		if row.VerifiedAt != nil {
			in.PaymentProof.VerifiedAt = *row.VerifiedAt
		}
	}
	if row.ExternalOrderID != "" {
		in.Fulfillment = &FulfillmentRef{
			ExternalOrderID:     row.ExternalOrderID,
			ExternalOrderNumber: row.ExternalOrderNumber,
			ExternalOrderLabel:  row.ExternalOrderLabel,
		}
	}
	return in, nil
}
