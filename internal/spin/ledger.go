package spin

import (
	"context"
	"errors"
	"fmt"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// MaxCreditAmount bounds a single reward or deposit credit. Refunds are not
// capped: they return exactly what was debited.
const MaxCreditAmount int64 = 1_000_000

// WalletLedger moves points in and out of wallets and journals every movement
type WalletLedger struct{}

// Debit takes amount from the user's wallet in one conditional write
func (WalletLedger) Debit(ctx context.Context, tx store.Tx, userID string, amount int64, ref string) error {
	if amount < 0 {
		return apperr.Newf(apperr.CodeInvalidRequest, "debit amount %d is negative", amount)
	}
	if amount == 0 {
		return nil // Free spins move nothing
	}
	if err := tx.Debit(ctx, userID, amount); err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			return apperr.ErrInsufficientFunds
		case errors.Is(err, store.ErrNotFound):
			return apperr.Newf(apperr.CodeNotFound, "wallet for user %s not found", userID)
		}
		return fmt.Errorf("debit wallet: %w", err)
	}
	return tx.RecordTransaction(ctx, &domain.Transaction{
		UserID:    userID,
		Amount:    amount,
		Type:      domain.TxSpinCost,
		Reference: ref,
	})
}

// Credit adds amount to the user's wallet under the given transaction type
func (WalletLedger) Credit(ctx context.Context, tx store.Tx, userID string, amount int64, txType, ref string) error {
	if amount < 0 || amount > MaxCreditAmount {
		return apperr.Newf(apperr.CodeInvalidRequest, "credit amount %d out of range", amount)
	}
	if amount == 0 {
		return nil
	}
	if err := tx.Credit(ctx, userID, amount); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "wallet for user %s not found", userID)
		}
		return fmt.Errorf("credit wallet: %w", err)
	}
	return tx.RecordTransaction(ctx, &domain.Transaction{
		UserID:    userID,
		Amount:    amount,
		Type:      txType,
		Reference: ref,
	})
}

// Refund returns a debited spin cost to the user's wallet
func (WalletLedger) Refund(ctx context.Context, tx store.Tx, userID string, amount int64, ref string) error {
	if amount < 0 {
		return apperr.Newf(apperr.CodeInvalidRequest, "refund amount %d is negative", amount)
	}
	if amount == 0 {
		return nil
	}
	if err := tx.Credit(ctx, userID, amount); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "wallet for user %s not found", userID)
		}
		return fmt.Errorf("refund wallet: %w", err)
	}
	return tx.RecordTransaction(ctx, &domain.Transaction{
		UserID:    userID,
		Amount:    amount,
		Type:      domain.TxSpinRefund,
		Reference: ref,
	})
}
