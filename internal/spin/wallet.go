package spin

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// TransactionPage is one page of a user's wallet journal
type TransactionPage struct {
	Transactions []domain.Transaction `json:"transactions"` // Newest first
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total number of transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
}

// Wallet returns the user's wallet
func (s *Service) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := s.inTx(ctx, "wallet", func(ctx context.Context, tx store.Tx) error {
		var err error
		wallet, err = tx.Wallet(ctx, userID)
		return notFound(err, "wallet not found")
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return wallet, nil
}

// CreateWallet opens an empty wallet for the user
func (s *Service) CreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	if userID == "" {
		return nil, apperr.Newf(apperr.CodeInvalidRequest, "user id is required")
	}
	wallet := &domain.Wallet{UserID: userID}
	err := s.inTx(ctx, "create wallet", func(ctx context.Context, tx store.Tx) error {
		wallet.ID = 0
		if err := tx.CreateWallet(ctx, wallet); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Newf(apperr.CodeInvalidRequest, "wallet already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.log.WithField("user_id", userID).Info("Wallet created")
	return wallet, nil
}

// Deposit credits points to a user's wallet outside of any spin
func (s *Service) Deposit(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, apperr.Newf(apperr.CodeInvalidRequest, "invalid amount")
	}
	var wallet *domain.Wallet
	err := s.inTx(ctx, "deposit", func(ctx context.Context, tx store.Tx) error {
		if err := s.ledger.Credit(ctx, tx, userID, amount, domain.TxDeposit, ""); err != nil {
			return err
		}
		var err error
		wallet, err = tx.Wallet(ctx, userID)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.log.WithFields(logrus.Fields{
		"user_id": userID, // Wallet owner
		"amount":  amount, // Deposit amount
	}).Info("Deposit successful")
	return wallet, nil
}

// MaxTransactionPage bounds the page number of a journal listing
const MaxTransactionPage = 10_000

// Transactions returns one page of the user's wallet journal, newest first
func (s *Service) Transactions(ctx context.Context, userID string, page, pageSize int) (*TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxTransactionPage {
		return nil, apperr.Newf(apperr.CodeInvalidRequest, "page must be at most %d", MaxTransactionPage)
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var result *TransactionPage
	err := s.inTx(ctx, "transactions", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Wallet(ctx, userID); err != nil {
			return notFound(err, "wallet not found")
		}
		txs, total, err := tx.Transactions(ctx, userID, (page-1)*pageSize, pageSize)
		if err != nil {
			return err
		}
		result = &TransactionPage{
			Transactions: txs,
			Page:         page,
			PageSize:     pageSize,
			Total:        total,
			TotalPages:   (int(total) + pageSize - 1) / pageSize,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return result, nil
}
