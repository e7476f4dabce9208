package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
)

// applyDelta moves a wallet balance by delta inside tx. Decreases are
// conditioned on the balance covering them, so the check and the write are a
// single statement and cannot interleave with another writer.
func applyDelta(tx *gorm.DB, accountID, walletID string, delta decimal.Decimal) (*models.Wallet, error) {
	q := tx.Model(&models.Wallet{}).Where("id = ? AND account_id = ?", walletID, accountID)
	if delta.IsNegative() {
		q = q.Where("balance >= ?", delta.Neg())
	}

	res := q.Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Wallet{}).
			Where("id = ? AND account_id = ?", walletID, accountID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.ErrInsufficientBalance
	}

	var wallet models.Wallet
	if err := tx.Where("id = ? AND account_id = ?", walletID, accountID).First(&wallet).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// applyTransfer debits source and credits target by amount. The two rows are
// always updated in ascending id order, so opposing transfers between the
// same pair acquire their row locks in the same order.
func applyTransfer(tx *gorm.DB, accountID, sourceID, targetID string, amount decimal.Decimal) (source, target *models.Wallet, err error) {
	if sourceID < targetID {
		if source, err = applyDelta(tx, accountID, sourceID, amount.Neg()); err != nil {
			return nil, nil, err
		}
		target, err = applyDelta(tx, accountID, targetID, amount)
	} else {
		if target, err = applyDelta(tx, accountID, targetID, amount); err != nil {
			return nil, nil, err
		}
		source, err = applyDelta(tx, accountID, sourceID, amount.Neg())
	}
	if err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

// ledgerEntry builds the synthetic transaction recorded next to a balance
// change.
func ledgerEntry(accountID, walletID, memberID string, kind models.TransactionType, category, title, note string, amount decimal.Decimal) *models.Transaction {
	now := time.Now().UTC()
	wid := walletID
	entry := &models.Transaction{
		AccountID:      accountID,
		WalletID:       &wid,
		Type:           kind,
		Title:          title,
		Category:       category,
		Amount:         amount,
		OccurredAt:     now,
		Description:    note,
		LastAction:     models.ActivityCreated,
		LastActivityAt: now,
	}
	if memberID != "" {
		mid := memberID
		entry.MemberID = &mid
		actor := memberID
		entry.LastActorMemberID = &actor
	}
	return entry
}
