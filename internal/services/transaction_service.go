package services

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "finsav/internal/errors"
	"finsav/internal/models"
	"finsav/internal/pagination"
)

type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new transaction service backed by the
// given database.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// normalizeAmount applies the sign convention: expenses are stored
// negative, income positive, regardless of the sign the caller supplied.
func normalizeAmount(transactionType models.TransactionType, amount float64) float64 {
	abs := math.Abs(amount)
	if transactionType == models.TransactionTypeExpense {
		return -abs
	}
	return abs
}

// CreateTransaction records a transaction for the user with a
// normalized amount sign.
func (s *transactionService) CreateTransaction(userID string, transactionType models.TransactionType, amount float64, description string, date time.Time) (*models.Transaction, error) {
	if transactionType != models.TransactionTypeIncome && transactionType != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        transactionType,
		Amount:      normalizeAmount(transactionType, amount),
		Description: description,
		Date:        date,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetUserTransactions returns a filtered page of the user's transactions.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	query := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.MinAmount != nil {
		query = query.Where("ABS(amount) >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("ABS(amount) <= ?", *filter.MaxAmount)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	order := "date DESC"
	if filter.Ascending {
		order = "date ASC"
	}

	var transactions []models.Transaction
	err := query.
		Order(order).
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(transactions, page.Page, page.PageSize, total)
	return &resp, nil
}

func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrTransactionNotFound, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies the allow-listed fields. The amount keeps
// the sign convention of the transaction's type.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	if update.Amount != nil {
		transaction.Amount = normalizeAmount(transaction.Type, *update.Amount)
	}
	if update.Description != nil {
		transaction.Description = *update.Description
	}
	if update.Date != nil {
		transaction.Date = *update.Date
	}

	if err := s.db.Save(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
