package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction amounts are never negative; Type carries the direction.
type Transaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	Category  string          `json:"category"`
	UserID    string          `json:"user_id"`
	FamilyID  string          `json:"family_id,omitempty"`
	Note      string          `json:"note,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateTransactionRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type" binding:"required"`
	Category  string          `json:"category"`
	FamilyID  string          `json:"family_id"`
	Note      string          `json:"note"`
	Timestamp *time.Time      `json:"timestamp"`
}

// UpdateTransactionRequest only touches the fields that are set.
type UpdateTransactionRequest struct {
	Amount    *decimal.Decimal `json:"amount"`
	Type      *TransactionType `json:"type"`
	Category  *string          `json:"category"`
	Note      *string          `json:"note"`
	Timestamp *time.Time       `json:"timestamp"`
}
