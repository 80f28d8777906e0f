package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodKind names the window a budget thread tracks.
type PeriodKind string

const (
	PeriodWeek   PeriodKind = "week"
	PeriodMonth  PeriodKind = "month"
	PeriodYear   PeriodKind = "year"
	PeriodCustom PeriodKind = "custom"
)

func (k PeriodKind) Valid() bool {
	switch k {
	case PeriodWeek, PeriodMonth, PeriodYear, PeriodCustom:
		return true
	}
	return false
}

// Budget is a tracked period with a target amount. The product calls it a
// "thread"; both names refer to this type.
//
// Non-custom budgets never persist StartDate/EndDate. They are filled in on
// read from the current date.
type Budget struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	Kind         PeriodKind      `json:"kind"`
	Description  string          `json:"description,omitempty"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	StartDate    *time.Time      `json:"start_date,omitempty"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	OwnerUserID  string          `json:"owner_user_id"`
	FamilyID     string          `json:"family_id,omitempty"`
	IsCustom     bool            `json:"is_custom"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreateBudgetRequest struct {
	Label        string          `json:"label" binding:"required"`
	Kind         PeriodKind      `json:"kind" binding:"required"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	StartDate    *time.Time      `json:"start_date"`
	EndDate      *time.Time      `json:"end_date"`
	FamilyID     string          `json:"family_id"`
}

type UpdateBudgetRequest struct {
	Label        *string          `json:"label"`
	Kind         *PeriodKind      `json:"kind"`
	Description  *string          `json:"description"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	StartDate    *time.Time       `json:"start_date"`
	EndDate      *time.Time       `json:"end_date"`
}

// BudgetSummary pairs a thread with the aggregation of its window.
type BudgetSummary struct {
	Budget  Budget  `json:"budget"`
	Summary Summary `json:"summary"`
}
