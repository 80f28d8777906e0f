package models

import "time"

// MainCategory is the allocation bucket a category rolls up into.
type MainCategory string

const (
	MainIncome      MainCategory = "income"
	MainEssentials  MainCategory = "essentials"
	MainCommitments MainCategory = "commitments"
	MainSavings     MainCategory = "savings"
)

func (m MainCategory) Valid() bool {
	switch m {
	case MainIncome, MainEssentials, MainCommitments, MainSavings:
		return true
	}
	return false
}

// Category is either a default (no owner) or scoped to a user and/or family.
type Category struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	MainCategory MainCategory `json:"main_category"`
	IsDefault    bool         `json:"is_default"`
	UserID       string       `json:"user_id,omitempty"`
	FamilyID     string       `json:"family_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type CreateCategoryRequest struct {
	Name         string       `json:"name" binding:"required"`
	MainCategory MainCategory `json:"main_category" binding:"required"`
	FamilyID     string       `json:"family_id"`
}

type SuggestCategoryRequest struct {
	Label string `json:"label" binding:"required"`
}
