// Package events carries change notifications out of the services to
// websocket clients and the message broker.
package events

import (
	"context"
	"errors"
	"time"
)

type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
	TransactionDeleted Type = "transaction.deleted"

	BudgetCreated Type = "budget.created"
	BudgetUpdated Type = "budget.updated"
	BudgetDeleted Type = "budget.deleted"

	FamilyMemberAdded   Type = "family.member_added"
	FamilyMemberRemoved Type = "family.member_removed"
	FamilyDeleted       Type = "family.deleted"
)

// Event describes one change. FamilyID is empty for personal data.
type Event struct {
	Type     Type      `json:"type"`
	FamilyID string    `json:"family_id,omitempty"`
	UserID   string    `json:"user_id"`
	EntityID string    `json:"entity_id"`
	At       time.Time `json:"at"`
	Payload  any       `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
