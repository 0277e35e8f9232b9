package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProfessionEarnings is one grouped row of the best-profession aggregation:
// total price of paid jobs delivered by contractors of that profession.
type ProfessionEarnings struct {
	Profession    string          `json:"profession"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
}

// ClientSpending is one grouped row of the best-clients aggregation.
type ClientSpending struct {
	ID        uuid.UUID       `json:"id"`
	FirstName string          `json:"-"`
	LastName  string          `json:"-"`
	Paid      decimal.Decimal `json:"paid"`
}

func (c ClientSpending) FullName() string {
	return c.FirstName + " " + c.LastName
}

// EarningsReport is the admin export document covering one payment window.
type EarningsReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalPaid   decimal.Decimal
	Professions []ProfessionEarnings
	TopClients  []ClientSpending
}
