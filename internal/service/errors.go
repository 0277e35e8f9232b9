package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// DepositLimitError rejects a deposit above the allowed fraction of the
// depositor's outstanding unpaid job total. Max carries the computed cap.
type DepositLimitError struct {
	Rate decimal.Decimal
	Max  decimal.Decimal
}

func (e *DepositLimitError) Error() string {
	percent := e.Rate.Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("deposit exceeds the %s%% limit of unpaid jobs, max allowed: %s",
		percent.String(), e.Max.StringFixed(2))
}
