package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/config"
	"github.com/nurpe/gigpay/internal/model"
	"github.com/nurpe/gigpay/internal/repository"
)

// BillingService implements the two money-moving operations. Both run
// inside a single ledger transaction with the touched profile rows
// locked, so a concurrent request on the same rows either waits or
// observes the committed result, never a partial one.
type BillingService struct {
	ledger  *repository.LedgerRepository
	capRate decimal.Decimal
}

type PaymentResult struct {
	Job               model.Job
	ClientBalance     decimal.Decimal
	ContractorBalance decimal.Decimal
}

func NewBillingService(ledger *repository.LedgerRepository, cfg *config.Config) *BillingService {
	return &BillingService{
		ledger:  ledger,
		capRate: cfg.Billing.DepositCapRate,
	}
}

// Deposit adds amount to the actor's own balance. The deposit is capped
// at capRate times the actor's total unpaid job value, computed from a
// snapshot taken inside the same transaction that locks the profile row.
// The unpaid job rows themselves are not locked.
func (s *BillingService) Deposit(ctx context.Context, actor model.Profile, targetID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if actor.ID != targetID {
		return decimal.Zero, ErrPermissionDenied
	}

	var newBalance decimal.Decimal
	err := s.ledger.InTransaction(ctx, func(tx *repository.LedgerTx) error {
		profile, err := tx.LockProfile(ctx, targetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		unpaidJobs, err := tx.UnpaidJobsForParty(ctx, targetID)
		if err != nil {
			return err
		}

		totalUnpaid := decimal.Zero
		for _, job := range unpaidJobs {
			totalUnpaid = totalUnpaid.Add(job.Price)
		}
		maxAllowed := totalUnpaid.Mul(s.capRate)

		if amount.GreaterThan(maxAllowed) {
			return &DepositLimitError{Rate: s.capRate, Max: maxAllowed}
		}

		newBalance = profile.Balance.Add(amount)
		return tx.UpdateProfileBalance(ctx, targetID, newBalance)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Pay moves the job price from the acting client to the contractor and
// marks the job paid. The job row is locked together with both profile
// rows, and the paid flip is guarded so that of two concurrent payments
// on the same job exactly one commits a transfer. When the contract has
// no unpaid jobs left after the payment it is terminated in the same
// transaction.
func (s *BillingService) Pay(ctx context.Context, actor model.Profile, jobID uuid.UUID) (*PaymentResult, error) {
	if !actor.IsClient() {
		return nil, ErrPermissionDenied
	}

	var result PaymentResult
	err := s.ledger.InTransaction(ctx, func(tx *repository.LedgerTx) error {
		job, contract, err := tx.FindUnpaidJobForClient(ctx, jobID, actor.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		client, contractor, err := tx.LockProfilePair(ctx, actor.ID, contract.ContractorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if client.Balance.LessThan(job.Price) {
			return ErrInsufficientFunds
		}

		clientBalance := client.Balance.Sub(job.Price)
		contractorBalance := contractor.Balance.Add(job.Price)

		if err := tx.UpdateProfileBalance(ctx, client.ID, clientBalance); err != nil {
			return err
		}
		if err := tx.UpdateProfileBalance(ctx, contractor.ID, contractorBalance); err != nil {
			return err
		}

		paidAt := time.Now().UTC()
		if err := tx.MarkJobPaid(ctx, job.ID, paidAt); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		remaining, err := tx.CountUnpaidJobs(ctx, contract.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.TerminateContract(ctx, contract.ID); err != nil {
				return err
			}
		}

		job.Paid = true
		job.PaymentDate = &paidAt
		result = PaymentResult{
			Job:               *job,
			ClientBalance:     clientBalance,
			ContractorBalance: contractorBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UnpaidJobs lists the actor's unpaid jobs across in_progress contracts,
// on either side of the contract. An empty result is not an error here.
func (s *BillingService) UnpaidJobs(ctx context.Context, actor model.Profile) ([]model.Job, error) {
	return s.ledger.UnpaidJobsForParty(ctx, actor.ID)
}
