package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/model"
	"github.com/nurpe/gigpay/internal/repository"
)

// ContractService covers the read side of contracts. Contracts and jobs
// are created out of band; payment logic only ever flips their state.
type ContractService struct {
	ledger *repository.LedgerRepository
}

func NewContractService(ledger *repository.LedgerRepository) *ContractService {
	return &ContractService{ledger: ledger}
}

// Contracts returns the actor's non-terminated contracts.
func (s *ContractService) Contracts(ctx context.Context, actor model.Profile) ([]model.Contract, error) {
	return s.ledger.ListContractsForParty(ctx, actor.ID)
}

// ContractByID returns the contract only when the actor is one of its
// parties.
func (s *ContractService) ContractByID(ctx context.Context, actor model.Profile, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.ledger.GetContract(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !contract.IsParty(actor.ID) {
		return nil, ErrPermissionDenied
	}
	return contract, nil
}
