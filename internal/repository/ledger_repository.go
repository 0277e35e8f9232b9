package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/model"
)

// LedgerRepository owns the profiles, contracts and jobs tables. Every
// mutating path goes through InTransaction so balance checks and writes
// share one isolation window.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// LedgerTx is the transaction handle passed to InTransaction callbacks.
// Row locks taken through it are held until the transaction commits or
// rolls back.
type LedgerTx struct {
	db *gorm.DB
}

// InTransaction runs fn inside a single database transaction. Any error
// returned by fn rolls the whole transaction back before it is surfaced.
func (r *LedgerRepository) InTransaction(ctx context.Context, fn func(tx *LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LedgerTx{db: tx})
	})
}

func (r *LedgerRepository) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return getProfile(r.db.WithContext(ctx), id, "")
}

// LockProfile reads the profile row with an exclusive lock. The lock is
// held until the enclosing transaction finishes.
func (tx *LedgerTx) LockProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return getProfile(tx.db.WithContext(ctx), id, " FOR UPDATE")
}

// LockProfilePair locks both profile rows in ascending id order so that
// two concurrent payments touching the same accounts in reversed roles
// cannot deadlock each other.
func (tx *LedgerTx) LockProfilePair(ctx context.Context, first, second uuid.UUID) (*model.Profile, *model.Profile, error) {
	var rows []model.Profile
	err := tx.db.WithContext(ctx).Raw(`
		SELECT id, first_name, last_name, profession, type, balance, created_at
		FROM profiles
		WHERE id IN (?, ?)
		ORDER BY id ASC
		FOR UPDATE
	`, first, second).Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	if len(rows) != 2 {
		return nil, nil, gorm.ErrRecordNotFound
	}

	if rows[0].ID == first {
		return &rows[0], &rows[1], nil
	}
	return &rows[1], &rows[0], nil
}

// FindUnpaidJobForClient resolves the job by id, but only when it is
// still unpaid and the contract behind it belongs to the given client.
// An already-paid or foreign job is indistinguishable from a missing one.
// The job row is locked, so a payment that was waiting on a concurrent
// one re-checks the paid flag after the winner commits and finds no row.
func (tx *LedgerTx) FindUnpaidJobForClient(ctx context.Context, jobID, clientID uuid.UUID) (*model.Job, *model.Contract, error) {
	var row struct {
		ID                uuid.UUID
		ContractID        uuid.UUID
		Description       string
		Price             decimal.Decimal
		Paid              bool
		PaymentDate       *time.Time
		CreatedAt         time.Time
		ClientID          uuid.UUID
		ContractorID      uuid.UUID
		Terms             string
		Status            model.ContractStatus
		ContractCreatedAt time.Time
	}

	err := tx.db.WithContext(ctx).Raw(`
		SELECT
			j.id,
			j.contract_id,
			j.description,
			j.price,
			j.paid,
			j.payment_date,
			j.created_at,
			c.client_id,
			c.contractor_id,
			c.terms,
			c.status,
			c.created_at AS contract_created_at
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE j.id = ?
			AND NOT j.paid
			AND c.client_id = ?
		LIMIT 1
		FOR UPDATE OF j
	`, jobID, clientID).Scan(&row).Error
	if err != nil {
		return nil, nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil, gorm.ErrRecordNotFound
	}

	job := &model.Job{
		ID:          row.ID,
		ContractID:  row.ContractID,
		Description: row.Description,
		Price:       row.Price,
		Paid:        row.Paid,
		PaymentDate: row.PaymentDate,
		CreatedAt:   row.CreatedAt,
	}
	contract := &model.Contract{
		ID:           row.ContractID,
		ClientID:     row.ClientID,
		ContractorID: row.ContractorID,
		Terms:        row.Terms,
		Status:       row.Status,
		CreatedAt:    row.ContractCreatedAt,
	}
	return job, contract, nil
}

// UnpaidJobsForParty returns unpaid jobs on in_progress contracts where
// the profile is either side of the contract. The job rows are read
// without locks.
func (r *LedgerRepository) UnpaidJobsForParty(ctx context.Context, partyID uuid.UUID) ([]model.Job, error) {
	return unpaidJobsForParty(r.db.WithContext(ctx), partyID)
}

// UnpaidJobsForParty is the in-transaction variant used by the deposit
// cap computation.
func (tx *LedgerTx) UnpaidJobsForParty(ctx context.Context, partyID uuid.UUID) ([]model.Job, error) {
	return unpaidJobsForParty(tx.db.WithContext(ctx), partyID)
}

func (tx *LedgerTx) UpdateProfileBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return tx.db.WithContext(ctx).Exec(`
		UPDATE profiles SET balance = ? WHERE id = ?
	`, balance, id).Error
}

// MarkJobPaid flips the job to paid. The NOT paid guard keeps the paid
// state terminal: when another transaction already paid the job, no row
// matches and ErrRecordNotFound is returned so the caller rolls back.
func (tx *LedgerTx) MarkJobPaid(ctx context.Context, jobID uuid.UUID, paidAt time.Time) error {
	res := tx.db.WithContext(ctx).Exec(`
		UPDATE jobs SET paid = TRUE, payment_date = ? WHERE id = ? AND NOT paid
	`, paidAt, jobID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (tx *LedgerTx) CountUnpaidJobs(ctx context.Context, contractID uuid.UUID) (int64, error) {
	var count int64
	err := tx.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM jobs WHERE contract_id = ? AND NOT paid
	`, contractID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (tx *LedgerTx) TerminateContract(ctx context.Context, contractID uuid.UUID) error {
	return tx.db.WithContext(ctx).Exec(`
		UPDATE contracts SET status = 'terminated' WHERE id = ?
	`, contractID).Error
}

func (r *LedgerRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, client_id, contractor_id, terms, status, created_at
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

// ListContractsForParty returns the non-terminated contracts where the
// profile is client or contractor.
func (r *LedgerRepository) ListContractsForParty(ctx context.Context, partyID uuid.UUID) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, client_id, contractor_id, terms, status, created_at
		FROM contracts
		WHERE status <> 'terminated'
			AND (client_id = ? OR contractor_id = ?)
		ORDER BY created_at ASC
	`, partyID, partyID).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func getProfile(db *gorm.DB, id uuid.UUID, lock string) (*model.Profile, error) {
	var profile model.Profile
	err := db.Raw(`
		SELECT id, first_name, last_name, profession, type, balance, created_at
		FROM profiles
		WHERE id = ?
		LIMIT 1
	`+lock, id).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &profile, nil
}

func unpaidJobsForParty(db *gorm.DB, partyID uuid.UUID) ([]model.Job, error) {
	var jobs []model.Job
	err := db.Raw(`
		SELECT
			j.id,
			j.contract_id,
			j.description,
			j.price,
			j.paid,
			j.payment_date,
			j.created_at
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE NOT j.paid
			AND c.status = 'in_progress'
			AND (c.client_id = ? OR c.contractor_id = ?)
		ORDER BY j.created_at ASC
	`, partyID, partyID).Scan(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
