package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/model"
)

// ReportRepository serves the admin read-only aggregations over paid
// jobs. It never writes and takes no locks; results are snapshot reads.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ProfessionEarnings groups paid-job totals by contractor profession for
// jobs paid inside [from, to], best earning first. Ties keep the
// database's stable ordering by profession name.
func (r *ReportRepository) ProfessionEarnings(ctx context.Context, from, to time.Time, limit int) ([]model.ProfessionEarnings, error) {
	var rows []model.ProfessionEarnings
	query := `
		SELECT
			p.profession,
			SUM(j.price) AS total_earnings
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles p ON p.id = c.contractor_id
		WHERE j.paid
			AND j.payment_date BETWEEN ? AND ?
			AND p.type = 'contractor'
		GROUP BY p.profession
		ORDER BY SUM(j.price) DESC, p.profession ASC
	`
	args := []interface{}{from, to}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TopClients groups payment totals by client for jobs paid inside
// [from, to], biggest spender first.
func (r *ReportRepository) TopClients(ctx context.Context, from, to time.Time, limit int) ([]model.ClientSpending, error) {
	var rows []model.ClientSpending
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			p.id,
			p.first_name,
			p.last_name,
			SUM(j.price) AS paid
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles p ON p.id = c.client_id
		WHERE j.paid
			AND j.payment_date BETWEEN ? AND ?
			AND p.type = 'client'
		GROUP BY p.id, p.first_name, p.last_name
		ORDER BY SUM(j.price) DESC, p.id ASC
		LIMIT ?
	`, from, to, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
