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

type ExcelGenerator interface {
	Generate(report model.EarningsReport) ([]byte, error)
}

type PDFGenerator interface {
	Generate(report model.EarningsReport) ([]byte, error)
}

// AdminService serves the reporting surface. Every call re-checks the
// caller's profile type against the ledger before touching report data.
type AdminService struct {
	ledger           *repository.LedgerRepository
	reports          *repository.ReportRepository
	excel            ExcelGenerator
	pdf              PDFGenerator
	bestClientsLimit int
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func NewAdminService(
	ledger *repository.LedgerRepository,
	reports *repository.ReportRepository,
	excel ExcelGenerator,
	pdf PDFGenerator,
	cfg *config.Config,
) *AdminService {
	return &AdminService{
		ledger:           ledger,
		reports:          reports,
		excel:            excel,
		pdf:              pdf,
		bestClientsLimit: cfg.Billing.BestClientsLimit,
	}
}

// ProfileByID returns any profile, admin callers only.
func (s *AdminService) ProfileByID(ctx context.Context, actor model.Profile, id uuid.UUID) (*model.Profile, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	profile, err := s.ledger.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// BestProfession returns the profession with the highest summed price of
// jobs paid inside the window.
func (s *AdminService) BestProfession(ctx context.Context, actor model.Profile, from, to time.Time) (*model.ProfessionEarnings, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}

	rows, err := s.reports.ProfessionEarnings(ctx, from, to, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// BestClients returns the top paying clients inside the window. A
// non-positive limit falls back to the configured default.
func (s *AdminService) BestClients(ctx context.Context, actor model.Profile, from, to time.Time, limit int) ([]model.ClientSpending, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.bestClientsLimit
	}

	rows, err := s.reports.TopClients(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

// ExportEarningsXLSX renders the full earnings report for the window as
// an xlsx workbook.
func (s *AdminService) ExportEarningsXLSX(ctx context.Context, actor model.Profile, from, to time.Time) (*ExportResult, error) {
	report, err := s.buildEarningsReport(ctx, actor, from, to)
	if err != nil {
		return nil, err
	}

	content, err := s.excel.Generate(*report)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: exportFileName(*report, "xlsx"),
		Content:  content,
	}, nil
}

// ExportEarningsPDF renders the same report as a pdf statement.
func (s *AdminService) ExportEarningsPDF(ctx context.Context, actor model.Profile, from, to time.Time) (*ExportResult, error) {
	report, err := s.buildEarningsReport(ctx, actor, from, to)
	if err != nil {
		return nil, err
	}

	content, err := s.pdf.Generate(*report)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: exportFileName(*report, "pdf"),
		Content:  content,
	}, nil
}

func (s *AdminService) buildEarningsReport(ctx context.Context, actor model.Profile, from, to time.Time) (*model.EarningsReport, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}

	professions, err := s.reports.ProfessionEarnings(ctx, from, to, 0)
	if err != nil {
		return nil, err
	}
	clients, err := s.reports.TopClients(ctx, from, to, s.bestClientsLimit)
	if err != nil {
		return nil, err
	}

	totalPaid := decimal.Zero
	for _, row := range professions {
		totalPaid = totalPaid.Add(row.TotalEarnings)
	}

	return &model.EarningsReport{
		PeriodStart: from,
		PeriodEnd:   to,
		TotalPaid:   totalPaid,
		Professions: professions,
		TopClients:  clients,
	}, nil
}

// requireAdmin re-reads the caller's profile so a stale middleware copy
// cannot keep admin rights the ledger no longer grants.
func (s *AdminService) requireAdmin(ctx context.Context, actor model.Profile) error {
	profile, err := s.ledger.GetProfile(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPermissionDenied
		}
		return err
	}
	if !profile.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

func validateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}
	if from.After(to) {
		return fmt.Errorf("%w: start must be before or equal to end", ErrInvalidInput)
	}
	return nil
}

func exportFileName(report model.EarningsReport, ext string) string {
	return fmt.Sprintf("earnings-%s-%s.%s",
		report.PeriodStart.Format("20060102"),
		report.PeriodEnd.Format("20060102"),
		ext,
	)
}
