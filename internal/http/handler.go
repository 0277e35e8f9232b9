package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/gigpay/internal/http/middleware"
	"github.com/nurpe/gigpay/internal/model"
	"github.com/nurpe/gigpay/internal/service"
)

type BillingService interface {
	Deposit(ctx context.Context, actor model.Profile, targetID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Pay(ctx context.Context, actor model.Profile, jobID uuid.UUID) (*service.PaymentResult, error)
	UnpaidJobs(ctx context.Context, actor model.Profile) ([]model.Job, error)
}

type ContractService interface {
	Contracts(ctx context.Context, actor model.Profile) ([]model.Contract, error)
	ContractByID(ctx context.Context, actor model.Profile, id uuid.UUID) (*model.Contract, error)
}

type AdminService interface {
	ProfileByID(ctx context.Context, actor model.Profile, id uuid.UUID) (*model.Profile, error)
	BestProfession(ctx context.Context, actor model.Profile, from, to time.Time) (*model.ProfessionEarnings, error)
	BestClients(ctx context.Context, actor model.Profile, from, to time.Time, limit int) ([]model.ClientSpending, error)
	ExportEarningsXLSX(ctx context.Context, actor model.Profile, from, to time.Time) (*service.ExportResult, error)
	ExportEarningsPDF(ctx context.Context, actor model.Profile, from, to time.Time) (*service.ExportResult, error)
}

type Handler struct {
	billing   BillingService
	contracts ContractService
	admin     AdminService
	log       zerolog.Logger
}

func NewHandler(billing BillingService, contracts ContractService, admin AdminService, log zerolog.Logger) *Handler {
	return &Handler{
		billing:   billing,
		contracts: contracts,
		admin:     admin,
		log:       log,
	}
}

func (h *Handler) Register(router *gin.Engine, profileMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(profileMiddleware)

	protected.GET("/contracts", h.getContracts)
	protected.GET("/contracts/:id", h.getContractByID)

	protected.GET("/jobs/unpaid", h.getUnpaidJobs)
	protected.POST("/jobs/:job_id/pay", h.payForJob)

	protected.POST("/balances/deposit/:userId", h.depositToBalance)

	protected.GET("/admin/profiles/:id", h.getProfileByID)
	protected.GET("/admin/best-profession", h.getBestProfession)
	protected.GET("/admin/best-clients", h.getBestClients)
	protected.GET("/admin/reports/earnings/export", h.exportEarnings)
	protected.GET("/admin/reports/earnings/export/pdf", h.exportEarningsPDF)
}

type depositRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

func (h *Handler) depositToBalance(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required and must be numeric"})
		return
	}

	newBalance, err := h.billing.Deposit(c.Request.Context(), actor, targetID, *req.Amount)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Deposit successful",
		"newBalance": newBalance,
	})
}

func (h *Handler) payForJob(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	result, err := h.billing.Pay(c.Request.Context(), actor, jobID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":                  "Payment successful",
		"job":                      result.Job,
		"updatedClientBalance":     result.ClientBalance,
		"updatedContractorBalance": result.ContractorBalance,
	})
}

func (h *Handler) getUnpaidJobs(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	jobs, err := h.billing.UnpaidJobs(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if len(jobs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "no unpaid jobs found for this user"})
		return
	}

	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) getContracts(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	contracts, err := h.contracts.Contracts(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if len(contracts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "no contracts found for this user"})
		return
	}

	c.JSON(http.StatusOK, contracts)
}

func (h *Handler) getContractByID(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.contracts.ContractByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

func (h *Handler) getProfileByID(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	profile, err := h.admin.ProfileByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) getBestProfession(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	from, to, ok := h.parseWindow(c)
	if !ok {
		return
	}

	best, err := h.admin.BestProfession(c.Request.Context(), actor, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, best)
}

func (h *Handler) getBestClients(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	from, to, ok := h.parseWindow(c)
	if !ok {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	clients, err := h.admin.BestClients(c.Request.Context(), actor, from, to, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response := make([]gin.H, 0, len(clients))
	for _, client := range clients {
		response = append(response, gin.H{
			"id":       client.ID,
			"fullName": client.FullName(),
			"paid":     client.Paid,
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) exportEarnings(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	from, to, ok := h.parseWindow(c)
	if !ok {
		return
	}

	result, err := h.admin.ExportEarningsXLSX(c.Request.Context(), actor, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}

func (h *Handler) exportEarningsPDF(c *gin.Context) {
	actor, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	from, to, ok := h.parseWindow(c)
	if !ok {
		return
	}

	result, err := h.admin.ExportEarningsPDF(c.Request.Context(), actor, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := parseDate(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing start date"})
		return time.Time{}, time.Time{}, false
	}

	to, err := parseDate(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing end date"})
		return time.Time{}, time.Time{}, false
	}

	return from, to, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var limitErr *service.DepositLimitError

	switch {
	case errors.As(err, &limitErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": limitErr.Error()})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
