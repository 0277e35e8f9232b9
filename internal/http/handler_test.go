package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/http/middleware"
	"github.com/nurpe/gigpay/internal/model"
	"github.com/nurpe/gigpay/internal/service"
)

type stubResolver struct {
	profiles map[uuid.UUID]model.Profile
}

func (r *stubResolver) GetProfile(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &profile, nil
}

type stubBilling struct {
	depositBalance decimal.Decimal
	depositErr     error
	payResult      *service.PaymentResult
	payErr         error
	unpaidJobs     []model.Job
	unpaidErr      error
}

func (s *stubBilling) Deposit(context.Context, model.Profile, uuid.UUID, decimal.Decimal) (decimal.Decimal, error) {
	return s.depositBalance, s.depositErr
}

func (s *stubBilling) Pay(context.Context, model.Profile, uuid.UUID) (*service.PaymentResult, error) {
	return s.payResult, s.payErr
}

func (s *stubBilling) UnpaidJobs(context.Context, model.Profile) ([]model.Job, error) {
	return s.unpaidJobs, s.unpaidErr
}

type stubContracts struct {
	contracts []model.Contract
	contract  *model.Contract
	err       error
}

func (s *stubContracts) Contracts(context.Context, model.Profile) ([]model.Contract, error) {
	return s.contracts, s.err
}

func (s *stubContracts) ContractByID(context.Context, model.Profile, uuid.UUID) (*model.Contract, error) {
	return s.contract, s.err
}

type stubAdmin struct {
	profile    *model.Profile
	profession *model.ProfessionEarnings
	clients    []model.ClientSpending
	export     *service.ExportResult
	err        error
	gotLimit   int
}

func (s *stubAdmin) ProfileByID(context.Context, model.Profile, uuid.UUID) (*model.Profile, error) {
	return s.profile, s.err
}

func (s *stubAdmin) BestProfession(context.Context, model.Profile, time.Time, time.Time) (*model.ProfessionEarnings, error) {
	return s.profession, s.err
}

func (s *stubAdmin) BestClients(_ context.Context, _ model.Profile, _ time.Time, _ time.Time, limit int) ([]model.ClientSpending, error) {
	s.gotLimit = limit
	return s.clients, s.err
}

func (s *stubAdmin) ExportEarningsXLSX(context.Context, model.Profile, time.Time, time.Time) (*service.ExportResult, error) {
	return s.export, s.err
}

func (s *stubAdmin) ExportEarningsPDF(context.Context, model.Profile, time.Time, time.Time) (*service.ExportResult, error) {
	return s.export, s.err
}

type testEnv struct {
	router  *gin.Engine
	billing *stubBilling
	admin   *stubAdmin
	client  model.Profile
}

func newTestEnv(t *testing.T, contracts *stubContracts) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := model.Profile{
		ID:      uuid.New(),
		Type:    model.ProfileTypeClient,
		Balance: decimal.RequireFromString("100"),
	}
	resolver := &stubResolver{profiles: map[uuid.UUID]model.Profile{client.ID: client}}

	billing := &stubBilling{}
	admin := &stubAdmin{}
	if contracts == nil {
		contracts = &stubContracts{}
	}

	handler := NewHandler(billing, contracts, admin, zerolog.Nop())
	router := NewRouter(handler, middleware.Profile(resolver), "test")
	return &testEnv{router: router, billing: billing, admin: admin, client: client}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("profile_id", e.client.ID.String())
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func TestMissingProfileHeaderIsBadRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/unpaid", nil)
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUnknownProfileIsUnauthorized(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/unpaid", nil)
	req.Header.Set("profile_id", uuid.NewString())
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestDeposit_ReturnsNewBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	env.billing.depositBalance = decimal.RequireFromString("150")

	recorder := env.do(http.MethodPost, "/balances/deposit/"+env.client.ID.String(), `{"amount": 50}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "Deposit successful", response["message"])
	assert.Equal(t, "150", response["newBalance"])
}

func TestDeposit_MissingAmountIsBadRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	recorder := env.do(http.MethodPost, "/balances/deposit/"+env.client.ID.String(), `{}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDeposit_LimitErrorIsBadRequestWithCap(t *testing.T) {
	env := newTestEnv(t, nil)
	env.billing.depositErr = &service.DepositLimitError{
		Rate: decimal.RequireFromString("0.25"),
		Max:  decimal.RequireFromString("50"),
	}

	recorder := env.do(http.MethodPost, "/balances/deposit/"+env.client.ID.String(), `{"amount": 51}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "max allowed: 50.00")
}

func TestDeposit_ForbiddenMapsTo403(t *testing.T) {
	env := newTestEnv(t, nil)
	env.billing.depositErr = service.ErrPermissionDenied

	recorder := env.do(http.MethodPost, "/balances/deposit/"+uuid.NewString(), `{"amount": 10}`)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestPay_ReturnsJobAndBalances(t *testing.T) {
	env := newTestEnv(t, nil)
	paidAt := time.Now().UTC()
	env.billing.payResult = &service.PaymentResult{
		Job: model.Job{
			ID:          uuid.New(),
			Price:       decimal.RequireFromString("200"),
			Paid:        true,
			PaymentDate: &paidAt,
		},
		ClientBalance:     decimal.RequireFromString("300"),
		ContractorBalance: decimal.RequireFromString("500"),
	}

	recorder := env.do(http.MethodPost, "/jobs/"+uuid.NewString()+"/pay", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "Payment successful", response["message"])
	assert.Equal(t, "300", response["updatedClientBalance"])
	assert.Equal(t, "500", response["updatedContractorBalance"])
	assert.NotNil(t, response["job"])
}

func TestPay_InsufficientFundsIsBadRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	env.billing.payErr = service.ErrInsufficientFunds

	recorder := env.do(http.MethodPost, "/jobs/"+uuid.NewString()+"/pay", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPay_UnknownJobIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	env.billing.payErr = service.ErrNotFound

	recorder := env.do(http.MethodPost, "/jobs/"+uuid.NewString()+"/pay", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUnpaidJobs_EmptyIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	recorder := env.do(http.MethodGet, "/jobs/unpaid", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUnpaidJobs_ReturnsList(t *testing.T) {
	env := newTestEnv(t, nil)
	env.billing.unpaidJobs = []model.Job{
		{ID: uuid.New(), Price: decimal.RequireFromString("80")},
	}

	recorder := env.do(http.MethodGet, "/jobs/unpaid", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	var jobs []model.Job
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
}

func TestContracts_EmptyIsNotFound(t *testing.T) {
	env := newTestEnv(t, &stubContracts{})

	recorder := env.do(http.MethodGet, "/contracts", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestBestClients_ParsesLimitAndShapesResponse(t *testing.T) {
	env := newTestEnv(t, nil)
	clientID := uuid.New()
	env.admin.clients = []model.ClientSpending{
		{ID: clientID, FirstName: "Big", LastName: "Spender", Paid: decimal.RequireFromString("900")},
	}

	recorder := env.do(http.MethodGet, "/admin/best-clients?start=2024-01-01&end=2024-12-31&limit=5", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 5, env.admin.gotLimit)

	var response []map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "Big Spender", response[0]["fullName"])
	assert.Equal(t, "900", response[0]["paid"])
}

func TestBestClients_InvalidLimitIsBadRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	recorder := env.do(http.MethodGet, "/admin/best-clients?start=2024-01-01&end=2024-12-31&limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = env.do(http.MethodGet, "/admin/best-clients?start=2024-01-01&end=2024-12-31&limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestBestProfession_MissingDatesIsBadRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	recorder := env.do(http.MethodGet, "/admin/best-profession?start=2024-01-01", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = env.do(http.MethodGet, "/admin/best-profession?start=not-a-date&end=2024-12-31", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestExportEarnings_SetsAttachmentHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	env.admin.export = &service.ExportResult{
		FileName: "earnings-20240101-20241231.xlsx",
		Content:  []byte("workbook"),
	}

	recorder := env.do(http.MethodGet, "/admin/reports/earnings/export?start=2024-01-01&end=2024-12-31", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "earnings-20240101-20241231.xlsx")
	assert.Equal(t, "workbook", recorder.Body.String())
}
