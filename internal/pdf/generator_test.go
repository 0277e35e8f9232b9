package pdf

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/gigpay/internal/model"
)

func TestGenerate_ProducesPDF(t *testing.T) {
	report := model.EarningsReport{
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		TotalPaid:   decimal.RequireFromString("500"),
		Professions: []model.ProfessionEarnings{
			{Profession: "programmer", TotalEarnings: decimal.RequireFromString("300")},
		},
		TopClients: []model.ClientSpending{
			{ID: uuid.New(), FirstName: "Big", LastName: "Spender", Paid: decimal.RequireFromString("400")},
		},
	}

	content, err := NewGenerator().Generate(report)
	require.NoError(t, err)
	require.NotEmpty(t, content)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestGenerate_EmptyReport(t *testing.T) {
	content, err := NewGenerator().Generate(model.EarningsReport{TotalPaid: decimal.Zero})
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}
