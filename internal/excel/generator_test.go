package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/gigpay/internal/model"
)

func sampleReport() model.EarningsReport {
	return model.EarningsReport{
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		TotalPaid:   decimal.RequireFromString("500.00"),
		Professions: []model.ProfessionEarnings{
			{Profession: "programmer", TotalEarnings: decimal.RequireFromString("300")},
			{Profession: "welder", TotalEarnings: decimal.RequireFromString("200")},
		},
		TopClients: []model.ClientSpending{
			{ID: uuid.New(), FirstName: "Big", LastName: "Spender", Paid: decimal.RequireFromString("400")},
		},
	}
}

func TestGenerate_ProducesReadableWorkbook(t *testing.T) {
	content, err := NewGenerator().Generate(sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, content)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	assert.ElementsMatch(t, []string{"Professions", "Top clients"}, file.GetSheetList())

	value, err := file.GetCellValue("Professions", "A7")
	require.NoError(t, err)
	assert.Equal(t, "programmer", value)

	value, err = file.GetCellValue("Professions", "B4")
	require.NoError(t, err)
	assert.Equal(t, "500.00", value)

	value, err = file.GetCellValue("Top clients", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Big Spender", value)
}

func TestGenerate_EmptyReportStillRendersHeaders(t *testing.T) {
	report := model.EarningsReport{
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		TotalPaid:   decimal.Zero,
	}

	content, err := NewGenerator().Generate(report)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	value, err := file.GetCellValue("Professions", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Profession", value)
}
