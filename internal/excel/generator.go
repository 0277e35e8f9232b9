package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/gigpay/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the earnings report as a two-sheet workbook: one
// sheet per grouping of the aggregation.
func (g *Generator) Generate(report model.EarningsReport) ([]byte, error) {
	file := excelize.NewFile()

	professionsSheet := "Professions"
	file.SetSheetName("Sheet1", professionsSheet)
	if err := g.writeProfessions(file, professionsSheet, report); err != nil {
		return nil, err
	}

	clientsSheet := "Top clients"
	if _, err := file.NewSheet(clientsSheet); err != nil {
		return nil, err
	}
	if err := g.writeClients(file, clientsSheet, report); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeProfessions(file *excelize.File, sheet string, report model.EarningsReport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Report")
	set("B1", "Earnings by profession")
	set("A2", "Period start")
	set("B2", formatDate(report.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(report.PeriodEnd))
	set("A4", "Total paid")
	set("B4", report.TotalPaid.StringFixed(2))

	tableRow := 6
	set(fmt.Sprintf("A%d", tableRow), "Profession")
	set(fmt.Sprintf("B%d", tableRow), "Total earnings")

	for i, row := range report.Professions {
		line := tableRow + 1 + i
		set(fmt.Sprintf("A%d", line), row.Profession)
		set(fmt.Sprintf("B%d", line), row.TotalEarnings.StringFixed(2))
	}

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "B", 18)
	return nil
}

func (g *Generator) writeClients(file *excelize.File, sheet string, report model.EarningsReport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Report")
	set("B1", "Top paying clients")
	set("A2", "Period start")
	set("B2", formatDate(report.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(report.PeriodEnd))

	tableRow := 5
	set(fmt.Sprintf("A%d", tableRow), "Client")
	set(fmt.Sprintf("B%d", tableRow), "Client ID")
	set(fmt.Sprintf("C%d", tableRow), "Paid")

	for i, row := range report.TopClients {
		line := tableRow + 1 + i
		set(fmt.Sprintf("A%d", line), row.FullName())
		set(fmt.Sprintf("B%d", line), row.ID.String())
		set(fmt.Sprintf("C%d", line), row.Paid.StringFixed(2))
	}

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "C", 14)
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
