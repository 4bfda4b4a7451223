package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"sensiboost/models"
)

const premiumSheet = "Premium"

// PremiumXLSX renders premium accounts as a single-sheet workbook.
func PremiumXLSX(accounts []models.PremiumAccount) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", premiumSheet); err != nil {
		return nil, err
	}

	headers := []string{"Email", "Active", "Source", "Receipt", "Created At (UTC)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(premiumSheet, cell, h)
	}

	for i, acc := range accounts {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(premiumSheet, cell, v)
		}
		receipt := ""
		if acc.ReceiptFilename != nil {
			receipt = *acc.ReceiptFilename
		}
		write(1, acc.Email)
		write(2, acc.Active)
		write(3, acc.Source)
		write(4, receipt)
		write(5, acc.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}

	_ = f.SetColWidth(premiumSheet, "A", "A", 32)
	_ = f.SetColWidth(premiumSheet, "B", "C", 14)
	_ = f.SetColWidth(premiumSheet, "D", "D", 48)
	_ = f.SetColWidth(premiumSheet, "E", "E", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
