package excel

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/fleetops-contracts/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the contract register workbook: one row per contract with
// the monetary breakdown, plus a totals row.
func (g *Generator) Generate(contracts []model.Contract) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Register"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Particular", "Vehicle Type", "Plate Number", "Company Assigned",
		"Location", "Driver", "Net Amount", "12% VAT", "Contract Amount",
		"Less EWT", "Final Amount", "Start Date",
	}
	for i, header := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		set(fmt.Sprintf("%s1", col), header)
	}

	totals := struct {
		net, vat, contract, ewt, final decimal.Decimal
	}{}

	for i, contract := range contracts {
		row := i + 2
		set(fmt.Sprintf("A%d", row), contract.Particular)
		set(fmt.Sprintf("B%d", row), contract.VehicleType)
		set(fmt.Sprintf("C%d", row), contract.PlateNumber)
		set(fmt.Sprintf("D%d", row), contract.CompanyAssigned)
		set(fmt.Sprintf("E%d", row), contract.LocationArea)
		set(fmt.Sprintf("F%d", row), contract.DriversName)
		set(fmt.Sprintf("G%d", row), formatAmount(contract.NetAmount))
		set(fmt.Sprintf("H%d", row), formatAmount(contract.VATAmount))
		set(fmt.Sprintf("I%d", row), formatAmount(contract.ContractAmount))
		set(fmt.Sprintf("J%d", row), formatAmount(contract.WithholdingAmount))
		set(fmt.Sprintf("K%d", row), formatAmount(contract.FinalAmount))
		if contract.StartDate != nil {
			set(fmt.Sprintf("L%d", row), contract.StartDate.Format("2006-01-02"))
		}

		totals.net = totals.net.Add(contract.NetAmount)
		totals.vat = totals.vat.Add(contract.VATAmount)
		totals.contract = totals.contract.Add(contract.ContractAmount)
		totals.ewt = totals.ewt.Add(contract.WithholdingAmount)
		totals.final = totals.final.Add(contract.FinalAmount)
	}

	totalRow := len(contracts) + 2
	set(fmt.Sprintf("F%d", totalRow), "TOTAL")
	set(fmt.Sprintf("G%d", totalRow), formatAmount(totals.net))
	set(fmt.Sprintf("H%d", totalRow), formatAmount(totals.vat))
	set(fmt.Sprintf("I%d", totalRow), formatAmount(totals.contract))
	set(fmt.Sprintf("J%d", totalRow), formatAmount(totals.ewt))
	set(fmt.Sprintf("K%d", totalRow), formatAmount(totals.final))

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatAmount(amount decimal.Decimal) float64 {
	value, _ := amount.Round(2).Float64()
	return value
}
