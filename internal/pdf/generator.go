package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/nurpe/fleetops-contracts/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() (*Generator, error) {
	return &Generator{fontName: "Arial"}, nil
}

// Generate renders a one-page contract summary.
func (g *Generator) Generate(contract model.Contract) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Service Contract Summary", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Contract %s", contract.ID), "", 1, "C", false, 0, "")
	if contract.StartDate != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Start date: %s", contract.StartDate.Format("2006-01-02")), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Vehicle and Assignment", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	addField(pdf, g.fontName, "Particular", contract.Particular)
	addField(pdf, g.fontName, "Vehicle type", contract.VehicleType)
	addField(pdf, g.fontName, "Plate number", contract.PlateNumber)
	addField(pdf, g.fontName, "Owner", contract.OwnersName)
	addField(pdf, g.fontName, "Company assigned", contract.CompanyAssigned)
	addField(pdf, g.fontName, "Location", contract.LocationArea)
	addField(pdf, g.fontName, "Driver", contract.DriversName)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Financial Breakdown", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)

	headers := []string{"Net Amount", "12% VAT", "Contract Amount", "Less EWT", "Final Amount"}
	colWidths := []float64{36, 36, 36, 36, 36}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)

	row := []string{
		formatAmount(contract.NetAmount),
		formatAmount(contract.VATAmount),
		formatAmount(contract.ContractAmount),
		formatAmount(contract.WithholdingAmount),
		formatAmount(contract.FinalAmount),
	}
	drawTableRow(pdf, g.fontName, row, colWidths, false)
	pdf.Ln(4)

	if contract.Remarks != "" {
		pdf.SetFont(g.fontName, "B", 12)
		pdf.CellFormat(0, 8, "Remarks", "", 1, "L", false, 0, "")
		pdf.SetFont(g.fontName, "", 11)
		pdf.MultiCell(0, 6, contract.Remarks, "", "L", false)
		pdf.Ln(2)
	}
	if contract.EndRemarks != "" {
		pdf.SetFont(g.fontName, "B", 12)
		pdf.CellFormat(0, 8, "End Remarks", "", 1, "L", false, 0, "")
		pdf.SetFont(g.fontName, "", 11)
		pdf.MultiCell(0, 6, contract.EndRemarks, "", "L", false)
		pdf.Ln(2)
	}

	if len(contract.Documents) > 0 {
		pdf.SetFont(g.fontName, "B", 12)
		pdf.CellFormat(0, 8, "Attached Documents", "", 1, "L", false, 0, "")
		pdf.SetFont(g.fontName, "", 10)
		for i, doc := range contract.Documents {
			pdf.CellFormat(0, 6, fmt.Sprintf("%d. %s (%d bytes)", i+1, doc.FileName, doc.FileSize), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addField(pdf *gofpdf.Fpdf, font, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont(font, "B", 11)
	pdf.CellFormat(45, 6, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func drawTableRow(pdf *gofpdf.Fpdf, font string, cells []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(font, style, 10)
	for i, cell := range cells {
		pdf.CellFormat(widths[i], 7, cell, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
}

func formatAmount(amount decimal.Decimal) string {
	return amount.Round(2).StringFixed(2)
}
