package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract is one service contract for a fleet vehicle. The four derived
// monetary fields (VATAmount, ContractAmount, WithholdingAmount, FinalAmount)
// are projections of NetAmount and CompanyAssigned; they are recomputed on
// every write and on every read, never accepted from a caller.
type Contract struct {
	ID                uuid.UUID
	Particular        string
	VehicleType       string
	PlateNumber       string
	OwnersName        string
	CompanyAssigned   string
	LocationArea      string
	DriversName       string
	NetAmount         decimal.Decimal
	VATAmount         decimal.Decimal
	ContractAmount    decimal.Decimal
	WithholdingAmount decimal.Decimal
	FinalAmount       decimal.Decimal
	SuppliersAmount   decimal.Decimal
	DriversSalary     decimal.Decimal
	Revenue           decimal.Decimal
	Remarks           string
	EndRemarks        string
	StartDate         *time.Time
	Documents         []Document `gorm:"-"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Document is a file persisted for a contract. Documents are addressed by
// their position in the contract's list, not by ID; callers deleting several
// must process indexes in descending order so the remaining ones stay valid.
type Document struct {
	ID         int64
	ContractID uuid.UUID
	FileName   string
	FilePath   string
	FileSize   int64
	MimeType   string
	Position   int
	UploadedAt time.Time
}
