package model

import "github.com/google/uuid"

type TaxBracket string

const (
	TaxBracketStandard  TaxBracket = "STANDARD"
	TaxBracketPreferred TaxBracket = "PREFERRED"
)

// Client is a company a contract can be assigned to. TaxBracket is resolved
// once when the client is loaded and decides which withholding rate applies.
type Client struct {
	ID         uuid.UUID
	Name       string
	IsActive   bool
	IsDefault  bool
	TaxBracket TaxBracket `gorm:"-"`
}
