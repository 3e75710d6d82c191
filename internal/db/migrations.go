package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_clients_name ON clients (name);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		particular TEXT NOT NULL DEFAULT '',
		vehicle_type VARCHAR(128) NOT NULL DEFAULT '',
		plate_number VARCHAR(32) NOT NULL DEFAULT '',
		owners_name VARCHAR(255) NOT NULL DEFAULT '',
		company_assigned VARCHAR(255) NOT NULL DEFAULT '',
		location_area VARCHAR(255) NOT NULL DEFAULT '',
		drivers_name VARCHAR(255) NOT NULL DEFAULT '',
		net_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		vat_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		contract_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		withholding_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		final_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		suppliers_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		drivers_salary NUMERIC(18,2) NOT NULL DEFAULT 0,
		revenue NUMERIC(18,2) NOT NULL DEFAULT 0,
		remarks TEXT NOT NULL DEFAULT '',
		end_remarks TEXT NOT NULL DEFAULT '',
		start_date DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_plate_number ON contracts (plate_number);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_company_assigned ON contracts (company_assigned);`,
	`CREATE TABLE IF NOT EXISTS contract_documents (
		id BIGSERIAL PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		file_name VARCHAR(255) NOT NULL,
		file_path VARCHAR(512) NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		mime_type VARCHAR(128) NOT NULL DEFAULT 'application/octet-stream',
		position INT NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_documents_contract_id ON contract_documents (contract_id, position, id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
