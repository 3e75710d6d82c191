package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetops-contracts/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `
	id,
	particular,
	vehicle_type,
	plate_number,
	owners_name,
	company_assigned,
	location_area,
	drivers_name,
	net_amount,
	vat_amount,
	contract_amount,
	withholding_amount,
	final_amount,
	suppliers_amount,
	drivers_salary,
	revenue,
	remarks,
	end_remarks,
	start_date,
	created_at,
	updated_at
`

func (r *ContractRepository) List(ctx context.Context, search string, limit, offset int) ([]model.Contract, int64, error) {
	baseQuery := `FROM contracts`
	args := []interface{}{}
	if search != "" {
		baseQuery += ` WHERE particular ILIKE ? OR plate_number ILIKE ? OR company_assigned ILIKE ? OR drivers_name ILIKE ?`
		pattern := "%" + strings.TrimSpace(search) + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := r.db.WithContext(ctx).Raw(`SELECT COUNT(*) `+baseQuery, args...).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + contractColumns + baseQuery + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	listArgs := append(args, limit, offset)

	var contracts []model.Contract
	if err := r.db.WithContext(ctx).Raw(listQuery, listArgs...).Scan(&contracts).Error; err != nil {
		return nil, 0, err
	}

	if err := r.attachDocuments(ctx, contracts); err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	documents, err := r.ListDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	contract.Documents = documents
	return &contract, nil
}

func (r *ContractRepository) Create(ctx context.Context, contract model.Contract) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO contracts (
			particular,
			vehicle_type,
			plate_number,
			owners_name,
			company_assigned,
			location_area,
			drivers_name,
			net_amount,
			vat_amount,
			contract_amount,
			withholding_amount,
			final_amount,
			suppliers_amount,
			drivers_salary,
			revenue,
			remarks,
			end_remarks,
			start_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+contractColumns,
		contract.Particular,
		contract.VehicleType,
		contract.PlateNumber,
		contract.OwnersName,
		contract.CompanyAssigned,
		contract.LocationArea,
		contract.DriversName,
		contract.NetAmount,
		contract.VATAmount,
		contract.ContractAmount,
		contract.WithholdingAmount,
		contract.FinalAmount,
		contract.SuppliersAmount,
		contract.DriversSalary,
		contract.Revenue,
		contract.Remarks,
		contract.EndRemarks,
		contract.StartDate,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	saved.Documents = []model.Document{}
	return &saved, nil
}

func (r *ContractRepository) Update(ctx context.Context, contract model.Contract) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Raw(`
		UPDATE contracts SET
			particular = ?,
			vehicle_type = ?,
			plate_number = ?,
			owners_name = ?,
			company_assigned = ?,
			location_area = ?,
			drivers_name = ?,
			net_amount = ?,
			vat_amount = ?,
			contract_amount = ?,
			withholding_amount = ?,
			final_amount = ?,
			suppliers_amount = ?,
			drivers_salary = ?,
			revenue = ?,
			remarks = ?,
			end_remarks = ?,
			start_date = ?,
			updated_at = NOW()
		WHERE id = ?
		RETURNING `+contractColumns,
		contract.Particular,
		contract.VehicleType,
		contract.PlateNumber,
		contract.OwnersName,
		contract.CompanyAssigned,
		contract.LocationArea,
		contract.DriversName,
		contract.NetAmount,
		contract.VATAmount,
		contract.ContractAmount,
		contract.WithholdingAmount,
		contract.FinalAmount,
		contract.SuppliersAmount,
		contract.DriversSalary,
		contract.Revenue,
		contract.Remarks,
		contract.EndRemarks,
		contract.StartDate,
		contract.ID,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &saved, nil
}

func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM contracts WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDocuments returns the contract's documents in positional order. The
// returned slice order is the positional addressing contract of the API:
// index n in the response is index n for deletion and download.
func (r *ContractRepository) ListDocuments(ctx context.Context, contractID uuid.UUID) ([]model.Document, error) {
	var documents []model.Document
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, contract_id, file_name, file_path, file_size, mime_type, position, uploaded_at
		FROM contract_documents
		WHERE contract_id = ?
		ORDER BY position ASC, id ASC
	`, contractID).Scan(&documents).Error
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *ContractRepository) InsertDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	var saved model.Document
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO contract_documents (contract_id, file_name, file_path, file_size, mime_type, position)
		VALUES (?, ?, ?, ?, ?, (
			SELECT COALESCE(MAX(position), -1) + 1 FROM contract_documents WHERE contract_id = ?
		))
		RETURNING id, contract_id, file_name, file_path, file_size, mime_type, position, uploaded_at
	`,
		doc.ContractID,
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.MimeType,
		doc.ContractID,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ContractRepository) DeleteDocument(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM contract_documents WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContractRepository) attachDocuments(ctx context.Context, contracts []model.Contract) error {
	if len(contracts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(contracts))
	index := make(map[uuid.UUID]int, len(contracts))
	for i := range contracts {
		contracts[i].Documents = []model.Document{}
		ids = append(ids, contracts[i].ID)
		index[contracts[i].ID] = i
	}

	var documents []model.Document
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, contract_id, file_name, file_path, file_size, mime_type, position, uploaded_at
		FROM contract_documents
		WHERE contract_id = ANY(?)
		ORDER BY contract_id, position ASC, id ASC
	`, ids).Scan(&documents).Error
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	for _, doc := range documents {
		if pos, ok := index[doc.ContractID]; ok {
			contracts[pos].Documents = append(contracts[pos].Documents, doc)
		}
	}
	return nil
}
