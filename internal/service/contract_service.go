package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/fleetops-contracts/internal/finance"
	"github.com/nurpe/fleetops-contracts/internal/model"
)

type ContractRepository interface {
	List(ctx context.Context, search string, limit, offset int) ([]model.Contract, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	Create(ctx context.Context, contract model.Contract) (*model.Contract, error)
	Update(ctx context.Context, contract model.Contract) (*model.Contract, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListDocuments(ctx context.Context, contractID uuid.UUID) ([]model.Document, error)
	InsertDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
}

type ClientRepository interface {
	ListActive(ctx context.Context) ([]model.Client, error)
}

type DocumentStore interface {
	Put(ctx context.Context, data []byte, originalName, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type ExcelGenerator interface {
	Generate(contracts []model.Contract) ([]byte, error)
}

type PDFGenerator interface {
	Generate(contract model.Contract) ([]byte, error)
}

type ContractService struct {
	repo    ContractRepository
	clients ClientRepository
	store   DocumentStore
	excel   ExcelGenerator
	pdf     PDFGenerator
	log     zerolog.Logger
}

func NewContractService(
	repo ContractRepository,
	clients ClientRepository,
	store DocumentStore,
	excel ExcelGenerator,
	pdf PDFGenerator,
	log zerolog.Logger,
) *ContractService {
	return &ContractService{
		repo:    repo,
		clients: clients,
		store:   store,
		excel:   excel,
		pdf:     pdf,
		log:     log,
	}
}

// SaveInput carries the writable contract fields. Derived monetary fields
// are absent on purpose: the service recomputes them from NetAmount and
// CompanyAssigned and never accepts caller-supplied values for them.
type SaveInput struct {
	Particular      string
	VehicleType     string
	PlateNumber     string
	OwnersName      string
	CompanyAssigned string
	LocationArea    string
	DriversName     string
	NetAmount       decimal.Decimal
	SuppliersAmount decimal.Decimal
	DriversSalary   decimal.Decimal
	Revenue         decimal.Decimal
	Remarks         string
	EndRemarks      string
	StartDate       *time.Time
	Uploads         []FileUpload
	Principal       model.Principal
}

type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type ListInput struct {
	Query   string
	Page    int
	PerPage int
}

type ListResult struct {
	Contracts []model.Contract
	Total     int64
	Page      int
	PerPage   int
}

type DownloadResult struct {
	FileName string
	MimeType string
	Content  []byte
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func (s *ContractService) List(ctx context.Context, input ListInput) (*ListResult, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	contracts, total, err := s.repo.List(ctx, input.Query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	for i := range contracts {
		recompute(&contracts[i])
	}

	return &ListResult{
		Contracts: contracts,
		Total:     total,
		Page:      page,
		PerPage:   perPage,
	}, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	recompute(contract)
	return contract, nil
}

func (s *ContractService) Create(ctx context.Context, input SaveInput) (*model.Contract, error) {
	if input.Principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	if err := validateSaveInput(input); err != nil {
		return nil, err
	}

	contract := contractFromInput(input)
	saved, err := s.repo.Create(ctx, contract)
	if err != nil {
		return nil, err
	}

	s.storeUploads(ctx, saved.ID, input.Uploads)
	return s.Get(ctx, saved.ID)
}

func (s *ContractService) Update(ctx context.Context, id uuid.UUID, input SaveInput) (*model.Contract, error) {
	if input.Principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	if err := validateSaveInput(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	contract := contractFromInput(input)
	contract.ID = existing.ID
	if _, err := s.repo.Update(ctx, contract); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.storeUploads(ctx, id, input.Uploads)
	return s.Get(ctx, id)
}

func (s *ContractService) Delete(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	if principal.IsDriver() {
		return ErrPermissionDenied
	}

	contract, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	for _, doc := range contract.Documents {
		if err := s.store.Delete(ctx, doc.FilePath); err != nil {
			s.log.Warn().Err(err).Str("key", doc.FilePath).Msg("orphaned object left in storage")
		}
	}
	return nil
}

// DeleteDocument removes the document at the given position in the
// contract's list. Addressing is positional: after a successful call every
// document past the index shifts down by one, so callers removing several
// documents must issue requests in descending index order.
func (s *ContractService) DeleteDocument(ctx context.Context, contractID uuid.UUID, index int, principal model.Principal) ([]model.Document, error) {
	if principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: document_index must be non-negative", ErrInvalidInput)
	}

	documents, err := s.repo.ListDocuments(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if index >= len(documents) {
		return nil, ErrNotFound
	}

	target := documents[index]
	if err := s.repo.DeleteDocument(ctx, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.store.Delete(ctx, target.FilePath); err != nil {
		s.log.Warn().Err(err).Str("key", target.FilePath).Msg("orphaned object left in storage")
	}

	return s.repo.ListDocuments(ctx, contractID)
}

func (s *ContractService) DownloadDocument(ctx context.Context, contractID uuid.UUID, index int) (*DownloadResult, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: document index must be non-negative", ErrInvalidInput)
	}

	documents, err := s.repo.ListDocuments(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if index >= len(documents) {
		return nil, ErrNotFound
	}

	doc := documents[index]
	content, err := s.store.Get(ctx, doc.FilePath)
	if err != nil {
		return nil, err
	}

	return &DownloadResult{
		FileName: doc.FileName,
		MimeType: doc.MimeType,
		Content:  content,
	}, nil
}

// ListClientNames returns active clients with their tax bracket resolved,
// so callers branch on the bracket instead of re-deriving it from name text.
func (s *ContractService) ListClientNames(ctx context.Context) ([]model.Client, error) {
	clients, err := s.clients.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		clients[i].TaxBracket = model.TaxBracketStandard
		if finance.IsPreferredClient(clients[i].Name) {
			clients[i].TaxBracket = model.TaxBracketPreferred
		}
	}
	return clients, nil
}

func (s *ContractService) ExportRegister(ctx context.Context, principal model.Principal) (*ExportResult, error) {
	if principal.IsDriver() {
		return nil, ErrPermissionDenied
	}

	contracts, _, err := s.repo.List(ctx, "", 10000, 0)
	if err != nil {
		return nil, err
	}
	for i := range contracts {
		recompute(&contracts[i])
	}

	content, err := s.excel.Generate(contracts)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("contracts-register-%s.xlsx", time.Now().Format("20060102"))
	return &ExportResult{FileName: fileName, Content: content}, nil
}

func (s *ContractService) ExportContractPDF(ctx context.Context, id uuid.UUID) (*ExportResult, error) {
	contract, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := s.pdf.Generate(*contract)
	if err != nil {
		return nil, err
	}

	name := sanitizeFileName(contract.PlateNumber)
	if name == "" {
		name = contract.ID.String()
	}
	return &ExportResult{
		FileName: fmt.Sprintf("contract-%s.pdf", name),
		Content:  content,
	}, nil
}

// storeUploads appends new documents after the record write. A failed upload
// is logged and skipped; it never fails the record operation.
func (s *ContractService) storeUploads(ctx context.Context, contractID uuid.UUID, uploads []FileUpload) {
	for _, upload := range uploads {
		key, err := s.store.Put(ctx, upload.Data, upload.Name, upload.ContentType)
		if err != nil {
			s.log.Warn().Err(err).Str("file", upload.Name).Msg("document upload failed")
			continue
		}
		_, err = s.repo.InsertDocument(ctx, model.Document{
			ContractID: contractID,
			FileName:   upload.Name,
			FilePath:   key,
			FileSize:   int64(len(upload.Data)),
			MimeType:   upload.ContentType,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("file", upload.Name).Msg("document row insert failed")
		}
	}
}

func validateSaveInput(input SaveInput) error {
	if strings.TrimSpace(input.Particular) == "" {
		return fmt.Errorf("%w: particular is required", ErrInvalidInput)
	}
	if input.NetAmount.IsNegative() {
		return fmt.Errorf("%w: amount_range must be non-negative", ErrInvalidInput)
	}
	return nil
}

func contractFromInput(input SaveInput) model.Contract {
	breakdown := finance.Compute(input.NetAmount, input.CompanyAssigned)
	return model.Contract{
		Particular:        strings.TrimSpace(input.Particular),
		VehicleType:       strings.TrimSpace(input.VehicleType),
		PlateNumber:       strings.TrimSpace(input.PlateNumber),
		OwnersName:        strings.TrimSpace(input.OwnersName),
		CompanyAssigned:   strings.TrimSpace(input.CompanyAssigned),
		LocationArea:      strings.TrimSpace(input.LocationArea),
		DriversName:       strings.TrimSpace(input.DriversName),
		NetAmount:         breakdown.NetAmount,
		VATAmount:         breakdown.VATAmount,
		ContractAmount:    breakdown.ContractAmount,
		WithholdingAmount: breakdown.WithholdingAmount,
		FinalAmount:       breakdown.FinalAmount,
		SuppliersAmount:   input.SuppliersAmount,
		DriversSalary:     input.DriversSalary,
		Revenue:           input.Revenue,
		Remarks:           input.Remarks,
		EndRemarks:        input.EndRemarks,
		StartDate:         input.StartDate,
	}
}

// recompute refreshes the derived fields from the stored net amount. Stored
// derived values can be stale; reads always serve the recomputed projection.
func recompute(contract *model.Contract) {
	breakdown := finance.Compute(contract.NetAmount, contract.CompanyAssigned)
	contract.VATAmount = breakdown.VATAmount
	contract.ContractAmount = breakdown.ContractAmount
	contract.WithholdingAmount = breakdown.WithholdingAmount
	contract.FinalAmount = breakdown.FinalAmount
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
