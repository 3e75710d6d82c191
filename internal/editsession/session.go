// Package editsession holds the state of one contract editing session: the
// form fields with their derived financial projection, files staged for
// upload, and existing documents marked for deletion. Pending changes stay
// local until Submit, which applies them against the API as one logical
// operation.
package editsession

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/fleetops-contracts/internal/apiclient"
	"github.com/nurpe/fleetops-contracts/internal/finance"
)

var ErrSubmitInProgress = errors.New("submit already in progress")

// FormFields are the plain scalar inputs with no derived behavior.
type FormFields struct {
	Particular      string
	VehicleType     string
	PlateNumber     string
	OwnersName      string
	LocationArea    string
	DriversName     string
	SuppliersAmount string
	DriversSalary   string
	Revenue         string
	Remarks         string
	EndRemarks      string
	StartDate       string
}

// Session is the per-edit coordinator. Each editing surface owns exactly one
// Session; nothing here is safe for concurrent use and nothing needs to be.
type Session struct {
	api *apiclient.Client
	log zerolog.Logger

	record *apiclient.ContractRecord // nil in create mode

	Fields          FormFields
	netAmount       decimal.Decimal
	companyAssigned string
	breakdown       finance.Breakdown

	pendingDeletions map[int]struct{}
	pendingUploads   []apiclient.Upload

	submitting bool
}

// NewCreateSession opens a session for a new contract.
func NewCreateSession(api *apiclient.Client, log zerolog.Logger) *Session {
	s := &Session{
		api:              api,
		log:              log,
		pendingDeletions: map[int]struct{}{},
	}
	s.recompute()
	return s
}

// NewEditSession opens a session over an existing record. Derived fields are
// recomputed from the stored net amount rather than taken from the record;
// persisted projections can be stale.
func NewEditSession(api *apiclient.Client, record apiclient.ContractRecord, log zerolog.Logger) *Session {
	s := &Session{
		api:    api,
		log:    log,
		record: &record,
		Fields: FormFields{
			Particular:      record.Particular,
			VehicleType:     record.VehicleType,
			PlateNumber:     record.PlateNumber,
			OwnersName:      record.OwnersName,
			LocationArea:    record.LocationArea,
			DriversName:     record.DriversName,
			SuppliersAmount: record.SuppliersAmount.String(),
			DriversSalary:   record.DriversSalary.String(),
			Revenue:         record.Revenue.String(),
			Remarks:         record.Remarks,
			EndRemarks:      record.EndRemarks,
			StartDate:       record.StartDate,
		},
		netAmount:        record.NetAmount,
		companyAssigned:  record.CompanyAssigned,
		pendingDeletions: map[int]struct{}{},
	}
	s.recompute()
	return s
}

func (s *Session) IsEditing() bool {
	return s.record != nil
}

func (s *Session) Record() *apiclient.ContractRecord {
	return s.record
}

// SetNetAmount takes the raw text of the amount field. Malformed input is
// coerced to zero, never rejected.
func (s *Session) SetNetAmount(raw string) {
	s.netAmount = finance.ParseAmount(raw)
	s.recompute()
}

func (s *Session) SetCompanyAssigned(name string) {
	s.companyAssigned = name
	s.recompute()
}

func (s *Session) CompanyAssigned() string {
	return s.companyAssigned
}

// Breakdown returns the current derived financial fields. They are always
// consistent with the net amount and company; there is no way to set one
// derived field without the others following.
func (s *Session) Breakdown() finance.Breakdown {
	return s.breakdown
}

func (s *Session) recompute() {
	s.breakdown = finance.Compute(s.netAmount, s.companyAssigned)
}

// MarkDocumentForDeletion stages the document at index for removal on the
// next submit. Call it only after the user confirmed the destructive action.
// Marking is idempotent and reversible until submit.
func (s *Session) MarkDocumentForDeletion(index int) error {
	if s.record == nil || index < 0 || index >= len(s.record.Documents) {
		return errors.New("document index out of range")
	}
	s.pendingDeletions[index] = struct{}{}
	return nil
}

// UnmarkDocumentForDeletion reverses a pending deletion. No confirmation is
// needed to keep a file.
func (s *Session) UnmarkDocumentForDeletion(index int) {
	delete(s.pendingDeletions, index)
}

func (s *Session) IsMarkedForDeletion(index int) bool {
	_, marked := s.pendingDeletions[index]
	return marked
}

// PendingDeletions returns the marked indexes in ascending order.
func (s *Session) PendingDeletions() []int {
	indexes := make([]int, 0, len(s.pendingDeletions))
	for index := range s.pendingDeletions {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	return indexes
}

// AttachFile stages a new file for upload on the next submit.
func (s *Session) AttachFile(name, contentType string, data []byte) {
	s.pendingUploads = append(s.pendingUploads, apiclient.Upload{
		Name:        name,
		ContentType: contentType,
		Data:        data,
	})
}

func (s *Session) PendingUploads() int {
	return len(s.pendingUploads)
}

type SubmitResult struct {
	Record *apiclient.ContractRecord
	// FailedDeletionIndexes lists marked documents whose delete request
	// failed. The submit still counts as successful; callers may surface an
	// aggregate warning.
	FailedDeletionIndexes []int
}

// Submit applies the session's pending changes: first the staged deletions,
// highest index first, then the create-or-update carrying the staged
// uploads. A failed deletion is logged and skipped; it aborts neither the
// remaining deletions nor the record write. If the record write itself
// fails, all pending state is kept so the user can retry.
func (s *Session) Submit(ctx context.Context) (*SubmitResult, error) {
	if s.submitting {
		return nil, ErrSubmitInProgress
	}
	s.submitting = true
	defer func() { s.submitting = false }()

	var failed []int
	if s.record != nil {
		// Descending order keeps not-yet-processed indexes valid while the
		// server compacts the list after each removal.
		indexes := s.PendingDeletions()
		for i := len(indexes) - 1; i >= 0; i-- {
			index := indexes[i]
			if err := s.api.DeleteDocument(ctx, s.record.ID, index); err != nil {
				s.log.Warn().Err(err).Int("document_index", index).Msg("document deletion failed")
				failed = append(failed, index)
			}
		}
	}

	payload := s.payload()

	var saved *apiclient.ContractRecord
	var err error
	if s.record != nil {
		saved, err = s.api.UpdateContract(ctx, s.record.ID, payload, s.pendingUploads)
	} else {
		saved, err = s.api.CreateContract(ctx, payload, s.pendingUploads)
	}
	if err != nil {
		return nil, err
	}

	s.record = saved
	s.pendingDeletions = map[int]struct{}{}
	s.pendingUploads = nil

	return &SubmitResult{Record: saved, FailedDeletionIndexes: failed}, nil
}

func (s *Session) payload() apiclient.ContractPayload {
	return apiclient.ContractPayload{
		Particular:        s.Fields.Particular,
		VehicleType:       s.Fields.VehicleType,
		PlateNumber:       s.Fields.PlateNumber,
		OwnersName:        s.Fields.OwnersName,
		CompanyAssigned:   s.companyAssigned,
		LocationArea:      s.Fields.LocationArea,
		DriversName:       s.Fields.DriversName,
		NetAmount:         s.breakdown.NetAmount,
		VATAmount:         s.breakdown.VATAmount,
		ContractAmount:    s.breakdown.ContractAmount,
		WithholdingAmount: s.breakdown.WithholdingAmount,
		FinalAmount:       s.breakdown.FinalAmount,
		SuppliersAmount:   finance.ParseAmount(s.Fields.SuppliersAmount),
		DriversSalary:     finance.ParseAmount(s.Fields.DriversSalary),
		Revenue:           finance.ParseAmount(s.Fields.Revenue),
		Remarks:           s.Fields.Remarks,
		EndRemarks:        s.Fields.EndRemarks,
		StartDate:         s.Fields.StartDate,
	}
}
