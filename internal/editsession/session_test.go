package editsession_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/fleetops-contracts/internal/apiclient"
	"github.com/nurpe/fleetops-contracts/internal/editsession"
)

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

// backend is a scripted contracts API capturing the requests a submit makes.
type backend struct {
	t *testing.T

	deleteOrder   []int
	failDeletions map[int]bool
	updateCalls   int
	createCalls   int
	failSave      bool
	lastForm      map[string]string
	lastFiles     []string

	record apiclient.ContractRecord
}

func newBackend(t *testing.T) *backend {
	return &backend{
		t:             t,
		failDeletions: map[int]bool{},
		record: apiclient.ContractRecord{
			ID:         uuid.New(),
			Particular: "Monthly hauling",
			NetAmount:  dec("10000"),
			Documents: []apiclient.DocumentRecord{
				{ID: 1, FileName: "a.pdf"},
				{ID: 2, FileName: "b.pdf"},
				{ID: 3, FileName: "c.pdf"},
				{ID: 4, FileName: "d.pdf"},
				{ID: 5, FileName: "e.pdf"},
			},
		},
	}
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("DELETE /api/contracts/{id}/documents", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DocumentIndex int `json:"document_index"`
		}
		require.NoError(b.t, json.NewDecoder(r.Body).Decode(&req))
		b.deleteOrder = append(b.deleteOrder, req.DocumentIndex)

		if b.failDeletions[req.DocumentIndex] {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":"delete failed"}`)
			return
		}
		fmt.Fprint(w, `{"documents":[]}`)
	})

	save := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(b.t, r.ParseMultipartForm(32<<20))
		b.lastForm = map[string]string{}
		for name, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				b.lastForm[name] = values[0]
			}
		}
		b.lastFiles = nil
		for _, header := range r.MultipartForm.File["documents[]"] {
			b.lastFiles = append(b.lastFiles, header.Filename)
		}

		if b.failSave {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"error":"invalid input: particular is required"}`)
			return
		}

		response := map[string]interface{}{"data": b.record}
		require.NoError(b.t, json.NewEncoder(w).Encode(response))
	}

	mux.HandleFunc("POST /api/contracts", func(w http.ResponseWriter, r *http.Request) {
		b.createCalls++
		save(w, r)
	})
	mux.HandleFunc("POST /api/contracts/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.updateCalls++
		save(w, r)
	})

	return mux
}

func newSession(t *testing.T, b *backend) (*editsession.Session, *httptest.Server) {
	server := httptest.NewServer(b.handler())
	t.Cleanup(server.Close)

	api := apiclient.New(server.URL, apiclient.StaticCredentials{Access: "token", CSRF: "csrf"})
	return editsession.NewEditSession(api, b.record, zerolog.Nop()), server
}

func TestMarkUnmarkIdempotent(t *testing.T) {
	b := newBackend(t)
	session, _ := newSession(t, b)

	require.NoError(t, session.MarkDocumentForDeletion(2))
	require.NoError(t, session.MarkDocumentForDeletion(2))
	assert.Equal(t, []int{2}, session.PendingDeletions())
	assert.True(t, session.IsMarkedForDeletion(2))

	session.UnmarkDocumentForDeletion(2)
	session.UnmarkDocumentForDeletion(2)
	assert.Empty(t, session.PendingDeletions())
	assert.False(t, session.IsMarkedForDeletion(2))
}

func TestMarkOutOfRange(t *testing.T) {
	b := newBackend(t)
	session, _ := newSession(t, b)

	assert.Error(t, session.MarkDocumentForDeletion(-1))
	assert.Error(t, session.MarkDocumentForDeletion(5))
}

func TestSubmitDeletesDescending(t *testing.T) {
	b := newBackend(t)
	session, _ := newSession(t, b)

	require.NoError(t, session.MarkDocumentForDeletion(1))
	require.NoError(t, session.MarkDocumentForDeletion(3))
	require.NoError(t, session.MarkDocumentForDeletion(4))

	result, err := session.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{4, 3, 1}, b.deleteOrder)
	assert.Equal(t, 1, b.updateCalls)
	assert.Empty(t, result.FailedDeletionIndexes)
	assert.Empty(t, session.PendingDeletions())
}

func TestSubmitContinuesPastFailedDeletion(t *testing.T) {
	b := newBackend(t)
	b.failDeletions[3] = true
	session, _ := newSession(t, b)

	require.NoError(t, session.MarkDocumentForDeletion(1))
	require.NoError(t, session.MarkDocumentForDeletion(3))
	require.NoError(t, session.MarkDocumentForDeletion(4))

	result, err := session.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{4, 3, 1}, b.deleteOrder)
	assert.Equal(t, 1, b.updateCalls, "record update must proceed despite deletion failure")
	assert.Equal(t, []int{3}, result.FailedDeletionIndexes)
}

func TestSubmitFailureKeepsPendingState(t *testing.T) {
	b := newBackend(t)
	b.failSave = true
	session, _ := newSession(t, b)

	require.NoError(t, session.MarkDocumentForDeletion(0))
	session.AttachFile("new.pdf", "application/pdf", []byte("x"))

	_, err := session.Submit(context.Background())
	require.Error(t, err)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "invalid input: particular is required", apiErr.Message)

	// Retry still has everything staged.
	assert.Equal(t, []int{0}, session.PendingDeletions())
	assert.Equal(t, 1, session.PendingUploads())
}

func TestSubmitSendsRecomputedFieldsAndFiles(t *testing.T) {
	b := newBackend(t)
	session, _ := newSession(t, b)

	session.Fields.Particular = "Monthly hauling"
	session.SetNetAmount("10000")
	session.SetCompanyAssigned("Acme Corp")
	session.AttachFile("or-cr.pdf", "application/pdf", []byte("x"))
	session.AttachFile("deed.pdf", "application/pdf", []byte("y"))

	_, err := session.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "10000.00", b.lastForm["amount_range"])
	assert.Equal(t, "1200.00", b.lastForm["12m_vat"])
	assert.Equal(t, "11200.00", b.lastForm["contract_amount"])
	assert.Equal(t, "500.00", b.lastForm["less_ewt"])
	assert.Equal(t, "10700.00", b.lastForm["final_amount"])
	assert.Equal(t, "PUT", b.lastForm["_method"])
	assert.Equal(t, []string{"or-cr.pdf", "deed.pdf"}, b.lastFiles)
}

func TestCreateModeSkipsDeletionPhase(t *testing.T) {
	b := newBackend(t)
	server := httptest.NewServer(b.handler())
	t.Cleanup(server.Close)

	api := apiclient.New(server.URL, apiclient.StaticCredentials{})
	session := editsession.NewCreateSession(api, zerolog.Nop())
	session.Fields.Particular = "New contract"
	session.SetNetAmount("5000")

	result, err := session.Submit(context.Background())
	require.NoError(t, err)

	assert.Empty(t, b.deleteOrder)
	assert.Equal(t, 1, b.createCalls)
	assert.Zero(t, b.updateCalls)
	assert.NotNil(t, result.Record)
	assert.True(t, session.IsEditing(), "session owns the saved record after create")
}

func TestRecomputeOnCompanyChange(t *testing.T) {
	b := newBackend(t)
	session, _ := newSession(t, b)

	session.SetNetAmount("5000")
	session.SetCompanyAssigned("Acme")
	assert.True(t, session.Breakdown().WithholdingAmount.Equal(dec("250")))

	session.SetCompanyAssigned("FUTURENET AND TECHNOLOGY CORPORATION")
	assert.True(t, session.Breakdown().WithholdingAmount.Equal(dec("100")))
	assert.True(t, session.Breakdown().FinalAmount.Equal(dec("5500")))
}

func TestEditLoadRecomputesStaleRecord(t *testing.T) {
	b := newBackend(t)
	b.record.NetAmount = dec("2000")
	b.record.FinalAmount = dec("99999") // stale persisted projection
	session, _ := newSession(t, b)

	got := session.Breakdown()
	assert.True(t, got.VATAmount.Equal(dec("240")))
	assert.True(t, got.FinalAmount.Equal(dec("2140")), "final = %s", got.FinalAmount)
}

func TestMalformedAmountCoercedToZero(t *testing.T) {
	b := newBackend(t)
	session, _ := newSession(t, b)

	session.SetNetAmount("not-a-number")
	got := session.Breakdown()
	assert.True(t, got.NetAmount.IsZero())
	assert.True(t, got.FinalAmount.IsZero())
}
