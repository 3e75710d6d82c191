package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/fleetops-contracts/internal/auth"
	httphandler "github.com/nurpe/fleetops-contracts/internal/http"
	"github.com/nurpe/fleetops-contracts/internal/http/middleware"
	"github.com/nurpe/fleetops-contracts/internal/model"
	"github.com/nurpe/fleetops-contracts/internal/service"
)

const testSecret = "test-secret"

type memRepo struct {
	contracts map[uuid.UUID]model.Contract
	documents map[uuid.UUID][]model.Document
	nextDocID int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		contracts: map[uuid.UUID]model.Contract{},
		documents: map[uuid.UUID][]model.Document{},
	}
}

func (r *memRepo) List(_ context.Context, _ string, limit, offset int) ([]model.Contract, int64, error) {
	out := make([]model.Contract, 0, len(r.contracts))
	for id, c := range r.contracts {
		c.Documents = append([]model.Document{}, r.documents[id]...)
		out = append(out, c)
	}
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], int64(len(r.contracts)), nil
}

func (r *memRepo) Get(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	c, ok := r.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c.Documents = append([]model.Document{}, r.documents[id]...)
	return &c, nil
}

func (r *memRepo) Create(_ context.Context, contract model.Contract) (*model.Contract, error) {
	contract.ID = uuid.New()
	r.contracts[contract.ID] = contract
	return &contract, nil
}

func (r *memRepo) Update(_ context.Context, contract model.Contract) (*model.Contract, error) {
	if _, ok := r.contracts[contract.ID]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.contracts[contract.ID] = contract
	return &contract, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.contracts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.contracts, id)
	delete(r.documents, id)
	return nil
}

func (r *memRepo) ListDocuments(_ context.Context, contractID uuid.UUID) ([]model.Document, error) {
	return append([]model.Document{}, r.documents[contractID]...), nil
}

func (r *memRepo) InsertDocument(_ context.Context, doc model.Document) (*model.Document, error) {
	r.nextDocID++
	doc.ID = r.nextDocID
	doc.Position = len(r.documents[doc.ContractID])
	r.documents[doc.ContractID] = append(r.documents[doc.ContractID], doc)
	return &doc, nil
}

func (r *memRepo) DeleteDocument(_ context.Context, id int64) error {
	for contractID, docs := range r.documents {
		for i, doc := range docs {
			if doc.ID == id {
				r.documents[contractID] = append(docs[:i], docs[i+1:]...)
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

type memStore struct {
	objects map[string][]byte
	nextKey int
}

func (s *memStore) Put(_ context.Context, data []byte, _, _ string) (string, error) {
	s.nextKey++
	key := fmt.Sprintf("obj-%d", s.nextKey)
	s.objects[key] = data
	return key, nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type memClients struct{}

func (memClients) ListActive(_ context.Context) ([]model.Client, error) {
	return []model.Client{
		{ID: uuid.New(), Name: "FUTURENET AND TECHNOLOGY CORPORATION", IsActive: true, IsDefault: true},
		{ID: uuid.New(), Name: "Acme Corp", IsActive: true},
	}, nil
}

type stubExcel struct{}

func (stubExcel) Generate(_ []model.Contract) ([]byte, error) { return []byte("xlsx"), nil }

type stubPDF struct{}

func (stubPDF) Generate(_ model.Contract) ([]byte, error) { return []byte("pdf"), nil }

func newTestServer(t *testing.T) (*httptest.Server, *memRepo) {
	repo := newMemRepo()
	store := &memStore{objects: map[string][]byte{}}
	svc := service.NewContractService(repo, memClients{}, store, stubExcel{}, stubPDF{}, zerolog.Nop())

	handler := httphandler.NewHandler(svc, zerolog.Nop())
	router := httphandler.NewRouter(handler, middleware.Auth(auth.NewParser(testSecret)), "test")

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, repo
}

func bearerToken(t *testing.T, role string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.New().String(),
		"role": role,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, data := range files {
		part, err := writer.CreateFormFile("documents[]", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doRequest(t *testing.T, method, url, token string, body *bytes.Buffer, contentType string) *http.Response {
	var reader *bytes.Buffer
	if body == nil {
		reader = &bytes.Buffer{}
	} else {
		reader = body
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	defer resp.Body.Close()
	var payload struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Data
}

func TestCreateContractRecomputesDerivedFields(t *testing.T) {
	server, _ := newTestServer(t)
	token := bearerToken(t, "ENCODER")

	// Derived fields in the payload are garbage on purpose; the server must
	// ignore them and recompute from amount_range and company_assigned.
	body, contentType := multipartBody(t, map[string]string{
		"particular":       "Monthly hauling",
		"plate_number":     "ABC-123",
		"company_assigned": "Acme Corp",
		"amount_range":     "10000",
		"12m_vat":          "1",
		"contract_amount":  "2",
		"less_ewt":         "3",
		"final_amount":     "4",
	}, map[string][]byte{"or-cr.pdf": []byte("x")})

	resp := doRequest(t, http.MethodPost, server.URL+"/api/contracts", token, body, contentType)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := decodeData(t, resp)
	assert.Equal(t, "1200.00", data["12m_vat"])
	assert.Equal(t, "11200.00", data["contract_amount"])
	assert.Equal(t, "500.00", data["less_ewt"])
	assert.Equal(t, "10700.00", data["final_amount"])

	documents, ok := data["documents"].([]interface{})
	require.True(t, ok)
	assert.Len(t, documents, 1)
}

func TestDeleteDocumentByIndex(t *testing.T) {
	server, _ := newTestServer(t)
	token := bearerToken(t, "ENCODER")

	body, contentType := multipartBody(t, map[string]string{
		"particular":   "With documents",
		"amount_range": "1000",
	}, map[string][]byte{"a.pdf": []byte("a")})
	resp := doRequest(t, http.MethodPost, server.URL+"/api/contracts", token, body, contentType)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeData(t, resp)["id"].(string)

	// second and third documents via update
	body, contentType = multipartBody(t, map[string]string{
		"particular":   "With documents",
		"amount_range": "1000",
		"_method":      "PUT",
	}, map[string][]byte{"b.pdf": []byte("b"), "c.pdf": []byte("c")})
	resp = doRequest(t, http.MethodPost, server.URL+"/api/contracts/"+id, token, body, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	deleteBody := bytes.NewBufferString(`{"document_index":1}`)
	resp = doRequest(t, http.MethodDelete, server.URL+"/api/contracts/"+id+"/documents", token, deleteBody, "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var remaining struct {
		Documents []map[string]interface{} `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&remaining))
	resp.Body.Close()
	assert.Len(t, remaining.Documents, 2)

	resp = doRequest(t, http.MethodDelete, server.URL+"/api/contracts/"+id+"/documents", token, bytes.NewBufferString(`{"document_index":7}`), "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateRequiresMethodOverride(t *testing.T) {
	server, _ := newTestServer(t)
	token := bearerToken(t, "ENCODER")

	body, contentType := multipartBody(t, map[string]string{
		"particular":   "Override check",
		"amount_range": "1000",
	}, nil)
	resp := doRequest(t, http.MethodPost, server.URL+"/api/contracts", token, body, contentType)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeData(t, resp)["id"].(string)

	// POST to the update route without the override is rejected.
	body, contentType = multipartBody(t, map[string]string{
		"particular":   "Override check",
		"amount_range": "2000",
	}, nil)
	resp = doRequest(t, http.MethodPost, server.URL+"/api/contracts/"+id, token, body, contentType)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	body, contentType = multipartBody(t, map[string]string{
		"particular":   "Override check",
		"amount_range": "2000",
		"_method":      "DELETE",
	}, nil)
	resp = doRequest(t, http.MethodPost, server.URL+"/api/contracts/"+id, token, body, contentType)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	body, contentType = multipartBody(t, map[string]string{
		"particular":   "Override check",
		"amount_range": "2000",
		"_method":      "PUT",
	}, nil)
	resp = doRequest(t, http.MethodPost, server.URL+"/api/contracts/"+id, token, body, contentType)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestClientNamesShape(t *testing.T) {
	server, _ := newTestServer(t)
	token := bearerToken(t, "ENCODER")

	resp := doRequest(t, http.MethodGet, server.URL+"/api/client-names/active", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()

	require.Len(t, payload.Data, 2)
	first := payload.Data[0]
	assert.Equal(t, "FUTURENET AND TECHNOLOGY CORPORATION", first["name"])
	assert.Equal(t, true, first["is_active"])
	assert.Equal(t, "PREFERRED", first["tax_bracket"])
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, server.URL+"/api/contracts", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, server.URL+"/api/contracts", "not-a-jwt", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestDriverCannotMutate(t *testing.T) {
	server, _ := newTestServer(t)
	token := bearerToken(t, "DRIVER")

	body, contentType := multipartBody(t, map[string]string{
		"particular":   "Not allowed",
		"amount_range": "1000",
	}, nil)
	resp := doRequest(t, http.MethodPost, server.URL+"/api/contracts", token, body, contentType)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestValidationErrorSurfacedVerbatim(t *testing.T) {
	server, _ := newTestServer(t)
	token := bearerToken(t, "ENCODER")

	body, contentType := multipartBody(t, map[string]string{
		"amount_range": "1000",
	}, nil)
	resp := doRequest(t, http.MethodPost, server.URL+"/api/contracts", token, body, contentType)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	assert.Equal(t, "invalid input: particular is required", payload.Error)
}
