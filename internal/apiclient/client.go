// Package apiclient is the HTTP client for the contracts API. Credentials
// are an injected dependency: the client never reaches into ambient state
// for tokens, it asks the provider on every request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CredentialProvider interface {
	AccessToken() string
	CSRFToken() string
}

// StaticCredentials is a CredentialProvider for tokens fixed at session start.
type StaticCredentials struct {
	Access string
	CSRF   string
}

func (s StaticCredentials) AccessToken() string { return s.Access }
func (s StaticCredentials) CSRFToken() string   { return s.CSRF }

type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialProvider
}

func New(baseURL string, creds CredentialProvider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		creds:   creds,
	}
}

// APIError carries a backend error response; validation messages are passed
// through verbatim so callers can show them to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

type ClientName struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	IsDefault  bool      `json:"is_default"`
	TaxBracket string    `json:"tax_bracket"`
}

type DocumentRecord struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type ContractRecord struct {
	ID                uuid.UUID        `json:"id"`
	Particular        string           `json:"particular"`
	VehicleType       string           `json:"vehicle_type"`
	PlateNumber       string           `json:"plate_number"`
	OwnersName        string           `json:"owners_name"`
	CompanyAssigned   string           `json:"company_assigned"`
	LocationArea      string           `json:"location_area"`
	DriversName       string           `json:"drivers_name"`
	NetAmount         decimal.Decimal  `json:"amount_range"`
	VATAmount         decimal.Decimal  `json:"12m_vat"`
	ContractAmount    decimal.Decimal  `json:"contract_amount"`
	WithholdingAmount decimal.Decimal  `json:"less_ewt"`
	FinalAmount       decimal.Decimal  `json:"final_amount"`
	SuppliersAmount   decimal.Decimal  `json:"suppliers_amount"`
	DriversSalary     decimal.Decimal  `json:"drivers_salary"`
	Revenue           decimal.Decimal  `json:"revenue"`
	Remarks           string           `json:"remarks"`
	EndRemarks        string           `json:"end_remarks"`
	StartDate         string           `json:"start_date"`
	Documents         []DocumentRecord `json:"documents"`
}

// ContractPayload is the multipart body of a create or update request.
// Derived fields are included for parity with the form the backend expects,
// though the backend recomputes them from amount_range and company_assigned.
type ContractPayload struct {
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
	StartDate         string
}

type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

func (c *Client) ListActiveClients(ctx context.Context) ([]ClientName, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/client-names/active", nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Data []ClientName `json:"data"`
	}
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

func (c *Client) CreateContract(ctx context.Context, payload ContractPayload, uploads []Upload) (*ContractRecord, error) {
	return c.sendContract(ctx, c.baseURL+"/api/contracts", payload, uploads, false)
}

// UpdateContract posts to the record URL with a _method=PUT override; a
// native PUT is not used because the body carries file parts.
func (c *Client) UpdateContract(ctx context.Context, id uuid.UUID, payload ContractPayload, uploads []Upload) (*ContractRecord, error) {
	return c.sendContract(ctx, fmt.Sprintf("%s/api/contracts/%s", c.baseURL, id), payload, uploads, true)
}

// DeleteDocument removes the document at the given position. The endpoint
// is positional: indexes above the deleted one shift down afterwards, so
// multi-delete callers must go highest index first.
func (c *Client) DeleteDocument(ctx context.Context, contractID uuid.UUID, index int) error {
	body, err := json.Marshal(map[string]int{"document_index": index})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/contracts/%s/documents", c.baseURL, contractID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

func (c *Client) DownloadDocument(ctx context.Context, contractID uuid.UUID, index int) ([]byte, error) {
	url := fmt.Sprintf("%s/api/contracts/%s/documents/%d/download", c.baseURL, contractID, index)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) sendContract(ctx context.Context, url string, payload ContractPayload, uploads []Upload, update bool) (*ContractRecord, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"particular":       payload.Particular,
		"vehicle_type":     payload.VehicleType,
		"plate_number":     payload.PlateNumber,
		"owners_name":      payload.OwnersName,
		"company_assigned": payload.CompanyAssigned,
		"location_area":    payload.LocationArea,
		"drivers_name":     payload.DriversName,
		"amount_range":     payload.NetAmount.StringFixed(2),
		"12m_vat":          payload.VATAmount.StringFixed(2),
		"contract_amount":  payload.ContractAmount.StringFixed(2),
		"less_ewt":         payload.WithholdingAmount.StringFixed(2),
		"final_amount":     payload.FinalAmount.StringFixed(2),
		"suppliers_amount": payload.SuppliersAmount.StringFixed(2),
		"drivers_salary":   payload.DriversSalary.StringFixed(2),
		"revenue":          payload.Revenue.StringFixed(2),
		"remarks":          payload.Remarks,
		"end_remarks":      payload.EndRemarks,
		"start_date":       payload.StartDate,
	}
	if update {
		fields["_method"] = "PUT"
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}

	for _, upload := range uploads {
		part, err := writer.CreatePart(filePartHeader(upload))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(upload.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var response struct {
		Data ContractRecord `json:"data"`
	}
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	return &response.Data, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if token := c.creds.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf := c.creds.CSRFToken(); csrf != "" {
		req.Header.Set("X-CSRF-TOKEN", csrf)
	}
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var parsed struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		message = parsed.Error
	}
	if message == "" {
		message = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func filePartHeader(upload Upload) textproto.MIMEHeader {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="documents[]"; filename="%s"`, escapeQuotes(upload.Name)))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	return header
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
