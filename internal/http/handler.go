package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/fleetops-contracts/internal/finance"
	"github.com/nurpe/fleetops-contracts/internal/http/middleware"
	"github.com/nurpe/fleetops-contracts/internal/model"
	"github.com/nurpe/fleetops-contracts/internal/service"
)

type Handler struct {
	contracts *service.ContractService
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/api")
	protected.Use(authMiddleware)

	protected.GET("/client-names/active", h.listClientNames)

	protected.GET("/contracts", h.listContracts)
	protected.GET("/contracts/export", h.exportContracts)
	protected.GET("/contracts/:id", h.getContract)
	protected.POST("/contracts", h.createContract)
	protected.POST("/contracts/:id", h.updateContract)
	protected.DELETE("/contracts/:id", h.deleteContract)
	protected.DELETE("/contracts/:id/documents", h.deleteDocument)
	protected.GET("/contracts/:id/documents/:index/download", h.downloadDocument)
	protected.GET("/contracts/:id/pdf", h.contractPDF)
}

func (h *Handler) listClientNames(c *gin.Context) {
	clients, err := h.contracts.ListClientNames(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	data := make([]gin.H, 0, len(clients))
	for _, client := range clients {
		data = append(data, gin.H{
			"id":          client.ID,
			"name":        client.Name,
			"is_active":   client.IsActive,
			"is_default":  client.IsDefault,
			"tax_bracket": client.TaxBracket,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *Handler) listContracts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	result, err := h.contracts.List(c.Request.Context(), service.ListInput{
		Query:   c.Query("query"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	data := make([]gin.H, 0, len(result.Contracts))
	for _, contract := range result.Contracts {
		data = append(data, contractResponse(contract))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":     data,
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
	})
}

func (h *Handler) getContract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contractResponse(*contract)})
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	input, err := h.parseSaveInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Principal = principal

	contract, err := h.contracts.Create(c.Request.Context(), *input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": contractResponse(*contract)})
}

// updateContract handles POST /api/contracts/:id carrying a _method=PUT
// override. A plain PUT cannot be used because the payload carries files.
func (h *Handler) updateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	input, err := h.parseSaveInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Principal = principal

	if override := c.PostForm("_method"); !strings.EqualFold(override, "PUT") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "update requires _method=PUT"})
		return
	}

	contract, err := h.contracts.Update(c.Request.Context(), id, *input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contractResponse(*contract)})
}

func (h *Handler) deleteContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	if err := h.contracts.Delete(c.Request.Context(), id, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type deleteDocumentRequest struct {
	DocumentIndex *int `json:"document_index" binding:"required"`
}

func (h *Handler) deleteDocument(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var req deleteDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	remaining, err := h.contracts.DeleteDocument(c.Request.Context(), id, *req.DocumentIndex, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	documents := make([]gin.H, 0, len(remaining))
	for _, doc := range remaining {
		documents = append(documents, documentResponse(doc))
	}
	c.JSON(http.StatusOK, gin.H{"documents": documents})
}

func (h *Handler) downloadDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document index"})
		return
	}

	result, err := h.contracts.DownloadDocument(c.Request.Context(), id, index)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, result.MimeType, result.Content)
}

func (h *Handler) exportContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	result, err := h.contracts.ExportRegister(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) contractPDF(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	result, err := h.contracts.ExportContractPDF(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

// parseSaveInput reads the multipart form. Amount fields are coerced, not
// validated: malformed numbers become zero. Derived fields present in the
// payload (12m_vat, contract_amount, less_ewt, final_amount) are ignored;
// the service recomputes them.
func (h *Handler) parseSaveInput(c *gin.Context) (*service.SaveInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	value := func(name string) string {
		values := form.Value[name]
		if len(values) == 0 {
			return ""
		}
		return strings.TrimSpace(values[0])
	}

	input := &service.SaveInput{
		Particular:      value("particular"),
		VehicleType:     value("vehicle_type"),
		PlateNumber:     value("plate_number"),
		OwnersName:      value("owners_name"),
		CompanyAssigned: value("company_assigned"),
		LocationArea:    value("location_area"),
		DriversName:     value("drivers_name"),
		NetAmount:       finance.ParseAmount(value("amount_range")),
		SuppliersAmount: finance.ParseAmount(value("suppliers_amount")),
		DriversSalary:   finance.ParseAmount(value("drivers_salary")),
		Revenue:         finance.ParseAmount(value("revenue")),
		Remarks:         value("remarks"),
		EndRemarks:      value("end_remarks"),
	}

	if raw := value("start_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		input.StartDate = &parsed
	}

	files := form.File["documents[]"]
	for _, header := range files {
		upload, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		input.Uploads = append(input.Uploads, *upload)
	}
	return input, nil
}

func readUpload(header *multipart.FileHeader) (*service.FileUpload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &service.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("contract request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func contractResponse(contract model.Contract) gin.H {
	documents := make([]gin.H, 0, len(contract.Documents))
	for _, doc := range contract.Documents {
		documents = append(documents, documentResponse(doc))
	}

	var startDate interface{}
	if contract.StartDate != nil {
		startDate = contract.StartDate.Format("2006-01-02")
	}

	return gin.H{
		"id":               contract.ID,
		"particular":       contract.Particular,
		"vehicle_type":     contract.VehicleType,
		"plate_number":     contract.PlateNumber,
		"owners_name":      contract.OwnersName,
		"company_assigned": contract.CompanyAssigned,
		"location_area":    contract.LocationArea,
		"drivers_name":     contract.DriversName,
		"amount_range":     contract.NetAmount.StringFixed(2),
		"12m_vat":          contract.VATAmount.StringFixed(2),
		"contract_amount":  contract.ContractAmount.StringFixed(2),
		"less_ewt":         contract.WithholdingAmount.StringFixed(2),
		"final_amount":     contract.FinalAmount.StringFixed(2),
		"suppliers_amount": contract.SuppliersAmount.StringFixed(2),
		"drivers_salary":   contract.DriversSalary.StringFixed(2),
		"revenue":          contract.Revenue.StringFixed(2),
		"remarks":          contract.Remarks,
		"end_remarks":      contract.EndRemarks,
		"start_date":       startDate,
		"documents":        documents,
		"created_at":       contract.CreatedAt,
		"updated_at":       contract.UpdatedAt,
	}
}

func documentResponse(doc model.Document) gin.H {
	return gin.H{
		"id":          doc.ID,
		"file_name":   doc.FileName,
		"file_path":   doc.FilePath,
		"file_size":   doc.FileSize,
		"mime_type":   doc.MimeType,
		"uploaded_at": doc.UploadedAt,
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid start_date")
}
