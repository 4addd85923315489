package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/querylab/internal/record/application"
	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	"github.com/davicafu/querylab/pkg/utils"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedQuery "github.com/davicafu/querylab/shared/platform/query"
)

// RecordHandler encapsula los endpoints HTTP relacionados con Record.
type RecordHandler struct {
	service *application.RecordService
}

// NewRecordHandler crea un nuevo RecordHandler.
func NewRecordHandler(service *application.RecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// ---------------- Handlers ----------------

// CreateRecord endpoint POST /records
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Priority int    `json:"priority"`
		Notes    string `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	record, err := h.service.CreateRecord(c.Request.Context(), req.Name, req.Priority, req.Notes)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ListRecords endpoint GET /records con filtro, paginación y ordenamiento.
// El query param "filter" acepta texto JSON ({"name":"Bob"}) o el formato
// con llaves ({name=Bob,priority=gte:2}). Un JSON malformado responde 400;
// los campos no consultables se descartan sin error.
func (h *RecordHandler) ListRecords(c *gin.Context) {
	rawFilter := c.Query("filter")

	sortParam := sharedQuery.Sort{Field: "createdAt", Desc: true}
	if sortField := c.Query("sort_field"); sortField != "" {
		sortParam.Field = sortField
		sortParam.Desc = c.Query("sort_desc") == "true"
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	pagination := sharedQuery.OffsetPagination{Limit: limit, Offset: offset}

	records, err := h.service.ListRecords(c.Request.Context(), rawFilter, pagination, sortParam)
	if err != nil {
		if errors.Is(err, sharedDomain.ErrInvalidFilterFormat) {
			utils.SendBadRequest(c, err.Error())
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetRecord endpoint GET /records/:id
func (h *RecordHandler) GetRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid record id")
		return
	}

	record, err := h.service.GetRecord(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, recordDomain.ErrRecordNotFound) {
			utils.SendNotFound(c, "record not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, record)
}

// UpdateRecord endpoint PUT /records/:id
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid record id")
		return
	}

	// Usamos punteros para que los campos sean opcionales en el JSON
	var req struct {
		Name     *string `json:"name,omitempty"`
		Priority *int    `json:"priority,omitempty"`
		Notes    *string `json:"notes,omitempty"`
		Status   *string `json:"status,omitempty"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	record, err := h.service.GetRecord(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, recordDomain.ErrRecordNotFound) {
			utils.SendNotFound(c, "record not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	name := record.Name
	priority := record.Priority
	notes := record.Notes
	if req.Name != nil {
		name = *req.Name
	}
	if req.Priority != nil {
		priority = *req.Priority
	}
	if req.Notes != nil {
		notes = *req.Notes
	}
	record.Update(name, priority, notes)

	if req.Status != nil {
		switch recordDomain.RecordStatus(*req.Status) {
		case recordDomain.RecordActive:
			record.Activate()
		case recordDomain.RecordArchived:
			record.Archive()
		default:
			utils.SendBadRequest(c, "invalid record status")
			return
		}
	}

	if err := h.service.UpdateRecord(c.Request.Context(), record); err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteRecord endpoint DELETE /records/:id
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid record id")
		return
	}

	if err := h.service.DeleteRecord(c.Request.Context(), id); err != nil {
		if errors.Is(err, recordDomain.ErrRecordNotFound) {
			utils.SendNotFound(c, "record not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// SearchTrend endpoint GET /records/analytics/searches
// Devuelve el número de búsquedas auditadas por día en el rango pedido
// (query params start/end en formato 2006-01-02; por defecto, últimos 30 días).
func (h *RecordHandler) SearchTrend(c *gin.Context) {
	const dayLayout = "2006-01-02"

	end := time.Now().UTC()
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(dayLayout, raw)
		if err != nil {
			utils.SendBadRequest(c, "invalid end date")
			return
		}
		end = parsed.AddDate(0, 0, 1) // el día final es inclusivo
	}

	start := end.AddDate(0, 0, -30)
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(dayLayout, raw)
		if err != nil {
			utils.SendBadRequest(c, "invalid start date")
			return
		}
		start = parsed
	}

	trends, err := h.service.SearchTrend(c.Request.Context(), start, end)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	type trendResponse struct {
		Day      string `json:"day"`
		Searches int    `json:"searches"`
	}

	resp := make([]trendResponse, 0, len(trends))
	for _, trend := range trends {
		resp = append(resp, trendResponse{
			Day:      trend.Day.Format(dayLayout),
			Searches: trend.SearchCount,
		})
	}

	c.JSON(http.StatusOK, resp)
}
