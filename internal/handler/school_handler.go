package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"schoolregistry/internal/model"
	"schoolregistry/internal/repository"
	"schoolregistry/internal/service"
)

// SchoolHandler handles school registry endpoints.
type SchoolHandler struct {
	svc service.SchoolService
}

// NewSchoolHandler creates a new school handler.
func NewSchoolHandler(svc service.SchoolService) *SchoolHandler {
	return &SchoolHandler{svc: svc}
}

// SchoolListResponse is a filtered school listing.
type SchoolListResponse struct {
	Schools []model.School `json:"schools"`
	Total   int            `json:"total"`
}

// CreateSchoolRequest represents a new school.
type CreateSchoolRequest struct {
	Name       string             `json:"name" validate:"required"`
	Latitude   decimal.Decimal    `json:"latitude"`
	Longitude  decimal.Decimal    `json:"longitude"`
	Contact    model.Contact      `json:"contact"`
	Province   string             `json:"province" validate:"required"`
	District   string             `json:"district" validate:"required"`
	Palika     string             `json:"palika"`
	Status     model.SchoolStatus `json:"status" validate:"omitempty,oneof=online offline maintenance"`
	LastSeen   *time.Time         `json:"lastSeen"`
	LoomaID    string             `json:"loomaId"`
	LoomaCount int                `json:"loomaCount" validate:"gte=0"`
	Looma      model.LoomaInfo    `json:"looma"`
}

// UpdateStatusRequest represents a status change.
type UpdateStatusRequest struct {
	Status model.SchoolStatus `json:"status" validate:"required,oneof=online offline maintenance"`
}

// ListSchools godoc
// @Summary List schools or return status counts
// @Tags schools
// @Produce json
// @Security SessionCookie
// @Param search query string false "Substring of name, province, district or palika"
// @Param province query string false "Province"
// @Param status query string false "online, offline or maintenance"
// @Param stats query bool false "Return counts per status instead of schools"
// @Success 200 {object} SchoolListResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /schools [get]
func (h *SchoolHandler) ListSchools(c echo.Context) error {
	ctx := c.Request().Context()

	if raw := c.QueryParam("stats"); raw != "" {
		wantStats, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest("stats must be a boolean")
		}
		if wantStats {
			stats, err := h.svc.Stats(ctx)
			if err != nil {
				return ErrorHTTP(err)
			}
			return c.JSON(http.StatusOK, stats)
		}
	}

	schools, err := h.svc.List(ctx, repository.SchoolFilter{
		Search:   c.QueryParam("search"),
		Province: c.QueryParam("province"),
		Status:   model.SchoolStatus(c.QueryParam("status")),
	})
	if err != nil {
		return ErrorHTTP(err)
	}
	if schools == nil {
		schools = []model.School{}
	}
	return c.JSON(http.StatusOK, SchoolListResponse{Schools: schools, Total: len(schools)})
}

// GetSchool godoc
// @Summary Get school by id
// @Tags schools
// @Produce json
// @Security SessionCookie
// @Param id path string true "School ID"
// @Success 200 {object} model.School
// @Failure 404 {object} errors.ErrorResponse
// @Router /schools/{id} [get]
func (h *SchoolHandler) GetSchool(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	school, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return ErrorHTTP(err)
	}
	return c.JSON(http.StatusOK, school)
}

// CreateSchool godoc
// @Summary Create school
// @Tags schools
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param school body CreateSchoolRequest true "School payload"
// @Success 201 {object} model.School
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /schools [post]
func (h *SchoolHandler) CreateSchool(c echo.Context) error {
	var req CreateSchoolRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	created, err := h.svc.Create(c.Request().Context(), &model.School{
		Name:       req.Name,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Contact:    req.Contact,
		Province:   req.Province,
		District:   req.District,
		Palika:     req.Palika,
		Status:     req.Status,
		LastSeen:   req.LastSeen,
		LoomaID:    req.LoomaID,
		LoomaCount: req.LoomaCount,
		Looma:      req.Looma,
	})
	if err != nil {
		return ErrorHTTP(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateSchool godoc
// @Summary Partially update school
// @Description Only fields present in the body change, including fields of the nested contact and looma objects.
// @Tags schools
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path string true "School ID"
// @Param school body service.SchoolPatch true "Fields to change"
// @Success 200 {object} model.School
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /schools/{id} [put]
func (h *SchoolHandler) UpdateSchool(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch service.SchoolPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest("invalid request body")
	}

	school, err := h.svc.Update(c.Request().Context(), id, patch)
	if err != nil {
		return ErrorHTTP(err)
	}
	return c.JSON(http.StatusOK, school)
}

// UpdateSchoolStatus godoc
// @Summary Change school status
// @Tags schools
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path string true "School ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} model.School
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /schools/{id}/status [patch]
func (h *SchoolHandler) UpdateSchoolStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	school, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return ErrorHTTP(err)
	}
	return c.JSON(http.StatusOK, school)
}

// DeleteSchool godoc
// @Summary Delete school
// @Tags schools
// @Security SessionCookie
// @Param id path string true "School ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /schools/{id} [delete]
func (h *SchoolHandler) DeleteSchool(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return ErrorHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
