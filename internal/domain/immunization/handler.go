package immunization

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
	"github.com/healthtrack/healthtrack/internal/platform/auth"
	"github.com/healthtrack/healthtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleViewer))
	read.GET("/children", h.ListChildren)
	read.GET("/children/:id", h.GetChild)
	read.GET("/children/:id/immunizations", h.ListDoses)
	read.GET("/children/:id/recommendations", h.Recommendations)

	write := api.Group("", auth.RequireRole(auth.RoleClinician))
	write.POST("/children", h.CreateChild)
	write.PUT("/children/:id", h.UpdateChild)
	write.DELETE("/children/:id", h.DeleteChild)
	write.POST("/children/:id/immunizations", h.RecordDose)
	write.DELETE("/children/:id/immunizations/:doseId", h.DeleteDose)
}

type childRequest struct {
	Name        string   `json:"name"`
	DateOfBirth string   `json:"date_of_birth"`
	Gender      *string  `json:"gender"`
	WeightKg    *float64 `json:"weight_kg"`
	HeightCm    *float64 `json:"height_cm"`
	Note        *string  `json:"note"`
}

func (r childRequest) child() (*Child, error) {
	dob, err := parseDate("date_of_birth", r.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &Child{
		Name:        r.Name,
		DateOfBirth: dob,
		Gender:      r.Gender,
		WeightKg:    r.WeightKg,
		HeightCm:    r.HeightCm,
		Note:        r.Note,
	}, nil
}

type doseRequest struct {
	VaccineID      string  `json:"vaccine_id"`
	DoseNumber     int     `json:"dose_number"`
	AdministeredOn *string `json:"administered_on"`
	Notes          *string `json:"notes"`
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", field, s)
	}
	return t, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// httpError maps service errors to responses. Errors the service did not
// classify are internal.
func httpError(err error, notFound string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, ErrUnknownItem):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Child --

func (h *Handler) CreateChild(c echo.Context) error {
	var req childRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	child, err := req.child()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateChild(c.Request().Context(), child); err != nil {
		return httpError(err, "child not found")
	}
	return c.JSON(http.StatusCreated, child)
}

func (h *Handler) GetChild(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	child, err := h.svc.GetChild(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "child not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, child)
}

func (h *Handler) ListChildren(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListChildren(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateChild(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req childRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	child, err := req.child()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	child.ID = id
	if err := h.svc.UpdateChild(c.Request().Context(), child); err != nil {
		return httpError(err, "child not found")
	}
	return c.JSON(http.StatusOK, child)
}

func (h *Handler) DeleteChild(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteChild(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "child not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Dose --

func (h *Handler) RecordDose(c echo.Context) error {
	childID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req doseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d := &Dose{ChildID: childID, VaccineID: req.VaccineID, DoseNumber: req.DoseNumber, Notes: req.Notes}
	if req.AdministeredOn != nil {
		on, err := parseDate("administered_on", *req.AdministeredOn)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		d.AdministeredOn = &on
	}
	if err := h.svc.RecordDose(c.Request().Context(), d); err != nil {
		return httpError(err, "child not found")
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDoses(c echo.Context) error {
	childID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	doses, err := h.svc.ListDoses(c.Request().Context(), childID)
	if err != nil {
		return httpError(err, "child not found")
	}
	return c.JSON(http.StatusOK, doses)
}

func (h *Handler) DeleteDose(c echo.Context) error {
	childID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	doseID, err := pathID(c, "doseId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDose(c.Request().Context(), childID, doseID); err != nil {
		return httpError(err, "immunization not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Recommendations --

func (h *Handler) Recommendations(c echo.Context) error {
	childID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	q, err := eligibility.QueryFromValues(c.QueryParam, h.svc.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Recommendations(c.Request().Context(), childID, q)
	if err != nil {
		return httpError(err, "child not found")
	}
	return c.JSON(http.StatusOK, res)
}
