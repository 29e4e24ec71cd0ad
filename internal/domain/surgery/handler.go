package surgery

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
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/patients/:id/procedures", h.ListProcedures)
	read.GET("/patients/:id/recommendations", h.Recommendations)
	read.GET("/patients/:id/risk", h.Risk)

	write := api.Group("", auth.RequireRole(auth.RoleClinician))
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.DELETE("/patients/:id", h.DeletePatient)
	write.POST("/patients/:id/procedures", h.RecordProcedure)
	write.DELETE("/patients/:id/procedures/:recordId", h.DeleteProcedure)
}

type patientRequest struct {
	Name          string   `json:"name"`
	DateOfBirth   string   `json:"date_of_birth"`
	Gender        *string  `json:"gender"`
	WeightKg      *float64 `json:"weight_kg"`
	HeightCm      *float64 `json:"height_cm"`
	BloodPressure *string  `json:"blood_pressure"`
	Note          *string  `json:"note"`
}

func (r patientRequest) patient() (*Patient, error) {
	dob, err := parseDate("date_of_birth", r.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &Patient{
		Name:          r.Name,
		DateOfBirth:   dob,
		Gender:        r.Gender,
		WeightKg:      r.WeightKg,
		HeightCm:      r.HeightCm,
		BloodPressure: r.BloodPressure,
		Note:          r.Note,
	}, nil
}

type procedureRequest struct {
	ProcedureID string  `json:"procedure_id"`
	Sequence    int     `json:"sequence"`
	PerformedOn *string `json:"performed_on"`
	Notes       *string `json:"notes"`
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

// -- Patient --

func (h *Handler) CreatePatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := req.patient()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePatient(c.Request().Context(), p); err != nil {
		return httpError(err, "patient not found")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := req.patient()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), p); err != nil {
		return httpError(err, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Procedure records --

func (h *Handler) RecordProcedure(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req procedureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r := &ProcedureRecord{PatientID: patientID, ProcedureID: req.ProcedureID, Sequence: req.Sequence, Notes: req.Notes}
	if req.PerformedOn != nil {
		on, err := parseDate("performed_on", *req.PerformedOn)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		r.PerformedOn = &on
	}
	if err := h.svc.RecordProcedure(c.Request().Context(), r); err != nil {
		return httpError(err, "patient not found")
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListProcedures(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	records, err := h.svc.ListProcedures(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err, "patient not found")
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) DeleteProcedure(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	recordID, err := pathID(c, "recordId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProcedure(c.Request().Context(), patientID, recordID); err != nil {
		return httpError(err, "procedure record not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Evaluation --

func (h *Handler) Recommendations(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	q, err := eligibility.QueryFromValues(c.QueryParam, h.svc.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Recommendations(c.Request().Context(), patientID, q)
	if err != nil {
		return httpError(err, "patient not found")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Risk(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	q, err := eligibility.QueryFromValues(c.QueryParam, h.svc.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Risk(c.Request().Context(), patientID, q.AsOf)
	if err != nil {
		return httpError(err, "patient not found")
	}
	return c.JSON(http.StatusOK, a)
}
