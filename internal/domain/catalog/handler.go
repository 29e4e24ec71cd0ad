package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
)

type Handler struct {
	vaccines   *Reference
	procedures *Reference
}

func NewHandler(vaccines, procedures *Reference) *Handler {
	return &Handler{vaccines: vaccines, procedures: procedures}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/vaccines", h.ListVaccines)
	api.GET("/vaccines/:id", h.GetVaccine)
	api.GET("/vaccine-schedule", h.VaccineSchedule)
	api.GET("/procedures", h.ListProcedures)
	api.GET("/procedures/:id", h.GetProcedure)
	api.GET("/procedure-schedule", h.ProcedureSchedule)
}

func (h *Handler) ListVaccines(c echo.Context) error {
	return c.JSON(http.StatusOK, h.vaccines.Catalog.Items())
}

func (h *Handler) GetVaccine(c echo.Context) error {
	return getItem(c, h.vaccines, "vaccine not found")
}

func (h *Handler) VaccineSchedule(c echo.Context) error {
	return c.JSON(http.StatusOK, scheduleView(h.vaccines))
}

func (h *Handler) ListProcedures(c echo.Context) error {
	return c.JSON(http.StatusOK, h.procedures.Catalog.Items())
}

func (h *Handler) GetProcedure(c echo.Context) error {
	return getItem(c, h.procedures, "procedure not found")
}

func (h *Handler) ProcedureSchedule(c echo.Context) error {
	return c.JSON(http.StatusOK, scheduleView(h.procedures))
}

func getItem(c echo.Context, ref *Reference, notFound string) error {
	item, ok := ref.Catalog.Lookup(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	return c.JSON(http.StatusOK, item)
}

type scheduleResponse struct {
	Kind     string                      `json:"kind"`
	Entries  []eligibility.ScheduleEntry `json:"entries"`
	Unparsed []string                    `json:"unparsed_labels,omitempty"`
}

func scheduleView(ref *Reference) scheduleResponse {
	return scheduleResponse{Kind: ref.Kind, Entries: ref.Schedule, Unparsed: ref.Unparsed}
}
