package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timesheet_app_go/config"
	"timesheet_app_go/logger"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListResponse is a paginated collection
type ListResponse struct {
	Data interface{}       `json:"data"`
	Meta services.PageMeta `json:"meta"`
}

// getConfig returns the config injected by the server middleware
func getConfig(c echo.Context) *config.Config {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg
	}
	return &config.Config{Environment: "development"}
}

// validationFailed renders the 422 payload of a failed validation
func validationFailed(c echo.Context, v services.ValidationErrors) error {
	return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
		"message": "The given data was invalid.",
		"errors":  v,
	})
}

// handleServiceError translates service errors into HTTP responses
func handleServiceError(c echo.Context, err error, action string) error {
	var v services.ValidationErrors
	if errors.As(err, &v) {
		return validationFailed(c, v)
	}

	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrMilestoneNotFound),
		errors.Is(err, services.ErrBillingMilestoneNotFound),
		errors.Is(err, services.ErrTimeEntryNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrEntityNotFound),
		errors.Is(err, services.ErrArchiveNotFound):
		return echo.NewHTTPError(http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrInvalidArchiveKey):
		return echo.NewHTTPError(http.StatusBadRequest, capitalize(err.Error()))
	case errors.Is(err, services.ErrArchiveDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, capitalize(err.Error()))
	}

	logger.Log.Error("Request failed", zap.String("action", action), zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "Failed to "+action)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// paramID parses a positive numeric path parameter
func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// queryUint parses an optional numeric query parameter; empty or invalid values are 0
func queryUint(c echo.Context, name string) uint {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// queryDate parses an optional YYYY-MM-DD query parameter
func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := services.ParseDate(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+": expected YYYY-MM-DD")
	}
	return &t, nil
}

// queryRange reads a date range from two query parameters. ok is false when
// either bound is missing.
func queryRange(c echo.Context, fromParam, untilParam string) (services.DateRange, bool, error) {
	from, until := c.QueryParam(fromParam), c.QueryParam(untilParam)
	if from == "" || until == "" {
		return services.DateRange{}, false, nil
	}
	r, err := services.ParseDateRange(from, until)
	if err != nil {
		return services.DateRange{}, false, echo.NewHTTPError(http.StatusBadRequest, "Invalid date range: "+err.Error())
	}
	return r, true, nil
}

// queryPagination reads page and per_page
func queryPagination(c echo.Context, defaultPerPage int) services.Pagination {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	return services.NewPagination(page, perPage, defaultPerPage)
}

// bindJSON decodes the request body, answering 400 on malformed payloads
func bindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}
