package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"timesheet_app_go/db"
	"timesheet_app_go/logger"
	"timesheet_app_go/metrics"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Report names used in metrics, storage keys and routes
const (
	ReportPhases        = "phases"
	ReportBusinessLines = "business-lines"
	ReportDays          = "days"
	ReportUserHours     = "user-hours"
	ReportUserProjects  = "user-projects"
)

// reportRange reads ?from=&until=, falling back to ?preset=. ok is false when
// no range was given.
func reportRange(c echo.Context) (services.DateRange, bool, error) {
	r, ok, err := queryRange(c, "from", "until")
	if err != nil || ok {
		return r, ok, err
	}
	if preset := c.QueryParam("preset"); preset != "" {
		r, ok = services.PresetRange(preset, time.Now())
		if !ok {
			return r, false, echo.NewHTTPError(http.StatusBadRequest, "Unknown preset "+preset)
		}
		return r, true, nil
	}
	return r, false, nil
}

func reportFilter(c echo.Context) services.ReportFilter {
	return services.ReportFilter{
		EntityID:       queryUint(c, "entity_id"),
		BusinessLineID: queryUint(c, "business_line_id"),
		ProjectID:      queryUint(c, "project_id"),
		UserID:         queryUint(c, "user_id"),
	}
}

func emptyPivot(columns []services.PivotColumn) *services.PivotMatrix {
	if columns == nil {
		columns = []services.PivotColumn{}
	}
	return &services.PivotMatrix{
		Columns:      columns,
		Rows:         []services.PivotRow{},
		ColumnTotals: make([]float64, len(columns)),
	}
}

// userHoursResponse is the day matrix plus the same cells keyed by user id and date
type userHoursResponse struct {
	*services.UserDayMatrix
	ByUser map[uint]services.UserDays `json:"by_user"`
}

func emptyDayMatrix() *services.UserDayMatrix {
	return &services.UserDayMatrix{
		DayKeys:   []string{},
		Rows:      []services.UserDayRow{},
		DayTotals: []float64{},
	}
}

// GetPhaseReport returns hours per project and phase
func GetPhaseReport(c echo.Context) error {
	r, ok, err := reportRange(c)
	if err != nil {
		return err
	}
	if !ok {
		return c.JSON(http.StatusOK, emptyPivot(services.PhaseColumns()))
	}

	m, err := services.PhaseReport(db.DB, r, reportFilter(c))
	if err != nil {
		return handleServiceError(c, err, "build phase report")
	}
	metrics.RecordReport(ReportPhases, "json")
	return c.JSON(http.StatusOK, m)
}

// GetBusinessLineReport returns hours per user and business line, five users per page
func GetBusinessLineReport(c echo.Context) error {
	r, ok, err := reportRange(c)
	if err != nil {
		return err
	}
	page := queryPagination(c, services.BusinessLineReportPageSize)
	page.PerPage = services.BusinessLineReportPageSize

	if !ok {
		_, columns, err := services.BusinessLineColumns(db.DB)
		if err != nil {
			return handleServiceError(c, err, "build business line report")
		}
		return c.JSON(http.StatusOK, ListResponse{Data: emptyPivot(columns), Meta: page.Meta(0)})
	}

	m, total, err := services.BusinessLineReport(db.DB, r, reportFilter(c), page)
	if err != nil {
		return handleServiceError(c, err, "build business line report")
	}
	metrics.RecordReport(ReportBusinessLines, "json")
	return c.JSON(http.StatusOK, ListResponse{Data: m, Meta: page.Meta(total)})
}

// GetUserHoursReport returns the user x day matrix with per-project drill-down
func GetUserHoursReport(c echo.Context) error {
	r, ok, err := reportRange(c)
	if err != nil {
		return err
	}
	if !ok {
		return c.JSON(http.StatusOK, userHoursResponse{UserDayMatrix: emptyDayMatrix(), ByUser: map[uint]services.UserDays{}})
	}

	m, err := services.DayReport(db.DB, r, reportFilter(c))
	if err != nil {
		return handleServiceError(c, err, "build user hours report")
	}
	metrics.RecordReport(ReportUserHours, "json")
	return c.JSON(http.StatusOK, userHoursResponse{UserDayMatrix: m, ByUser: m.ByUser()})
}

// GetUserDayDetail lists one user's entries for one day, ?user_id=&date=
func GetUserDayDetail(c echo.Context) error {
	userID := queryUint(c, "user_id")
	date, err := queryDate(c, "date")
	if err != nil {
		return err
	}
	if userID == 0 || date == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and date are required")
	}

	entries, err := services.DayDetail(db.DB, userID, *date)
	if err != nil {
		return handleServiceError(c, err, "fetch day detail")
	}
	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":    services.FormatDate(*date),
		"total":   total,
		"entries": entries,
	})
}

// GetUserProjectReport returns hours per user and project
func GetUserProjectReport(c echo.Context) error {
	r, ok, err := reportRange(c)
	if err != nil {
		return err
	}
	if !ok {
		return c.JSON(http.StatusOK, emptyPivot(nil))
	}

	m, err := services.UserProjectReport(db.DB, r, reportFilter(c))
	if err != nil {
		return handleServiceError(c, err, "build user project report")
	}
	metrics.RecordReport(ReportUserProjects, "json")
	return c.JSON(http.StatusOK, m)
}

// GetReportPresets lists the named ranges resolved against today
func GetReportPresets(c echo.Context) error {
	now := time.Now()
	out := map[string]map[string]string{}
	for _, name := range []string{services.PresetCurrentMonth, services.PresetPreviousMonth, services.PresetCurrentWeek, services.PresetLast30Days} {
		r, _ := services.PresetRange(name, now)
		out[name] = map[string]string{"from": services.FormatDate(r.From), "until": services.FormatDate(r.Until)}
	}
	return c.JSON(http.StatusOK, out)
}

// reportExport builds one workbook for a range
type reportExport struct {
	name     string
	filename func(r services.DateRange, now time.Time) string
	build    func(r services.DateRange, filter services.ReportFilter) (*bytes.Buffer, error)
}

var reportExports = map[string]reportExport{
	ReportPhases: {
		name: ReportPhases,
		filename: func(_ services.DateRange, now time.Time) string {
			return "reporte_horas_fase_" + services.FormatDate(now) + ".xlsx"
		},
		build: func(r services.DateRange, filter services.ReportFilter) (*bytes.Buffer, error) {
			m, err := services.PhaseReport(db.DB, r, filter)
			if err != nil {
				return nil, err
			}
			return services.ExportPhaseReport(m)
		},
	},
	ReportBusinessLines: {
		name: ReportBusinessLines,
		filename: func(_ services.DateRange, now time.Time) string {
			return "reporte_horas_usuario_linea_" + services.FormatDate(now) + ".xlsx"
		},
		build: func(r services.DateRange, filter services.ReportFilter) (*bytes.Buffer, error) {
			m, _, err := services.BusinessLineReport(db.DB, r, filter, services.Pagination{})
			if err != nil {
				return nil, err
			}
			return services.ExportBusinessLineReport(m)
		},
	},
	ReportDays: {
		name: ReportDays,
		filename: func(r services.DateRange, _ time.Time) string {
			return "reporte_horas_dia_" + services.FormatDate(r.From) + "_" + services.FormatDate(r.Until) + ".xlsx"
		},
		build: func(r services.DateRange, filter services.ReportFilter) (*bytes.Buffer, error) {
			m, err := services.DayReport(db.DB, r, filter)
			if err != nil {
				return nil, err
			}
			return services.ExportDayReport(m)
		},
	},
	ReportUserHours: {
		name: ReportUserHours,
		filename: func(r services.DateRange, _ time.Time) string {
			return "reporte_horas_usuario_" + services.FormatDate(r.From) + "_" + services.FormatDate(r.Until) + ".xlsx"
		},
		build: func(r services.DateRange, filter services.ReportFilter) (*bytes.Buffer, error) {
			m, err := services.DayReport(db.DB, r, filter)
			if err != nil {
				return nil, err
			}
			return services.ExportUserHoursReport(m)
		},
	},
}

// DownloadReportHandler streams a report workbook, /reports/<name>.xlsx
func DownloadReportHandler(c echo.Context) error {
	export, ok := reportExports[strings.TrimSuffix(c.Param("report"), ".xlsx")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown report")
	}

	r, ok, err := reportRange(c)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "A date range (from, until) is required to export")
	}

	buf, err := export.build(r, reportFilter(c))
	if err != nil {
		return handleServiceError(c, err, "generate report")
	}
	metrics.RecordReport(export.name, "xlsx")

	event := services.AuditEvent{
		Action:       models.AuditActionExport,
		ResourceType: "Report",
		ResourceID:   export.name,
		Description:  fmt.Sprintf("Exported %s report %s to %s", export.name, services.FormatDate(r.From), services.FormatDate(r.Until)),
	}
	if getConfig(c).ReportArchive {
		archived, err := services.ArchiveReport(c.Request().Context(), services.Archives, export.name, r, buf.Bytes())
		if err != nil {
			logger.Log.Warn("Failed to archive report", zap.String("report", export.name), zap.Error(err))
		} else {
			event.NewValues = map[string]string{"archive_key": archived.Key}
		}
	}
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), event)

	filename := export.filename(r, time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Blob(http.StatusOK, services.XLSXContentType, buf.Bytes())
}
