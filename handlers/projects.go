package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"timesheet_app_go/db"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

func projectResourceID(p *models.Project) string {
	return strconv.FormatUint(uint64(p.ID), 10)
}

// loadProject resolves the :id path parameter to a project
func loadProject(c echo.Context) (*models.Project, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	project, err := services.GetProjectByID(db.DB, id)
	if err != nil {
		return nil, handleServiceError(c, err, "fetch project")
	}
	return project, nil
}

// GetProjects returns a filtered, paginated list of projects
func GetProjects(c echo.Context) error {
	filters := services.ProjectFilters{
		Search:         c.QueryParam("search"),
		Category:       c.QueryParam("category"),
		State:          c.QueryParam("state"),
		Phase:          c.QueryParam("phase"),
		EntityID:       queryUint(c, "entity_id"),
		BusinessLineID: queryUint(c, "business_line_id"),
		SortField:      c.QueryParam("sort_field"),
		SortDirection:  c.QueryParam("sort_direction"),
	}

	var err error
	if filters.StartDateFrom, err = queryDate(c, "start_date_from"); err != nil {
		return err
	}
	if filters.StartDateTo, err = queryDate(c, "start_date_to"); err != nil {
		return err
	}
	if filters.EndDateFrom, err = queryDate(c, "end_date_from"); err != nil {
		return err
	}
	if filters.EndDateTo, err = queryDate(c, "end_date_to"); err != nil {
		return err
	}

	r, ok, err := queryRange(c, "start_date", "end_date")
	if err != nil {
		return err
	}
	if ok {
		filters.HoursRange = &r
	}

	page := queryPagination(c, services.DefaultPerPage)
	projects, total, err := services.ListProjects(db.DB, filters, page, time.Now())
	if err != nil {
		return handleServiceError(c, err, "fetch projects")
	}

	return c.JSON(http.StatusOK, ListResponse{Data: projects, Meta: page.Meta(total)})
}

// GetProject returns a project with its members, milestones and derived metrics
func GetProject(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	detail, err := services.GetProjectDetail(db.DB, id, time.Now())
	if err != nil {
		return handleServiceError(c, err, "fetch project")
	}
	return c.JSON(http.StatusOK, detail)
}

// CreateProject validates and stores a new project
func CreateProject(c echo.Context) error {
	var in services.ProjectInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	user := middleware.GetCurrentUser(c)
	var actorID uint
	if user != nil {
		actorID = user.ID
	}

	project, err := services.CreateProject(db.DB, in, actorID)
	if err != nil {
		return handleServiceError(c, err, "create project")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionCreate,
		ResourceType: "Project",
		ResourceID:   projectResourceID(project),
		ResourceName: project.Name,
		Description:  "Project created",
		NewValues:    project,
	})

	detail, err := services.GetProjectDetail(db.DB, project.ID, time.Now())
	if err != nil {
		return handleServiceError(c, err, "fetch project")
	}
	return c.JSON(http.StatusCreated, detail)
}

// UpdateProject validates and saves changes to a project
func UpdateProject(c echo.Context) error {
	project, err := loadProject(c)
	if err != nil {
		return err
	}
	old := *project

	var in services.ProjectInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	var actorID uint
	if user := middleware.GetCurrentUser(c); user != nil {
		actorID = user.ID
	}
	if err := services.UpdateProject(db.DB, project, in, actorID); err != nil {
		return handleServiceError(c, err, "update project")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionUpdate,
		ResourceType: "Project",
		ResourceID:   projectResourceID(project),
		ResourceName: project.Name,
		Description:  "Project updated",
		OldValues:    old,
		NewValues:    project,
	})

	detail, err := services.GetProjectDetail(db.DB, project.ID, time.Now())
	if err != nil {
		return handleServiceError(c, err, "fetch project")
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteProject removes a project and everything booked against it
func DeleteProject(c echo.Context) error {
	project, err := loadProject(c)
	if err != nil {
		return err
	}
	if err := services.DeleteProject(db.DB, project); err != nil {
		return handleServiceError(c, err, "delete project")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionDelete,
		ResourceType: "Project",
		ResourceID:   projectResourceID(project),
		ResourceName: project.Name,
		Description:  "Project deleted",
		OldValues:    project,
	})

	return c.NoContent(http.StatusNoContent)
}

// GetProjectStatistics returns project counts by state, category and phase
func GetProjectStatistics(c echo.Context) error {
	stats, err := services.GetProjectStatistics(db.DB)
	if err != nil {
		return handleServiceError(c, err, "fetch project statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

// ExportProjectsHandler downloads projects as CSV, optionally restricted by ?ids=1,2
func ExportProjectsHandler(c echo.Context) error {
	ids, err := services.ParseIDList(c.QueryParam("ids"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ids parameter")
	}

	var buf bytes.Buffer
	count, err := services.ExportProjectsCSV(db.DB, &buf, ids)
	if err != nil {
		return handleServiceError(c, err, "export projects")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionExport,
		ResourceType: "Project",
		ResourceID:   "csv",
		Description:  fmt.Sprintf("Exported %d projects", count),
	})

	filename := services.ProjectExportFilename(time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
