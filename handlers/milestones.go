package handlers

import (
	"net/http"
	"strconv"

	"timesheet_app_go/db"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

func loadProjectMilestone(c echo.Context) (*models.Project, *models.ProjectMilestone, error) {
	project, err := loadProject(c)
	if err != nil {
		return nil, nil, err
	}
	milestoneID, err := paramID(c, "milestoneId")
	if err != nil {
		return nil, nil, err
	}
	milestone, err := services.GetProjectMilestoneByID(db.DB, project.ID, milestoneID)
	if err != nil {
		return nil, nil, handleServiceError(c, err, "fetch milestone")
	}
	return project, milestone, nil
}

func auditMilestone(c echo.Context, action models.AuditAction, m *models.ProjectMilestone, description string, old, new interface{}) {
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       action,
		ResourceType: "ProjectMilestone",
		ResourceID:   strconv.FormatUint(uint64(m.ID), 10),
		ResourceName: m.Name,
		Description:  description,
		OldValues:    old,
		NewValues:    new,
	})
}

// GetProjectMilestones lists a project's milestones in order with their hours
func GetProjectMilestones(c echo.Context) error {
	project, err := loadProject(c)
	if err != nil {
		return err
	}
	milestones, err := services.GetProjectMilestones(db.DB, project.ID)
	if err != nil {
		return handleServiceError(c, err, "fetch milestones")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": milestones})
}

// GetProjectMilestone returns one milestone of a project
func GetProjectMilestone(c echo.Context) error {
	_, milestone, err := loadProjectMilestone(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, milestone)
}

// CreateProjectMilestone appends a milestone to a project
func CreateProjectMilestone(c echo.Context) error {
	project, err := loadProject(c)
	if err != nil {
		return err
	}
	var in services.MilestoneInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	milestone, err := services.CreateProjectMilestone(db.DB, project, in)
	if err != nil {
		return handleServiceError(c, err, "create milestone")
	}
	auditMilestone(c, models.AuditActionCreate, milestone, "Milestone created for project "+project.Code, nil, milestone)
	return c.JSON(http.StatusCreated, milestone)
}

// UpdateProjectMilestone saves changes to a milestone
func UpdateProjectMilestone(c echo.Context) error {
	project, milestone, err := loadProjectMilestone(c)
	if err != nil {
		return err
	}
	old := *milestone

	var in services.MilestoneInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if err := services.UpdateProjectMilestone(db.DB, project, milestone, in); err != nil {
		return handleServiceError(c, err, "update milestone")
	}
	auditMilestone(c, models.AuditActionUpdate, milestone, "Milestone updated", old, milestone)
	return c.JSON(http.StatusOK, milestone)
}

// DeleteProjectMilestone removes a milestone, untagging its time entries
func DeleteProjectMilestone(c echo.Context) error {
	_, milestone, err := loadProjectMilestone(c)
	if err != nil {
		return err
	}
	if err := services.DeleteProjectMilestone(db.DB, milestone); err != nil {
		return handleServiceError(c, err, "delete milestone")
	}
	auditMilestone(c, models.AuditActionDelete, milestone, "Milestone deleted", milestone, nil)
	return c.NoContent(http.StatusNoContent)
}
