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

func loadBillingMilestone(c echo.Context) (*models.BillingMilestone, error) {
	project, err := loadProject(c)
	if err != nil {
		return nil, err
	}
	id, err := paramID(c, "billingId")
	if err != nil {
		return nil, err
	}
	milestone, err := services.GetBillingMilestoneByID(db.DB, project.ID, id)
	if err != nil {
		return nil, handleServiceError(c, err, "fetch billing milestone")
	}
	return milestone, nil
}

func auditBillingMilestone(c echo.Context, action models.AuditAction, b *models.BillingMilestone, description string, old, new interface{}) {
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       action,
		ResourceType: "BillingMilestone",
		ResourceID:   strconv.FormatUint(uint64(b.ID), 10),
		ResourceName: b.Description,
		Description:  description,
		OldValues:    old,
		NewValues:    new,
	})
}

// GetBillingMilestones lists a project's billing milestones with their summary
func GetBillingMilestones(c echo.Context) error {
	project, err := loadProject(c)
	if err != nil {
		return err
	}
	milestones, err := services.GetBillingMilestones(db.DB, project.ID)
	if err != nil {
		return handleServiceError(c, err, "fetch billing milestones")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": milestones})
}

// GetBillingSummary returns the total, invoiced and pending amounts of a project
func GetBillingSummary(c echo.Context) error {
	project, err := loadProject(c)
	if err != nil {
		return err
	}
	summary, err := services.GetBillingSummary(db.DB, project.ID)
	if err != nil {
		return handleServiceError(c, err, "fetch billing summary")
	}
	return c.JSON(http.StatusOK, summary)
}

// CreateBillingMilestone appends a billing milestone to a project
func CreateBillingMilestone(c echo.Context) error {
	project, err := loadProject(c)
	if err != nil {
		return err
	}
	var in services.BillingMilestoneInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	milestone, err := services.CreateBillingMilestone(db.DB, project.ID, in)
	if err != nil {
		return handleServiceError(c, err, "create billing milestone")
	}
	auditBillingMilestone(c, models.AuditActionCreate, milestone, "Billing milestone created for project "+project.Code, nil, milestone)
	return c.JSON(http.StatusCreated, milestone)
}

// UpdateBillingMilestone saves changes to a billing milestone
func UpdateBillingMilestone(c echo.Context) error {
	milestone, err := loadBillingMilestone(c)
	if err != nil {
		return err
	}
	old := *milestone

	var in services.BillingMilestoneInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if err := services.UpdateBillingMilestone(db.DB, milestone, in); err != nil {
		return handleServiceError(c, err, "update billing milestone")
	}
	auditBillingMilestone(c, models.AuditActionUpdate, milestone, "Billing milestone updated", old, milestone)
	return c.JSON(http.StatusOK, milestone)
}

// DeleteBillingMilestone removes a billing milestone
func DeleteBillingMilestone(c echo.Context) error {
	milestone, err := loadBillingMilestone(c)
	if err != nil {
		return err
	}
	if err := services.DeleteBillingMilestone(db.DB, milestone); err != nil {
		return handleServiceError(c, err, "delete billing milestone")
	}
	auditBillingMilestone(c, models.AuditActionDelete, milestone, "Billing milestone deleted", milestone, nil)
	return c.NoContent(http.StatusNoContent)
}
