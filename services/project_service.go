package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// Project-related errors
var (
	ErrProjectNotFound = errors.New("project not found")
)

// projectSortFields whitelists the sortable project columns
var projectSortFields = map[string]string{
	"name":          "projects.name",
	"code":          "projects.code",
	"category":      "projects.category",
	"state":         "projects.state",
	"phase":         "projects.phase",
	"start_date":    "projects.start_date",
	"end_date":      "projects.end_date",
	"real_progress": "projects.real_progress",
	"billing":       "projects.billing",
	"created_at":    "projects.created_at",
}

// ProjectFilters contains filter options for project listings
type ProjectFilters struct {
	Search         string
	Category       string
	State          string
	Phase          string
	EntityID       uint
	BusinessLineID uint
	StartDateFrom  *time.Time
	StartDateTo    *time.Time
	EndDateFrom    *time.Time
	EndDateTo      *time.Time
	SortField      string
	SortDirection  string
	// HoursRange switches total_hours to the hours booked inside the range
	HoursRange *DateRange
}

// ProjectListItem is a project row with its booked hours and derived metrics
type ProjectListItem struct {
	models.Project
	ProjectMetrics
	TotalHours        float64  `json:"total_hours"`
	TotalHoursInRange *float64 `json:"total_hours_in_range,omitempty"`
}

// ProjectUserHours is a project member with the hours they booked on the project
type ProjectUserHours struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	TotalHours float64 `json:"total_hours"`
}

// ProjectDetail is the full view of a project
type ProjectDetail struct {
	models.Project
	ProjectMetrics
	TotalHours float64            `json:"total_hours"`
	Members    []ProjectUserHours `json:"members"`
}

// ProjectInput is the payload to create or update a project
type ProjectInput struct {
	Name             string   `json:"name"`
	Code             string   `json:"code"`
	EntityID         uint     `json:"entity_id"`
	BusinessLineID   *uint    `json:"business_line_id"`
	Category         string   `json:"category"`
	State            string   `json:"state"`
	Phase            string   `json:"phase"`
	Validity         string   `json:"validity"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	EndDateProjected string   `json:"end_date_projected"`
	EndDateReal      string   `json:"end_date_real"`
	RealProgress     *float64 `json:"real_progress"`
	Billing          *float64 `json:"billing"`
	Description      string   `json:"description"`
	Comments         string   `json:"comments"`
	ReasonIncidence  string   `json:"reason_incidence"`
	StateRisk        string   `json:"state_risk"`
	DescriptionRisk  string   `json:"description_risk"`
	TypeRisk         string   `json:"type_risk"`
	Action           string   `json:"action"`
	ProjectManager   string   `json:"project_manager"`
	BusinessManager  string   `json:"business_manager"`
	ContractReceived bool     `json:"contract_received"`
	// UserIDs replaces the assigned users; nil leaves them unchanged
	UserIDs []uint `json:"user_ids"`
}

// validate checks the input and copies it onto p. excludeID skips the project
// itself in the code uniqueness check.
func (in ProjectInput) validate(db *gorm.DB, p *models.Project, excludeID uint) error {
	v := ValidationErrors{}
	v.requireString("name", in.Name, 255)
	v.requireString("code", in.Code, 50)

	if !v.Has("code") {
		var n int64
		q := db.Model(&models.Project{}).Where("code = ?", strings.TrimSpace(in.Code))
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			v.Add("code", "The code has already been taken.")
		}
	}

	if in.EntityID == 0 {
		v.Add("entity_id", "The entity_id field is required.")
	} else if ok, err := recordExists(db, &models.Entity{}, in.EntityID); err != nil {
		return err
	} else if !ok {
		v.Add("entity_id", "The selected entity_id is invalid.")
	}

	if in.BusinessLineID != nil {
		if ok, err := recordExists(db, &models.BusinessLine{}, *in.BusinessLineID); err != nil {
			return err
		} else if !ok {
			v.Add("business_line_id", "The selected business_line_id is invalid.")
		}
	}

	v.oneOf("category", in.Category, models.IsValidProjectCategory)
	v.oneOf("state", in.State, models.IsValidProjectState)
	v.oneOf("phase", in.Phase, models.IsValidProjectPhase)
	v.oneOf("reason_incidence", in.ReasonIncidence, models.IsValidIncidenceReason)
	v.oneOf("state_risk", in.StateRisk, models.IsValidRiskState)
	v.percent("real_progress", in.RealProgress)
	v.percent("billing", in.Billing)

	start := v.optionalDate("start_date", in.StartDate)
	end := v.optionalDate("end_date", in.EndDate)
	projected := v.optionalDate("end_date_projected", in.EndDateProjected)
	endReal := v.optionalDate("end_date_real", in.EndDateReal)
	v.notBefore("end_date", end, start, "start_date")
	v.notBefore("end_date_projected", projected, start, "start_date")
	v.notBefore("end_date_real", endReal, start, "start_date")

	for _, id := range in.UserIDs {
		if ok, err := recordExists(db, &models.User{}, id); err != nil {
			return err
		} else if !ok {
			v.Add("user_ids", "The selected user %d is invalid.", id)
		}
	}

	if err := v.Err(); err != nil {
		return err
	}

	p.Name = SanitizeText(in.Name)
	p.Code = strings.TrimSpace(in.Code)
	p.EntityID = in.EntityID
	p.BusinessLineID = in.BusinessLineID
	p.Category = in.Category
	p.State = in.State
	p.Phase = in.Phase
	p.Validity = SanitizeText(in.Validity)
	p.StartDate, p.EndDate, p.EndDateProjected, p.EndDateReal = start, end, projected, endReal
	p.RealProgress = in.RealProgress
	p.Billing = in.Billing
	p.Description = SanitizeText(in.Description)
	p.Comments = SanitizeText(in.Comments)
	p.ReasonIncidence = in.ReasonIncidence
	p.StateRisk = in.StateRisk
	p.DescriptionRisk = SanitizeText(in.DescriptionRisk)
	p.TypeRisk = SanitizeText(in.TypeRisk)
	p.Action = SanitizeText(in.Action)
	p.ProjectManager = SanitizeText(in.ProjectManager)
	p.BusinessManager = SanitizeText(in.BusinessManager)
	p.ContractReceived = in.ContractReceived
	return nil
}

// recordExists reports whether a row with the id exists for the model
func recordExists(db *gorm.DB, model interface{}, id uint) (bool, error) {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListProjects retrieves a filtered, sorted page of projects with their hours
func ListProjects(db *gorm.DB, filters ProjectFilters, page Pagination, now time.Time) ([]ProjectListItem, int64, error) {
	query := db.Model(&models.Project{})

	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("projects.name LIKE ? OR projects.code LIKE ?", pattern, pattern)
	}
	if filters.Category != "" {
		query = query.Where("projects.category = ?", filters.Category)
	}
	if filters.State != "" {
		query = query.Where("projects.state = ?", filters.State)
	}
	if filters.Phase != "" {
		query = query.Where("projects.phase = ?", filters.Phase)
	}
	if filters.EntityID != 0 {
		query = query.Where("projects.entity_id = ?", filters.EntityID)
	}
	if filters.BusinessLineID != 0 {
		query = query.Where("projects.business_line_id = ?", filters.BusinessLineID)
	}
	if filters.StartDateFrom != nil {
		query = query.Where("projects.start_date >= ?", *filters.StartDateFrom)
	}
	if filters.StartDateTo != nil {
		query = query.Where("projects.start_date <= ?", *filters.StartDateTo)
	}
	if filters.EndDateFrom != nil {
		query = query.Where("projects.end_date >= ?", *filters.EndDateFrom)
	}
	if filters.EndDateTo != nil {
		query = query.Where("projects.end_date <= ?", *filters.EndDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	err := query.
		Preload("Entity").
		Preload("BusinessLine").
		Order(projectOrder(filters.SortField, filters.SortDirection)).
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	totals, err := projectHours(db, ids, nil)
	if err != nil {
		return nil, 0, err
	}
	var inRange map[uint]float64
	if filters.HoursRange != nil {
		if inRange, err = projectHours(db, ids, filters.HoursRange); err != nil {
			return nil, 0, err
		}
	}

	items := make([]ProjectListItem, len(projects))
	for i, p := range projects {
		items[i] = ProjectListItem{
			Project:        p,
			ProjectMetrics: ComputeProjectMetrics(&projects[i], now),
			TotalHours:     totals[p.ID],
		}
		if inRange != nil {
			h := inRange[p.ID]
			items[i].TotalHoursInRange = &h
		}
	}
	return items, total, nil
}

func projectOrder(field, direction string) string {
	column, ok := projectSortFields[field]
	if !ok {
		column = projectSortFields["created_at"]
	}
	if strings.ToLower(direction) == "asc" {
		return column + " ASC"
	}
	if direction == "" && ok {
		return column + " ASC"
	}
	return column + " DESC"
}

// projectHours sums hours per project, optionally restricted to a date range
func projectHours(db *gorm.DB, projectIDs []uint, r *DateRange) (map[uint]float64, error) {
	out := make(map[uint]float64, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ProjectID uint
		Hours     float64
	}
	q := db.Model(&models.TimeEntry{}).
		Select("project_id, COALESCE(SUM(hours), 0) AS hours").
		Where("project_id IN ?", projectIDs)
	if r != nil {
		q = q.Where("date BETWEEN ? AND ?", r.From, r.Until)
	}
	if err := q.Group("project_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProjectID] = row.Hours
	}
	return out, nil
}

// GetProjectByID retrieves a project without relationships
func GetProjectByID(db *gorm.DB, id uint) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// GetProjectDetail retrieves a project with its entity, business line, members
// and milestones, plus derived metrics as of now.
func GetProjectDetail(db *gorm.DB, id uint, now time.Time) (*ProjectDetail, error) {
	var project models.Project
	err := db.Preload("Entity").
		Preload("BusinessLine").
		Preload("Users", func(db *gorm.DB) *gorm.DB { return db.Order("users.name ASC") }).
		Preload("BillingMilestones", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	if project.Milestones, err = GetProjectMilestones(db, project.ID); err != nil {
		return nil, err
	}

	var userHours []struct {
		UserID uint
		Hours  float64
	}
	if err := db.Model(&models.TimeEntry{}).
		Select("user_id, COALESCE(SUM(hours), 0) AS hours").
		Where("project_id = ?", project.ID).
		Group("user_id").
		Scan(&userHours).Error; err != nil {
		return nil, err
	}
	byUser := make(map[uint]float64, len(userHours))
	var total float64
	for _, uh := range userHours {
		byUser[uh.UserID] = uh.Hours
		total += uh.Hours
	}

	members := make([]ProjectUserHours, len(project.Users))
	for i, u := range project.Users {
		members[i] = ProjectUserHours{ID: u.ID, Name: u.Name, Email: u.Email, TotalHours: byUser[u.ID]}
	}

	return &ProjectDetail{
		Project:        project,
		ProjectMetrics: ComputeProjectMetrics(&project, now),
		TotalHours:     total,
		Members:        members,
	}, nil
}

// CreateProject validates the input and creates the project with its user assignments
func CreateProject(db *gorm.DB, in ProjectInput, actorID uint) (*models.Project, error) {
	project := &models.Project{}
	if err := in.validate(db, project, 0); err != nil {
		return nil, err
	}
	if actorID != 0 {
		project.CreatedBy = &actorID
		project.UpdatedBy = &actorID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return syncProjectUsers(tx, project, in.UserIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// UpdateProject validates the input and saves it over an existing project
func UpdateProject(db *gorm.DB, project *models.Project, in ProjectInput, actorID uint) error {
	if err := in.validate(db, project, project.ID); err != nil {
		return err
	}
	if actorID != 0 {
		project.UpdatedBy = &actorID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Users", "Milestones", "BillingMilestones", "Entity", "BusinessLine").Save(project).Error; err != nil {
			return err
		}
		return syncProjectUsers(tx, project, in.UserIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

func syncProjectUsers(tx *gorm.DB, project *models.Project, userIDs []uint) error {
	if userIDs == nil {
		return nil
	}
	users := make([]models.User, 0, len(userIDs))
	if len(userIDs) > 0 {
		if err := tx.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return err
		}
	}
	return tx.Model(project).Association("Users").Replace(users)
}

// DeleteProject removes a project with its milestones, billing milestones, time
// entries and user assignments.
func DeleteProject(db *gorm.DB, project *models.Project) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.TimeEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.ProjectMilestone{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.BillingMilestone{}).Error; err != nil {
			return err
		}
		if err := tx.Model(project).Association("Users").Clear(); err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
}

// ProjectStatistics summarizes projects by state, category and phase
type ProjectStatistics struct {
	Total      int64            `json:"total"`
	ByState    map[string]int64 `json:"by_state"`
	ByCategory map[string]int64 `json:"by_category"`
	ByPhase    map[string]int64 `json:"by_phase"`
	TotalHours float64          `json:"total_hours"`
}

// GetProjectStatistics counts projects per state, category and phase
func GetProjectStatistics(db *gorm.DB) (*ProjectStatistics, error) {
	stats := &ProjectStatistics{}
	if err := db.Model(&models.Project{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var err error
	if stats.ByState, err = countBy(db, &models.Project{}, "state"); err != nil {
		return nil, err
	}
	if stats.ByCategory, err = countBy(db, &models.Project{}, "category"); err != nil {
		return nil, err
	}
	if stats.ByPhase, err = countBy(db, &models.Project{}, "phase"); err != nil {
		return nil, err
	}
	if err := db.Model(&models.TimeEntry{}).Select("COALESCE(SUM(hours), 0)").Scan(&stats.TotalHours).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy counts rows of a model grouped by a column; empty values are skipped
func countBy(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	var rows []struct {
		Value string
		Count int64
	}
	err := db.Model(model).
		Select(column + " AS value, COUNT(*) AS count").
		Where(column + " IS NOT NULL AND " + column + " <> ''").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Value] = r.Count
	}
	return out, nil
}
