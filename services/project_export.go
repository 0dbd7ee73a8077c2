package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// ProjectExportHeaders are the column titles of the project CSV export
var ProjectExportHeaders = []string{
	"ID", "Nombre", "Código", "Entidad", "Línea de Negocio",
	"Categoría", "Estado", "Fase", "Fecha Inicio", "Fecha Fin",
	"Progreso Real (%)", "Facturación (%)", "Usuarios Asignados",
}

// ProjectExportFilename names the export file for the given day
func ProjectExportFilename(now time.Time) string {
	return "proyectos-" + now.Format("2006-01-02") + ".csv"
}

// ParseIDList parses a comma-separated id list such as "1,2,3". Blank items are skipped.
func ParseIDList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// ExportProjectsCSV writes the projects as CSV, all of them when ids is empty
func ExportProjectsCSV(db *gorm.DB, w io.Writer, ids []uint) (int, error) {
	query := db.Preload("Entity").
		Preload("BusinessLine").
		Preload("Users", func(db *gorm.DB) *gorm.DB { return db.Order("users.name ASC") }).
		Order("projects.id ASC")
	if len(ids) > 0 {
		query = query.Where("projects.id IN ?", ids)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ProjectExportHeaders); err != nil {
		return 0, err
	}
	for i := range projects {
		if err := cw.Write(projectExportRow(&projects[i])); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(projects), cw.Error()
}

func projectExportRow(p *models.Project) []string {
	var entity, businessLine string
	if p.Entity != nil {
		entity = p.Entity.BusinessName
	}
	if p.BusinessLine != nil {
		businessLine = p.BusinessLine.Name
	}
	users := make([]string, len(p.Users))
	for i, u := range p.Users {
		users[i] = u.Name
	}

	return []string{
		strconv.FormatUint(uint64(p.ID), 10),
		p.Name,
		p.Code,
		entity,
		businessLine,
		p.Category,
		p.State,
		p.Phase,
		optionalDateString(p.StartDate),
		optionalDateString(p.EndDate),
		optionalFloatString(p.RealProgress),
		optionalFloatString(p.Billing),
		strings.Join(users, ", "),
	}
}

func optionalDateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}

func optionalFloatString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
