package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

const (
	// MinImportHours and MaxImportHours bound the hours column of an import row (inclusive)
	MinImportHours = 0.5
	MaxImportHours = 24.0

	// maxReportedImportErrors caps the detailed messages of an import summary
	maxReportedImportErrors = 10

	// TemplateFilename is the download name of the import template
	TemplateFilename = "plantilla_registros_tiempo.csv"
)

// plainDecimal matches an optional sign, digits and at most one '.' or ',' separator
var plainDecimal = regexp.MustCompile(`^[+-]?(\d+([.,]\d*)?|[.,]\d+)$`)

// ImportHeaders are the required columns of a time entry import file
var ImportHeaders = []string{"project_id", "user_id", "date", "hours", "phase", "description"}

// Import-related errors
var (
	ErrMissingHeaders = errors.New("missing required headers")
	ErrEmptyImport    = errors.New("import file is empty")
	ErrImportAborted  = errors.New("import aborted")
)

// HeaderError reports the required headers absent from an import file
type HeaderError struct {
	Missing []string
	Found   []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: %s (found: %s)", ErrMissingHeaders, strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

func (e *HeaderError) Unwrap() error { return ErrMissingHeaders }

// ImportResult contains the summary of the import process
type ImportResult struct {
	TotalRows   int      `json:"total_rows"`
	SuccessRows int      `json:"success_rows"`
	ErrorRows   int      `json:"error_rows"`
	Errors      []string `json:"-"`
}

// Messages returns at most ten row errors, followed by a "+N more" line when more were found
func (r *ImportResult) Messages() []string {
	if len(r.Errors) <= maxReportedImportErrors {
		return append([]string{}, r.Errors...)
	}
	out := append([]string{}, r.Errors[:maxReportedImportErrors]...)
	return append(out, fmt.Sprintf("+%d more", len(r.Errors)-maxReportedImportErrors))
}

// importRow is a parsed, valid row ready for insertion
type importRow struct {
	entry models.TimeEntry
}

// ImportTimeEntries parses a delimited file of time entries and inserts the valid
// rows in a single transaction. Invalid rows are skipped and reported; a database
// failure rolls back the whole file.
func ImportTimeEntries(ctx context.Context, db *gorm.DB, file io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyImport
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rawHeaders, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	columns, err := mapImportHeaders(rawHeaders)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []string{}}
	lookup := newImportLookup()

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for line := 2; ; line++ {
			record, err := reader.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("row %d: %w", line, err)
			}
			if isBlankRecord(record) {
				continue
			}

			result.TotalRows++
			row, problems, err := validateImportRow(tx, lookup, columns, record)
			if err != nil {
				return err
			}
			if len(problems) > 0 {
				result.ErrorRows++
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", line, strings.Join(problems, "; ")))
				continue
			}

			if err := tx.Create(&row.entry).Error; err != nil {
				return fmt.Errorf("row %d: failed to insert time entry: %w", line, err)
			}
			result.SuccessRows++
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImportAborted, err)
	}

	return result, nil
}

// DetectDelimiter returns ';' when the first line contains one, ',' otherwise
func DetectDelimiter(data []byte) rune {
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.ContainsRune(firstLine, ';') {
		return ';'
	}
	return ','
}

// NormalizeHeader trims, lowercases and strips straight and curly quotes from a header cell
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.NewReplacer(`"`, "", "'", "", "“", "", "”", "", "‘", "", "’", "").Replace(h)
	return strings.ToLower(strings.TrimSpace(h))
}

func mapImportHeaders(raw []string) (map[string]int, error) {
	columns := make(map[string]int, len(raw))
	found := make([]string, 0, len(raw))
	for i, h := range raw {
		name := NormalizeHeader(h)
		found = append(found, name)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	var missing []string
	for _, required := range ImportHeaders {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing, Found: found}
	}
	return columns, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// importLookup caches reference checks across the rows of one file
type importLookup struct {
	projects   map[uint]bool
	users      map[uint]bool
	milestones map[uint][]models.ProjectMilestone
}

func newImportLookup() *importLookup {
	return &importLookup{
		projects:   map[uint]bool{},
		users:      map[uint]bool{},
		milestones: map[uint][]models.ProjectMilestone{},
	}
}

func (l *importLookup) exists(tx *gorm.DB, cache map[uint]bool, model interface{}, id uint) (bool, error) {
	if ok, seen := cache[id]; seen {
		return ok, nil
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	cache[id] = n > 0
	return n > 0, nil
}

func (l *importLookup) projectMilestones(tx *gorm.DB, projectID uint) ([]models.ProjectMilestone, error) {
	if ms, ok := l.milestones[projectID]; ok {
		return ms, nil
	}
	ms, err := listMilestones(tx, projectID)
	if err != nil {
		return nil, err
	}
	l.milestones[projectID] = ms
	return ms, nil
}

// validateImportRow runs every check on a record and collects all violations.
// The returned error is reserved for database failures.
func validateImportRow(tx *gorm.DB, lookup *importLookup, columns map[string]int, record []string) (*importRow, []string, error) {
	field := func(name string) string {
		i := columns[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var problems []string
	for _, name := range []string{"project_id", "user_id", "date", "hours", "phase"} {
		if field(name) == "" {
			problems = append(problems, fmt.Sprintf("%s is required", name))
		}
	}

	row := &importRow{}

	if v := field("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("project %q does not exist", v))
		} else {
			ok, err := lookup.exists(tx, lookup.projects, &models.Project{}, uint(id))
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				problems = append(problems, fmt.Sprintf("project %d does not exist", id))
			}
			row.entry.ProjectID = uint(id)
		}
	}

	if v := field("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("user %q does not exist", v))
		} else {
			ok, err := lookup.exists(tx, lookup.users, &models.User{}, uint(id))
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				problems = append(problems, fmt.Sprintf("user %d does not exist", id))
			}
			row.entry.UserID = uint(id)
		}
	}

	if v := field("date"); v != "" {
		date, err := ParseImportDate(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid date %q, expected DD/MM/YYYY or YYYY-MM-DD", v))
		}
		row.entry.Date = date
	}

	if v := field("hours"); v != "" {
		hours, ok := parseImportHours(v)
		if !ok || hours < MinImportHours || hours > MaxImportHours {
			problems = append(problems, fmt.Sprintf("hours must be a number between %.1f and %.0f (got %q)", MinImportHours, MaxImportHours, v))
		}
		row.entry.Hours = hours
	}

	if v := field("phase"); v != "" {
		phase := strings.ToLower(v)
		if !models.IsValidPhase(phase) {
			problems = append(problems, fmt.Sprintf("invalid phase %q, expected one of %s", v, strings.Join(models.Phases, ", ")))
		}
		row.entry.Phase = phase
	}

	if len(problems) > 0 {
		return nil, problems, nil
	}

	row.entry.Description = SanitizeText(field("description"))

	milestones, err := lookup.projectMilestones(tx, row.entry.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	row.entry.MilestoneID = milestoneForDate(milestones, row.entry.Date)

	return row, nil, nil
}

// parseImportHours accepts plain decimal numbers only, with '.' or ',' as separator
func parseImportHours(v string) (float64, bool) {
	if !plainDecimal.MatchString(v) {
		return 0, false
	}
	hours, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, false
	}
	return hours, true
}

// importTemplateRows are the example rows of the downloadable template
var importTemplateRows = [][]string{
	{"1", "1", "01/03/2024", "8", "inicio", "Reunión de arranque con el cliente"},
	{"1", "1", "04/03/2024", "6.5", "planificacion", "Elaboración del plan de trabajo"},
	{"1", "1", "05/03/2024", "7", "ejecucion", "Desarrollo de entregables"},
	{"1", "1", "06/03/2024", "2", "control", "Revisión de avance"},
	{"1", "1", "07/03/2024", "1.5", "cierre", "Acta de cierre"},
}

// ImportTemplate writes the semicolon-delimited import template with five example rows
func ImportTemplate(w io.Writer) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	cw.Comma = ';'

	if err := cw.Write(ImportHeaders); err != nil {
		return err
	}
	if err := cw.WriteAll(importTemplateRows); err != nil {
		return err
	}
	return bw.Flush()
}
