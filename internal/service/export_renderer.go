package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/export"
	"github.com/axelvallin-balder/schedule-builder-sub000/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(t export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(t export.Table) ([]byte, error)
}

// RendererConfig tunes rendered export links.
type RendererConfig struct {
	APIPrefix string
}

// ExportResult captures successful render metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// TimetableRenderer turns a stored schedule into a downloadable timetable
// file. Group and teacher filters narrow the rendered lesson set; reference
// data supplies the display names.
type TimetableRenderer struct {
	schedules scheduleFinder
	lessons   lessonReader
	groups    groupReader
	teachers  teacherReader
	subjects  subjectReader
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       RendererConfig
}

// NewTimetableRenderer constructs a renderer.
func NewTimetableRenderer(schedules scheduleFinder, lessons lessonReader, groups groupReader, teachers teacherReader, subjects subjectReader, store fileStorage, signer *storage.SignedURLSigner, cfg RendererConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *TimetableRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &TimetableRenderer{
		schedules: schedules,
		lessons:   lessons,
		groups:    groups,
		teachers:  teachers,
		subjects:  subjects,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the job's schedule and stores the file.
func (r *TimetableRenderer) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	schedule, err := r.schedules.FindByID(ctx, job.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	lessons, err := r.lessons.ListBySchedule(ctx, job.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	names, err := r.loadNames(ctx)
	if err != nil {
		return nil, err
	}

	lessons, scope, err := r.applyFilter(lessons, job.Params, names)
	if err != nil {
		return nil, err
	}

	table := buildTimetableTable(lessons, names)
	table.Title = timetableTitle(schedule, scope)

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = r.csv.Render(table)
	case models.ExportFormatPDF:
		payload, err = r.pdf.Render(table)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := buildExportFilename(schedule, scope, job.Params.Format)
	relPath, err := r.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := r.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(r.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/exports/download/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
// When allowExpired is true, the expiry check is skipped (cleanup path).
func (r *TimetableRenderer) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return r.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (r *TimetableRenderer) Open(relPath string) (*os.File, error) {
	return r.storage.Open(relPath)
}

// Delete removes a stored export file.
func (r *TimetableRenderer) Delete(relPath string) error {
	return r.storage.Delete(relPath)
}

// Cleanup removes files older than ttl.
func (r *TimetableRenderer) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return r.storage.CleanupOlderThan(ttl)
}

// referenceNames holds id-to-display-name lookups for rendering.
type referenceNames struct {
	groups   map[string]string
	teachers map[string]string
	subjects map[string]string
}

func (r *TimetableRenderer) loadNames(ctx context.Context) (referenceNames, error) {
	names := referenceNames{
		groups:   make(map[string]string),
		teachers: make(map[string]string),
		subjects: make(map[string]string),
	}
	groups, err := r.groups.ListAll(ctx)
	if err != nil {
		return names, fmt.Errorf("load groups: %w", err)
	}
	for _, group := range groups {
		names.groups[group.ID] = group.Name
	}
	teachers, err := r.teachers.ListAll(ctx)
	if err != nil {
		return names, fmt.Errorf("load teachers: %w", err)
	}
	for _, teacher := range teachers {
		names.teachers[teacher.ID] = teacher.FullName
	}
	subjects, err := r.subjects.ListAll(ctx)
	if err != nil {
		return names, fmt.Errorf("load subjects: %w", err)
	}
	for _, subject := range subjects {
		names.subjects[subject.ID] = subject.Name
	}
	return names, nil
}

// exportScope labels what slice of the timetable a file covers.
type exportScope struct {
	kind string
	name string
}

func (r *TimetableRenderer) applyFilter(lessons []models.Lesson, params models.ExportJobParams, names referenceNames) ([]models.Lesson, exportScope, error) {
	switch {
	case params.GroupID != nil:
		id := *params.GroupID
		name, ok := names.groups[id]
		if !ok {
			return nil, exportScope{}, fmt.Errorf("unknown group %s", id)
		}
		filtered := make([]models.Lesson, 0, len(lessons))
		for _, lesson := range lessons {
			for _, groupID := range lesson.GroupIDs {
				if groupID == id {
					filtered = append(filtered, lesson)
					break
				}
			}
		}
		return filtered, exportScope{kind: "group", name: name}, nil
	case params.TeacherID != nil:
		id := *params.TeacherID
		name, ok := names.teachers[id]
		if !ok {
			return nil, exportScope{}, fmt.Errorf("unknown teacher %s", id)
		}
		filtered := make([]models.Lesson, 0, len(lessons))
		for _, lesson := range lessons {
			if lesson.TeacherID != nil && *lesson.TeacherID == id {
				filtered = append(filtered, lesson)
			}
		}
		return filtered, exportScope{kind: "teacher", name: name}, nil
	default:
		return lessons, exportScope{}, nil
	}
}

func buildTimetableTable(lessons []models.Lesson, names referenceNames) export.Table {
	sorted := make([]models.Lesson, len(lessons))
	copy(sorted, lessons)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].ID < sorted[j].ID
	})

	rows := make([][]string, 0, len(sorted))
	for _, lesson := range sorted {
		teacher := ""
		if lesson.TeacherID != nil {
			teacher = lookupName(names.teachers, *lesson.TeacherID)
		}
		groupNames := make([]string, 0, len(lesson.GroupIDs))
		for _, groupID := range lesson.GroupIDs {
			groupNames = append(groupNames, lookupName(names.groups, groupID))
		}
		rows = append(rows, []string{
			dayName(lesson.DayOfWeek),
			lesson.StartTime,
			lessonEnd(lesson.StartTime, lesson.DurationMinutes),
			lookupName(names.subjects, lesson.SubjectID),
			teacher,
			strings.Join(groupNames, ", "),
		})
	}
	return export.Table{
		Columns: []string{"Day", "Start", "End", "Subject", "Teacher", "Groups"},
		Rows:    rows,
	}
}

func timetableTitle(schedule *models.Schedule, scope exportScope) string {
	title := fmt.Sprintf("Timetable %d week %d v%d", schedule.Year, schedule.Week, schedule.Version)
	if scope.name != "" {
		title = fmt.Sprintf("%s %s %s", title, scope.kind, scope.name)
	}
	return title
}

func buildExportFilename(schedule *models.Schedule, scope exportScope, format models.ExportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scopePart := ""
	if scope.name != "" {
		scopePart = "_" + strings.ToLower(sanitizeFilename(scope.name))
	}
	return fmt.Sprintf("timetable_%d_w%02d_v%d%s_%s.%s", schedule.Year, schedule.Week, schedule.Version, scopePart, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// lookupName falls back to the raw id so a dangling reference degrades the
// export instead of failing it; the validator reports those separately.
func lookupName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func dayName(day int) string {
	switch day {
	case 1:
		return "Monday"
	case 2:
		return "Tuesday"
	case 3:
		return "Wednesday"
	case 4:
		return "Thursday"
	case 5:
		return "Friday"
	default:
		return fmt.Sprintf("Day %d", day)
	}
}

func lessonEnd(start string, minutes int) string {
	parts := strings.SplitN(start, ":", 2)
	if len(parts) != 2 {
		return start
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return start
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return start
	}
	total := hours*60 + mins + minutes
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
}
