package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
	"github.com/noah-isme/sma-dismissal-api/pkg/export"
	"github.com/noah-isme/sma-dismissal-api/pkg/schooltime"
)

const (
	exportFormatCSV  = "csv"
	exportFormatPDF  = "pdf"
	exportTimeLayout = "15:04:05"
)

var exportHeaders = []string{"Position", "Student", "Grade", "Homeroom", "Guardian", "Method", "Status", "Checked In (UTC)", "Dismissed (UTC)"}

type queueReader interface {
	List(ctx context.Context, sessionID string, filter models.EntryFilter) ([]models.QueueEntry, error)
	Stats(ctx context.Context, sessionID string) (*models.QueueStats, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportService renders a session queue as a downloadable report.
type ExportService struct {
	sessions  sessionAccess
	entries   queueReader
	renderers map[string]datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs the service with CSV and PDF renderers.
func NewExportService(sessions sessionAccess, entries queueReader, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sessions: sessions,
		entries:  entries,
		renderers: map[string]datasetRenderer{
			exportFormatCSV: export.NewCSVExporter(),
			exportFormatPDF: export.NewPDFExporter(map[string]float64{
				"Position": 0.6,
				"Student":  2,
				"Guardian": 1.8,
				"Homeroom": 1.4,
			}),
		},
		validator: validate,
		logger:    logger,
	}
}

// SessionReport renders the queue of a session in the requested format.
func (s *ExportService) SessionReport(ctx context.Context, caller *models.Caller, sessionID string, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export format")
	}
	format := query.Format
	if format == "" {
		format = exportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	session, err := s.sessions.Get(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.List(ctx, session.ID, models.EntryFilter{})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load queue")
	}
	stats, err := s.entries.Stats(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute queue stats")
	}

	body, err := renderer.Render(sessionDataset(session, entries, stats))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("session exported",
		zap.String("session_id", session.ID),
		zap.String("format", format),
		zap.Int("rows", len(entries)),
	)
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("dismissal_%s_%s.%s", session.SessionDate.Format(schooltime.DateLayout), session.ID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func sessionDataset(session *models.Session, entries []models.QueueEntry, stats *models.QueueStats) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Position":         strconv.Itoa(entry.Position),
			"Student":          entry.StudentName,
			"Grade":            deref(entry.Grade),
			"Homeroom":         deref(entry.HomeroomName),
			"Guardian":         entry.GuardianName,
			"Method":           string(entry.CheckInMethod),
			"Status":           string(entry.Status),
			"Checked In (UTC)": entry.CheckInTime.UTC().Format(exportTimeLayout),
			"Dismissed (UTC)":  formatOptionalTime(entry.DismissedAt),
		})
	}

	summary := []string{fmt.Sprintf("Status: %s", session.Status)}
	if stats != nil {
		summary = append(summary, fmt.Sprintf("Total entries: %d", stats.Total))
		for _, status := range models.EntryStatuses {
			summary = append(summary, fmt.Sprintf("%s: %d", status, stats.ByStatus[status]))
		}
		summary = append(summary, fmt.Sprintf("Average wait: %s", (time.Duration(stats.AverageWaitSeconds)*time.Second).String()))
	}

	return export.Dataset{
		Title:   fmt.Sprintf("Dismissal Report %s", session.SessionDate.Format(schooltime.DateLayout)),
		Summary: summary,
		Headers: exportHeaders,
		Rows:    rows,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}
