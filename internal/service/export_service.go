package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusgate/outpass-api/internal/models"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
	"github.com/campusgate/outpass-api/pkg/export"
	"github.com/campusgate/outpass-api/pkg/storage"
)

type exportOutpassStore interface {
	List(ctx context.Context, filter models.OutpassFilter) ([]models.Outpass, int, error)
}

type exportDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered output of a register export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid returns true when the format is a supported value.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatCSV, ExportFormatPDF:
		return true
	default:
		return false
	}
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       ExportFormat
	RowCount     int
	ExpiresAt    time.Time
}

// ExportService renders the outpass register into downloadable CSV or PDF
// files and hands out signed download tokens for them.
type ExportService struct {
	outpasses exportOutpassStore
	users     exportDirectory
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(outpasses exportOutpassStore, users exportDirectory, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		outpasses: outpasses,
		users:     users,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the register rows matching the filter and stores the file.
func (s *ExportService) Generate(ctx context.Context, filter models.OutpassFilter, format ExportFormat) (*ExportResult, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	dataset, title, err := s.buildRegisterDataset(ctx, filter)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(filter, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(filename, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/outpasses/export/%s", signedURL, token)

	s.logger.Info("register export generated",
		zap.String("file", relPath),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       format,
		RowCount:     len(dataset.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (fileID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// exportPageSize matches the repository's listing cap.
const exportPageSize = 200

func (s *ExportService) buildRegisterDataset(ctx context.Context, filter models.OutpassFilter) (export.Dataset, string, error) {
	headers := []string{"Sequence", "Student", "Registration No", "Hostel", "Destination", "From", "To", "Status", "Checked Out", "Checked In", "Overdue"}

	students := make(map[string]*models.User)
	rows := make([]map[string]string, 0)

	filter.Page = 1
	filter.PageSize = exportPageSize
	for {
		batch, total, err := s.outpasses.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, op := range batch {
			student, ok := students[op.StudentID]
			if !ok {
				student, err = s.users.FindByID(ctx, op.StudentID)
				if err != nil {
					s.logger.Warn("export could not resolve student", zap.String("student_id", op.StudentID), zap.Error(err))
					student = nil
				}
				students[op.StudentID] = student
			}

			row := map[string]string{
				"Sequence":    op.SequenceNumber,
				"Destination": op.Destination,
				"From":        op.FromDate.UTC().Format(time.RFC3339),
				"To":          op.ToDate.UTC().Format(time.RFC3339),
				"Status":      string(op.Status),
				"Checked Out": formatExportTime(op.CheckOutTime),
				"Checked In":  formatExportTime(op.CheckInTime),
				"Overdue":     fmt.Sprintf("%t", op.IsOverdue),
			}
			if student != nil {
				row["Student"] = student.FullName
				row["Registration No"] = deref(student.RegistrationNo)
				row["Hostel"] = deref(student.Hostel)
			} else {
				row["Student"] = op.StudentID
			}
			rows = append(rows, row)
		}

		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
		filter.Page++
	}

	dataset := export.Dataset{Headers: headers, Rows: rows}
	title := "Outpass Register"
	return dataset, title, nil
}

func (s *ExportService) buildFilename(filter models.OutpassFilter, format ExportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if filter.StudentID != "" {
		scope = sanitizeFilename(filter.StudentID)
	}
	return fmt.Sprintf("outpass_register_%s_%s.%s", scope, timestamp, format)
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

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
