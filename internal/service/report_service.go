package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/export"
	"github.com/aakarshsak/ecom-price-tracker/pkg/storage"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

type reportStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// ReportService renders the security event trail into downloadable CSV or
// PDF artifacts addressed by short-lived signed tokens.
type ReportService struct {
	audit     auditLister
	store     reportStore
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService instance.
func NewReportService(audit auditLister, store reportStore, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{
		audit:     audit,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

var reportColumns = []export.Column{
	{Field: "time", Title: "Time"},
	{Field: "account", Title: "Account"},
	{Field: "action", Title: "Action"},
	{Field: "detail", Title: "Detail"},
	{Field: "ip", Title: "IP"},
	{Field: "agent", Title: "User Agent"},
}

// Generate renders the matching audit entries into the requested format,
// stores the artifact and returns a signed download token.
func (s *ReportService) Generate(ctx context.Context, req models.SecurityReportRequest) (*models.SecurityReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}

	entries, err := s.audit.List(ctx, models.AuditFilter{
		AccountID: req.AccountID,
		From:      req.From,
		To:        req.To,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit entries")
	}

	table := export.Table{
		Title:   "Security Activity Report",
		Columns: reportColumns,
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		account := ""
		if entry.AccountID != nil {
			account = *entry.AccountID
		}
		table.Rows = append(table.Rows, map[string]string{
			"time":    entry.CreatedAt.UTC().Format(time.RFC3339),
			"account": account,
			"action":  entry.Action,
			"detail":  entry.Detail,
			"ip":      entry.IPAddress,
			"agent":   entry.UserAgent,
		})
	}

	var payload []byte
	switch req.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(table)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(table)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	reportID := uuid.NewString()
	fileName := fmt.Sprintf("security-activity-%s.%s", reportID, req.Format)
	relPath, err := s.store.Save(fileName, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(reportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	s.logger.Info("security report generated",
		zap.String("report_id", reportID),
		zap.String("format", req.Format),
		zap.Int("entries", len(entries)))

	return &models.SecurityReport{
		ID:            reportID,
		Format:        req.Format,
		FileName:      fileName,
		DownloadToken: token,
		ExpiresAt:     expiresAt,
		Entries:       len(entries),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// Open validates a download token and returns a handle on the artifact.
func (s *ReportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report not found")
	}
	return file, relPath, nil
}
