package models

import "time"

// Report formats accepted by the security-activity exporter.
const (
	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

// SecurityReportRequest scopes a security-activity export.
type SecurityReportRequest struct {
	AccountID string    `json:"account_id,omitempty" validate:"omitempty,uuid"`
	From      time.Time `json:"from,omitempty"`
	To        time.Time `json:"to,omitempty"`
	Format    string    `json:"format" validate:"required,oneof=csv pdf"`
}

// SecurityReport describes a generated artifact and its signed download token.
type SecurityReport struct {
	ID            string    `json:"id"`
	Format        string    `json:"format"`
	FileName      string    `json:"file_name"`
	DownloadToken string    `json:"download_token"`
	ExpiresAt     time.Time `json:"expires_at"`
	Entries       int       `json:"entries"`
	GeneratedAt   time.Time `json:"generated_at"`
}
