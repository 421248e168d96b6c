package domain

import "time"

type ResumeStatus string

const (
	StatusUploaded   ResumeStatus = "uploaded"
	StatusProcessing ResumeStatus = "processing"
	StatusAnalyzed   ResumeStatus = "analyzed"
	StatusFailed     ResumeStatus = "failed"
)

type Resume struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	MimeType    string       `json:"mime_type"`
	StoragePath string       `json:"storage_path"`
	Status      ResumeStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Report      *FraudReport `json:"fraud_report,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
