package dto

import (
	"time"

	"github.com/campusgate/outpass-api/internal/models"
)

// CreateOutpassRequest is the payload for requesting a new outpass.
type CreateOutpassRequest struct {
	Destination string    `json:"destination" validate:"required"`
	Reason      string    `json:"reason" validate:"required"`
	FromDate    time.Time `json:"from_date" validate:"required"`
	ToDate      time.Time `json:"to_date" validate:"required"`
}

// ApproveOutpassRequest carries optional warden remarks.
type ApproveOutpassRequest struct {
	Remarks string `json:"remarks"`
}

// RejectOutpassRequest carries the mandatory rejection reason.
type RejectOutpassRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ScanRequest carries the opaque pass token read from a student's pass.
type ScanRequest struct {
	Token string `json:"token" validate:"required"`
}

// OutpassQuery captures list filters from the query string.
type OutpassQuery struct {
	StudentID string
	Status    []models.OutpassStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ScanResult is the projection shown to security after a successful scan.
// It is read-only; the officer confirms identity and then performs the
// explicit check-out or check-in call.
type ScanResult struct {
	OutpassID      string               `json:"outpass_id"`
	SequenceNumber string               `json:"sequence_number"`
	Status         models.OutpassStatus `json:"status"`
	StudentID      string               `json:"student_id"`
	StudentName    string               `json:"student_name"`
	RegistrationNo string               `json:"registration_no,omitempty"`
	Hostel         string               `json:"hostel,omitempty"`
	Destination    string               `json:"destination"`
	FromDate       time.Time            `json:"from_date"`
	ToDate         time.Time            `json:"to_date"`
	TokenIssuedAt  time.Time            `json:"token_issued_at"`
}

// SweepResult summarises one overdue sweep run.
type SweepResult struct {
	Examined int `json:"examined"`
	Flagged  int `json:"flagged"`
}
