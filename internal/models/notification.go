package models

import "time"

// NotificationKind identifies the lifecycle event being announced.
type NotificationKind string

const (
	NotificationOutpassCreated    NotificationKind = "OUTPASS_CREATED"
	NotificationOutpassApproved   NotificationKind = "OUTPASS_APPROVED"
	NotificationOutpassRejected   NotificationKind = "OUTPASS_REJECTED"
	NotificationOutpassCancelled  NotificationKind = "OUTPASS_CANCELLED"
	NotificationOutpassCheckedOut NotificationKind = "OUTPASS_CHECKED_OUT"
	NotificationOutpassCheckedIn  NotificationKind = "OUTPASS_CHECKED_IN"
	NotificationOutpassOverdue    NotificationKind = "OUTPASS_OVERDUE"
)

// NotificationEvent is the payload published to the notification channel.
// Delivery is fire-and-forget; producers never wait on confirmation.
type NotificationEvent struct {
	Kind           NotificationKind `json:"kind"`
	RecipientID    string           `json:"recipient_id"`
	OutpassID      string           `json:"outpass_id"`
	SequenceNumber string           `json:"sequence_number"`
	Status         OutpassStatus    `json:"status"`
	Message        string           `json:"message,omitempty"`
	EmittedAt      time.Time        `json:"emitted_at"`
}
