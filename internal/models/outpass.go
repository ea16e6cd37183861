package models

import "time"

// OutpassStatus is the closed set of lifecycle states for an outpass.
type OutpassStatus string

const (
	OutpassStatusPending    OutpassStatus = "PENDING"
	OutpassStatusApproved   OutpassStatus = "APPROVED"
	OutpassStatusCheckedOut OutpassStatus = "CHECKED_OUT"
	OutpassStatusCheckedIn  OutpassStatus = "CHECKED_IN"
	OutpassStatusOverdue    OutpassStatus = "OVERDUE"
	OutpassStatusRejected   OutpassStatus = "REJECTED"
	OutpassStatusCancelled  OutpassStatus = "CANCELLED"
)

// Valid returns true when the status is a supported value.
func (s OutpassStatus) Valid() bool {
	switch s {
	case OutpassStatusPending, OutpassStatusApproved, OutpassStatusCheckedOut,
		OutpassStatusCheckedIn, OutpassStatusOverdue, OutpassStatusRejected, OutpassStatusCancelled:
		return true
	default:
		return false
	}
}

// Live reports whether the status still holds a claim on the student's
// time window. Live outpasses participate in overlap checks.
func (s OutpassStatus) Live() bool {
	switch s {
	case OutpassStatusPending, OutpassStatusApproved, OutpassStatusCheckedOut:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is reachable. OVERDUE still
// accepts a late check-in, recorded as a correction rather than a transition.
func (s OutpassStatus) Terminal() bool {
	switch s {
	case OutpassStatusCheckedIn, OutpassStatusRejected, OutpassStatusCancelled, OutpassStatusOverdue:
		return true
	default:
		return false
	}
}

// LiveStatuses lists every live status, in workflow order.
func LiveStatuses() []OutpassStatus {
	return []OutpassStatus{OutpassStatusPending, OutpassStatusApproved, OutpassStatusCheckedOut}
}

// transitions is the single source of truth for legal status moves. Every
// mutating operation consults this table; nothing else compares statuses.
var transitions = map[OutpassStatus][]OutpassStatus{
	OutpassStatusPending:    {OutpassStatusApproved, OutpassStatusRejected, OutpassStatusCancelled},
	OutpassStatusApproved:   {OutpassStatusCheckedOut, OutpassStatusCancelled},
	OutpassStatusCheckedOut: {OutpassStatusCheckedIn, OutpassStatusOverdue},
}

// CanTransition reports whether moving from -> to is allowed.
func CanTransition(from, to OutpassStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Outpass is a request-and-approval record authorizing a student to leave
// and later re-enter campus during a bounded interval.
type Outpass struct {
	ID             string        `db:"id" json:"id"`
	SequenceNumber string        `db:"sequence_number" json:"sequence_number"`
	StudentID      string        `db:"student_id" json:"student_id"`
	Destination    string        `db:"destination" json:"destination"`
	Reason         string        `db:"reason" json:"reason"`
	FromDate       time.Time     `db:"from_date" json:"from_date"`
	ToDate         time.Time     `db:"to_date" json:"to_date"`
	Status         OutpassStatus `db:"status" json:"status"`

	ApprovedBy      *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ApprovalRemarks *string    `db:"approval_remarks" json:"approval_remarks,omitempty"`

	RejectedBy      *string    `db:"rejected_by" json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`

	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`

	CheckOutTime *time.Time `db:"check_out_time" json:"check_out_time,omitempty"`
	CheckOutBy   *string    `db:"check_out_by" json:"check_out_by,omitempty"`
	CheckInTime  *time.Time `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckInBy    *string    `db:"check_in_by" json:"check_in_by,omitempty"`

	IsOverdue bool    `db:"is_overdue" json:"is_overdue"`
	PassToken *string `db:"pass_token" json:"pass_token,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OutpassFilter constrains listing queries.
type OutpassFilter struct {
	StudentID string
	Status    []OutpassStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// OutpassPatch groups the mutable columns written by a single status
// transition. Only non-nil fields are applied.
type OutpassPatch struct {
	Status          OutpassStatus
	ApprovedBy      *string
	ApprovedAt      *time.Time
	ApprovalRemarks *string
	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	CancelledAt     *time.Time
	CheckOutTime    *time.Time
	CheckOutBy      *string
	CheckInTime     *time.Time
	CheckInBy       *string
	IsOverdue       *bool
	PassToken       *string
}
