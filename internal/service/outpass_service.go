package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusgate/outpass-api/internal/dto"
	"github.com/campusgate/outpass-api/internal/models"
	"github.com/campusgate/outpass-api/internal/repository"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
	"github.com/campusgate/outpass-api/pkg/passtoken"
)

type outpassStore interface {
	Create(ctx context.Context, outpass *models.Outpass) error
	GetByID(ctx context.Context, id string) (*models.Outpass, error)
	FindLiveBySubject(ctx context.Context, studentID string) ([]models.Outpass, error)
	FindOverdueCandidates(ctx context.Context, now time.Time) ([]models.Outpass, error)
	CompareAndSetStatus(ctx context.Context, id string, expected models.OutpassStatus, patch models.OutpassPatch) (*models.Outpass, error)
	List(ctx context.Context, filter models.OutpassFilter) ([]models.Outpass, int, error)
}

type actorDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindWardensForHostel(ctx context.Context, hostel string) ([]models.User, error)
}

type auditTrail interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type outpassPolicy interface {
	RequestsEnabled() bool
	MaxDurationDays() int
	SweepBatchLimit() int
}

// OutpassService orchestrates the outpass lifecycle: request, warden review,
// security gate check-out/check-in, token verification, and the overdue
// sweep. It is the only component that touches the outpass store; every
// status mutation goes through the store's compare-and-swap so concurrent
// writers cannot both pass a precondition.
type OutpassService struct {
	store    outpassStore
	users    actorDirectory
	signer   *passtoken.Signer
	policy   outpassPolicy
	notifier Notifier
	audit    auditTrail

	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// OutpassServiceOption configures the service.
type OutpassServiceOption func(*OutpassService)

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) OutpassServiceOption {
	return func(s *OutpassService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOutpassMetrics attaches lifecycle instrumentation.
func WithOutpassMetrics(metrics *MetricsService) OutpassServiceOption {
	return func(s *OutpassService) {
		s.metrics = metrics
	}
}

// NewOutpassService constructs the service.
func NewOutpassService(store outpassStore, users actorDirectory, signer *passtoken.Signer, policy outpassPolicy, notifier Notifier, audit auditTrail, validate *validator.Validate, logger *zap.Logger, opts ...OutpassServiceOption) *OutpassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &OutpassService{
		store:     store,
		users:     users,
		signer:    signer,
		policy:    policy,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Request creates a new PENDING outpass for the student after validating the
// interval and checking the student's live passes for conflicts. The store
// re-runs the overlap check inside its serialized create, so two concurrent
// requests with intersecting intervals cannot both land.
func (s *OutpassService) Request(ctx context.Context, studentID string, req dto.CreateOutpassRequest) (*models.Outpass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outpass payload")
	}
	if s.policy != nil && !s.policy.RequestsEnabled() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "outpass requests are currently paused")
	}

	student, err := s.resolveActor(ctx, studentID, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !req.ToDate.After(req.FromDate) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "to_date must be after from_date")
	}
	if req.FromDate.Before(now) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "from_date must not be in the past")
	}
	if s.policy != nil {
		maxSpan := time.Duration(s.policy.MaxDurationDays()) * 24 * time.Hour
		if req.ToDate.Sub(req.FromDate) > maxSpan {
			return nil, appErrors.Clone(appErrors.ErrInvalidInterval,
				fmt.Sprintf("outpass may not span more than %d days", s.policy.MaxDurationDays()))
		}
	}

	live, err := s.store.FindLiveBySubject(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active outpasses")
	}
	if conflict := findConflicting(live, req.FromDate, req.ToDate); conflict != nil {
		return nil, appErrors.Clone(appErrors.ErrConflictingInterval,
			fmt.Sprintf("conflicts with outpass %s", conflict.SequenceNumber))
	}

	outpass := &models.Outpass{
		StudentID:   student.ID,
		Destination: strings.TrimSpace(req.Destination),
		Reason:      strings.TrimSpace(req.Reason),
		FromDate:    req.FromDate,
		ToDate:      req.ToDate,
		Status:      models.OutpassStatusPending,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, outpass); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			s.recordTransition("request", "conflict")
			return nil, appErrors.Clone(appErrors.ErrConflictingInterval, "an active outpass already covers this interval")
		}
		s.recordTransition("request", "error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create outpass")
	}
	s.recordTransition("request", "success")
	s.emitAudit(ctx, studentID, models.AuditActionOutpassRequest, outpass)

	s.emit(ctx, models.NotificationOutpassCreated, student.ID, outpass, "outpass request submitted")
	if student.Hostel != nil {
		if wardens, err := s.users.FindWardensForHostel(ctx, *student.Hostel); err != nil {
			s.logger.Warn("failed to resolve wardens for notification", zap.Error(err))
		} else {
			for _, warden := range wardens {
				s.emit(ctx, models.NotificationOutpassCreated, warden.ID, outpass, "new outpass awaiting review")
			}
		}
	}
	return outpass, nil
}

// Approve moves a PENDING outpass to APPROVED, stamps the warden, and mints
// the pass token embedded in the student's scannable pass.
func (s *OutpassService) Approve(ctx context.Context, outpassID, wardenID, remarks string) (*models.Outpass, error) {
	if _, err := s.resolveActor(ctx, wardenID, models.RoleWarden); err != nil {
		return nil, err
	}
	outpass, err := s.load(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(outpass.Status, models.OutpassStatusApproved) {
		s.recordTransition("approve", "invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot approve an outpass in status %s", outpass.Status))
	}

	now := s.now()
	token, err := s.signer.Sign(outpass.ID, outpass.StudentID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign pass token")
	}

	patch := models.OutpassPatch{
		Status:     models.OutpassStatusApproved,
		ApprovedBy: &wardenID,
		ApprovedAt: &now,
		PassToken:  &token,
	}
	if trimmed := strings.TrimSpace(remarks); trimmed != "" {
		patch.ApprovalRemarks = &trimmed
	}

	updated, err := s.store.CompareAndSetStatus(ctx, outpass.ID, models.OutpassStatusPending, patch)
	if err != nil {
		return nil, s.mapTransitionError(err, "approve")
	}
	s.recordTransition("approve", "success")
	s.emitAudit(ctx, wardenID, models.AuditActionOutpassApprove, updated)
	s.emit(ctx, models.NotificationOutpassApproved, updated.StudentID, updated, "outpass approved")
	return updated, nil
}

// Reject moves a PENDING outpass to REJECTED with a mandatory reason.
func (s *OutpassService) Reject(ctx context.Context, outpassID, wardenID, reason string) (*models.Outpass, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	if _, err := s.resolveActor(ctx, wardenID, models.RoleWarden); err != nil {
		return nil, err
	}
	outpass, err := s.load(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(outpass.Status, models.OutpassStatusRejected) {
		s.recordTransition("reject", "invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot reject an outpass in status %s", outpass.Status))
	}

	now := s.now()
	updated, err := s.store.CompareAndSetStatus(ctx, outpass.ID, models.OutpassStatusPending, models.OutpassPatch{
		Status:          models.OutpassStatusRejected,
		RejectedBy:      &wardenID,
		RejectedAt:      &now,
		RejectionReason: &reason,
	})
	if err != nil {
		return nil, s.mapTransitionError(err, "reject")
	}
	s.recordTransition("reject", "success")
	s.emitAudit(ctx, wardenID, models.AuditActionOutpassReject, updated)
	s.emit(ctx, models.NotificationOutpassRejected, updated.StudentID, updated, reason)
	return updated, nil
}

// Cancel lets the requesting student withdraw an outpass that has not yet
// been used. Only the subject may cancel, and only from PENDING or APPROVED.
func (s *OutpassService) Cancel(ctx context.Context, outpassID, requesterID string) (*models.Outpass, error) {
	outpass, err := s.load(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if outpass.StudentID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requesting student may cancel this outpass")
	}
	if !models.CanTransition(outpass.Status, models.OutpassStatusCancelled) {
		s.recordTransition("cancel", "invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot cancel an outpass in status %s", outpass.Status))
	}

	now := s.now()
	updated, err := s.store.CompareAndSetStatus(ctx, outpass.ID, outpass.Status, models.OutpassPatch{
		Status:      models.OutpassStatusCancelled,
		CancelledAt: &now,
	})
	if err != nil {
		return nil, s.mapTransitionError(err, "cancel")
	}
	s.recordTransition("cancel", "success")
	s.emitAudit(ctx, requesterID, models.AuditActionOutpassCancel, updated)
	s.emit(ctx, models.NotificationOutpassCancelled, updated.StudentID, updated, "outpass cancelled")
	return updated, nil
}

// CheckOut records the student leaving campus. Requires an APPROVED outpass
// and security personnel at the gate.
func (s *OutpassService) CheckOut(ctx context.Context, outpassID, securityID string) (*models.Outpass, error) {
	if _, err := s.resolveActor(ctx, securityID, models.RoleSecurity); err != nil {
		return nil, err
	}
	outpass, err := s.load(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if outpass.CheckOutTime != nil {
		s.recordTransition("check_out", "already_processed")
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "outpass already checked out")
	}
	if !models.CanTransition(outpass.Status, models.OutpassStatusCheckedOut) {
		s.recordTransition("check_out", "invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot check out an outpass in status %s", outpass.Status))
	}

	now := s.now()
	updated, err := s.store.CompareAndSetStatus(ctx, outpass.ID, models.OutpassStatusApproved, models.OutpassPatch{
		Status:       models.OutpassStatusCheckedOut,
		CheckOutTime: &now,
		CheckOutBy:   &securityID,
	})
	if err != nil {
		return nil, s.mapTransitionError(err, "check_out")
	}
	s.recordTransition("check_out", "success")
	s.emitAudit(ctx, securityID, models.AuditActionOutpassCheckOut, updated)
	s.emit(ctx, models.NotificationOutpassCheckedOut, updated.StudentID, updated, "checked out at gate")
	return updated, nil
}

// CheckIn records the student's return. A return after to_date lands in
// OVERDUE with the overdue flag set; an on-time return lands in CHECKED_IN.
func (s *OutpassService) CheckIn(ctx context.Context, outpassID, securityID string) (*models.Outpass, error) {
	if _, err := s.resolveActor(ctx, securityID, models.RoleSecurity); err != nil {
		return nil, err
	}
	outpass, err := s.load(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if outpass.Status == models.OutpassStatusOverdue && outpass.CheckInTime == nil {
		// The sweep flagged this record first; record the return as a late
		// check-in instead of failing the gate.
		return s.LateCheckIn(ctx, outpassID, securityID)
	}
	if !models.CanTransition(outpass.Status, models.OutpassStatusCheckedIn) {
		s.recordTransition("check_in", "invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot check in an outpass in status %s", outpass.Status))
	}

	now := s.now()
	overdue := now.After(outpass.ToDate)
	status := models.OutpassStatusCheckedIn
	kind := models.NotificationOutpassCheckedIn
	message := "checked in at gate"
	if overdue {
		status = models.OutpassStatusOverdue
		kind = models.NotificationOutpassOverdue
		message = "checked in after the return deadline"
	}

	updated, err := s.store.CompareAndSetStatus(ctx, outpass.ID, models.OutpassStatusCheckedOut, models.OutpassPatch{
		Status:      status,
		CheckInTime: &now,
		CheckInBy:   &securityID,
		IsOverdue:   &overdue,
	})
	if err != nil {
		return nil, s.mapTransitionError(err, "check_in")
	}
	s.recordTransition("check_in", "success")
	s.emitAudit(ctx, securityID, models.AuditActionOutpassCheckIn, updated)
	s.emit(ctx, kind, updated.StudentID, updated, message)
	return updated, nil
}

// LateCheckIn records a return against an outpass the sweep already flagged
// OVERDUE. The status stays OVERDUE; only the check-in stamp is corrected.
func (s *OutpassService) LateCheckIn(ctx context.Context, outpassID, securityID string) (*models.Outpass, error) {
	if _, err := s.resolveActor(ctx, securityID, models.RoleSecurity); err != nil {
		return nil, err
	}
	outpass, err := s.load(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if outpass.Status != models.OutpassStatusOverdue {
		s.recordTransition("late_check_in", "invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "outpass is not flagged overdue")
	}
	if outpass.CheckInTime != nil {
		s.recordTransition("late_check_in", "already_processed")
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "outpass already checked in")
	}

	now := s.now()
	overdue := true
	updated, err := s.store.CompareAndSetStatus(ctx, outpass.ID, models.OutpassStatusOverdue, models.OutpassPatch{
		Status:      models.OutpassStatusOverdue,
		CheckInTime: &now,
		CheckInBy:   &securityID,
		IsOverdue:   &overdue,
	})
	if err != nil {
		return nil, s.mapTransitionError(err, "late_check_in")
	}
	s.recordTransition("late_check_in", "success")
	s.emitAudit(ctx, securityID, models.AuditActionOutpassCheckIn, updated)
	s.emit(ctx, models.NotificationOutpassCheckedIn, updated.StudentID, updated, "late return recorded")
	return updated, nil
}

// ScanAndVerify validates a scanned pass token and returns the projection
// shown to the gate officer. Read-only: the officer confirms identity, then
// calls CheckOut or CheckIn explicitly.
func (s *OutpassService) ScanAndVerify(ctx context.Context, token string) (*dto.ScanResult, error) {
	claims, err := s.signer.Verify(token, s.now())
	if err != nil {
		switch {
		case errors.Is(err, passtoken.ErrExpired):
			s.recordScan("expired")
			return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
		default:
			s.recordScan("invalid_signature")
			return nil, appErrors.Clone(appErrors.ErrInvalidSignature, "")
		}
	}

	outpass, err := s.store.GetByID(ctx, claims.OutpassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordScan("stale")
			return nil, appErrors.Clone(appErrors.ErrStaleReference, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outpass")
	}

	// A token is only honoured while its record is still in the scannable
	// band; a pass cancelled or rejected after printing must bounce even
	// though the signature verifies.
	if outpass.StudentID != claims.SubjectID ||
		(outpass.Status != models.OutpassStatusApproved && outpass.Status != models.OutpassStatusCheckedOut) {
		s.recordScan("stale")
		return nil, appErrors.Clone(appErrors.ErrStaleReference, "")
	}

	student, err := s.users.FindByID(ctx, outpass.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordScan("stale")
			return nil, appErrors.Clone(appErrors.ErrStaleReference, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	s.recordScan("success")
	result := &dto.ScanResult{
		OutpassID:      outpass.ID,
		SequenceNumber: outpass.SequenceNumber,
		Status:         outpass.Status,
		StudentID:      student.ID,
		StudentName:    student.FullName,
		Destination:    outpass.Destination,
		FromDate:       outpass.FromDate,
		ToDate:         outpass.ToDate,
		TokenIssuedAt:  claims.IssuedAt,
	}
	if student.RegistrationNo != nil {
		result.RegistrationNo = *student.RegistrationNo
	}
	if student.Hostel != nil {
		result.Hostel = *student.Hostel
	}
	return result, nil
}

// SweepOverdue flags every CHECKED_OUT outpass past its return deadline as
// OVERDUE. Safe to run concurrently with gate check-ins: whichever writer
// commits first wins, and the loser's compare-and-swap fails harmlessly.
func (s *OutpassService) SweepOverdue(ctx context.Context) (*dto.SweepResult, error) {
	now := s.now()
	candidates, err := s.store.FindOverdueCandidates(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find overdue candidates")
	}
	limit := len(candidates)
	if s.policy != nil && s.policy.SweepBatchLimit() < limit {
		limit = s.policy.SweepBatchLimit()
	}

	result := &dto.SweepResult{Examined: len(candidates)}
	overdue := true
	for _, candidate := range candidates[:limit] {
		updated, err := s.store.CompareAndSetStatus(ctx, candidate.ID, models.OutpassStatusCheckedOut, models.OutpassPatch{
			Status:    models.OutpassStatusOverdue,
			IsOverdue: &overdue,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// A gate check-in beat the sweep to this record.
				continue
			}
			s.logger.Warn("failed to flag overdue outpass", zap.Error(err), zap.String("outpass_id", candidate.ID))
			continue
		}
		result.Flagged++
		s.emit(ctx, models.NotificationOutpassOverdue, updated.StudentID, updated, "outpass past its return deadline")
	}
	if s.metrics != nil {
		s.metrics.RecordSweep(result.Flagged)
	}
	s.logger.Info("overdue sweep completed",
		zap.Int("examined", result.Examined),
		zap.Int("flagged", result.Flagged),
	)
	return result, nil
}

// Get returns a single outpass enforcing role scope: students only see
// their own records.
func (s *OutpassService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Outpass, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	outpass, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && outpass.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return outpass, nil
}

// List returns outpasses visible to the actor with pagination.
func (s *OutpassService) List(ctx context.Context, query dto.OutpassQuery, actor *models.JWTClaims) ([]models.Outpass, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.OutpassFilter{
		StudentID: query.StudentID,
		Status:    query.Status,
		DateFrom:  query.DateFrom,
		DateTo:    query.DateTo,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if actor.Role == models.RoleStudent {
		filter.StudentID = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list outpasses")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

func (s *OutpassService) load(ctx context.Context, id string) (*models.Outpass, error) {
	outpass, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "outpass not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outpass")
	}
	return outpass, nil
}

func (s *OutpassService) resolveActor(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "actor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve actor")
	}
	if user.Role != role || !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidActor,
			fmt.Sprintf("actor does not hold the %s role", role))
	}
	return user, nil
}

// mapTransitionError translates a lost compare-and-swap into the same
// InvalidState a genuine precondition failure produces; both mean the caller
// is acting on a record that has already moved on.
func (s *OutpassService) mapTransitionError(err error, operation string) error {
	if errors.Is(err, sql.ErrNoRows) {
		s.recordTransition(operation, "invalid_state")
		return appErrors.Clone(appErrors.ErrInvalidState, "outpass status changed concurrently")
	}
	s.recordTransition(operation, "error")
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update outpass")
}

func (s *OutpassService) emit(ctx context.Context, kind models.NotificationKind, recipientID string, outpass *models.Outpass, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, models.NotificationEvent{
		Kind:           kind,
		RecipientID:    recipientID,
		OutpassID:      outpass.ID,
		SequenceNumber: outpass.SequenceNumber,
		Status:         outpass.Status,
		Message:        message,
		EmittedAt:      s.now(),
	})
}

func (s *OutpassService) emitAudit(ctx context.Context, actorID, action string, outpass *models.Outpass) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(map[string]interface{}{
		"sequence_number": outpass.SequenceNumber,
		"status":          outpass.Status,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "outpass",
		ResourceID: &outpass.ID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "outpass-service",
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *OutpassService) recordTransition(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(operation, outcome)
	}
}

func (s *OutpassService) recordScan(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordScan(outcome)
	}
}
