package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusgate/outpass-api/internal/dto"
	"github.com/campusgate/outpass-api/internal/models"
	"github.com/campusgate/outpass-api/internal/repository"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
	"github.com/campusgate/outpass-api/pkg/passtoken"
)

type stubOutpassStore struct {
	mu        sync.Mutex
	outpasses map[string]*models.Outpass
	seq       int
	createErr error
}

func newStubOutpassStore() *stubOutpassStore {
	return &stubOutpassStore{outpasses: make(map[string]*models.Outpass)}
}

func (s *stubOutpassStore) Create(_ context.Context, outpass *models.Outpass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.outpasses {
		if existing.StudentID == outpass.StudentID && existing.Status.Live() &&
			intervalsOverlap(existing.FromDate, existing.ToDate, outpass.FromDate, outpass.ToDate) {
			return repository.ErrOverlap
		}
	}
	s.seq++
	outpass.ID = fmt.Sprintf("op-%d", s.seq)
	outpass.SequenceNumber = fmt.Sprintf("OP-20250314-%04d", s.seq)
	outpass.UpdatedAt = outpass.CreatedAt
	clone := *outpass
	s.outpasses[outpass.ID] = &clone
	return nil
}

func (s *stubOutpassStore) GetByID(_ context.Context, id string) (*models.Outpass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.outpasses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *existing
	return &clone, nil
}

func (s *stubOutpassStore) FindLiveBySubject(_ context.Context, studentID string) ([]models.Outpass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Outpass
	for _, existing := range s.outpasses {
		if existing.StudentID == studentID && existing.Status.Live() {
			result = append(result, *existing)
		}
	}
	return result, nil
}

func (s *stubOutpassStore) FindOverdueCandidates(_ context.Context, now time.Time) ([]models.Outpass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Outpass
	for _, existing := range s.outpasses {
		if existing.Status == models.OutpassStatusCheckedOut && existing.ToDate.Before(now) {
			result = append(result, *existing)
		}
	}
	return result, nil
}

func (s *stubOutpassStore) CompareAndSetStatus(_ context.Context, id string, expected models.OutpassStatus, patch models.OutpassPatch) (*models.Outpass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.outpasses[id]
	if !ok || existing.Status != expected {
		return nil, sql.ErrNoRows
	}
	existing.Status = patch.Status
	if patch.ApprovedBy != nil {
		existing.ApprovedBy = patch.ApprovedBy
	}
	if patch.ApprovedAt != nil {
		existing.ApprovedAt = patch.ApprovedAt
	}
	if patch.ApprovalRemarks != nil {
		existing.ApprovalRemarks = patch.ApprovalRemarks
	}
	if patch.RejectedBy != nil {
		existing.RejectedBy = patch.RejectedBy
	}
	if patch.RejectedAt != nil {
		existing.RejectedAt = patch.RejectedAt
	}
	if patch.RejectionReason != nil {
		existing.RejectionReason = patch.RejectionReason
	}
	if patch.CancelledAt != nil {
		existing.CancelledAt = patch.CancelledAt
	}
	if patch.CheckOutTime != nil {
		existing.CheckOutTime = patch.CheckOutTime
	}
	if patch.CheckOutBy != nil {
		existing.CheckOutBy = patch.CheckOutBy
	}
	if patch.CheckInTime != nil {
		existing.CheckInTime = patch.CheckInTime
	}
	if patch.CheckInBy != nil {
		existing.CheckInBy = patch.CheckInBy
	}
	if patch.IsOverdue != nil {
		existing.IsOverdue = *patch.IsOverdue
	}
	if patch.PassToken != nil {
		existing.PassToken = patch.PassToken
	}
	clone := *existing
	return &clone, nil
}

func (s *stubOutpassStore) List(_ context.Context, filter models.OutpassFilter) ([]models.Outpass, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Outpass
	for _, existing := range s.outpasses {
		if filter.StudentID != "" && existing.StudentID != filter.StudentID {
			continue
		}
		result = append(result, *existing)
	}
	return result, len(result), nil
}

type stubDirectory struct {
	users map[string]*models.User
}

func (d *stubDirectory) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (d *stubDirectory) FindWardensForHostel(_ context.Context, hostel string) ([]models.User, error) {
	var result []models.User
	for _, user := range d.users {
		if user.Role != models.RoleWarden || !user.Active {
			continue
		}
		if user.Hostel == nil || *user.Hostel == hostel {
			result = append(result, *user)
		}
	}
	return result, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event models.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) kinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []models.NotificationKind
	for _, event := range n.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (a *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, *log)
	return nil
}

type stubPolicy struct {
	enabled bool
	maxDays int
	batch   int
}

func (p *stubPolicy) RequestsEnabled() bool { return p.enabled }
func (p *stubPolicy) MaxDurationDays() int  { return p.maxDays }
func (p *stubPolicy) SweepBatchLimit() int  { return p.batch }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type outpassFixture struct {
	svc      *OutpassService
	store    *stubOutpassStore
	notifier *recordingNotifier
	audit    *recordingAudit
	policy   *stubPolicy
	clock    *fakeClock
	signer   *passtoken.Signer
}

func strPtr(s string) *string { return &s }

func newOutpassFixture(t *testing.T) *outpassFixture {
	t.Helper()
	store := newStubOutpassStore()
	directory := &stubDirectory{users: map[string]*models.User{
		"student-1": {ID: "student-1", FullName: "Asha Nair", Role: models.RoleStudent, Active: true,
			RegistrationNo: strPtr("REG-1001"), Hostel: strPtr("A-Block")},
		"student-2": {ID: "student-2", FullName: "Rahul Mehta", Role: models.RoleStudent, Active: true,
			RegistrationNo: strPtr("REG-1002"), Hostel: strPtr("B-Block")},
		"warden-1":   {ID: "warden-1", FullName: "Meera Iyer", Role: models.RoleWarden, Active: true, Hostel: strPtr("A-Block")},
		"security-1": {ID: "security-1", FullName: "Gate Desk", Role: models.RoleSecurity, Active: true},
		"inactive-1": {ID: "inactive-1", FullName: "Former Warden", Role: models.RoleWarden, Active: false},
	}}
	notifier := &recordingNotifier{}
	audit := &recordingAudit{}
	policy := &stubPolicy{enabled: true, maxDays: 7, batch: 500}
	clock := &fakeClock{t: time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)}
	signer := passtoken.NewSigner("test-secret", 24*time.Hour)

	svc := NewOutpassService(store, directory, signer, policy, notifier, audit, nil, zap.NewNop(),
		WithClock(clock.Now))
	return &outpassFixture{svc: svc, store: store, notifier: notifier, audit: audit, policy: policy, clock: clock, signer: signer}
}

func (f *outpassFixture) request(t *testing.T, studentID string, from, to time.Time) *models.Outpass {
	t.Helper()
	outpass, err := f.svc.Request(context.Background(), studentID, dto.CreateOutpassRequest{
		Destination: "Home",
		Reason:      "family visit",
		FromDate:    from,
		ToDate:      to,
	})
	require.NoError(t, err)
	return outpass
}

func (f *outpassFixture) approved(t *testing.T) *models.Outpass {
	t.Helper()
	now := f.clock.Now()
	created := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))
	approved, err := f.svc.Approve(context.Background(), created.ID, "warden-1", "ok")
	require.NoError(t, err)
	return approved
}

func TestRequestCreatesPendingOutpass(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()

	outpass := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))

	assert.Equal(t, models.OutpassStatusPending, outpass.Status)
	assert.Equal(t, "student-1", outpass.StudentID)
	assert.NotEmpty(t, outpass.ID)
	assert.Regexp(t, `^OP-\d{8}-\d{4}$`, outpass.SequenceNumber)
	assert.Nil(t, outpass.PassToken)

	// Student confirmation plus one event per A-Block warden.
	kinds := f.notifier.kinds()
	require.Len(t, kinds, 2)
	for _, kind := range kinds {
		assert.Equal(t, models.NotificationOutpassCreated, kind)
	}

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionOutpassRequest, f.audit.logs[0].Action)
}

func TestRequestRejectsBadIntervals(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	ctx := context.Background()

	cases := []struct {
		name     string
		from, to time.Time
	}{
		{"to before from", now.Add(25 * time.Hour), now.Add(time.Hour)},
		{"to equals from", now.Add(time.Hour), now.Add(time.Hour)},
		{"from in the past", now.Add(-time.Hour), now.Add(25 * time.Hour)},
		{"span over policy limit", now.Add(time.Hour), now.Add(time.Hour + 8*24*time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Request(ctx, "student-1", dto.CreateOutpassRequest{
				Destination: "Home", Reason: "family visit", FromDate: tc.from, ToDate: tc.to,
			})
			assert.ErrorIs(t, err, appErrors.ErrInvalidInterval)
		})
	}
}

func TestRequestHonoursPolicySwitch(t *testing.T) {
	f := newOutpassFixture(t)
	f.policy.enabled = false
	now := f.clock.Now()

	_, err := f.svc.Request(context.Background(), "student-1", dto.CreateOutpassRequest{
		Destination: "Home", Reason: "family visit",
		FromDate: now.Add(time.Hour), ToDate: now.Add(25 * time.Hour),
	})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestRequestRejectsNonStudentActor(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	payload := dto.CreateOutpassRequest{
		Destination: "Home", Reason: "errand",
		FromDate: now.Add(time.Hour), ToDate: now.Add(25 * time.Hour),
	}

	_, err := f.svc.Request(context.Background(), "warden-1", payload)
	assert.ErrorIs(t, err, appErrors.ErrInvalidActor)

	_, err = f.svc.Request(context.Background(), "ghost", payload)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRequestRejectsConflictingInterval(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	ctx := context.Background()

	f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))

	// Touching endpoints count as a conflict.
	_, err := f.svc.Request(ctx, "student-1", dto.CreateOutpassRequest{
		Destination: "Home", Reason: "family visit",
		FromDate: now.Add(25 * time.Hour), ToDate: now.Add(49 * time.Hour),
	})
	assert.ErrorIs(t, err, appErrors.ErrConflictingInterval)

	// A different student is unaffected.
	_, err = f.svc.Request(ctx, "student-2", dto.CreateOutpassRequest{
		Destination: "Home", Reason: "family visit",
		FromDate: now.Add(time.Hour), ToDate: now.Add(25 * time.Hour),
	})
	assert.NoError(t, err)

	// A disjoint interval for the same student is fine.
	_, err = f.svc.Request(ctx, "student-1", dto.CreateOutpassRequest{
		Destination: "Home", Reason: "family visit",
		FromDate: now.Add(48 * time.Hour), ToDate: now.Add(72 * time.Hour),
	})
	assert.NoError(t, err)
}

func TestApproveMintsPassToken(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	created := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))

	approved, err := f.svc.Approve(context.Background(), created.ID, "warden-1", "  verified  ")
	require.NoError(t, err)

	assert.Equal(t, models.OutpassStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "warden-1", *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovalRemarks)
	assert.Equal(t, "verified", *approved.ApprovalRemarks)

	require.NotNil(t, approved.PassToken)
	claims, err := f.signer.Verify(*approved.PassToken, now)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.OutpassID)
	assert.Equal(t, "student-1", claims.SubjectID)
}

func TestApproveTwiceFails(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)

	_, err := f.svc.Approve(context.Background(), approved.ID, "warden-1", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
}

func TestApproveRejectsWrongActor(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	created := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))

	_, err := f.svc.Approve(context.Background(), created.ID, "student-2", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidActor)

	_, err = f.svc.Approve(context.Background(), created.ID, "inactive-1", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidActor)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	created := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))
	ctx := context.Background()

	_, err := f.svc.Reject(ctx, created.ID, "warden-1", "   ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	rejected, err := f.svc.Reject(ctx, created.ID, "warden-1", "dates clash with exams")
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "dates clash with exams", *rejected.RejectionReason)
}

func TestCancelOnlyBySubjectBeforeUse(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, approved.ID, "student-2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	cancelled, err := f.svc.Cancel(ctx, approved.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestCancelAfterCheckOutFails(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	_, err := f.svc.CheckOut(ctx, approved.ID, "security-1")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, approved.ID, "student-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
}

func TestCheckOutRequiresApproved(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	created := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))
	ctx := context.Background()

	_, err := f.svc.CheckOut(ctx, created.ID, "security-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	_, err = f.svc.Approve(ctx, created.ID, "warden-1", "")
	require.NoError(t, err)

	out, err := f.svc.CheckOut(ctx, created.ID, "security-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusCheckedOut, out.Status)
	require.NotNil(t, out.CheckOutBy)
	assert.Equal(t, "security-1", *out.CheckOutBy)

	_, err = f.svc.CheckOut(ctx, created.ID, "security-1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
}

func TestCheckInOnTime(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	_, err := f.svc.CheckOut(ctx, approved.ID, "security-1")
	require.NoError(t, err)

	f.clock.Advance(12 * time.Hour)
	in, err := f.svc.CheckIn(ctx, approved.ID, "security-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusCheckedIn, in.Status)
	assert.False(t, in.IsOverdue)
	assert.NotNil(t, in.CheckInTime)
}

func TestCheckInAfterDeadlineLandsOverdue(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	_, err := f.svc.CheckOut(ctx, approved.ID, "security-1")
	require.NoError(t, err)

	f.clock.Advance(26 * time.Hour)
	in, err := f.svc.CheckIn(ctx, approved.ID, "security-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusOverdue, in.Status)
	assert.True(t, in.IsOverdue)
	assert.NotNil(t, in.CheckInTime)
}

func TestConcurrentCheckOutSingleWinner(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CheckOut(ctx, approved.ID, "security-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		lost := errors.Is(err, appErrors.ErrInvalidState) || errors.Is(err, appErrors.ErrAlreadyProcessed)
		assert.True(t, lost, "unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	final, err := f.store.GetByID(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusCheckedOut, final.Status)
}

func TestScanAndVerify(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	require.NotNil(t, approved.PassToken)

	result, err := f.svc.ScanAndVerify(context.Background(), *approved.PassToken)
	require.NoError(t, err)
	assert.Equal(t, approved.ID, result.OutpassID)
	assert.Equal(t, approved.SequenceNumber, result.SequenceNumber)
	assert.Equal(t, models.OutpassStatusApproved, result.Status)
	assert.Equal(t, "Asha Nair", result.StudentName)
	assert.Equal(t, "REG-1001", result.RegistrationNo)
	assert.Equal(t, "A-Block", result.Hostel)
}

func TestScanRejectsTamperedToken(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	token := *approved.PassToken

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[3] = strings.Repeat("0", len(parts[3]))
	tampered := strings.Join(parts, ".")

	_, err := f.svc.ScanAndVerify(context.Background(), tampered)
	assert.ErrorIs(t, err, appErrors.ErrInvalidSignature)

	_, err = f.svc.ScanAndVerify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrInvalidSignature)
}

func TestScanRejectsExpiredToken(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)

	f.clock.Advance(24 * time.Hour)
	_, err := f.svc.ScanAndVerify(context.Background(), *approved.PassToken)
	assert.ErrorIs(t, err, appErrors.ErrTokenExpired)
}

func TestScanRejectsRevokedRecord(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, approved.ID, "student-1")
	require.NoError(t, err)

	// Signature still verifies, but the record is no longer scannable.
	_, err = f.svc.ScanAndVerify(ctx, *approved.PassToken)
	assert.ErrorIs(t, err, appErrors.ErrStaleReference)
}

func TestScanRejectsMissingRecord(t *testing.T) {
	f := newOutpassFixture(t)
	token, err := f.signer.Sign("op-gone", "student-1", f.clock.Now())
	require.NoError(t, err)

	_, err = f.svc.ScanAndVerify(context.Background(), token)
	assert.ErrorIs(t, err, appErrors.ErrStaleReference)
}

func TestSweepFlagsOverdueOutpasses(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	_, err := f.svc.CheckOut(ctx, approved.ID, "security-1")
	require.NoError(t, err)

	// Still inside the window: nothing to flag.
	result, err := f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Examined)
	assert.Equal(t, 0, result.Flagged)

	f.clock.Advance(26 * time.Hour)
	result, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 1, result.Flagged)

	flagged, err := f.store.GetByID(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusOverdue, flagged.Status)
	assert.True(t, flagged.IsOverdue)
	assert.Nil(t, flagged.CheckInTime)

	// Idempotent: a second run finds nothing CHECKED_OUT.
	result, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Flagged)
}

func TestLateCheckInAfterSweep(t *testing.T) {
	f := newOutpassFixture(t)
	approved := f.approved(t)
	ctx := context.Background()

	_, err := f.svc.CheckOut(ctx, approved.ID, "security-1")
	require.NoError(t, err)
	f.clock.Advance(26 * time.Hour)
	_, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)

	in, err := f.svc.LateCheckIn(ctx, approved.ID, "security-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusOverdue, in.Status)
	assert.True(t, in.IsOverdue)
	require.NotNil(t, in.CheckInTime)

	_, err = f.svc.LateCheckIn(ctx, approved.ID, "security-1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
}

func TestGetScopesStudentToOwnRecords(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	mine := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))
	ctx := context.Background()

	self := &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	other := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	warden := &models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden}

	got, err := f.svc.Get(ctx, mine.ID, self)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = f.svc.Get(ctx, mine.ID, other)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(ctx, mine.ID, warden)
	assert.NoError(t, err)
}

func TestListScopesStudentToOwnRecords(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))
	f.request(t, "student-2", now.Add(time.Hour), now.Add(25*time.Hour))
	ctx := context.Background()

	rows, pagination, err := f.svc.List(ctx, dto.OutpassQuery{}, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "student-1", rows[0].StudentID)
	assert.Equal(t, 1, pagination.TotalCount)

	rows, _, err = f.svc.List(ctx, dto.OutpassQuery{}, &models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestLifecycleHappyPath(t *testing.T) {
	f := newOutpassFixture(t)
	now := f.clock.Now()
	ctx := context.Background()

	created := f.request(t, "student-1", now.Add(time.Hour), now.Add(25*time.Hour))
	approved, err := f.svc.Approve(ctx, created.ID, "warden-1", "")
	require.NoError(t, err)

	scan, err := f.svc.ScanAndVerify(ctx, *approved.PassToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, scan.OutpassID)

	_, err = f.svc.CheckOut(ctx, created.ID, "security-1")
	require.NoError(t, err)

	f.clock.Advance(20 * time.Hour)
	in, err := f.svc.CheckIn(ctx, created.ID, "security-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutpassStatusCheckedIn, in.Status)

	kinds := f.notifier.kinds()
	assert.Contains(t, kinds, models.NotificationOutpassCreated)
	assert.Contains(t, kinds, models.NotificationOutpassApproved)
	assert.Contains(t, kinds, models.NotificationOutpassCheckedOut)
	assert.Contains(t, kinds, models.NotificationOutpassCheckedIn)
}
