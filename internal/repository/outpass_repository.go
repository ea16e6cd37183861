package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusgate/outpass-api/internal/models"
)

// ErrOverlap is returned by Create when a live outpass for the same student
// already intersects the requested interval.
var ErrOverlap = errors.New("overlapping live outpass")

const outpassColumns = `id, sequence_number, student_id, destination, reason, from_date, to_date, status,
       approved_by, approved_at, approval_remarks, rejected_by, rejected_at, rejection_reason,
       cancelled_at, check_out_time, check_out_by, check_in_time, check_in_by,
       is_overdue, pass_token, created_at, updated_at`

// OutpassRepository persists outpass records.
type OutpassRepository struct {
	db *sqlx.DB
}

// NewOutpassRepository constructs the repository.
func NewOutpassRepository(db *sqlx.DB) *OutpassRepository {
	return &OutpassRepository{db: db}
}

// Create inserts a new PENDING outpass, allocating the day's next sequence
// number. The overlap re-check, the sequence allocation, and the insert run
// in one transaction under a per-student advisory lock, so two concurrent
// requests for the same student serialize here and at most one can win an
// overlapping interval.
func (r *OutpassRepository) Create(ctx context.Context, outpass *models.Outpass) error {
	if outpass.ID == "" {
		outpass.ID = uuid.NewString()
	}
	if outpass.Status == "" {
		outpass.Status = models.OutpassStatusPending
	}
	now := time.Now().UTC()
	if outpass.CreatedAt.IsZero() {
		outpass.CreatedAt = now
	}
	outpass.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create outpass: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, outpass.StudentID); err != nil {
		return fmt.Errorf("lock student: %w", err)
	}

	var overlapping int
	err = tx.GetContext(ctx, &overlapping,
		`SELECT COUNT(*) FROM outpasses
		 WHERE student_id = $1 AND status IN ($2, $3, $4)
		   AND from_date <= $5 AND to_date >= $6`,
		outpass.StudentID,
		models.OutpassStatusPending, models.OutpassStatusApproved, models.OutpassStatusCheckedOut,
		outpass.ToDate, outpass.FromDate,
	)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if overlapping > 0 {
		return ErrOverlap
	}

	day := outpass.CreatedAt.Format("20060102")
	var seq int
	err = tx.GetContext(ctx, &seq,
		`INSERT INTO outpass_counters (day, value) VALUES ($1, 1)
		 ON CONFLICT (day) DO UPDATE SET value = outpass_counters.value + 1
		 RETURNING value`, day)
	if err != nil {
		return fmt.Errorf("allocate sequence: %w", err)
	}
	outpass.SequenceNumber = fmt.Sprintf("OP-%s-%04d", day, seq)

	const query = `INSERT INTO outpasses
	(id, sequence_number, student_id, destination, reason, from_date, to_date, status, is_overdue, created_at, updated_at)
	VALUES (:id, :sequence_number, :student_id, :destination, :reason, :from_date, :to_date, :status, :is_overdue, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, outpass); err != nil {
		return fmt.Errorf("create outpass: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create outpass: %w", err)
	}
	return nil
}

// GetByID fetches an outpass by identifier.
func (r *OutpassRepository) GetByID(ctx context.Context, id string) (*models.Outpass, error) {
	query := fmt.Sprintf(`SELECT %s FROM outpasses WHERE id = $1`, outpassColumns)
	var outpass models.Outpass
	if err := r.db.GetContext(ctx, &outpass, query, id); err != nil {
		return nil, err
	}
	return &outpass, nil
}

// GetBySequence fetches an outpass by its human-readable sequence number.
func (r *OutpassRepository) GetBySequence(ctx context.Context, sequence string) (*models.Outpass, error) {
	query := fmt.Sprintf(`SELECT %s FROM outpasses WHERE sequence_number = $1`, outpassColumns)
	var outpass models.Outpass
	if err := r.db.GetContext(ctx, &outpass, query, sequence); err != nil {
		return nil, err
	}
	return &outpass, nil
}

// FindLiveBySubject returns the student's outpasses still holding a claim on
// their time window (PENDING, APPROVED, or CHECKED_OUT).
func (r *OutpassRepository) FindLiveBySubject(ctx context.Context, studentID string) ([]models.Outpass, error) {
	query := fmt.Sprintf(`SELECT %s FROM outpasses
	 WHERE student_id = $1 AND status IN ($2, $3, $4)
	 ORDER BY from_date ASC`, outpassColumns)
	var outpasses []models.Outpass
	err := r.db.SelectContext(ctx, &outpasses, query, studentID,
		models.OutpassStatusPending, models.OutpassStatusApproved, models.OutpassStatusCheckedOut)
	if err != nil {
		return nil, fmt.Errorf("find live outpasses: %w", err)
	}
	return outpasses, nil
}

// FindOverdueCandidates returns outpasses still CHECKED_OUT past their
// return deadline.
func (r *OutpassRepository) FindOverdueCandidates(ctx context.Context, now time.Time) ([]models.Outpass, error) {
	query := fmt.Sprintf(`SELECT %s FROM outpasses
	 WHERE status = $1 AND to_date < $2
	 ORDER BY to_date ASC`, outpassColumns)
	var outpasses []models.Outpass
	if err := r.db.SelectContext(ctx, &outpasses, query, models.OutpassStatusCheckedOut, now); err != nil {
		return nil, fmt.Errorf("find overdue candidates: %w", err)
	}
	return outpasses, nil
}

// CompareAndSetStatus applies the patch only while the record still holds
// the expected status. A concurrent writer that moved the status first makes
// this a zero-row update, reported as sql.ErrNoRows so the service layer can
// treat the lost race as an illegal transition.
func (r *OutpassRepository) CompareAndSetStatus(ctx context.Context, id string, expected models.OutpassStatus, patch models.OutpassPatch) (*models.Outpass, error) {
	setParts := []string{"status = :status", "updated_at = :updated_at"}
	args := map[string]interface{}{
		"id":         id,
		"expected":   expected,
		"status":     patch.Status,
		"updated_at": time.Now().UTC(),
	}
	addPart := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = :%s", column, column))
		args[column] = value
	}
	if patch.ApprovedBy != nil {
		addPart("approved_by", patch.ApprovedBy)
	}
	if patch.ApprovedAt != nil {
		addPart("approved_at", patch.ApprovedAt)
	}
	if patch.ApprovalRemarks != nil {
		addPart("approval_remarks", patch.ApprovalRemarks)
	}
	if patch.RejectedBy != nil {
		addPart("rejected_by", patch.RejectedBy)
	}
	if patch.RejectedAt != nil {
		addPart("rejected_at", patch.RejectedAt)
	}
	if patch.RejectionReason != nil {
		addPart("rejection_reason", patch.RejectionReason)
	}
	if patch.CancelledAt != nil {
		addPart("cancelled_at", patch.CancelledAt)
	}
	if patch.CheckOutTime != nil {
		addPart("check_out_time", patch.CheckOutTime)
	}
	if patch.CheckOutBy != nil {
		addPart("check_out_by", patch.CheckOutBy)
	}
	if patch.CheckInTime != nil {
		addPart("check_in_time", patch.CheckInTime)
	}
	if patch.CheckInBy != nil {
		addPart("check_in_by", patch.CheckInBy)
	}
	if patch.IsOverdue != nil {
		addPart("is_overdue", patch.IsOverdue)
	}
	if patch.PassToken != nil {
		addPart("pass_token", patch.PassToken)
	}

	query := fmt.Sprintf("UPDATE outpasses SET %s WHERE id = :id AND status = :expected",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("update outpass status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check outpass update rows: %w", err)
	}
	if rows == 0 {
		return nil, sql.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

// List returns outpasses matching the filter plus the total count.
func (r *OutpassRepository) List(ctx context.Context, filter models.OutpassFilter) ([]models.Outpass, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("to_date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("from_date <= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM outpasses" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count outpasses: %w", err)
	}

	sortBy := "created_at"
	switch filter.SortBy {
	case "from_date", "to_date", "status", "sequence_number":
		sortBy = filter.SortBy
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s FROM outpasses%s ORDER BY %s %s LIMIT %d OFFSET %d",
		outpassColumns, where, sortBy, order, pageSize, (page-1)*pageSize)

	var outpasses []models.Outpass
	if err := r.db.SelectContext(ctx, &outpasses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list outpasses: %w", err)
	}
	return outpasses, total, nil
}
