package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusgate/outpass-api/internal/models"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
	"github.com/campusgate/outpass-api/pkg/storage"
)

type stubExportStore struct {
	outpasses []models.Outpass
}

func (s *stubExportStore) List(_ context.Context, filter models.OutpassFilter) ([]models.Outpass, int, error) {
	matched := make([]models.Outpass, 0, len(s.outpasses))
	for _, op := range s.outpasses {
		if filter.StudentID != "" && op.StudentID != filter.StudentID {
			continue
		}
		matched = append(matched, op)
	}

	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return nil, len(matched), nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

type stubExportDirectory struct {
	users map[string]*models.User
}

func (s *stubExportDirectory) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return user, nil
}

func registerOutpass(id, studentID, seq string, status models.OutpassStatus) models.Outpass {
	from := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return models.Outpass{
		ID:             id,
		SequenceNumber: seq,
		StudentID:      studentID,
		Destination:    "City Hospital",
		Reason:         "appointment",
		FromDate:       from,
		ToDate:         from.Add(8 * time.Hour),
		Status:         status,
	}
}

func newExportFixture(t *testing.T, outpasses []models.Outpass) (*ExportService, *storage.LocalStorage) {
	t.Helper()

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	regNo := "REG-1001"
	hostel := "A-Block"
	directory := &stubExportDirectory{users: map[string]*models.User{
		"student-1": {
			ID:             "student-1",
			FullName:       "Asha Nair",
			Role:           models.RoleStudent,
			RegistrationNo: &regNo,
			Hostel:         &hostel,
			Active:         true,
		},
	}}

	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	svc := NewExportService(
		&stubExportStore{outpasses: outpasses},
		directory,
		local,
		signer,
		ExportConfig{APIPrefix: "/api/v1"},
		zap.NewNop(),
		nil, nil,
	)
	return svc, local
}

func TestExportGenerateCSV(t *testing.T) {
	svc, _ := newExportFixture(t, []models.Outpass{
		registerOutpass("op-1", "student-1", "OP-20250314-0001", models.OutpassStatusCheckedIn),
		registerOutpass("op-2", "student-1", "OP-20250314-0002", models.OutpassStatusPending),
	})

	result, err := svc.Generate(context.Background(), models.OutpassFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, ExportFormatCSV, result.Format)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/outpasses/export/"))

	_, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	body := string(content)
	assert.Contains(t, body, "OP-20250314-0001")
	assert.Contains(t, body, "Asha Nair")
	assert.Contains(t, body, "REG-1001")
	assert.Contains(t, body, "CHECKED_IN")
}

func TestExportGeneratePDF(t *testing.T) {
	svc, _ := newExportFixture(t, []models.Outpass{
		registerOutpass("op-1", "student-1", "OP-20250314-0001", models.OutpassStatusApproved),
	})

	result, err := svc.Generate(context.Background(), models.OutpassFilter{}, ExportFormatPDF)
	require.NoError(t, err)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}

func TestExportGenerateRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportFixture(t, nil)

	_, err := svc.Generate(context.Background(), models.OutpassFilter{}, ExportFormat("xlsx"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportFallsBackToIDForUnknownStudent(t *testing.T) {
	svc, _ := newExportFixture(t, []models.Outpass{
		registerOutpass("op-9", "student-ghost", "OP-20250314-0009", models.OutpassStatusCancelled),
	})

	result, err := svc.Generate(context.Background(), models.OutpassFilter{}, ExportFormatCSV)
	require.NoError(t, err)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "student-ghost")
}

func TestExportPaginatesThroughRegister(t *testing.T) {
	outpasses := make([]models.Outpass, 0, exportPageSize+50)
	for i := 0; i < exportPageSize+50; i++ {
		outpasses = append(outpasses, registerOutpass("op-n", "student-1", "OP-20250314-1000", models.OutpassStatusCheckedIn))
	}
	svc, _ := newExportFixture(t, outpasses)

	result, err := svc.Generate(context.Background(), models.OutpassFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, exportPageSize+50, result.RowCount)
}

func TestExportCleanupRemovesStaleFiles(t *testing.T) {
	svc, local := newExportFixture(t, []models.Outpass{
		registerOutpass("op-1", "student-1", "OP-20250314-0001", models.OutpassStatusCheckedIn),
	})

	result, err := svc.Generate(context.Background(), models.OutpassFilter{}, ExportFormatCSV)
	require.NoError(t, err)

	deleted, err := svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(local.Path(result.RelativePath), stale, stale))

	deleted, err = svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{result.RelativePath}, deleted)

	_, err = svc.Open(result.RelativePath)
	assert.Error(t, err)
}
