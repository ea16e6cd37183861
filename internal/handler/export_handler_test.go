package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/outpass-api/internal/models"
	"github.com/campusgate/outpass-api/internal/service"
	"github.com/campusgate/outpass-api/pkg/response"
)

type exportServiceMock struct {
	generateResp *service.ExportResult
	generateErr  error
	parseErr     error
	filePath     string

	lastFormat service.ExportFormat
	lastFilter models.OutpassFilter
}

func (m *exportServiceMock) Generate(_ context.Context, filter models.OutpassFilter, format service.ExportFormat) (*service.ExportResult, error) {
	m.lastFilter = filter
	m.lastFormat = format
	return m.generateResp, m.generateErr
}

func (m *exportServiceMock) ParseToken(_ string, _ bool) (string, string, time.Time, error) {
	if m.parseErr != nil {
		return "", "", time.Time{}, m.parseErr
	}
	return "file-1", m.filePath, time.Now().Add(time.Hour), nil
}

func (m *exportServiceMock) Open(relPath string) (*os.File, error) {
	return os.Open(relPath)
}

func TestExportHandlerGenerate(t *testing.T) {
	mock := &exportServiceMock{generateResp: &service.ExportResult{
		RelativePath: "outpass_register_all.csv",
		Token:        "signed-token",
		URL:          "/api/v1/outpasses/export/signed-token",
		Format:       service.ExportFormatCSV,
		RowCount:     3,
	}}
	handler := NewExportHandler(mock)

	c, w := newOutpassTestContext(t, http.MethodPost,
		"/outpasses/export?format=pdf&status=CHECKED_IN,OVERDUE&student_id=student-1", nil,
		&models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden})

	handler.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatPDF, mock.lastFormat)
	assert.Equal(t, "student-1", mock.lastFilter.StudentID)
	assert.Equal(t, []models.OutpassStatus{models.OutpassStatusCheckedIn, models.OutpassStatusOverdue}, mock.lastFilter.Status)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data)
}

func TestExportHandlerGenerateRejectsUnknownStatus(t *testing.T) {
	handler := NewExportHandler(&exportServiceMock{})
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses/export?status=BOGUS", nil,
		&models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden})

	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "register.csv")
	require.NoError(t, os.WriteFile(path, []byte("Sequence,Student\nOP-20250314-0001,Asha Nair\n"), 0o644))

	handler := NewExportHandler(&exportServiceMock{filePath: path})
	c, w := newOutpassTestContext(t, http.MethodGet, "/outpasses/export/signed-token", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "signed-token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "register.csv")
	assert.Contains(t, w.Body.String(), "OP-20250314-0001")
}

func TestExportHandlerDownloadRejectsBadToken(t *testing.T) {
	handler := NewExportHandler(&exportServiceMock{parseErr: os.ErrInvalid})
	c, w := newOutpassTestContext(t, http.MethodGet, "/outpasses/export/garbage", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "garbage"}}

	handler.Download(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
