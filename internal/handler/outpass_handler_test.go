package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/outpass-api/internal/dto"
	"github.com/campusgate/outpass-api/internal/middleware"
	"github.com/campusgate/outpass-api/internal/models"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
	"github.com/campusgate/outpass-api/pkg/response"
)

type outpassServiceMock struct {
	requestResp *models.Outpass
	requestErr  error
	getResp     *models.Outpass
	listResp    []models.Outpass
	approveErr  error
	scanResp    *dto.ScanResult
	scanErr     error
	sweepResp   *dto.SweepResult

	lastActorID string
}

func (m *outpassServiceMock) Request(_ context.Context, studentID string, _ dto.CreateOutpassRequest) (*models.Outpass, error) {
	m.lastActorID = studentID
	return m.requestResp, m.requestErr
}

func (m *outpassServiceMock) Get(_ context.Context, _ string, _ *models.JWTClaims) (*models.Outpass, error) {
	if m.getResp == nil {
		return nil, appErrors.ErrNotFound
	}
	return m.getResp, nil
}

func (m *outpassServiceMock) List(_ context.Context, _ dto.OutpassQuery, _ *models.JWTClaims) ([]models.Outpass, *models.Pagination, error) {
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, nil
}

func (m *outpassServiceMock) Approve(_ context.Context, outpassID, wardenID, _ string) (*models.Outpass, error) {
	m.lastActorID = wardenID
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return &models.Outpass{ID: outpassID, Status: models.OutpassStatusApproved}, nil
}

func (m *outpassServiceMock) Reject(_ context.Context, outpassID, wardenID, reason string) (*models.Outpass, error) {
	m.lastActorID = wardenID
	return &models.Outpass{ID: outpassID, Status: models.OutpassStatusRejected, RejectionReason: &reason}, nil
}

func (m *outpassServiceMock) Cancel(_ context.Context, outpassID, requesterID string) (*models.Outpass, error) {
	m.lastActorID = requesterID
	return &models.Outpass{ID: outpassID, Status: models.OutpassStatusCancelled}, nil
}

func (m *outpassServiceMock) CheckOut(_ context.Context, outpassID, securityID string) (*models.Outpass, error) {
	m.lastActorID = securityID
	return &models.Outpass{ID: outpassID, Status: models.OutpassStatusCheckedOut}, nil
}

func (m *outpassServiceMock) CheckIn(_ context.Context, outpassID, securityID string) (*models.Outpass, error) {
	m.lastActorID = securityID
	return &models.Outpass{ID: outpassID, Status: models.OutpassStatusCheckedIn}, nil
}

func (m *outpassServiceMock) ScanAndVerify(_ context.Context, _ string) (*dto.ScanResult, error) {
	return m.scanResp, m.scanErr
}

func (m *outpassServiceMock) SweepOverdue(_ context.Context) (*dto.SweepResult, error) {
	return m.sweepResp, nil
}

func newOutpassTestContext(t *testing.T, method, path string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestOutpassHandlerCreate(t *testing.T) {
	mock := &outpassServiceMock{requestResp: &models.Outpass{ID: "op-1", Status: models.OutpassStatusPending}}
	handler := NewOutpassHandler(mock)

	from := time.Now().Add(time.Hour).UTC()
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses", dto.CreateOutpassRequest{
		Destination: "Home", Reason: "family visit",
		FromDate: from, ToDate: from.Add(24 * time.Hour),
	}, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "student-1", mock.lastActorID)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data)
}

func TestOutpassHandlerCreateRequiresAuth(t *testing.T) {
	handler := NewOutpassHandler(&outpassServiceMock{})
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses", dto.CreateOutpassRequest{}, nil)

	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOutpassHandlerCreateConflict(t *testing.T) {
	mock := &outpassServiceMock{requestErr: appErrors.ErrConflictingInterval}
	handler := NewOutpassHandler(mock)

	from := time.Now().Add(time.Hour).UTC()
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses", dto.CreateOutpassRequest{
		Destination: "Home", Reason: "family visit",
		FromDate: from, ToDate: from.Add(24 * time.Hour),
	}, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICTING_INTERVAL", envelope.Error.Code)
}

func TestOutpassHandlerListRejectsUnknownStatus(t *testing.T) {
	handler := NewOutpassHandler(&outpassServiceMock{})
	c, w := newOutpassTestContext(t, http.MethodGet, "/outpasses?status=BOGUS", nil,
		&models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden})

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutpassHandlerListReturnsPagination(t *testing.T) {
	mock := &outpassServiceMock{listResp: []models.Outpass{{ID: "op-1"}, {ID: "op-2"}}}
	handler := NewOutpassHandler(mock)
	c, w := newOutpassTestContext(t, http.MethodGet, "/outpasses?status=pending,approved", nil,
		&models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.TotalCount)
}

func TestOutpassHandlerApproveConflict(t *testing.T) {
	mock := &outpassServiceMock{approveErr: appErrors.ErrInvalidState}
	handler := NewOutpassHandler(mock)
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses/op-1/approve", nil,
		&models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden})
	c.Params = gin.Params{{Key: "id", Value: "op-1"}}

	handler.Approve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOutpassHandlerRejectRequiresBody(t *testing.T) {
	handler := NewOutpassHandler(&outpassServiceMock{})
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses/op-1/reject", nil,
		&models.JWTClaims{UserID: "warden-1", Role: models.RoleWarden})
	c.Params = gin.Params{{Key: "id", Value: "op-1"}}

	handler.Reject(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutpassHandlerScan(t *testing.T) {
	mock := &outpassServiceMock{scanResp: &dto.ScanResult{
		OutpassID: "op-1", SequenceNumber: "OP-20250314-0001",
		Status: models.OutpassStatusApproved, StudentName: "Asha Nair",
	}}
	handler := NewOutpassHandler(mock)
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses/scan",
		dto.ScanRequest{Token: "some-token"}, nil)

	handler.Scan(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data)
}

func TestOutpassHandlerScanInvalidToken(t *testing.T) {
	mock := &outpassServiceMock{scanErr: appErrors.ErrInvalidSignature}
	handler := NewOutpassHandler(mock)
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses/scan",
		dto.ScanRequest{Token: "garbage"}, nil)

	handler.Scan(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOutpassHandlerSweep(t *testing.T) {
	mock := &outpassServiceMock{sweepResp: &dto.SweepResult{Examined: 3, Flagged: 2}}
	handler := NewOutpassHandler(mock)
	c, w := newOutpassTestContext(t, http.MethodPost, "/outpasses/sweep", nil,
		&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Sweep(c)
	require.Equal(t, http.StatusOK, w.Code)
}
