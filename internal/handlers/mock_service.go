package handlers

import (
	"context"
	"time"

	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	registerID  int
	registerErr error
	authUser    *models.User
	authErr     error
	verifyUser  *models.User
	verifyErr   error
	approveUser *models.User
	approveErr  error

	lastRegisterEmail string
	lastAuthEmail     string
	lastVerifyToken   string
	lastApproveID     int
}

func (m *mockAuth) Register(_ context.Context, name, email, password string) (int, error) {
	m.lastRegisterEmail = email
	return m.registerID, m.registerErr
}

func (m *mockAuth) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	m.lastAuthEmail = email
	return m.authUser, m.authErr
}

func (m *mockAuth) VerifyEmail(_ context.Context, token string) (*models.User, error) {
	m.lastVerifyToken = token
	return m.verifyUser, m.verifyErr
}

func (m *mockAuth) Approve(_ context.Context, userID int) (*models.User, error) {
	m.lastApproveID = userID
	return m.approveUser, m.approveErr
}

func (m *mockAuth) EnsureAdmin(context.Context) error { return nil }

type mockPump struct {
	snapshot  map[string]string
	status    map[string]any
	controlOK bool

	lastControlCode  string
	lastControlValue string
	controlCalls     int
}

func (m *mockPump) Snapshot(context.Context) map[string]string {
	if m.snapshot == nil {
		return map[string]string{}
	}
	return m.snapshot
}

func (m *mockPump) DeviceStatus(context.Context) map[string]any { return m.status }

func (m *mockPump) Control(_ context.Context, code, value string) bool {
	m.controlCalls++
	m.lastControlCode = code
	m.lastControlValue = value
	return m.controlOK
}

type mockHistory struct {
	cloud     service.CloudHistory
	local     []models.Reading
	localErr  error
	stats     models.DBStats
	imported  int
	importErr error

	lastCloudStart time.Time
	lastCloudEnd   time.Time
	importCalls    int
}

func (m *mockHistory) Cloud(_ context.Context, start, end time.Time, _ string) service.CloudHistory {
	m.lastCloudStart, m.lastCloudEnd = start, end
	return m.cloud
}

func (m *mockHistory) Local(context.Context, int) ([]models.Reading, error) {
	return m.local, m.localErr
}

func (m *mockHistory) Stats(context.Context) (models.DBStats, error) { return m.stats, nil }

func (m *mockHistory) ImportCloud(context.Context) (int, error) {
	m.importCalls++
	return m.imported, m.importErr
}

type mockEnergy struct {
	report    service.EnergyReport
	lastHours int
}

func (m *mockEnergy) Usage(_ context.Context, hours int) service.EnergyReport {
	m.lastHours = hours
	return m.report
}

type mockEventLog struct {
	resp      []models.PumpEvent
	err       error
	lastHours int
}

func (m *mockEventLog) List(_ context.Context, hours int) ([]models.PumpEvent, error) {
	m.lastHours = hours
	return m.resp, m.err
}

type mockPoller struct {
	running bool
}

func (m *mockPoller) Start()        { m.running = true }
func (m *mockPoller) Stop()         { m.running = false }
func (m *mockPoller) Running() bool { return m.running }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	if s.Poller == nil {
		s.Poller = &mockPoller{}
	}
	h := NewHandler(s, "test-session-key", nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
