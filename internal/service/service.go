package service

import (
	"context"
	"time"

	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/mailer"
	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/perifal"
	"github.com/Mb29661/LV418/internal/repository"
)

// CloudClient is the slice of the vendor API client the services use.
type CloudClient interface {
	Login(ctx context.Context) bool
	GetAllParameters(ctx context.Context, deviceCode string, codes []string) map[string]string
	GetDeviceStatus(ctx context.Context, deviceCode string) map[string]any
	GetHistory(ctx context.Context, deviceCode, address string, start, end time.Time, frequency string) perifal.HistorySeries
	Control(ctx context.Context, deviceCode, code, value string) bool
}

// ClientFactory builds a fresh vendor client. The client's token state is
// mutable and unsynchronized, so every request path and every poll cycle gets
// its own instance instead of sharing one.
type ClientFactory func() CloudClient

type Authorization interface {
	Register(ctx context.Context, name, email, password string) (int, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	Approve(ctx context.Context, userID int) (*models.User, error)
	EnsureAdmin(ctx context.Context) error
}

// Pump exposes the live device: parameter snapshot, status and writes.
type Pump interface {
	Snapshot(ctx context.Context) map[string]string
	DeviceStatus(ctx context.Context) map[string]any
	Control(ctx context.Context, code, value string) bool
}

// History serves time series from the cloud and from the local store.
type History interface {
	Cloud(ctx context.Context, start, end time.Time, frequency string) CloudHistory
	Local(ctx context.Context, hours int) ([]models.Reading, error)
	Stats(ctx context.Context) (models.DBStats, error)
	ImportCloud(ctx context.Context) (int, error)
}

type Energy interface {
	Usage(ctx context.Context, hours int) EnergyReport
}

type EventLog interface {
	List(ctx context.Context, hours int) ([]models.PumpEvent, error)
}

// Poller is the background acquisition loop.
type Poller interface {
	Start()
	Stop()
	Running() bool
}

// Config carries the wiring knobs the services need beyond their repos.
type Config struct {
	DeviceCode    string
	AppURL        string
	AdminEmail    string
	AdminPassword string
	SigningKey    string
	PollInterval  time.Duration
}

type Service struct {
	Authorization
	Pump
	History
	Energy
	EventLog
	Poller
}

func NewService(repos *repository.Repository, factory ClientFactory, mail mailer.Mailer, cfg Config, log *logger.Logger) *Service {
	return &Service{
		Authorization: NewAuthService(repos.Users, mail, cfg, log),
		Pump:          NewPumpService(factory, cfg.DeviceCode, log),
		History:       NewHistoryService(repos.Readings, factory, cfg.DeviceCode, log),
		Energy:        NewEnergyService(factory, cfg.DeviceCode, log),
		EventLog:      NewEventLogService(repos.Events),
		Poller:        NewPollerService(repos.Readings, repos.Events, factory, cfg.DeviceCode, cfg.PollInterval, log),
	}
}
