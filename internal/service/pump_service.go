package service

import (
	"context"

	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/models"
)

// PumpService talks to the live device through the vendor cloud. Every call
// builds a fresh client, logs in and performs one operation.
type PumpService struct {
	factory    ClientFactory
	deviceCode string
	log        *logger.Logger
}

func NewPumpService(factory ClientFactory, deviceCode string, log *logger.Logger) *PumpService {
	return &PumpService{factory: factory, deviceCode: deviceCode, log: log}
}

// Snapshot returns the current value of every known parameter, keyed by
// protocol code. The map is empty, never nil, when the cloud is unreachable.
func (s *PumpService) Snapshot(ctx context.Context) map[string]string {
	client := s.factory()
	if !client.Login(ctx) {
		s.log.Warnw("snapshot skipped, cloud login failed")
		return map[string]string{}
	}
	return client.GetAllParameters(ctx, s.deviceCode, models.AllParams)
}

// DeviceStatus returns the raw device record from the vendor's device list.
func (s *PumpService) DeviceStatus(ctx context.Context) map[string]any {
	client := s.factory()
	if !client.Login(ctx) {
		s.log.Warnw("device status skipped, cloud login failed")
		return map[string]any{}
	}
	return client.GetDeviceStatus(ctx, s.deviceCode)
}

// Control writes one parameter on the device and reports whether the vendor
// accepted it.
func (s *PumpService) Control(ctx context.Context, code, value string) bool {
	client := s.factory()
	if !client.Login(ctx) {
		s.log.Warnw("control skipped, cloud login failed", "code", code)
		return false
	}
	ok := client.Control(ctx, s.deviceCode, code, value)
	if ok {
		s.log.Infow("parameter written", "code", code, "value", value)
	} else {
		s.log.Warnw("parameter write rejected", "code", code, "value", value)
	}
	return ok
}
