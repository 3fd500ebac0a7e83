package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/metrics"
	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/perifal"
)

// fakeCloudClient satisfies CloudClient without any network.
type fakeCloudClient struct {
	loginOK bool
	params  map[string]string
	history map[string]perifal.HistorySeries

	logins     int
	paramCalls int
}

func (f *fakeCloudClient) Login(context.Context) bool {
	f.logins++
	return f.loginOK
}

func (f *fakeCloudClient) GetAllParameters(_ context.Context, _ string, _ []string) map[string]string {
	f.paramCalls++
	if f.params == nil {
		return map[string]string{}
	}
	return f.params
}

func (f *fakeCloudClient) GetDeviceStatus(context.Context, string) map[string]any {
	return map[string]any{}
}

func (f *fakeCloudClient) GetHistory(_ context.Context, _ string, address string, _, _ time.Time, _ string) perifal.HistorySeries {
	return f.history[address]
}

func (f *fakeCloudClient) Control(context.Context, string, string, string) bool { return true }

// fakeReadingsRepo records upserts in memory.
type fakeReadingsRepo struct {
	upserts   []models.Reading
	upsertErr error
	inserted  []models.CloudSample
}

func (f *fakeReadingsRepo) Upsert(_ context.Context, r models.Reading) error {
	f.upserts = append(f.upserts, r)
	return f.upsertErr
}

func (f *fakeReadingsRepo) ListSince(context.Context, time.Time) ([]models.Reading, error) {
	return nil, nil
}

func (f *fakeReadingsRepo) InsertIfAbsent(_ context.Context, s models.CloudSample) (bool, error) {
	f.inserted = append(f.inserted, s)
	return true, nil
}

func (f *fakeReadingsRepo) Stats(context.Context) (models.DBStats, error) {
	return models.DBStats{Count: len(f.upserts)}, nil
}

type fakeEventsRepo struct {
	appended []models.PumpEvent
}

func (f *fakeEventsRepo) Append(_ context.Context, e models.PumpEvent) error {
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeEventsRepo) List(context.Context, time.Time, int) ([]models.PumpEvent, error) {
	return f.appended, nil
}

func newTestPoller(client *fakeCloudClient, readings *fakeReadingsRepo, events *fakeEventsRepo) *PollerService {
	factory := func() CloudClient { return client }
	return NewPollerService(readings, events, factory, "A09A520276BA", time.Minute, logger.Get(logger.ErrorLevel))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestPoller_Cycle_StoresDerivedReading(t *testing.T) {
	client := &fakeCloudClient{
		loginOK: true,
		params: map[string]string{
			models.CodePower:      "1",
			models.CodeMode:       "1",
			models.CodeReturnTemp: "30",
			models.CodeFlowTemp:   "40",
			models.CodeOutdoor:    "-5.5",
			models.CodeTankTemp:   "52.1",
			models.CodeCompressor: "71",
			models.CodeCompFreq:   "60",
			models.CodeFlowRate:   "1.2",
			models.CodePowerKW:    "2.0",
		},
	}
	readings := &fakeReadingsRepo{}
	p := newTestPoller(client, readings, &fakeEventsRepo{})

	p.cycle()

	if len(readings.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(readings.upserts))
	}
	r := readings.upserts[0]

	// 1.2 m³/h at deltaT 10 is 20 l/min and ~13.95 kW of heat; COP caps at 5.
	wantHeat := (1.2 * 1000 / 60) * 10 * metrics.SpecificHeatWater / 60
	if !almostEqual(r.HeatPowerKW, wantHeat) {
		t.Errorf("heat power: got %v, want %v", r.HeatPowerKW, wantHeat)
	}
	if r.COP == nil || *r.COP != metrics.MaxCOP {
		t.Errorf("expected COP capped at %v, got %v", metrics.MaxCOP, r.COP)
	}
	if r.T39PowerKW != 2.0 {
		t.Errorf("electrical power column: got %v, want 2.0", r.T39PowerKW)
	}
	if r.D12FlowRate != 1.2 {
		t.Errorf("flow rate column: got %v, want 1.2", r.D12FlowRate)
	}
	if r.T04Outdoor != -5.5 || r.T06Tank != 52.1 {
		t.Errorf("temperatures not carried through: %+v", r)
	}
	if r.Mode != "1" {
		t.Errorf("mode: got %q, want \"1\"", r.Mode)
	}
}

func TestPoller_Cycle_NilCOPAtIdlePower(t *testing.T) {
	client := &fakeCloudClient{
		loginOK: true,
		params: map[string]string{
			models.CodeReturnTemp: "30",
			models.CodeFlowTemp:   "40",
			models.CodeFlowRate:   "1.2",
			models.CodePowerKW:    "0.05",
		},
	}
	readings := &fakeReadingsRepo{}
	p := newTestPoller(client, readings, &fakeEventsRepo{})

	p.cycle()

	if len(readings.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(readings.upserts))
	}
	if cop := readings.upserts[0].COP; cop != nil {
		t.Errorf("expected nil COP at 0.05 kW, got %v", *cop)
	}
}

func TestPoller_Cycle_SkipsOnLoginFailure(t *testing.T) {
	client := &fakeCloudClient{loginOK: false}
	readings := &fakeReadingsRepo{}
	p := newTestPoller(client, readings, &fakeEventsRepo{})

	p.cycle()

	if client.paramCalls != 0 {
		t.Errorf("expected no parameter call after failed login, got %d", client.paramCalls)
	}
	if len(readings.upserts) != 0 {
		t.Errorf("expected no upsert after failed login, got %d", len(readings.upserts))
	}
}

func TestPoller_Cycle_SkipsOnEmptyParameters(t *testing.T) {
	client := &fakeCloudClient{loginOK: true, params: map[string]string{}}
	readings := &fakeReadingsRepo{}
	p := newTestPoller(client, readings, &fakeEventsRepo{})

	p.cycle()

	if len(readings.upserts) != 0 {
		t.Errorf("expected no upsert for empty parameter set, got %d", len(readings.upserts))
	}
}

func TestPoller_RecordsPowerAndModeTransitions(t *testing.T) {
	client := &fakeCloudClient{
		loginOK: true,
		params: map[string]string{
			models.CodePower: "1",
			models.CodeMode:  "1",
		},
	}
	readings := &fakeReadingsRepo{}
	events := &fakeEventsRepo{}
	p := newTestPoller(client, readings, events)

	// First cycle only establishes the baseline, no events yet.
	p.cycle()
	if len(events.appended) != 0 {
		t.Fatalf("expected no events on first cycle, got %d", len(events.appended))
	}

	client.params = map[string]string{
		models.CodePower: "0",
		models.CodeMode:  "3",
	}
	p.cycle()

	if len(events.appended) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events.appended))
	}

	power := events.appended[0]
	if power.Type != models.EventPowerChange {
		t.Errorf("first event type: got %q", power.Type)
	}
	if power.Description != "Pump OFF" {
		t.Errorf("power description: got %q", power.Description)
	}
	if power.ValueBefore != "1" || power.ValueAfter != "0" {
		t.Errorf("power values: got %q -> %q", power.ValueBefore, power.ValueAfter)
	}

	mode := events.appended[1]
	if mode.Type != models.EventModeChange {
		t.Errorf("second event type: got %q", mode.Type)
	}
	if mode.Description != "Mode: VÄRME till VV" {
		t.Errorf("mode description: got %q", mode.Description)
	}

	// Unchanged state on a later cycle adds nothing.
	p.cycle()
	if len(events.appended) != 2 {
		t.Errorf("expected no events for unchanged state, got %d", len(events.appended))
	}
}

func TestPoller_UpsertErrorDoesNotStopTransitionTracking(t *testing.T) {
	client := &fakeCloudClient{
		loginOK: true,
		params:  map[string]string{models.CodePower: "1", models.CodeMode: "1"},
	}
	readings := &fakeReadingsRepo{upsertErr: context.DeadlineExceeded}
	events := &fakeEventsRepo{}
	p := newTestPoller(client, readings, events)

	p.cycle()
	client.params = map[string]string{models.CodePower: "0", models.CodeMode: "1"}
	p.cycle()

	if len(events.appended) != 1 {
		t.Fatalf("expected power event despite upsert failures, got %d events", len(events.appended))
	}
}

func TestPoller_StartStop(t *testing.T) {
	client := &fakeCloudClient{loginOK: true, params: map[string]string{models.CodePower: "1"}}
	readings := &fakeReadingsRepo{}
	p := newTestPoller(client, readings, &fakeEventsRepo{})

	p.Start()
	if !p.Running() {
		t.Fatal("expected Running after Start")
	}
	p.Start() // second Start is a no-op

	p.Stop()
	if p.Running() {
		t.Fatal("expected not Running after Stop")
	}
	p.Stop() // second Stop is a no-op

	// The immediate first sample must have landed before Stop returned.
	if len(readings.upserts) == 0 {
		t.Error("expected at least one reading from the startup cycle")
	}
}
