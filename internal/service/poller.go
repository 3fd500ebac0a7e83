package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/metrics"
	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/repository"
)

const defaultPollInterval = 10 * time.Minute

var modeNames = map[string]string{
	"1": "VÄRME",
	"2": "KYLA",
	"3": "VV",
}

// PollerService samples the pump on a fixed interval, stores one reading per
// hour bucket and records power/mode transitions. One worker goroutine,
// started and stopped explicitly by the owner.
type PollerService struct {
	readings   repository.Readings
	events     repository.Events
	factory    ClientFactory
	deviceCode string
	interval   time.Duration
	log        *logger.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	lastPower string
	lastMode  string
}

func NewPollerService(readings repository.Readings, events repository.Events, factory ClientFactory, deviceCode string, interval time.Duration, log *logger.Logger) *PollerService {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &PollerService{
		readings:   readings,
		events:     events,
		factory:    factory,
		deviceCode: deviceCode,
		interval:   interval,
		log:        log,
	}
}

// Start launches the worker. Calling Start on a running poller is a no-op.
func (p *PollerService) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(p.stopCh, p.doneCh)
	p.log.Infow("poller started", "interval", p.interval)
}

// Stop signals the worker and waits for the current cycle to finish.
func (p *PollerService) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stop)
	<-done
	p.log.Infow("poller stopped")
}

func (p *PollerService) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PollerService) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First sample right away, then on the ticker.
	p.cycle()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.cycle()
		}
	}
}

// cycle performs one acquisition. Every failure is logged and swallowed; the
// loop must outlive any single bad poll.
func (p *PollerService) cycle() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := p.factory()
	if !client.Login(ctx) {
		p.log.Warnw("poll skipped, cloud login failed")
		return
	}

	params := client.GetAllParameters(ctx, p.deviceCode, models.LogParams)
	if len(params) == 0 {
		p.log.Warnw("poll skipped, empty parameter set")
		return
	}

	reading := buildReading(params, time.Now())
	if err := p.readings.Upsert(ctx, reading); err != nil {
		p.log.Errorw("reading upsert failed", "error", err)
	} else {
		p.log.Infow("reading stored",
			"outdoor", reading.T04Outdoor,
			"tank", reading.T06Tank,
			"power_kw", reading.T39PowerKW,
			"mode", reading.Mode,
		)
	}

	p.recordTransitions(ctx, params)
}

// buildReading derives metrics from a raw parameter map. The t39_power_kw
// column holds the 2054 electrical power channel and d12_flow_rate holds the
// T39 flow reading, matching the stored history this replaces.
func buildReading(params map[string]string, now time.Time) models.Reading {
	powerKW := paramFloat(params, models.CodePowerKW)
	flowM3h := paramFloat(params, models.CodeFlowRate)
	flowTemp := paramFloat(params, models.CodeFlowTemp)
	returnTemp := paramFloat(params, models.CodeReturnTemp)

	cop, heatPower, _ := metrics.Derive(flowTemp, returnTemp, flowM3h, powerKW)

	return models.Reading{
		Timestamp:     now,
		T01Return:     returnTemp,
		T02Flow:       flowTemp,
		T04Outdoor:    paramFloat(params, models.CodeOutdoor),
		T06Tank:       paramFloat(params, models.CodeTankTemp),
		T12Compressor: paramFloat(params, models.CodeCompressor),
		T33CompFreq:   paramFloat(params, models.CodeCompFreq),
		T39PowerKW:    powerKW,
		D12FlowRate:   flowM3h,
		COP:           cop,
		HeatPowerKW:   heatPower,
		Mode:          params[models.CodeMode],
	}
}

func (p *PollerService) recordTransitions(ctx context.Context, params map[string]string) {
	power, mode := params[models.CodePower], params[models.CodeMode]

	if p.lastPower != "" && power != p.lastPower {
		desc := "Pump OFF"
		if power == "1" {
			desc = "Pump ON"
		}
		p.appendEvent(ctx, models.PumpEvent{
			Type:        models.EventPowerChange,
			Description: desc,
			ValueBefore: p.lastPower,
			ValueAfter:  power,
		})
	}

	if p.lastMode != "" && mode != p.lastMode {
		p.appendEvent(ctx, models.PumpEvent{
			Type:        models.EventModeChange,
			Description: fmt.Sprintf("Mode: %s till %s", modeName(p.lastMode), modeName(mode)),
			ValueBefore: p.lastMode,
			ValueAfter:  mode,
		})
	}

	p.lastPower, p.lastMode = power, mode
}

func (p *PollerService) appendEvent(ctx context.Context, e models.PumpEvent) {
	if err := p.events.Append(ctx, e); err != nil {
		p.log.Errorw("event append failed", "type", e.Type, "error", err)
		return
	}
	p.log.Infow("pump event", "type", e.Type, "description", e.Description)
}

func modeName(mode string) string {
	if name, ok := modeNames[mode]; ok {
		return name
	}
	return mode
}

// paramFloat reads one numeric parameter, zero when absent or malformed.
func paramFloat(params map[string]string, code string) float64 {
	v, err := strconv.ParseFloat(params[code], 64)
	if err != nil {
		return 0
	}
	return v
}
