package service

import (
	"context"
	"sort"
	"time"

	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/perifal"
	"github.com/Mb29661/LV418/internal/repository"
)

const importWindow = 72 * time.Hour

// cloudHourLayout is the dateTime format of hourly history points.
const cloudHourLayout = "2006-01-02 15"

// CloudPoint is one merged hourly sample assembled from the vendor's
// per-channel series. ReturnTemp is never present in cloud data, so the
// capped on-device COP cannot be reproduced; COP here is a rough estimate
// assuming a 2 degree deltaT at 50 l/min.
type CloudPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	FlowTemp    *float64  `json:"t02_flow"`
	TankTemp    *float64  `json:"t06"`
	OutdoorTemp *float64  `json:"t04_outdoor"`
	ReturnTemp  *float64  `json:"t01_return"`
	COP         *float64  `json:"cop_calculated"`
	PowerKW     *float64  `json:"t39_power_kw"`
}

// CloudHistory is the merged multi-channel answer for /api/history.
type CloudHistory struct {
	Readings     []CloudPoint `json:"readings"`
	Source       string       `json:"source"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	Frequency    string       `json:"frequency"`
	FlowTitle    string       `json:"flow_title,omitempty"`
	TankTitle    string       `json:"tank_title,omitempty"`
	OutdoorTitle string       `json:"outdoor_title,omitempty"`
}

type HistoryService struct {
	readings   repository.Readings
	factory    ClientFactory
	deviceCode string
	log        *logger.Logger
}

func NewHistoryService(readings repository.Readings, factory ClientFactory, deviceCode string, log *logger.Logger) *HistoryService {
	return &HistoryService{readings: readings, factory: factory, deviceCode: deviceCode, log: log}
}

// FrequencyFor maps a requested window to the vendor's sampling frequency.
// Up to three days the cloud returns hourly points; beyond that it switches
// to coarser aggregates.
func FrequencyFor(start, end time.Time) string {
	switch hours := end.Sub(start).Hours(); {
	case hours <= 72:
		return "day"
	case hours <= 168:
		return "week"
	default:
		return "month"
	}
}

// Cloud fetches the four history channels over [start, end] and merges them
// into one chronological series keyed by the vendor's dateTime strings.
func (s *HistoryService) Cloud(ctx context.Context, start, end time.Time, frequency string) CloudHistory {
	if frequency == "" {
		frequency = FrequencyFor(start, end)
	}

	out := CloudHistory{
		Readings:  []CloudPoint{},
		Source:    "cloud",
		StartTime: start.Format(perifal.TimeLayout),
		EndTime:   end.Format(perifal.TimeLayout),
		Frequency: frequency,
	}

	client := s.factory()
	if !client.Login(ctx) {
		s.log.Warnw("cloud history skipped, login failed")
		return out
	}

	flow := client.GetHistory(ctx, s.deviceCode, models.AddrFlowTemp, start, end, frequency)
	tank := client.GetHistory(ctx, s.deviceCode, models.AddrTankTemp, start, end, frequency)
	outdoor := client.GetHistory(ctx, s.deviceCode, models.AddrOutdoor, start, end, frequency)
	power := client.GetHistory(ctx, s.deviceCode, models.AddrPowerKW, start, end, frequency)

	out.FlowTitle = flow.Title
	out.TankTitle = tank.Title
	out.OutdoorTitle = outdoor.Title

	flowAt := seriesByTime(flow)
	tankAt := seriesByTime(tank)
	outdoorAt := seriesByTime(outdoor)
	powerAt := seriesByTime(power)

	for _, dt := range sortedTimes(flowAt, tankAt, outdoorAt, powerAt) {
		ts, err := time.Parse(cloudHourLayout, dt)
		if err != nil {
			continue
		}
		p := CloudPoint{
			Timestamp:   ts,
			FlowTemp:    flowAt[dt],
			TankTemp:    tankAt[dt],
			OutdoorTemp: outdoorAt[dt],
			PowerKW:     powerAt[dt],
		}
		p.COP = estimateCloudCOP(p.FlowTemp, p.PowerKW)
		out.Readings = append(out.Readings, p)
	}
	return out
}

// Local returns hourly readings recorded by the poller over the last N hours.
func (s *HistoryService) Local(ctx context.Context, hours int) ([]models.Reading, error) {
	return s.readings.ListSince(ctx, time.Now().Add(-time.Duration(hours)*time.Hour))
}

// Stats reports row count and the covered time range of the readings table.
func (s *HistoryService) Stats(ctx context.Context) (models.DBStats, error) {
	return s.readings.Stats(ctx)
}

// ImportCloud backfills the readings table from the last 72 hours of hourly
// cloud data. Buckets already recorded by the poller are left untouched; the
// poller's rows carry more channels than the cloud export does.
func (s *HistoryService) ImportCloud(ctx context.Context) (int, error) {
	client := s.factory()
	if !client.Login(ctx) {
		s.log.Warnw("cloud import skipped, login failed")
		return 0, nil
	}

	end := time.Now()
	start := end.Add(-importWindow)

	flowAt := seriesByTime(client.GetHistory(ctx, s.deviceCode, models.AddrFlowTemp, start, end, "day"))
	tankAt := seriesByTime(client.GetHistory(ctx, s.deviceCode, models.AddrTankTemp, start, end, "day"))
	outdoorAt := seriesByTime(client.GetHistory(ctx, s.deviceCode, models.AddrOutdoor, start, end, "day"))
	powerAt := seriesByTime(client.GetHistory(ctx, s.deviceCode, models.AddrPowerKW, start, end, "day"))

	imported := 0
	for _, dt := range sortedTimes(flowAt, tankAt, outdoorAt, powerAt) {
		ts, err := time.Parse(cloudHourLayout, dt)
		if err != nil {
			continue
		}
		sample := models.CloudSample{
			Timestamp:  ts,
			T02Flow:    flowAt[dt],
			T06Tank:    tankAt[dt],
			T04Outdoor: outdoorAt[dt],
			T39PowerKW: powerAt[dt],
		}
		inserted, err := s.readings.InsertIfAbsent(ctx, sample)
		if err != nil {
			s.log.Errorw("cloud import insert failed", "timestamp", dt, "error", err)
			continue
		}
		if inserted {
			imported++
		}
	}
	s.log.Infow("cloud import finished", "imported", imported)
	return imported, nil
}

// estimateCloudCOP approximates COP from cloud data, which lacks the return
// temperature. It assumes roughly 7 kW of heat at full flow.
func estimateCloudCOP(flowTemp, powerKW *float64) *float64 {
	if flowTemp == nil || powerKW == nil || *powerKW <= 0.1 {
		return nil
	}
	estimatedHeat := (50 * 2 * 4.186) / 60
	cop := estimatedHeat / *powerKW
	return &cop
}

func seriesByTime(series perifal.HistorySeries) map[string]*float64 {
	out := make(map[string]*float64, len(series.ValueList))
	for _, p := range series.ValueList {
		v := p.Value()
		out[p.DateTime] = &v
	}
	return out
}

func sortedTimes(sets ...map[string]*float64) []string {
	seen := map[string]struct{}{}
	for _, set := range sets {
		for dt := range set {
			seen[dt] = struct{}{}
		}
	}
	times := make([]string, 0, len(seen))
	for dt := range seen {
		times = append(times, dt)
	}
	sort.Strings(times)
	return times
}
