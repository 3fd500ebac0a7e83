package models

import "time"

// Reading is one persisted snapshot of the pump, keyed by its hour-bucket
// timestamp. A later write for the same bucket replaces the row entirely.
type Reading struct {
	Timestamp     time.Time `json:"timestamp"`
	T01Return     float64   `json:"t01_return"`     // °C, water into the pump
	T02Flow       float64   `json:"t02_flow"`       // °C, water out of the pump
	T04Outdoor    float64   `json:"t04_outdoor"`    // °C
	T06Tank       float64   `json:"t06"`            // °C, hot water tank
	T12Compressor float64   `json:"t12_compressor"` // °C, discharge gas
	T33CompFreq   float64   `json:"t33_comp_freq"`  // Hz
	T39PowerKW    float64   `json:"t39_power_kw"`   // kW electrical draw
	D12FlowRate   float64   `json:"d12_flow_rate"`  // m³/h circulation flow
	COP           *float64  `json:"cop_calculated"` // nil when power ≤ 0.1 kW
	HeatPowerKW   float64   `json:"heat_power_kw"`
	Mode          string    `json:"mode"`
}

// CloudSample is a partial reading backfilled from the vendor's own history
// series. Missing channels stay nil and are stored as NULL; an existing local
// reading for the same bucket is never overwritten by a backfill.
type CloudSample struct {
	Timestamp  time.Time
	T02Flow    *float64
	T06Tank    *float64
	T04Outdoor *float64
	T39PowerKW *float64
}

// DBStats summarizes the readings table for /api/db-stats.
type DBStats struct {
	Count  int     `json:"count"`
	Oldest *string `json:"oldest"`
	Newest *string `json:"newest"`
}
