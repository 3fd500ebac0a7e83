package models

// Vendor parameter codes the pipeline depends on. The vendor identifies every
// readable or writable device value by one of these string keys.
const (
	CodePower      = "Power" // "0"/"1"
	CodeMode       = "Mode"  // "1" heating, "2" cooling, "3" hot water
	CodeReturnTemp = "T01"
	CodeFlowTemp   = "T02"
	CodeOutdoor    = "T04"
	CodeTankTemp   = "T06"
	CodeCompressor = "T12"
	CodeCompFreq   = "T33"
	CodeFlowRate   = "T39"  // m³/h
	CodePowerKW    = "2054" // electrical power, kW
)

// History "address" channels exposed by the vendor's snapshot endpoint.
const (
	AddrFlowTemp = "2046"
	AddrTankTemp = "2047"
	AddrOutdoor  = "2048"
	AddrPowerKW  = "2054"
)

// LogParams is the set fetched each poll cycle; everything the readings table
// stores plus the operating-state codes used for event detection.
var LogParams = []string{
	CodePower, CodeMode, "ModeState",
	"T01", "T02", "T03", "T04", "T05", "T06", "T08", "T10", "T11", "T12", "T15",
	"T33", "T34", "T35", "T36", "T37", "T38", "T39",
	"R01", "M1 Hot Water Target", "M1 Heating Target",
	"compensate_offset", "compensate_slope",
	"hanControl", "Fault1",
	"SG Status",
	CodePowerKW,
}

// AllParams is the full snapshot requested by /api/status: LogParams plus
// targets, heating-curve points and zone 2 settings shown on the dashboard.
var AllParams = append(append([]string{}, LogParams...),
	"T53", "M1 Mode", "M1 Max. Power",
	"Fault5", "Fault6",
	"app_heartbeat", "O15", "O17",
	"D12", "D14", "D15",
	"SG01",
	"CP1-1", "CP1-2", "CP1-3", "CP1-4", "CP1-5", "CP1-6", "CP1-7",
	"Zone 2 Curve Offset", "Zone 2 Cure Slope", "Zone 2 Water Target",
)
