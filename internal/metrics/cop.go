// Package metrics derives heat output and coefficient of performance from raw
// pump readings.
package metrics

// Physical and policy constants for the COP calculation.
const (
	// SpecificHeatWater is the specific heat of water in kJ/(kg·K),
	// with 1 L of water taken as 1 kg.
	SpecificHeatWater = 4.186

	// MaxCOP caps the reported COP. It is a plausibility ceiling for this
	// equipment class, not a physical law; sensor noise at low electrical
	// draw otherwise produces absurd ratios.
	MaxCOP = 5.0

	// MinElectricalKW is the electrical-power floor below which COP is
	// undefined, guarding the division against near-zero draw.
	MinElectricalKW = 0.1
)

// Derive computes the delivered heat power and COP from one snapshot.
//
//	flowTempC    outgoing water temperature (T02)
//	returnTempC  incoming water temperature (T01)
//	flowM3h      circulation flow in m³/h (T39)
//	electricalKW electrical power draw in kW (code 2054)
//
// The returned COP is nil when electricalKW ≤ MinElectricalKW; otherwise it is
// heat/electrical capped at MaxCOP. Heat power is zero for non-positive flow.
func Derive(flowTempC, returnTempC, flowM3h, electricalKW float64) (cop *float64, heatPowerKW, deltaT float64) {
	deltaT = flowTempC - returnTempC

	flowLMin := flowM3h * 1000 / 60
	if flowLMin > 0 {
		heatPowerKW = flowLMin * deltaT * SpecificHeatWater / 60
	}

	if electricalKW > MinElectricalKW {
		v := heatPowerKW / electricalKW
		if v > MaxCOP {
			v = MaxCOP
		}
		cop = &v
	}
	return cop, heatPowerKW, deltaT
}
