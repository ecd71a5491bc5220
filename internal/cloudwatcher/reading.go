package cloudwatcher

import (
	"math"
	"time"

	"github.com/panoptes/aag-weather/internal/log"
)

// CloudCondition classifies the sky-ambient temperature delta (§4.7).
type CloudCondition int

const (
	CloudUnknown CloudCondition = iota
	CloudClear
	CloudCloudy
	CloudVeryCloudy
)

func (c CloudCondition) String() string {
	switch c {
	case CloudClear:
		return "clear"
	case CloudCloudy:
		return "cloudy"
	case CloudVeryCloudy:
		return "very_cloudy"
	default:
		return "unknown"
	}
}

// WindCondition classifies wind speed (§4.7).
type WindCondition int

const (
	WindUnknown WindCondition = iota
	WindCalm
	WindWindy
	WindVeryWindy
	WindGusty
	WindVeryGusty
)

func (w WindCondition) String() string {
	switch w {
	case WindCalm:
		return "calm"
	case WindWindy:
		return "windy"
	case WindVeryWindy:
		return "very_windy"
	case WindGusty:
		return "gusty"
	case WindVeryGusty:
		return "very_gusty"
	default:
		return "unknown"
	}
}

// RainCondition classifies rain frequency (§4.7).
type RainCondition int

const (
	RainUnknown RainCondition = iota
	RainDry
	RainWet
	RainRainy
)

func (r RainCondition) String() string {
	switch r {
	case RainDry:
		return "dry"
	case RainWet:
		return "wet"
	case RainRainy:
		return "rainy"
	default:
		return "unknown"
	}
}

// Reading is one fully populated, safety-classified acquisition record
// (§3). Optional quantities that the hardware or firmware does not supply
// are either nil pointers (*float64, *int) or plain values paired with a
// "Has" bool flag (HasWindSpeed, HasPWM); the zero value of such a plain
// field is meaningless without checking the matching "Has" flag.
type Reading struct {
	Timestamp time.Time

	SkyTempC       float64
	AmbientTempC   float64
	RHSensorTempC  *float64
	PressureTempC  *float64
	HasWindSpeed   bool
	WindSpeedKmh   float64
	RainFrequency  int
	Humidity       *float64 // percent
	Pressure       *float64 // Pa
	SeaLevelPress  *float64 // Pa
	DewPointC      *float64

	LightPeriodRaw *int
	AmbientNTCRaw  int
	LDRRaw         int
	ZenerRaw       int
	RainNTCRaw     int

	SkyQualityMPSAS *float64

	HasPWM bool
	PWMPct float64

	SwitchState SwitchState

	CloudCondition CloudCondition
	WindCondition  WindCondition
	RainCondition  RainCondition

	CloudSafe bool
	WindSafe  bool
	RainSafe  bool
	IsSafe    bool

	InternalErrors *[4]int
}

// skyTempFromRaw converts the raw IR sky-temperature count to °C (§4.6).
func skyTempFromRaw(raw int) float64 { return float64(raw) / 100 }

// ambientTempFromRaw converts the raw IR ambient-temperature count to °C
// (§4.6's IR fallback).
func ambientTempFromRaw(raw int) float64 { return float64(raw) / 100 }

// rhSensorTempFromRaw converts the raw RH-sensor NTC count to °C (§4.6).
func rhSensorTempFromRaw(raw int) float64 {
	return float64(raw)*172.72/65536 - 46.85
}

// humidityFromRaw converts the raw humidity count to percent (§4.6).
func humidityFromRaw(raw int) float64 {
	return float64(raw)*125/65536 - 6
}

// pressureFromRaw converts the raw pressure count to Pa (§4.6).
func pressureFromRaw(raw int) float64 { return float64(raw) / 16 }

// pressureTempFromRaw converts the raw pressure-sensor temperature count to
// °C (§4.6).
func pressureTempFromRaw(raw int) float64 { return float64(raw) / 100 }

// windSpeedFromRaw applies the new-model wind formula: (raw*0.84)+3 km/h,
// with raw==0 forced to exactly 0 (§4.6). Older firmware's multiplier-only
// model is not implemented; see DESIGN.md's Open Question decisions on the
// wind-speed formula.
func windSpeedFromRaw(raw int) float64 {
	if raw == 0 {
		return 0
	}
	return float64(raw)*0.84 + 3
}

// pwmPercentFromRaw converts the raw 0-1023 PWM count to percent (§4.6).
func pwmPercentFromRaw(raw int) float64 {
	return float64(raw) * 100 / 1023
}

// dewPointC computes the dew point via the Magnus formula given ambient
// temperature and relative humidity. RH is clamped to (0, 100]; if rh is
// outside that range after clamping or temp/rh inputs are unusable, it
// returns (0, false).
func dewPointC(tempC, rhPct float64) (float64, bool) {
	const a = 17.625
	const b = 243.04

	if rhPct <= 0 {
		return 0, false
	}
	if rhPct > 100 {
		rhPct = 100
	}

	gamma := math.Log(rhPct/100) + (a*tempC)/(b+tempC)
	dp := (b * gamma) / (a - gamma)
	if math.IsNaN(dp) || math.IsInf(dp, 0) {
		return 0, false
	}
	return dp, true
}

// seaLevelPressurePa reduces station pressure P (Pa) to sea level given
// station temperature T (°C) and elevation h (m) (§4.6). If the
// exponentiation base is non-positive, a warning is logged and the input
// pressure is returned unchanged.
func seaLevelPressurePa(pressurePa, tempC, elevationM float64) float64 {
	base := 1 - (0.0065*elevationM)/(tempC+0.0065*elevationM+273.15)
	if base <= 0 {
		log.Warnf("sea-level pressure base %v is non-positive (temp %v C, elevation %v m); using station pressure", base, tempC, elevationM)
		return pressurePa
	}
	return pressurePa * math.Pow(base, -5.275)
}

// skyQualityMPSAS computes sky brightness in magnitudes per square
// arcsecond from the raw light period and ambient temperature (§4.6). p
// must be a positive raw light-period count; if p<=0 this returns
// (0, false).
func skyQualityMPSAS(lightPeriodRaw int, ambientTempC, sqReference float64) (float64, bool) {
	if lightPeriodRaw <= 0 {
		return 0, false
	}
	m := sqReference - 2.5*math.Log10(250000/float64(lightPeriodRaw))
	mpsas := (m - 0.042) + 0.00212*ambientTempC
	return mpsas, true
}
