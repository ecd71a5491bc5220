package cloudwatcher

import "github.com/panoptes/aag-weather/internal/config"

// classifyCloud implements §4.7's cloud classification: d = sky - ambient;
// thresholds are ordered so very_cloudy is checked first (it is the more
// severe, numerically larger bound).
func classifyCloud(skyTempC, ambientTempC float64, haveBoth bool, t config.Thresholds) CloudCondition {
	if !haveBoth {
		return CloudUnknown
	}
	d := skyTempC - ambientTempC
	switch {
	case d >= t.VeryCloudy:
		return CloudVeryCloudy
	case d >= t.Cloudy:
		return CloudCloudy
	default:
		return CloudClear
	}
}

// classifyWind implements §4.7's strictly ordered wind classification,
// most severe first.
func classifyWind(windSpeedKmh float64, haveWind bool, t config.Thresholds) WindCondition {
	if !haveWind {
		return WindUnknown
	}
	switch {
	case windSpeedKmh >= t.VeryGusty:
		return WindVeryGusty
	case windSpeedKmh >= t.Gusty:
		return WindGusty
	case windSpeedKmh >= t.VeryWindy:
		return WindVeryWindy
	case windSpeedKmh >= t.Windy:
		return WindWindy
	default:
		return WindCalm
	}
}

// classifyRain implements §4.7's rain classification. Rain frequency
// decreases as wetness increases, so the most severe (lowest) bucket is
// checked first.
func classifyRain(rainFrequency int, haveRain bool, t config.Thresholds) RainCondition {
	if !haveRain {
		return RainUnknown
	}
	switch {
	case rainFrequency <= t.Rainy:
		return RainRainy
	case rainFrequency <= t.Wet:
		return RainWet
	default:
		return RainDry
	}
}

// classifySafety fills in a Reading's condition and safety fields in place,
// given the already-computed raw inputs and configured thresholds/ignore
// list (§4.7). haveWind indicates whether an anemometer reading was
// available for this cycle.
func classifySafety(r *Reading, haveWind bool, cfg config.Config) {
	r.CloudCondition = classifyCloud(r.SkyTempC, r.AmbientTempC, true, cfg.Thresholds)
	r.WindCondition = classifyWind(r.WindSpeedKmh, haveWind, cfg.Thresholds)
	r.RainCondition = classifyRain(r.RainFrequency, true, cfg.Thresholds)

	r.CloudSafe = r.CloudCondition == CloudClear
	r.WindSafe = r.WindCondition == WindCalm
	r.RainSafe = r.RainCondition == RainDry

	if cfg.IgnoreUnsafe["cloud"] {
		r.CloudSafe = true
	}
	if cfg.IgnoreUnsafe["wind"] {
		r.WindSafe = true
	}
	if cfg.IgnoreUnsafe["rain"] {
		r.RainSafe = true
	}

	anyUnknown := r.CloudCondition == CloudUnknown || r.WindCondition == WindUnknown || r.RainCondition == RainUnknown
	r.IsSafe = !anyUnknown && r.CloudSafe && r.WindSafe && r.RainSafe
}
