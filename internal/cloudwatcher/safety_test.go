package cloudwatcher

import (
	"testing"

	"github.com/panoptes/aag-weather/internal/config"
)

func defaultThresholds() config.Thresholds {
	return config.Default().Thresholds
}

// scenario builds a Reading from §8's concrete end-to-end scenario inputs
// and runs it through the safety classifier.
func scenario(skyTemp, ambientTemp, windKmh float64, haveWind bool, rainFreq int, cfg config.Config) Reading {
	r := Reading{
		SkyTempC:      skyTemp,
		AmbientTempC:  ambientTemp,
		WindSpeedKmh:  windKmh,
		HasWindSpeed:  haveWind,
		RainFrequency: rainFreq,
	}
	classifySafety(&r, haveWind, cfg)
	return r
}

func TestScenarioS1ClearCalmDrySafe(t *testing.T) {
	cfg := config.Default()
	r := scenario(-20, 20, 6, true, 2600, cfg)

	if r.CloudCondition != CloudClear {
		t.Errorf("cloud = %v, want Clear", r.CloudCondition)
	}
	if r.WindCondition != WindCalm {
		t.Errorf("wind = %v, want Calm", r.WindCondition)
	}
	if r.RainCondition != RainDry {
		t.Errorf("rain = %v, want Dry", r.RainCondition)
	}
	if !r.IsSafe {
		t.Errorf("is_safe = false, want true")
	}
}

func TestScenarioS2VeryCloudyOnly(t *testing.T) {
	cfg := config.Default()
	r := scenario(10, 20, 6, true, 2600, cfg)

	if r.CloudCondition != CloudVeryCloudy {
		t.Errorf("cloud = %v, want VeryCloudy", r.CloudCondition)
	}
	if r.CloudSafe {
		t.Errorf("cloud_safe = true, want false")
	}
	if r.IsSafe {
		t.Errorf("is_safe = true, want false")
	}
}

func TestScenarioS3Gusty(t *testing.T) {
	cfg := config.Default()
	r := scenario(-20, 20, 101, true, 2600, cfg)

	if r.WindCondition != WindGusty {
		t.Errorf("wind = %v, want Gusty", r.WindCondition)
	}
	if r.IsSafe {
		t.Errorf("is_safe = true, want false")
	}
}

func TestScenarioS4RainyThenDry(t *testing.T) {
	cfg := config.Default()

	rainy := scenario(-20, 20, 6, true, 1700, cfg)
	if rainy.RainCondition != RainRainy {
		t.Errorf("rain = %v, want Rainy", rainy.RainCondition)
	}
	if rainy.IsSafe {
		t.Errorf("is_safe = true, want false for rainy reading")
	}

	dry := scenario(-20, 20, 6, true, 2300, cfg)
	if dry.RainCondition != RainDry {
		t.Errorf("rain = %v, want Dry", dry.RainCondition)
	}
}

func TestRainBoundaryEqualsWetAndRainy(t *testing.T) {
	thr := defaultThresholds()
	if got := classifyRain(thr.Wet, true, thr); got != RainWet {
		t.Errorf("rain frequency == wet threshold => %v, want Wet", got)
	}
	if got := classifyRain(thr.Rainy, true, thr); got != RainRainy {
		t.Errorf("rain frequency == rainy threshold => %v, want Rainy", got)
	}
}

func TestWindBoundaryIsMoreSevere(t *testing.T) {
	thr := defaultThresholds()
	if got := classifyWind(thr.Windy, true, thr); got != WindWindy {
		t.Errorf("wind == windy threshold => %v, want Windy", got)
	}
	if got := classifyWind(thr.VeryGusty, true, thr); got != WindVeryGusty {
		t.Errorf("wind == very_gusty threshold => %v, want VeryGusty", got)
	}
}

func TestUnknownConditionsForceUnsafe(t *testing.T) {
	cfg := config.Default()
	r := Reading{SkyTempC: -20, AmbientTempC: 20, RainFrequency: 2600}
	classifySafety(&r, false, cfg) // no wind reading available

	if r.WindCondition != WindUnknown {
		t.Fatalf("wind = %v, want Unknown", r.WindCondition)
	}
	if r.IsSafe {
		t.Errorf("is_safe = true, want false when any condition is Unknown")
	}
}

func TestIgnoreUnsafeForcesFlagTrue(t *testing.T) {
	cfg := config.Default()
	cfg.IgnoreUnsafe = map[string]bool{"wind": true}
	// wind missing -> Unknown, but is_safe still depends on the Unknown
	// check, which ignore_unsafe does not override (§4.7: only flags are
	// forced, conditions remain Unknown).
	r := Reading{SkyTempC: -20, AmbientTempC: 20, RainFrequency: 2600}
	classifySafety(&r, false, cfg)

	if !r.WindSafe {
		t.Errorf("wind_safe = false, want true (forced by ignore_unsafe)")
	}
	if r.IsSafe {
		t.Errorf("is_safe = true, want false (wind condition is still Unknown)")
	}
}

func TestIgnoreUnsafeWithKnownCondition(t *testing.T) {
	cfg := config.Default()
	cfg.IgnoreUnsafe = map[string]bool{"cloud": true}
	r := scenario(10, 20, 6, true, 2600, cfg) // very cloudy, but ignored

	if r.CloudCondition != CloudVeryCloudy {
		t.Fatalf("cloud condition changed unexpectedly: %v", r.CloudCondition)
	}
	if !r.CloudSafe {
		t.Errorf("cloud_safe = false, want true (forced by ignore_unsafe)")
	}
	if !r.IsSafe {
		t.Errorf("is_safe = false, want true once cloud is ignored and wind/rain are safe")
	}
}

func TestWindMonotonicity(t *testing.T) {
	thr := defaultThresholds()
	speeds := []float64{0, thr.Windy - 1, thr.Windy, thr.VeryWindy, thr.Gusty, thr.VeryGusty, thr.VeryGusty + 50}
	prev := WindCalm
	for _, s := range speeds {
		cond := classifyWind(s, true, thr)
		if cond < prev {
			t.Errorf("wind severity decreased: speed %v gave %v after %v", s, cond, prev)
		}
		prev = cond
	}
}

func TestRainMonotonicity(t *testing.T) {
	thr := defaultThresholds()
	// Decreasing rain_frequency never decreases rain severity.
	freqs := []int{thr.Wet + 1000, thr.Wet, thr.Rainy, thr.Rainy - 500}
	prevSeverity := map[RainCondition]int{RainDry: 0, RainWet: 1, RainRainy: 2}
	last := 0
	for _, f := range freqs {
		cond := classifyRain(f, true, thr)
		sev := prevSeverity[cond]
		if sev < last {
			t.Errorf("rain severity decreased at frequency %d: got %v", f, cond)
		}
		last = sev
	}
}

func TestCloudMonotonicity(t *testing.T) {
	thr := defaultThresholds()
	deltas := []float64{thr.Cloudy - 10, thr.Cloudy, thr.VeryCloudy, thr.VeryCloudy + 10}
	prevSeverity := map[CloudCondition]int{CloudClear: 0, CloudCloudy: 1, CloudVeryCloudy: 2}
	last := 0
	for _, d := range deltas {
		cond := classifyCloud(d, 0, true, thr) // ambient=0 so sky-ambient==d
		sev := prevSeverity[cond]
		if sev < last {
			t.Errorf("cloud severity decreased at delta %v: got %v", d, cond)
		}
		last = sev
	}
}
