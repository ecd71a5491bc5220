package cloudwatcher

import (
	"testing"
	"time"
)

func TestFormatSoloFullReading(t *testing.T) {
	hum := 55.0
	dp := 8.5
	press := 101300.0
	slp := 101500.0
	mpsas := 19.8

	r := Reading{
		Timestamp:       time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		SkyTempC:        -20,
		AmbientTempC:    20,
		HasWindSpeed:    true,
		WindSpeedKmh:    12.345,
		RainFrequency:   2600,
		Humidity:        &hum,
		DewPointC:       &dp,
		Pressure:        &press,
		SeaLevelPress:   &slp,
		SkyQualityMPSAS: &mpsas,
		SwitchState:     SwitchOpen,
		IsSafe:          true,
	}
	snap := Snapshot{Identity: Identity{SerialNumber: "1234", Firmware: "5.6"}}

	doc := FormatSolo(r, snap)

	if doc.DataGMTTime != "2026/07/31 12:00:00" {
		t.Errorf("dataGMTTime = %q", doc.DataGMTTime)
	}
	if doc.CWInfo != "Serial: 1234, FW: 5.6" {
		t.Errorf("cwinfo = %q", doc.CWInfo)
	}
	if doc.Clouds != -40 {
		t.Errorf("clouds = %v, want -40", doc.Clouds)
	}
	if doc.Temp != 20 {
		t.Errorf("temp = %v, want 20", doc.Temp)
	}
	if doc.Wind != 12.35 || doc.Gust != 12.35 {
		t.Errorf("wind/gust = %v/%v, want 12.35", doc.Wind, doc.Gust)
	}
	if doc.Rain != 2600 {
		t.Errorf("rain = %v, want 2600", doc.Rain)
	}
	if doc.Switch != "open" {
		t.Errorf("switch = %q, want open", doc.Switch)
	}
	if doc.Safe != 1 {
		t.Errorf("safe = %v, want 1", doc.Safe)
	}
	if doc.Hum != 55 {
		t.Errorf("hum = %v, want 55", doc.Hum)
	}
	if doc.AbsPress != 1013 {
		t.Errorf("abspress = %v, want 1013 hPa", doc.AbsPress)
	}
	if doc.RelPress != 1015 {
		t.Errorf("relpress = %v, want 1015 hPa", doc.RelPress)
	}
}

func TestFormatSoloMissingFieldsDefaultZero(t *testing.T) {
	r := Reading{
		Timestamp:   time.Now(),
		SkyTempC:    -10,
		AmbientTempC: 10,
		SwitchState: SwitchUnknown,
	}
	doc := FormatSolo(r, Snapshot{})

	if doc.Wind != 0 || doc.Gust != 0 {
		t.Errorf("wind/gust should default to 0 when no anemometer, got %v/%v", doc.Wind, doc.Gust)
	}
	if doc.LightMPSAS != 0 {
		t.Errorf("lightmpsas should default to 0, got %v", doc.LightMPSAS)
	}
	if doc.Hum != 0 {
		t.Errorf("hum should default to 0, got %v", doc.Hum)
	}
	if doc.Safe != 0 {
		t.Errorf("safe should default to 0, got %v", doc.Safe)
	}
	if doc.Switch != "unknown" {
		t.Errorf("switch = %q, want %q", doc.Switch, "unknown")
	}
}
