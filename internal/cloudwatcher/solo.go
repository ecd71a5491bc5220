package cloudwatcher

import (
	"fmt"
	"math"
	"time"
)

// SoloDocument is the third-party SOLO-compatible JSON snapshot schema
// (§6). Numeric precision is two decimals except rain/hum/safe, which are
// integers; switch is the string "open", "close" or "unknown". Missing
// numeric fields default to zero.
type SoloDocument struct {
	DataGMTTime string  `json:"dataGMTTime"`
	CWInfo      string  `json:"cwinfo"`
	Clouds      float64 `json:"clouds"`
	Temp        float64 `json:"temp"`
	Wind        float64 `json:"wind"`
	Gust        float64 `json:"gust"`
	Rain        int     `json:"rain"`
	LightMPSAS  float64 `json:"lightmpsas"`
	Switch      string  `json:"switch"`
	Safe        int     `json:"safe"`
	Hum         int     `json:"hum"`
	DewPoint    float64 `json:"dewp"`
	RawIR       float64 `json:"rawir"`
	AbsPress    float64 `json:"abspress"`
	RelPress    float64 `json:"relpress"`
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// FormatSolo renders a Reading plus session identity into the SOLO schema
// (§6), matching the field-for-field layout the original's
// format_reading_for_solo_dict produces.
func FormatSolo(r Reading, snap Snapshot) SoloDocument {
	doc := SoloDocument{
		DataGMTTime: r.Timestamp.UTC().Format("2006/01/02 15:04:05"),
		CWInfo:      fmt.Sprintf("Serial: %s, FW: %s", snap.Identity.SerialNumber, snap.Identity.Firmware),
		Clouds:      round2(r.SkyTempC - r.AmbientTempC),
		Temp:        round2(r.AmbientTempC),
		Rain:        r.RainFrequency,
		RawIR:       round2(r.SkyTempC),
		Switch:      r.SwitchState.String(),
	}

	if r.HasWindSpeed {
		doc.Wind = round2(r.WindSpeedKmh)
		doc.Gust = doc.Wind
	}
	if r.SkyQualityMPSAS != nil {
		doc.LightMPSAS = round2(*r.SkyQualityMPSAS)
	}
	if r.Humidity != nil {
		doc.Hum = int(math.Round(*r.Humidity))
	}
	if r.DewPointC != nil {
		doc.DewPoint = round2(*r.DewPointC)
	}
	if r.Pressure != nil {
		doc.AbsPress = round2(*r.Pressure / 100) // Pa -> hPa
	}
	if r.SeaLevelPress != nil {
		doc.RelPress = round2(*r.SeaLevelPress / 100)
	}
	if r.IsSafe {
		doc.Safe = 1
	}

	return doc
}

// formatTimestampUTC renders t in UTC using the same SOLO time layout that
// FormatSolo applies to dataGMTTime; FormatSolo does not call it.
func formatTimestampUTC(t time.Time) string {
	return t.UTC().Format("2006/01/02 15:04:05")
}
