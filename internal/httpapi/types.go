// Package httpapi exposes the Acquisition Loop's ring and Sensor Session
// snapshot over HTTP (§6). Handlers never touch device I/O directly; they
// only ever read copied-out state (§5).
package httpapi

import (
	"time"

	"github.com/panoptes/aag-weather/internal/cloudwatcher"
)

// readingDTO is the JSON wire shape for a single Reading, used by
// /weather and /weather/latest.
type readingDTO struct {
	Timestamp time.Time `json:"timestamp"`

	SkyTempC      float64  `json:"sky_temp_c"`
	AmbientTempC  float64  `json:"ambient_temp_c"`
	RHSensorTempC *float64 `json:"rh_sensor_temp_c,omitempty"`
	PressureTempC *float64 `json:"pressure_temp_c,omitempty"`

	WindSpeedKmh *float64 `json:"wind_speed_kmh,omitempty"`
	RainFrequency int     `json:"rain_frequency"`

	HumidityPct       *float64 `json:"humidity_pct,omitempty"`
	PressurePa        *float64 `json:"pressure_pa,omitempty"`
	SeaLevelPressurePa *float64 `json:"sea_level_pressure_pa,omitempty"`
	DewPointC         *float64 `json:"dew_point_c,omitempty"`

	LightPeriodRaw *int `json:"light_period_raw,omitempty"`
	AmbientNTCRaw  int  `json:"ambient_ntc_raw"`
	LDRRaw         int  `json:"ldr_raw"`
	ZenerRaw       int  `json:"zener_raw"`
	RainNTCRaw     int  `json:"rain_ntc_raw"`

	SkyQualityMPSAS *float64 `json:"sky_quality_mpsas,omitempty"`

	PWMPct *float64 `json:"pwm_pct,omitempty"`

	SwitchState string `json:"switch_state"`

	CloudCondition string `json:"cloud_condition"`
	WindCondition  string `json:"wind_condition"`
	RainCondition  string `json:"rain_condition"`

	CloudSafe bool `json:"cloud_safe"`
	WindSafe  bool `json:"wind_safe"`
	RainSafe  bool `json:"rain_safe"`
	IsSafe    bool `json:"is_safe"`

	InternalErrors *[4]int `json:"internal_errors,omitempty"`
}

func toReadingDTO(r cloudwatcher.Reading) readingDTO {
	dto := readingDTO{
		Timestamp:      r.Timestamp,
		SkyTempC:       r.SkyTempC,
		AmbientTempC:   r.AmbientTempC,
		RHSensorTempC:  r.RHSensorTempC,
		PressureTempC:  r.PressureTempC,
		RainFrequency:  r.RainFrequency,
		HumidityPct:    r.Humidity,
		PressurePa:     r.Pressure,
		SeaLevelPressurePa: r.SeaLevelPress,
		DewPointC:      r.DewPointC,
		LightPeriodRaw: r.LightPeriodRaw,
		AmbientNTCRaw:  r.AmbientNTCRaw,
		LDRRaw:         r.LDRRaw,
		ZenerRaw:       r.ZenerRaw,
		RainNTCRaw:     r.RainNTCRaw,
		SkyQualityMPSAS: r.SkyQualityMPSAS,
		SwitchState:    r.SwitchState.String(),
		CloudCondition: r.CloudCondition.String(),
		WindCondition:  r.WindCondition.String(),
		RainCondition:  r.RainCondition.String(),
		CloudSafe:      r.CloudSafe,
		WindSafe:       r.WindSafe,
		RainSafe:       r.RainSafe,
		IsSafe:         r.IsSafe,
		InternalErrors: r.InternalErrors,
	}
	if r.HasWindSpeed {
		v := r.WindSpeedKmh
		dto.WindSpeedKmh = &v
	}
	if r.HasPWM {
		v := r.PWMPct
		dto.PWMPct = &v
	}
	return dto
}

// stateDTO is the JSON wire shape for /weather/state (§6's exact field
// list).
type stateDTO struct {
	ServiceStatus           string    `json:"service_status"`
	SensorName              string    `json:"sensor_name"`
	SerialPort              string    `json:"serial_port"`
	FirmwareVersion         string    `json:"firmware_version"`
	SerialNumber            string    `json:"serial_number"`
	LastSuccessfulReadingAt time.Time `json:"last_successful_reading_at"`
	LastErrorMessage        string    `json:"last_error_message"`
	LastConnectionAttemptAt time.Time `json:"last_connection_attempt_at"`
	CurrentServerTime       time.Time `json:"current_server_time"`
	CaptureDelaySeconds     float64   `json:"capture_delay_seconds"`
	ReadingsBufferSize      int       `json:"readings_buffer_size"`
	ReadingsInBuffer        int       `json:"readings_in_buffer"`
}
