package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/panoptes/aag-weather/internal/cloudwatcher"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleWeather serves GET /weather: the full ring, oldest first. An empty
// ring serves [], never 404 or 503 (§8 boundary behavior).
func (c *Controller) handleWeather(w http.ResponseWriter, r *http.Request) {
	readings := c.loop.Ring().Snapshot()
	dtos := make([]readingDTO, len(readings))
	for i, rd := range readings {
		dtos[i] = toReadingDTO(rd)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// handleWeatherLatest serves GET /weather/latest: 503 if there is no live
// connection and no cached reading, 404 if connected but nothing has been
// read yet, otherwise the most recent cached Reading (§6, §7).
func (c *Controller) handleWeatherLatest(w http.ResponseWriter, r *http.Request) {
	latest, ok := c.loop.Ring().Latest()
	if !ok {
		if c.loop.Session().Status() != cloudwatcher.Connected {
			writeError(w, http.StatusServiceUnavailable, "sensor not connected and no cached reading")
			return
		}
		writeError(w, http.StatusNotFound, "no reading available yet")
		return
	}
	writeJSON(w, http.StatusOK, toReadingDTO(latest))
}

// handleWeatherSolo serves GET /weather/solo: same availability semantics
// as /weather/latest, rendered in the SOLO-compatible schema (§6).
func (c *Controller) handleWeatherSolo(w http.ResponseWriter, r *http.Request) {
	latest, ok := c.loop.Ring().Latest()
	if !ok {
		if c.loop.Session().Status() != cloudwatcher.Connected {
			writeError(w, http.StatusServiceUnavailable, "sensor not connected and no cached reading")
			return
		}
		writeError(w, http.StatusNotFound, "no reading available yet")
		return
	}
	doc := cloudwatcher.FormatSolo(latest, c.loop.Session().Snapshot())
	writeJSON(w, http.StatusOK, doc)
}

// handleWeatherState serves GET /weather/state: always 200, reporting
// current status even when unhealthy (§7).
func (c *Controller) handleWeatherState(w http.ResponseWriter, r *http.Request) {
	snap := c.loop.Session().Snapshot()
	ring := c.loop.Ring()

	state := stateDTO{
		ServiceStatus:           snap.Status.String(),
		SensorName:              snap.Identity.Name,
		SerialPort:              c.loop.SerialPort(),
		FirmwareVersion:         snap.Identity.Firmware,
		SerialNumber:            snap.Identity.SerialNumber,
		LastSuccessfulReadingAt: snap.LastSuccessfulReadAt,
		LastErrorMessage:        snap.LastErrorMessage,
		LastConnectionAttemptAt: snap.LastConnectionAttemptAt,
		CurrentServerTime:       time.Now(),
		CaptureDelaySeconds:     c.loop.CaptureDelay().Seconds(),
		ReadingsBufferSize:      ring.Capacity(),
		ReadingsInBuffer:        ring.Len(),
	}
	writeJSON(w, http.StatusOK, state)
}
