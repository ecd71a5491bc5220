package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/panoptes/aag-weather/internal/cloudwatcher"
)

// Controller wires the Acquisition Loop's read-only surface into an
// http.Handler, the same Controller/Handlers split the teacher's
// restserver package uses, trimmed to the endpoints §6 specifies.
type Controller struct {
	loop *cloudwatcher.Loop
}

// NewController returns a Controller reading from loop.
func NewController(loop *cloudwatcher.Loop) *Controller {
	return &Controller{loop: loop}
}

// Router builds the gorilla/mux router for the four endpoints in §6.
func (c *Controller) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/weather", c.handleWeather).Methods(http.MethodGet)
	r.HandleFunc("/weather/latest", c.handleWeatherLatest).Methods(http.MethodGet)
	r.HandleFunc("/weather/solo", c.handleWeatherSolo).Methods(http.MethodGet)
	r.HandleFunc("/weather/state", c.handleWeatherState).Methods(http.MethodGet)
	return r
}
