package cloudwatcher

import (
	"math"
	"sync"
	"time"

	"github.com/panoptes/aag-weather/internal/config"
	"github.com/panoptes/aag-weather/internal/log"
)

// ConnectionStatus enumerates the health of the serial session (§3,
// GLOSSARY).
type ConnectionStatus int

const (
	Initializing ConnectionStatus = iota
	Connected
	Disconnected
	Error
	AttemptingReconnect
)

func (s ConnectionStatus) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Error:
		return "error"
	case AttemptingReconnect:
		return "attempting_reconnect"
	default:
		return "unknown"
	}
}

// Identity holds the static facts established during connect (§3).
type Identity struct {
	Name         string
	Firmware     string
	SerialNumber string
	HasAnemometer bool
	HasHeater    bool
}

// Snapshot is the read-only view HTTP handlers are allowed to see. It is a
// copy, never a reference into session-owned state (§5, §9's "read-only
// snapshots" design note).
type Snapshot struct {
	Identity               Identity
	Status                 ConnectionStatus
	LastErrorMessage       string
	LastSuccessfulReadAt   time.Time
	LastConnectionAttemptAt time.Time
}

// sessionTransport is the subset of *Transport the Session depends on. It
// exists so tests can substitute a fake in-memory transport for the real
// serial line, the same way the teacher's weatherstation tests feed canned
// samples into an io.ReadWriter instead of opening a port.
type sessionTransport interface {
	Open() error
	Close() error
	execer
}

// Session owns one Transport and its identity/status bookkeeping (§4.4). It
// enforces at most one in-flight command by construction: every exported
// method that talks to the device is only ever called from the Acquisition
// Loop's single goroutine, the same single-owner discipline the teacher's
// weatherstations.Station places on its serial handle.
type Session struct {
	cfg       config.Config
	transport sessionTransport

	mu     sync.RWMutex
	status ConnectionStatus
	ident  Identity

	lastErrorMessage        string
	lastSuccessfulReadAt    time.Time
	lastConnectionAttemptAt time.Time
}

// NewSession returns a Session that owns a Transport for cfg.SerialPort.
// The session starts Initializing; call Connect to open the line.
func NewSession(cfg config.Config) *Session {
	return &Session{
		cfg:       cfg,
		transport: NewTransport(cfg.SerialPort),
		status:    Initializing,
	}
}

// newSessionWithTransport is used by tests to inject a fake transport.
func newSessionWithTransport(cfg config.Config, t sessionTransport) *Session {
	return &Session{cfg: cfg, transport: t, status: Initializing}
}

func (s *Session) setStatus(status ConnectionStatus, errMsg string) {
	s.mu.Lock()
	prev := s.status
	s.status = status
	s.lastErrorMessage = errMsg
	s.mu.Unlock()

	if prev != status {
		log.Infow("connection status transition",
			"previous_status", prev.String(),
			"new_status", status.String(),
			"message", errMsg,
		)
	}
}

// Status returns the current ConnectionStatus.
func (s *Session) Status() ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot returns a copied-out view of session identity and status for
// HTTP handlers (§5).
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Identity:                s.ident,
		Status:                  s.status,
		LastErrorMessage:        s.lastErrorMessage,
		LastSuccessfulReadAt:    s.lastSuccessfulReadAt,
		LastConnectionAttemptAt: s.lastConnectionAttemptAt,
	}
}

// Connect opens the Transport and performs the identity queries (§4.4).
// connect is atomic: either every identity step succeeds and status becomes
// Connected, or status becomes Error and the Transport is closed.
func (s *Session) Connect() error {
	s.mu.Lock()
	s.lastConnectionAttemptAt = time.Now()
	s.mu.Unlock()

	if err := s.transport.Open(); err != nil {
		s.setStatus(Error, err.Error())
		return err
	}

	name, err := getInternalName(s.transport)
	if err != nil {
		return s.failConnect("get_internal_name", err)
	}
	firmware, err := getFirmware(s.transport)
	if err != nil {
		return s.failConnect("get_firmware", err)
	}
	hasAnemometer, err := canGetWindspeed(s.transport)
	if err != nil {
		return s.failConnect("can_get_windspeed", err)
	}

	// Serial number is attempted but, per the §9 open question on
	// firmware-gated identity fields, a failure here does not fail
	// connect: some firmware revisions simply don't answer it usefully.
	serialNumber := ""
	if sn, snErr := getSerialNumber(s.transport); snErr != nil {
		log.Warnf("get_serial_number failed, continuing without it: %v", snErr)
	} else {
		serialNumber = sn
	}

	if s.cfg.HaveHeater {
		if _, err := setPWM(s.transport, s.cfg.Heater.MinPower); err != nil {
			return s.failConnect("set_pwm(min_power)", &SensorError{Op: "set_pwm", Err: err})
		}
	}

	s.mu.Lock()
	s.ident = Identity{
		Name:          name,
		Firmware:      firmware,
		SerialNumber:  serialNumber,
		HasAnemometer: hasAnemometer,
		HasHeater:     s.cfg.HaveHeater,
	}
	s.mu.Unlock()

	s.setStatus(Connected, "")
	return nil
}

func (s *Session) failConnect(step string, err error) error {
	se := &SensorError{Op: step, Err: err}
	s.setStatus(Error, se.Error())
	_ = s.transport.Close()
	return se
}

// Close closes the underlying Transport; safe to call multiple times.
func (s *Session) Close() error {
	return s.transport.Close()
}

// averageInt reduces n successful samples to their arithmetic mean; a
// communication error on any sample aborts the whole reduction (§4.4's
// "Averaging" rule).
func averageInt(n int, sample func() (int, error)) (float64, error) {
	if n <= 0 {
		n = 1
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		v, err := sample()
		if err != nil {
			return 0, err
		}
		sum += float64(v)
	}
	return sum / float64(n), nil
}

// GetReading performs one full acquisition cycle (§4.4). It must only be
// called while Connected; any communication error discards the entire
// reading, leaving the ring untouched, and transitions status to Error.
func (s *Session) GetReading() (Reading, error) {
	if s.Status() != Connected {
		return Reading{}, &StateError{Op: "get_reading", Status: s.Status(), Expected: Connected}
	}

	n := s.cfg.SampleCount

	values, err := getValues(s.transport)
	if err != nil {
		return s.failReading(err)
	}

	skyRawF, err := averageInt(n, func() (int, error) { return getSkyTemp(s.transport) })
	if err != nil {
		return s.failReading(err)
	}

	var windKmh float64
	haveWind := s.identity().HasAnemometer
	if haveWind {
		windRawF, werr := averageInt(n, func() (int, error) { return getWindspeed(s.transport) })
		if werr != nil {
			return s.failReading(werr)
		}
		windKmh = windSpeedFromRaw(int(math.Round(windRawF)))
	}

	rainFreqF, err := averageInt(n, func() (int, error) { return getRainFrequency(s.transport) })
	if err != nil {
		return s.failReading(err)
	}

	humidityRawF, err := averageInt(n, func() (int, error) { return getHumidity(s.transport) })
	if err != nil {
		return s.failReading(err)
	}

	pressureRawF, err := averageInt(n, func() (int, error) { return getPressure(s.transport) })
	if err != nil {
		return s.failReading(err)
	}

	rhTempRawF, err := averageInt(n, func() (int, error) { return getRHSensorTemp(s.transport) })
	if err != nil {
		return s.failReading(err)
	}

	pressTempRawF, err := averageInt(n, func() (int, error) { return getPressureTemp(s.transport) })
	if err != nil {
		return s.failReading(err)
	}

	switchState, err := getSwitchStatus(s.transport)
	if err != nil {
		return s.failReading(err)
	}

	var pwmPct float64
	haveHeater := s.identity().HasHeater
	if haveHeater {
		pwmRaw, perr := getPWM(s.transport)
		if perr != nil {
			return s.failReading(perr)
		}
		pwmPct = pwmPercentFromRaw(pwmRaw)
	}

	internalErrors, err := getInternalErrors(s.transport)
	if err != nil {
		return s.failReading(err)
	}

	now := time.Now()
	if loc, lerr := time.LoadLocation(s.cfg.Location.Timezone); lerr == nil {
		now = now.In(loc)
	}

	r := Reading{
		Timestamp:      now,
		SkyTempC:       skyTempFromRaw(int(math.Round(skyRawF))),
		RainFrequency:  int(math.Round(rainFreqF)),
		AmbientNTCRaw:  values.AmbientNTC,
		LDRRaw:         values.LDR,
		ZenerRaw:       values.Zener,
		RainNTCRaw:     values.RainNTC,
		HasPWM:         haveHeater,
		PWMPct:         pwmPct,
		SwitchState:    switchState,
		HasWindSpeed:   haveWind,
		WindSpeedKmh:   windKmh,
		InternalErrors: &internalErrors,
	}

	rhTempC := rhSensorTempFromRaw(int(math.Round(rhTempRawF)))
	r.RHSensorTempC = &rhTempC
	// ambient_temp = rh_sensor_temp if available, else the IR sensor (§4.4
	// step 3).
	r.AmbientTempC = rhTempC

	pressTempC := pressureTempFromRaw(int(math.Round(pressTempRawF)))
	r.PressureTempC = &pressTempC

	humidityPct := humidityFromRaw(int(math.Round(humidityRawF)))
	r.Humidity = &humidityPct

	pressurePa := pressureFromRaw(int(math.Round(pressureRawF)))
	r.Pressure = &pressurePa

	slp := seaLevelPressurePa(pressurePa, pressTempC, s.cfg.Location.ElevationM)
	r.SeaLevelPress = &slp

	if dp, ok := dewPointC(r.AmbientTempC, humidityPct); ok {
		r.DewPointC = &dp
	}

	if values.HasLightPeriod {
		lp := values.LightPeriod
		r.LightPeriodRaw = &lp
		if mpsas, ok := skyQualityMPSAS(lp, r.AmbientTempC, s.cfg.SQReference); ok {
			r.SkyQualityMPSAS = &mpsas
		}
	}

	classifySafety(&r, haveWind, s.cfg)

	s.mu.Lock()
	s.lastSuccessfulReadAt = r.Timestamp
	s.lastErrorMessage = ""
	s.mu.Unlock()

	return r, nil
}

func (s *Session) failReading(err error) (Reading, error) {
	s.setStatus(Error, err.Error())
	return Reading{}, err
}

func (s *Session) identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ident
}
