package cloudwatcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/panoptes/aag-weather/internal/config"
	"github.com/panoptes/aag-weather/internal/log"
)

// Loop is the cooperative, single-threaded supervisor task described in
// §4.5: it owns a Session, periodically reads it, pushes successful
// Readings into a Ring, and handles reconnect with a fixed backoff equal to
// capture_delay_s. It is the only writer of the Session and Ring; HTTP
// handlers only ever read copied-out state (§5), the same role the
// teacher's Acquisition-equivalent (its weatherstations.Station reconnect
// loop) plays for its ReadingDistributor channel.
type Loop struct {
	cfg     config.Config
	session *Session
	ring    *Ring
	runID   string

	onReading func(Reading)

	wg sync.WaitGroup
}

// NewLoop constructs a Loop around a fresh Session and an empty Ring sized
// to cfg.NumReadings.
func NewLoop(cfg config.Config) *Loop {
	return &Loop{
		cfg:     cfg,
		session: NewSession(cfg),
		ring:    NewRing(cfg.NumReadings),
		runID:   uuid.New().String(),
	}
}

// Session returns the underlying Sensor Session, for HTTP handlers that
// need the identity/status snapshot.
func (l *Loop) Session() *Session { return l.session }

// Ring returns the underlying bounded reading buffer.
func (l *Loop) Ring() *Ring { return l.ring }

// SerialPort returns the configured serial device path.
func (l *Loop) SerialPort() string { return l.cfg.SerialPort }

// CaptureDelay returns the configured inter-tick delay.
func (l *Loop) CaptureDelay() time.Duration { return l.cfg.CaptureDelay }

// OnReading registers a callback invoked synchronously with every
// successfully pushed Reading, used by cmd/capture's --output flag. Only
// one callback may be registered; it runs on the loop's single goroutine,
// so it must not block.
func (l *Loop) OnReading(fn func(Reading)) {
	l.onReading = fn
}

// Run drives the loop until ctx is cancelled. Cancellation is cooperative
// at the inter-tick sleep point (§4.5); an in-flight command is always
// allowed to complete or time out naturally before Run observes
// cancellation.
func (l *Loop) Run(ctx context.Context) {
	log.Infow("acquisition loop starting", "run_id", l.runID, "serial_port", l.cfg.SerialPort)
	defer func() {
		if err := l.session.Close(); err != nil {
			log.Warnf("error closing transport on shutdown: %v", err)
		}
		log.Infow("acquisition loop stopped", "run_id", l.runID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.cfg.CaptureDelay):
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	if l.session.Status() != Connected {
		if err := l.session.Connect(); err != nil {
			log.Warnf("connect failed (run %s), will retry in %s: %v", l.runID, l.cfg.CaptureDelay, err)
		} else {
			log.Infow("connected", "run_id", l.runID)
		}
		return
	}

	reading, err := l.session.GetReading()
	if err != nil {
		log.Warnf("get_reading failed: %v", err)
		return
	}

	l.ring.Push(reading)
	if l.cfg.VerboseLogging {
		log.Debugw("successful reading", "timestamp", reading.Timestamp, "is_safe", reading.IsSafe)
	}
	if l.onReading != nil {
		l.onReading(reading)
	}

	if l.cfg.SoloSnapshotPath != "" {
		if err := l.writeSoloSnapshot(reading); err != nil {
			log.Warnf("failed to write solo snapshot: %v", err)
		}
	}
}

// writeSoloSnapshot atomically writes the SOLO-compatible snapshot (§6) by
// writing to a temporary file in the same directory and renaming over the
// target, the same atomic-write pattern the original service's server.py
// uses for its solo_data_file_path.
func (l *Loop) writeSoloSnapshot(r Reading) error {
	doc := FormatSolo(r, l.session.Snapshot())
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.cfg.SoloSnapshotPath)
	tmp, err := os.CreateTemp(dir, ".solo-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, l.cfg.SoloSnapshotPath)
}
