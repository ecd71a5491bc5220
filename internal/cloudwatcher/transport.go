package cloudwatcher

import (
	"bytes"
	"io"
	"time"

	serial "github.com/tarm/goserial"

	"github.com/panoptes/aag-weather/internal/log"
)

// settleDelay is the default pause after opening the serial line before the
// device is considered ready to receive commands (§4.2).
const settleDelay = 2 * time.Second

// Transport wraps a serial line with the open/close, buffer-reset, and
// timed read-until-handshake semantics the Command Layer depends on. It is
// single-consumer, single-producer: it does not serialize internally, the
// same contract the teacher's weatherstations.Station places on its
// io.ReadWriteCloser.
type Transport struct {
	portName    string
	baud        int
	settleDelay time.Duration

	rwc io.ReadWriteCloser
	buf []byte // bytes carried into the next read; emptied on Open and WriteCommand, never filled by ReadUntilHandshake
}

// NewTransport returns a Transport for the given serial device path, at the
// CloudWatcher's fixed 9600 8N1 line setting.
func NewTransport(portName string) *Transport {
	return &Transport{
		portName:    portName,
		baud:        9600,
		settleDelay: settleDelay,
	}
}

// Open opens the serial line, reopening if already open, then sleeps the
// settle delay before returning.
func (t *Transport) Open() error {
	if t.rwc != nil {
		_ = t.rwc.Close()
		t.rwc = nil
	}

	cfg := &serial.Config{Name: t.portName, Baud: t.baud, ReadTimeout: time.Second}
	rwc, err := serial.OpenPort(cfg)
	if err != nil {
		return &TransportError{Op: "open", Err: err}
	}
	t.rwc = rwc
	t.buf = t.buf[:0]

	time.Sleep(t.settleDelay)
	return nil
}

// Close is idempotent and safe to call from a deferred cleanup.
func (t *Transport) Close() error {
	if t.rwc == nil {
		return nil
	}
	err := t.rwc.Close()
	t.rwc = nil
	if err != nil {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}

// WriteCommand writes the given command bytes to the line. goserial offers
// no explicit buffer-reset primitive, and neither Open nor WriteCommand
// flushes the serial input or output buffers: bytes the device sent that
// were not consumed by an earlier read stay queued on the line.
func (t *Transport) WriteCommand(cmd []byte) error {
	if t.rwc == nil {
		return &TransportError{Op: "write", Err: io.ErrClosedPipe}
	}
	t.buf = t.buf[:0]

	if _, err := t.rwc.Write(cmd); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	log.Debugf("wrote command %q", string(cmd))
	return nil
}

// ReadUntilHandshake reads bytes until the accumulated buffer ends with the
// Handshake sequence or the deadline elapses. It returns everything read so
// far either way; the Command Layer decides whether a non-handshake-
// terminated buffer is a timeout.
func (t *Transport) ReadUntilHandshake(deadline time.Time) ([]byte, error) {
	if t.rwc == nil {
		return nil, &TransportError{Op: "read", Err: io.ErrClosedPipe}
	}

	out := append([]byte(nil), t.buf...)
	t.buf = t.buf[:0]
	chunk := make([]byte, 64)

	for {
		if bytes.HasSuffix(out, Handshake) {
			return out, nil
		}
		if !time.Now().Before(deadline) {
			return out, nil
		}

		n, err := t.rwc.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				continue
			}
			return out, &TransportError{Op: "read", Err: err}
		}
	}
}
