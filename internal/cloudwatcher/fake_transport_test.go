package cloudwatcher

import (
	"fmt"
	"time"
)

// fakeTransport is a scripted in-memory stand-in for *Transport, the same
// role a canned io.ReadWriter plays in the teacher's station tests. Each
// WriteCommand call records the wire command actually sent; the next
// ReadUntilHandshake returns whatever response was scripted for it via
// script, or failures[cmd] if one was registered.
type fakeTransport struct {
	script    map[string][]byte
	sequences map[string][][]byte
	failures  map[string]error
	lastWrite string
	writes    []string

	openErr    error
	openCalls  int
	closeCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		script:    map[string][]byte{},
		sequences: map[string][][]byte{},
		failures:  map[string]error{},
	}
}

func (f *fakeTransport) respond(cmd string, blocks ...[]byte) {
	f.script[cmd] = responseBuffer(blocks...)
}

// respondSequence scripts successive distinct responses for repeated calls
// to the same command, used to exercise §4.4's averaging behavior.
func (f *fakeTransport) respondSequence(cmd string, buffers ...[]byte) {
	for _, b := range buffers {
		f.sequences[cmd] = append(f.sequences[cmd], b)
	}
}

func responseBuffer(blocks ...[]byte) []byte {
	buf := []byte{}
	for _, b := range blocks {
		buf = append(buf, b...)
	}
	return append(buf, Handshake...)
}

func (f *fakeTransport) failWith(cmd string, err error) {
	f.failures[cmd] = err
}

func (f *fakeTransport) Open() error {
	f.openCalls++
	return f.openErr
}

func (f *fakeTransport) Close() error {
	f.closeCalls++
	return nil
}

func (f *fakeTransport) WriteCommand(cmd []byte) error {
	f.lastWrite = string(cmd)
	f.writes = append(f.writes, f.lastWrite)
	return nil
}

func (f *fakeTransport) ReadUntilHandshake(deadline time.Time) ([]byte, error) {
	if err, ok := f.failures[f.lastWrite]; ok {
		return nil, err
	}
	if seq, ok := f.sequences[f.lastWrite]; ok && len(seq) > 0 {
		next := seq[0]
		f.sequences[f.lastWrite] = seq[1:]
		return next, nil
	}
	buf, ok := f.script[f.lastWrite]
	if !ok {
		return nil, fmt.Errorf("fakeTransport: no response scripted for %q", f.lastWrite)
	}
	return buf, nil
}

// block is a small helper building a 15-byte response block for tests.
func block(code, payload string) []byte {
	return EncodeBlock(code, payload)
}
