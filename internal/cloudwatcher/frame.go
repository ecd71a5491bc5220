package cloudwatcher

import "strings"

const (
	blockSize = 15
	// Handshake is the fixed 15-byte sequence terminating every response:
	// '!' + 0x11 + 12 spaces + '0'.
	handshakePayload = "\x11            0"
)

// Handshake is the literal 15-byte handshake block, wire-ready.
var Handshake = []byte("!" + handshakePayload)

// Block is one decoded 14-byte payload following a leading '!': a 2-byte
// response code and 12 bytes of trimmed ASCII payload.
type Block struct {
	Code    string // 2 characters, e.g. "1 ", "E1"
	Payload string // trailing spaces trimmed; sign/decimal point preserved
}

// IsHandshake reports whether this block is the terminating handshake.
func (b Block) IsHandshake() bool {
	return b.Code == handshakePayload[:2] && b.Payload == strings.TrimRight(handshakePayload[2:], " ")
}

// DecodeBlocks splits a response buffer into information Blocks, excluding
// the trailing handshake block. buf must be a positive whole number of
// 15-byte blocks whose final block is the Handshake.
func DecodeBlocks(buf []byte) ([]Block, error) {
	if len(buf) == 0 || len(buf)%blockSize != 0 {
		return nil, &FrameError{Kind: FrameBadAlignment, Msg: "buffer length is not a positive multiple of 15"}
	}

	n := len(buf) / blockSize
	blocks := make([]Block, 0, n-1)
	for i := 0; i < n; i++ {
		raw := buf[i*blockSize : (i+1)*blockSize]
		if raw[0] != '!' {
			return nil, &FrameError{Kind: FrameTruncatedBlock, Msg: "block does not start with '!'"}
		}
		payload := raw[1:]
		if len(payload) != 14 {
			return nil, &FrameError{Kind: FrameTruncatedBlock, Msg: "block payload is not 14 bytes"}
		}
		blk := Block{
			Code:    string(payload[:2]),
			Payload: strings.TrimRight(string(payload[2:]), " "),
		}

		if i == n-1 {
			if !blk.IsHandshake() {
				return nil, &FrameError{Kind: FrameMissingHandshake, Msg: "final block is not the handshake"}
			}
			continue
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

// EncodeBlock renders a single 15-byte block from a 2-character code and a
// payload, right-padding the payload with spaces to 12 bytes. It is the
// inverse of the per-block half of DecodeBlocks, used by tests asserting the
// round-trip property in spec §8.
func EncodeBlock(code, payload string) []byte {
	if len(code) != 2 {
		panic("cloudwatcher: block code must be exactly 2 characters")
	}
	if len(payload) > 12 {
		panic("cloudwatcher: block payload must be at most 12 characters")
	}
	b := make([]byte, 0, blockSize)
	b = append(b, '!')
	b = append(b, code...)
	b = append(b, payload...)
	for len(b) < blockSize {
		b = append(b, ' ')
	}
	return b
}

// EncodeCommand renders a command's wire form: the opcode followed by an
// optional parameter payload and the '!' terminator, e.g. "S!" or "P0512!".
func EncodeCommand(opcode byte, param string) []byte {
	cmd := make([]byte, 0, len(param)+2)
	cmd = append(cmd, opcode)
	cmd = append(cmd, param...)
	cmd = append(cmd, '!')
	return cmd
}
