package cloudwatcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseType enumerates how a Command's payload is interpreted once its
// prefix has been stripped.
type ParseType int

const (
	ParseFloat ParseType = iota
	ParseInt
	ParseString
	ParseBool
	ParseRaw
)

const defaultTimeout = 400 * time.Millisecond

// commandSpec is the immutable per-command metadata described in §4.3:
// opcode, expected block count, accepted prefixes, parse rule, and timeout.
type commandSpec struct {
	Name     string
	Opcode   byte
	Blocks   int // expected information-block count, excluding handshake
	Prefixes []string
	Parse    ParseType
	Timeout  time.Duration
}

var (
	cmdGetInternalName    = commandSpec{Name: "GetInternalName", Opcode: 'A', Blocks: 1, Prefixes: []string{"N "}, Parse: ParseString, Timeout: defaultTimeout}
	cmdGetFirmware        = commandSpec{Name: "GetFirmware", Opcode: 'B', Blocks: 1, Prefixes: []string{"V "}, Parse: ParseString, Timeout: defaultTimeout}
	cmdGetValues          = commandSpec{Name: "GetValues", Opcode: 'C', Blocks: 4, Prefixes: []string{"6 ", "3 ", "4 ", "5 "}, Parse: ParseRaw, Timeout: defaultTimeout}
	cmdGetInternalErrors  = commandSpec{Name: "GetInternalErrors", Opcode: 'D', Blocks: 4, Prefixes: []string{"E1", "E2", "E3", "E4"}, Parse: ParseInt, Timeout: 800 * time.Millisecond}
	cmdGetRainFrequency   = commandSpec{Name: "GetRainFrequency", Opcode: 'E', Blocks: 1, Prefixes: []string{"R "}, Parse: ParseInt, Timeout: 800 * time.Millisecond}
	cmdGetSwitchStatus    = commandSpec{Name: "GetSwitchStatus", Opcode: 'F', Blocks: 1, Prefixes: []string{"X ", "Y "}, Parse: ParseString, Timeout: defaultTimeout}
	cmdSetSwitchOpen      = commandSpec{Name: "SetSwitchOpen", Opcode: 'G', Blocks: 0, Parse: ParseRaw, Timeout: defaultTimeout}
	cmdSetSwitchClosed    = commandSpec{Name: "SetSwitchClosed", Opcode: 'H', Blocks: 0, Parse: ParseRaw, Timeout: defaultTimeout}
	cmdGetSerialNumber    = commandSpec{Name: "GetSerialNumber", Opcode: 'K', Blocks: 1, Prefixes: []string{"K"}, Parse: ParseString, Timeout: defaultTimeout}
	cmdGetPWM             = commandSpec{Name: "GetPWM", Opcode: 'Q', Blocks: 1, Prefixes: []string{"Q "}, Parse: ParseInt, Timeout: defaultTimeout}
	cmdGetSkyTemp         = commandSpec{Name: "GetSkyTemp", Opcode: 'S', Blocks: 1, Prefixes: []string{"1 "}, Parse: ParseInt, Timeout: defaultTimeout}
	cmdGetSensorTemp      = commandSpec{Name: "GetSensorTemp", Opcode: 'T', Blocks: 1, Prefixes: []string{"2 "}, Parse: ParseInt, Timeout: defaultTimeout}
	cmdCanGetWindspeed    = commandSpec{Name: "CanGetWindspeed", Opcode: 'v', Blocks: 1, Parse: ParseBool, Timeout: defaultTimeout}
	cmdGetWindspeed       = commandSpec{Name: "GetWindspeed", Opcode: 'V', Blocks: 1, Prefixes: []string{"w "}, Parse: ParseInt, Timeout: 1000 * time.Millisecond}
	cmdGetHumidity        = commandSpec{Name: "GetHumidity", Opcode: 'h', Blocks: 1, Parse: ParseInt, Timeout: defaultTimeout}
	cmdGetPressure        = commandSpec{Name: "GetPressure", Opcode: 'p', Blocks: 1, Parse: ParseInt, Timeout: defaultTimeout}
	cmdGetRHSensorTemp    = commandSpec{Name: "GetRHSensorTemp", Opcode: 't', Blocks: 1, Parse: ParseInt, Timeout: defaultTimeout}
	cmdGetPressureTemp    = commandSpec{Name: "GetPressureTemp", Opcode: 'q', Blocks: 1, Parse: ParseInt, Timeout: defaultTimeout}
	cmdResetRS232         = commandSpec{Name: "ResetRS232", Opcode: 'z', Blocks: 0, Parse: ParseRaw, Timeout: defaultTimeout}
)

// setPWMSpec returns the command spec for SetPWM, whose timeout (800ms) and
// echoed-prefix ("Q ") are fixed but whose wire parameter is a 4-digit value.
func setPWMSpec() commandSpec {
	return commandSpec{Name: "SetPWM", Opcode: 'P', Blocks: 1, Prefixes: []string{"Q "}, Parse: ParseInt, Timeout: 800 * time.Millisecond}
}

// execer is the minimal interface command methods need from the Transport;
// satisfied by *Transport, and by a fake in tests.
type execer interface {
	WriteCommand([]byte) error
	ReadUntilHandshake(deadline time.Time) ([]byte, error)
}

// execute sends spec's command with the given wire parameter and returns its
// decoded, prefix-stripped blocks in response order. It enforces the
// expected block count and accepted prefixes per §4.3.
func execute(t execer, spec commandSpec, param string) ([]Block, error) {
	cmd := EncodeCommand(spec.Opcode, param)
	if err := t.WriteCommand(cmd); err != nil {
		return nil, &CommError{Command: spec.Name, Kind: CommBadResponse, Msg: "write failed", Err: err}
	}

	deadline := time.Now().Add(spec.Timeout)
	buf, err := t.ReadUntilHandshake(deadline)
	if err != nil {
		return nil, &CommError{Command: spec.Name, Kind: CommTimeout, Msg: "transport read failed", Err: err}
	}

	blocks, ferr := DecodeBlocks(buf)
	if ferr != nil {
		var fe *FrameError
		if fe, _ = ferr.(*FrameError); fe != nil && fe.Kind == FrameMissingHandshake {
			return nil, &CommError{Command: spec.Name, Kind: CommTimeout, Msg: "handshake not seen before deadline", Err: ferr}
		}
		return nil, &CommError{Command: spec.Name, Kind: CommBadResponse, Msg: "frame decode failed", Err: ferr}
	}

	if len(blocks) != spec.Blocks {
		return nil, &CommError{Command: spec.Name, Kind: CommBadResponse,
			Msg: fmt.Sprintf("expected %d blocks, got %d", spec.Blocks, len(blocks))}
	}

	if len(spec.Prefixes) > 0 {
		if err := verifyPrefixes(spec, blocks); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

func verifyPrefixes(spec commandSpec, blocks []Block) error {
	remaining := append([]string(nil), spec.Prefixes...)
	for _, b := range blocks {
		idx := -1
		for i, p := range remaining {
			if strings.HasPrefix(b.Code, strings.TrimRight(p, " ")) || b.Code == p {
				idx = i
				break
			}
		}
		if idx == -1 {
			return &CommError{Command: spec.Name, Kind: CommBadResponse,
				Msg: fmt.Sprintf("unexpected response code %q", b.Code)}
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return nil
}

func parseIntBlock(spec commandSpec, b Block) (int, error) {
	payload := strings.TrimSpace(b.Payload)
	n, err := strconv.Atoi(payload)
	if err != nil {
		return 0, &CommError{Command: spec.Name, Kind: CommBadResponse, Msg: "payload is not an integer", Err: err}
	}
	return n, nil
}

// --- Typed command methods, one per row of §4.3's table ---

func getInternalName(t execer) (string, error) {
	blocks, err := execute(t, cmdGetInternalName, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(blocks[0].Payload), nil
}

func getFirmware(t execer) (string, error) {
	blocks, err := execute(t, cmdGetFirmware, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(blocks[0].Payload), nil
}

// rawValues holds the four raw counts the GetValues command returns.
type rawValues struct {
	Zener      int
	AmbientNTC int
	LDR        int
	RainNTC    int
	// LightPeriod is populated only on firmware that adds the 5th block
	// (§4.3's "new light sensor" note); absent otherwise.
	LightPeriod    int
	HasLightPeriod bool
}

// getValues implements the variable block-count tolerance noted in §4.3
// ("firmware >= new light sensor adds '8 ' light-period (variable block
// count)"): it accepts either 4 or 5 blocks and only assigns LightPeriod
// when the 5th block is present, rather than guessing a firmware version
// (§9's open question on firmware-gated block variants).
func getValues(t execer) (rawValues, error) {
	spec := cmdGetValues
	cmdBytes := EncodeCommand(spec.Opcode, "")
	if err := t.WriteCommand(cmdBytes); err != nil {
		return rawValues{}, &CommError{Command: spec.Name, Kind: CommBadResponse, Msg: "write failed", Err: err}
	}
	deadline := time.Now().Add(spec.Timeout)
	buf, err := t.ReadUntilHandshake(deadline)
	if err != nil {
		return rawValues{}, &CommError{Command: spec.Name, Kind: CommTimeout, Msg: "transport read failed", Err: err}
	}
	blocks, ferr := DecodeBlocks(buf)
	if ferr != nil {
		return rawValues{}, &CommError{Command: spec.Name, Kind: CommBadResponse, Msg: "frame decode failed", Err: ferr}
	}
	if len(blocks) != 4 && len(blocks) != 5 {
		return rawValues{}, &CommError{Command: spec.Name, Kind: CommBadResponse,
			Msg: fmt.Sprintf("expected 4 or 5 blocks, got %d", len(blocks))}
	}

	var rv rawValues
	for _, b := range blocks {
		n, perr := parseIntBlock(spec, b)
		if perr != nil {
			return rawValues{}, perr
		}
		switch b.Code {
		case "6 ":
			rv.Zener = n
		case "3 ":
			rv.AmbientNTC = n
		case "4 ":
			rv.LDR = n
		case "5 ":
			rv.RainNTC = n
		case "8 ":
			rv.LightPeriod = n
			rv.HasLightPeriod = true
		default:
			return rawValues{}, &CommError{Command: spec.Name, Kind: CommBadResponse,
				Msg: fmt.Sprintf("unexpected response code %q", b.Code)}
		}
	}
	return rv, nil
}

func getInternalErrors(t execer) ([4]int, error) {
	blocks, err := execute(t, cmdGetInternalErrors, "")
	if err != nil {
		return [4]int{}, err
	}
	var out [4]int
	for _, b := range blocks {
		n, perr := parseIntBlock(cmdGetInternalErrors, b)
		if perr != nil {
			return [4]int{}, perr
		}
		idx := int(b.Code[1] - '1')
		if idx < 0 || idx > 3 {
			return [4]int{}, &CommError{Command: cmdGetInternalErrors.Name, Kind: CommBadResponse,
				Msg: fmt.Sprintf("unexpected error code %q", b.Code)}
		}
		out[idx] = n
	}
	return out, nil
}

func getRainFrequency(t execer) (int, error) {
	blocks, err := execute(t, cmdGetRainFrequency, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetRainFrequency, blocks[0])
}

// SwitchState mirrors §3's switch_state enum.
type SwitchState int

const (
	SwitchUnknown SwitchState = iota
	SwitchOpen
	SwitchClosed
)

func (s SwitchState) String() string {
	switch s {
	case SwitchOpen:
		return "open"
	case SwitchClosed:
		return "close"
	default:
		return "unknown"
	}
}

func getSwitchStatus(t execer) (SwitchState, error) {
	blocks, err := execute(t, cmdGetSwitchStatus, "")
	if err != nil {
		return SwitchUnknown, err
	}
	switch blocks[0].Code {
	case "X ":
		return SwitchOpen, nil
	case "Y ":
		return SwitchClosed, nil
	default:
		return SwitchUnknown, nil
	}
}

func setSwitchOpen(t execer) error {
	_, err := execute(t, cmdSetSwitchOpen, "")
	return err
}

func setSwitchClosed(t execer) error {
	_, err := execute(t, cmdSetSwitchClosed, "")
	return err
}

func getSerialNumber(t execer) (string, error) {
	blocks, err := execute(t, cmdGetSerialNumber, "")
	if err != nil {
		return "", err
	}
	sn := strings.TrimSpace(strings.TrimRight(blocks[0].Payload, "\x00"))
	if len(sn) > 4 {
		sn = sn[:4]
	}
	return sn, nil
}

// setPWM writes a percent value (0-100), converting it to the device's
// 0-1023 scale and zero-padding to the 4-digit wire parameter (§8 S5).
func setPWM(t execer, percent float64) (int, error) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	raw := int(percent/100*1023 + 0.5)
	param := fmt.Sprintf("%04d", raw)

	blocks, err := execute(t, setPWMSpec(), param)
	if err != nil {
		return 0, err
	}
	return parseIntBlock(setPWMSpec(), blocks[0])
}

func getPWM(t execer) (int, error) {
	blocks, err := execute(t, cmdGetPWM, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetPWM, blocks[0])
}

func getSkyTemp(t execer) (int, error) {
	blocks, err := execute(t, cmdGetSkyTemp, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetSkyTemp, blocks[0])
}

func getSensorTemp(t execer) (int, error) {
	blocks, err := execute(t, cmdGetSensorTemp, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetSensorTemp, blocks[0])
}

func canGetWindspeed(t execer) (bool, error) {
	blocks, err := execute(t, cmdCanGetWindspeed, "")
	if err != nil {
		return false, err
	}
	p := blocks[0].Payload
	return strings.Contains(p, "Y"), nil
}

func getWindspeed(t execer) (int, error) {
	blocks, err := execute(t, cmdGetWindspeed, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetWindspeed, blocks[0])
}

func getHumidity(t execer) (int, error) {
	blocks, err := execute(t, cmdGetHumidity, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetHumidity, blocks[0])
}

func getPressure(t execer) (int, error) {
	blocks, err := execute(t, cmdGetPressure, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetPressure, blocks[0])
}

func getRHSensorTemp(t execer) (int, error) {
	blocks, err := execute(t, cmdGetRHSensorTemp, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetRHSensorTemp, blocks[0])
}

func getPressureTemp(t execer) (int, error) {
	blocks, err := execute(t, cmdGetPressureTemp, "")
	if err != nil {
		return 0, err
	}
	return parseIntBlock(cmdGetPressureTemp, blocks[0])
}

func resetRS232(t execer) error {
	_, err := execute(t, cmdResetRS232, "")
	return err
}
