package engine

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// DLPIO8G drives the TTL lines of a DLP-IO8-G USB box. Lines are addressed
// with the characters '1'..'8'.
type DLPIO8G struct {
	port io.ReadWriteCloser
}

func NewDLPIO8G(device string, baudrate int) (*DLPIO8G, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}

	d, err := newDLPIO8G(port)
	if err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

func newDLPIO8G(port io.ReadWriteCloser) (*DLPIO8G, error) {
	d := &DLPIO8G{port: port}
	if !d.Ping() {
		return nil, fmt.Errorf("device did not respond to ping correctly")
	}

	// Binary mode
	if _, err := port.Write([]byte{0x5C}); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DLPIO8G) Close() error {
	if d.port != nil {
		return d.port.Close()
	}
	return nil
}

func (d *DLPIO8G) Ping() bool {
	if _, err := d.port.Write([]byte{0x27}); err != nil {
		return false
	}

	buf := make([]byte, 1)
	n, err := d.port.Read(buf)
	return err == nil && n == 1 && buf[0] == 'Q'
}

func (d *DLPIO8G) Set(lines string) error {
	if _, err := d.port.Write([]byte(lines)); err != nil {
		return fmt.Errorf("dlp set %q: %w", lines, err)
	}
	return nil
}

var unsetCodes = map[byte]byte{
	'1': 'Q', '2': 'W', '3': 'E', '4': 'R',
	'5': 'T', '6': 'Y', '7': 'U', '8': 'I',
}

func (d *DLPIO8G) Unset(lines string) error {
	cmd := []byte(lines)
	for i := range cmd {
		if c, ok := unsetCodes[cmd[i]]; ok {
			cmd[i] = c
		}
	}
	if _, err := d.port.Write(cmd); err != nil {
		return fmt.Errorf("dlp unset %q: %w", lines, err)
	}
	return nil
}

// Pulse raises lines for width then lowers them again.
func (d *DLPIO8G) Pulse(lines string, width time.Duration) error {
	if err := d.Set(lines); err != nil {
		return err
	}
	time.Sleep(width)
	return d.Unset(lines)
}

// TriggerLines assigns TTL lines to trial lifecycle events.
type TriggerLines struct {
	Trial    string `mapstructure:"trial"`
	Stimulus string `mapstructure:"stimulus"`
	Response string `mapstructure:"response"`
}

func DefaultTriggerLines() TriggerLines {
	return TriggerLines{Trial: "3", Stimulus: "1", Response: "2"}
}

// TriggerBridge marks trial events on the trigger box so an external
// recorder can synchronize with the session. The stimulus line stays high
// for the whole response window. Responses never sleep: the response line
// is raised on a click and dropped at the next click or at trial end.
type TriggerBridge struct {
	dlp   *DLPIO8G
	lines TriggerLines
	width time.Duration

	responseHigh bool
}

func NewTriggerBridge(dlp *DLPIO8G, lines TriggerLines) *TriggerBridge {
	return &TriggerBridge{dlp: dlp, lines: lines, width: 5 * time.Millisecond}
}

func (b *TriggerBridge) TrialStart(*Trial, int) error {
	return b.dlp.Pulse(b.lines.Trial, b.width)
}

func (b *TriggerBridge) StimulusOnset(*Trial, time.Duration) error {
	return b.dlp.Set(b.lines.Stimulus)
}

func (b *TriggerBridge) Response(*Trial, Attempt) error {
	if b.responseHigh {
		if err := b.dlp.Unset(b.lines.Response); err != nil {
			return err
		}
	}
	if err := b.dlp.Set(b.lines.Response); err != nil {
		return err
	}
	b.responseHigh = true
	return nil
}

func (b *TriggerBridge) TrialEnd(TrialResult) error {
	err := b.dlp.Unset(b.lines.Stimulus)
	if b.responseHigh {
		b.responseHigh = false
		err = errors.Join(err, b.dlp.Unset(b.lines.Response))
	}
	return err
}

func (b *TriggerBridge) Close() error {
	return b.dlp.Close()
}
