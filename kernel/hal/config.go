package hal

import (
	"io"

	"uos/device/output"
	"uos/device/serial"
	"uos/kernel/kfmt"
)

// MaxSinks is the number of kfmt sinks the command line can select.
const MaxSinks = 4

// Config holds the settings the HAL reads from the boot command line.
type Config struct {
	// Sinks lists the channels that receive kfmt output. Only the first
	// SinkCount entries are used.
	Sinks     [MaxSinks]output.Channel
	SinkCount int

	// ConsoleEnabled is false when the command line contains console=off.
	ConsoleEnabled bool

	// SerialDivisor is the baud divisor programmed into every UART.
	SerialDivisor uint16

	// SerialPollLimit bounds the transmitter wait. 0 blocks forever.
	SerialPollLimit uint32
}

// DefaultConfig returns the settings used when the command line is empty.
func DefaultConfig() Config {
	return Config{
		Sinks:          [MaxSinks]output.Channel{output.Console},
		SinkCount:      1,
		ConsoleEnabled: true,
		SerialDivisor:  serial.DefaultDivisor,
	}
}

// SinkList returns the selected kfmt sinks in command line order.
func (cfg *Config) SinkList() []output.Channel {
	return cfg.Sinks[:cfg.SinkCount]
}

// SerialConfig returns the line settings for the UARTs the HAL drives.
func (cfg *Config) SerialConfig() serial.Config {
	return serial.Config{Divisor: cfg.SerialDivisor, PollLimit: cfg.SerialPollLimit}
}

// CmdLine walks the key/value pairs of a boot command line in the order they
// appear. A key with no value ("quiet") is reported as its own value and items
// with more than one '=' are skipped. The returned strings share storage with
// the command line.
type CmdLine struct {
	rest string
}

// NewCmdLine returns an iterator over cmdLine.
func NewCmdLine(cmdLine string) CmdLine {
	return CmdLine{rest: cmdLine}
}

// Next returns the next pair. ok is false once the command line is exhausted.
func (c *CmdLine) Next() (key, value string, ok bool) {
	for {
		item := c.nextField()
		if item == "" {
			return "", "", false
		}

		sep := indexByte(item, '=')
		switch {
		case sep < 0: // nofoo
			return item, item, true
		case indexByte(item[sep+1:], '=') < 0: // foo=bar
			return item[:sep], item[sep+1:], true
		}
	}
}

// nextField returns the next whitespace-separated field or "" at the end.
func (c *CmdLine) nextField() string {
	start := 0
	for start < len(c.rest) && isSpace(c.rest[start]) {
		start++
	}

	end := start
	for end < len(c.rest) && !isSpace(c.rest[end]) {
		end++
	}

	field := c.rest[start:end]
	c.rest = c.rest[end:]
	return field
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// ParseConfig builds a Config from cmdLine. Unknown keys are ignored;
// malformed values are reported to w in command line order and the default is
// kept. When a key repeats, the last valid value wins.
func ParseConfig(cmdLine string, w io.Writer) Config {
	cfg := DefaultConfig()

	for args := NewCmdLine(cmdLine); ; {
		k, v, ok := args.Next()
		if !ok {
			break
		}

		switch k {
		case "kfmt":
			parseSinks(&cfg, v, w)
		case "console":
			switch v {
			case "on":
				cfg.ConsoleEnabled = true
			case "off":
				cfg.ConsoleEnabled = false
			default:
				kfmt.Fprintf(w, "ignoring console=%s\n", v)
			}
		case "serial_divisor":
			divisor, ok := parseUint(v, 0xffff)
			if !ok || divisor == 0 {
				kfmt.Fprintf(w, "ignoring serial_divisor=%s\n", v)
				continue
			}
			cfg.SerialDivisor = uint16(divisor)
		case "serial_poll_limit":
			limit, ok := parseUint(v, 0xffffffff)
			if !ok {
				kfmt.Fprintf(w, "ignoring serial_poll_limit=%s\n", v)
				continue
			}
			cfg.SerialPollLimit = uint32(limit)
		}
	}

	return cfg
}

// parseSinks replaces cfg's sinks with the comma separated channels in v. The
// current sinks are kept if v names no valid channel.
func parseSinks(cfg *Config, v string, w io.Writer) {
	var (
		sinks [MaxSinks]output.Channel
		count int
	)

	for rest := v; ; {
		name := rest
		comma := indexByte(rest, ',')
		if comma >= 0 {
			name, rest = rest[:comma], rest[comma+1:]
		}

		ch, ok := ChannelByName(name)
		switch {
		case !ok:
			kfmt.Fprintf(w, "ignoring unknown kfmt sink %s\n", name)
		case count == MaxSinks:
			kfmt.Fprintf(w, "ignoring extra kfmt sink %s\n", name)
		default:
			sinks[count] = ch
			count++
		}

		if comma < 0 {
			break
		}
	}

	if count != 0 {
		cfg.Sinks, cfg.SinkCount = sinks, count
	}
}

// ChannelByName maps "console", "com1", "com2" or a numeric port base to an
// output channel.
func ChannelByName(name string) (output.Channel, bool) {
	switch name {
	case "console":
		return output.Console, true
	case "com1":
		return output.COM1, true
	case "com2":
		return output.COM2, true
	}

	port, ok := parseUint(name, 0xffff)
	if !ok {
		return 0, false
	}

	return output.Channel(port), true
}

// parseUint parses a decimal or 0x-prefixed hex number no larger than max.
func parseUint(s string, max uint64) (uint64, bool) {
	base := uint64(10)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, s = 16, s[2:]
	}

	if s == "" {
		return 0, false
	}

	var val uint64
	for i := 0; i < len(s); i++ {
		var digit uint64
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digit = uint64(c - '0')
		case base == 16 && c >= 'a' && c <= 'f':
			digit = uint64(c-'a') + 10
		case base == 16 && c >= 'A' && c <= 'F':
			digit = uint64(c-'A') + 10
		default:
			return 0, false
		}

		val = val*base + digit
		if val > max {
			return 0, false
		}
	}

	return val, true
}
