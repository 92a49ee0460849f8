package sensor

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/logger"
	"go.bug.st/serial"
)

// PortOptions describes the serial link to the ADC front end.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	errFactory := errors.New()
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, errFactory.WithData(ErrInvalidOptions, "data bits must be between 5 and 8")
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, errFactory.WithData(ErrInvalidOptions, "stop bits must be 1 or 2")
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, errFactory.WithData(ErrInvalidOptions, "unsupported parity "+opts.Parity)
	}

	return opts, nil
}

// Mode converts the options into the go.bug.st/serial representation.
func (o PortOptions) Mode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}

// SerialSensor reads ADC conversions streamed by a microcontroller as one
// decimal value per line. A background reader keeps the latest conversion;
// ReadRawSample returns it without touching the port.
type SerialSensor struct {
	port   io.ReadCloser
	latest atomic.Uint32
	seen   atomic.Bool
	closed atomic.Bool
	done   chan struct{}
	once   sync.Once
	log    logger.Logger
}

// OpenSerial opens path and starts reading conversions from it.
func OpenSerial(path string, opts PortOptions, log logger.Logger) (*SerialSensor, error) {
	errFactory := errors.New()

	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenPort, err)
	}

	log.Info().
		Str("port", path).
		Int("baud_rate", mode.BaudRate).
		Msg("Serial sensor opened")

	return NewSerialSensor(port, log), nil
}

// NewSerialSensor reads conversions from an already opened stream.
func NewSerialSensor(port io.ReadCloser, log logger.Logger) *SerialSensor {
	s := &SerialSensor{
		port: port,
		done: make(chan struct{}),
		log:  log,
	}
	go s.reader()

	return s
}

func (s *SerialSensor) reader() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := strconv.ParseUint(line, 10, 16)
		if err != nil {
			s.log.Debug().Str("line", line).Msg("Ignoring malformed sensor line")
			continue
		}

		s.latest.Store(uint32(v))
		s.seen.Store(true)
	}

	if err := scanner.Err(); err != nil && !s.closed.Load() {
		s.log.Warn().Err(err).Msg("Serial sensor stream ended")
	}
}

// ReadRawSample returns the most recent conversion.
func (s *SerialSensor) ReadRawSample() (uint16, error) {
	if s.closed.Load() {
		return 0, errors.New().New(ErrClosed)
	}
	if !s.seen.Load() {
		return 0, errors.New().New(ErrNoSample)
	}

	return uint16(s.latest.Load()), nil
}

// Done is closed when the stream ends.
func (s *SerialSensor) Done() <-chan struct{} {
	return s.done
}

func (s *SerialSensor) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		err = s.port.Close()
	})

	return err
}
