package input

import (
	"bufio"
	"context"
	"io"
)

// KeySource maps terminal keys onto encoder actions, for running without
// the hardware knob: '+', 'd', 'l' or '.' rotate forward, '-', 'a', 'h' or ','
// rotate back, space or an empty line press the button. Terminals deliver
// whole lines, so the newline ending a line of other keys is not a press.
type KeySource struct {
	reader  *bufio.Reader
	encoder *Encoder
	midLine bool
}

func NewKeySource(r io.Reader, enc *Encoder) *KeySource {
	return &KeySource{
		reader:  bufio.NewReader(r),
		encoder: enc,
	}
}

// Run feeds keys to the encoder until r is exhausted or ctx is done. The
// read itself is not interruptible; ctx is checked between keys.
func (k *KeySource) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		b, err := k.reader.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		k.handle(b)
	}
}

func (k *KeySource) handle(b byte) {
	switch b {
	case '\r':
		return
	case '\n':
		if !k.midLine {
			k.encoder.Press()
		}
		k.midLine = false
		return
	case '+', 'd', 'l', '.':
		k.encoder.Rotate(1)
	case '-', 'a', 'h', ',':
		k.encoder.Rotate(-1)
	case ' ':
		k.encoder.Press()
	}
	k.midLine = true
}
