package input_test

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/hrvmon/internal/clock"
	"codeberg.org/mutker/hrvmon/internal/input"
	"codeberg.org/mutker/hrvmon/internal/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(q *ring.Ring[input.Event]) []input.Event {
	var out []input.Event
	q.Drain(func(e input.Event) { out = append(out, e) })
	return out
}

func TestEncoderRotation(t *testing.T) {
	q := ring.New[input.Event](30)
	enc := input.NewEncoder(q, clock.NewManual(0), 200*time.Millisecond)

	enc.Turn(false)
	enc.Turn(true)
	enc.Rotate(5)
	enc.Rotate(-2)
	enc.Rotate(0)

	assert.Equal(t, []input.Event{
		input.Clockwise, input.CounterClockwise, input.Clockwise, input.CounterClockwise,
	}, drain(q))
}

func TestPressDebounce(t *testing.T) {
	q := ring.New[input.Event](30)
	clk := clock.NewManual(math.MaxUint32 - 150)
	enc := input.NewEncoder(q, clk, 200*time.Millisecond)

	assert.False(t, enc.Press(), "press right after start is inside the window")

	clk.Advance(201 * time.Millisecond) // wraps the counter
	assert.True(t, enc.Press())

	clk.Advance(100 * time.Millisecond)
	assert.False(t, enc.Press(), "bounce")

	clk.Advance(150 * time.Millisecond)
	assert.True(t, enc.Press())

	assert.Equal(t, []input.Event{input.Select, input.Select}, drain(q))
}

func TestKeySource(t *testing.T) {
	q := ring.New[input.Event](30)
	clk := clock.NewManual(0)
	enc := input.NewEncoder(q, clk, 0)
	clk.Advance(time.Second)

	keys := input.NewKeySource(strings.NewReader("++-x\n\r\n"), enc)
	require.NoError(t, keys.Run(context.Background()))

	assert.Equal(t, []input.Event{
		input.Clockwise, input.Clockwise, input.CounterClockwise, input.Select,
	}, drain(q))
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "select", input.Select.String())
	assert.Equal(t, "rotate+1", input.Clockwise.String())
	assert.Equal(t, "rotate-1", input.CounterClockwise.String())
}
