package display

const (
	Width  = 128
	Height = 64

	traceTop    = 33
	traceBottom = Height - 1
)

// TraceY maps a filtered sample to a row of the lower screen band.
func TraceY(filtered float64) int {
	y := 20 + Height - int(filtered*Height/65535)
	return max(traceTop, min(traceBottom, y))
}

// Trace is the scrolling waveform in the lower band: one point per redraw,
// restarting at the left edge after passing the right one.
type Trace struct {
	points [Width + 1]int
	x      int
}

func NewTrace() *Trace {
	t := &Trace{}
	t.Clear()
	return t
}

// Add plots filtered at the next column.
func (t *Trace) Add(filtered float64) {
	t.x++
	if t.x > Width {
		t.Clear()
		t.x = 0
	}
	t.points[t.x] = TraceY(filtered)
}

// X returns the column of the last point.
func (t *Trace) X() int {
	return t.x
}

func (t *Trace) Clear() {
	for i := range t.points {
		t.points[i] = -1
	}
	t.x = 0
}

// Rows renders the band as text, two pixel columns and four pixel rows per
// character.
func (t *Trace) Rows() []string {
	const (
		colScale = 2
		rowScale = 4
	)
	rows := (traceBottom-traceTop)/rowScale + 1
	cols := Width / colScale

	grid := make([][]byte, rows)
	for r := range grid {
		grid[r] = make([]byte, cols)
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}

	for x, y := range t.points {
		if y < 0 {
			continue
		}
		c := min(x/colScale, cols-1)
		grid[(y-traceTop)/rowScale][c] = '*'
	}

	out := make([]string, rows)
	for r := range grid {
		out[r] = string(grid[r])
	}
	return out
}
