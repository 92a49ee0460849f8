// Package display renders the device screens as text on a terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"codeberg.org/mutker/hrvmon/internal/hrv"
)

const clearScreen = "\033[H\033[2J"

// Console draws each screen as a block of text. With ANSI enabled every
// screen replaces the previous one.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	ansi  bool
	trace *Trace
	err   error
}

func NewConsole(out io.Writer, ansi bool) *Console {
	return &Console{
		out:   out,
		ansi:  ansi,
		trace: NewTrace(),
	}
}

// Err returns the first write error, if any.
func (c *Console) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Console) ShowWelcome() {
	c.draw(
		"  <3        <3",
		"   Heartbeat",
		"     Pulse",
		"   Oximeter",
		"  <3        <3",
	)
}

// ShowMenu lists the options, one per line, with the selected one framed.
func (c *Console) ShowMenu(labels []string, selected int) {
	lines := make([]string, len(labels))
	for i, label := range labels {
		if i == selected {
			lines[i] = "[" + label + "]"
			continue
		}
		lines[i] = label
	}
	c.resetTrace()
	c.draw(lines...)
}

// ShowLive draws the average heart rate and extends the waveform.
func (c *Console) ShowLive(averageHR int, filtered float64) {
	c.mu.Lock()
	c.trace.Add(filtered)
	rows := c.trace.Rows()
	c.mu.Unlock()

	lines := append([]string{
		"Measuring HR...",
		fmt.Sprintf("    %d bpm", averageHR),
		"",
	}, rows...)
	c.draw(lines...)
}

func (c *Console) ShowStatus(msg string) {
	c.resetTrace()
	c.draw(msg)
}

// ShowResult draws a statistics screen.
func (c *Console) ShowResult(title string, stats hrv.Statistics) {
	lines := []string{title}
	if !stats.Time.IsZero() {
		lines = append(lines, "Time: "+stats.Time.Local().Format("2006-01-02 15:04"))
	}
	lines = append(lines, FormatStats(stats)...)
	c.draw(lines...)
}

func (c *Console) ShowError(msg string) {
	c.draw("Error:", msg)
}

func (c *Console) resetTrace() {
	c.mu.Lock()
	c.trace.Clear()
	c.mu.Unlock()
}

// FormatStats returns the statistics lines of a result screen.
func FormatStats(stats hrv.Statistics) []string {
	return []string{
		fmt.Sprintf("mean PPI: %.0f", stats.MeanPPI),
		fmt.Sprintf("mean HR: %d bpm", stats.MeanHR),
		fmt.Sprintf("SDNN: %.2f", stats.SDNN),
		fmt.Sprintf("RMSSD: %.2f", stats.RMSSD),
	}
}

func (c *Console) draw(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	if c.ansi {
		b.WriteString(clearScreen)
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if !c.ansi {
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(c.out, b.String()); err != nil && c.err == nil {
		c.err = err
	}
}
