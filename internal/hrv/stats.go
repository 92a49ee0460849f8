package hrv

import (
	"math"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistics is the aggregate result of one completed session.
type Statistics struct {
	Time    time.Time
	MeanPPI float64 // ms
	MeanHR  int     // BPM
	SDNN    float64 // ms
	RMSSD   float64 // ms
}

// Compute returns mean PPI, mean HR, SDNN and RMSSD. It needs at least two
// PPIs and one HR.
func Compute(ppis, hrs []int) (Statistics, error) {
	meanPPI, err := MeanPPI(ppis)
	if err != nil {
		return Statistics{}, err
	}

	meanHR, err := MeanHR(hrs)
	if err != nil {
		return Statistics{}, err
	}

	sdnn, err := SDNN(ppis)
	if err != nil {
		return Statistics{}, err
	}

	rmssd, err := RMSSD(ppis)
	if err != nil {
		return Statistics{}, err
	}

	return Statistics{
		MeanPPI: meanPPI,
		MeanHR:  meanHR,
		SDNN:    sdnn,
		RMSSD:   rmssd,
	}, nil
}

func MeanPPI(ppis []int) (float64, error) {
	if len(ppis) == 0 {
		return 0, insufficient(ErrEmptyPPIs)
	}

	return stat.Mean(toFloats(ppis), nil), nil
}

// MeanHR rounds half to even.
func MeanHR(hrs []int) (int, error) {
	if len(hrs) == 0 {
		return 0, insufficient(ErrEmptyHRs)
	}

	return int(math.RoundToEven(stat.Mean(toFloats(hrs), nil))), nil
}

// SDNN is the population standard deviation of the PPIs.
func SDNN(ppis []int) (float64, error) {
	if len(ppis) == 0 {
		return 0, insufficient(ErrEmptyPPIs)
	}

	_, variance := stat.PopMeanVariance(toFloats(ppis), nil)

	return math.Sqrt(variance), nil
}

// RMSSD is the root mean square of successive PPI differences.
func RMSSD(ppis []int) (float64, error) {
	if len(ppis) < 2 {
		return 0, insufficient(ErrTooFewPPIs)
	}

	x := toFloats(ppis)
	diffs := make([]float64, len(x)-1)
	floats.SubTo(diffs, x[1:], x[:len(x)-1])

	return math.Sqrt(floats.Dot(diffs, diffs) / float64(len(diffs))), nil
}

func insufficient(detail errors.ErrorCode) error {
	errFactory := errors.New()
	return errFactory.Wrap(ErrInsufficientData, errFactory.New(detail))
}

func toFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}
