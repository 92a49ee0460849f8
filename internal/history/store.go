// Package history keeps the most recent cloud analysis in a small
// "Key: Value" text file.
package history

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/hrv"
	"github.com/spf13/afero"
)

const (
	keyTime   = "Time"
	keyMeanRR = "Mean RR"
	keyMeanHR = "Mean HR"
	keySDNN   = "SDNN"
	keyRMSSD  = "RMSSD"

	filePerm = 0o644
	dirPerm  = 0o755
)

// FileStore persists one HRVStatistics record, replacing it on every save.
type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Save writes stats to a temporary file and renames it over the old one.
func (s *FileStore) Save(stats hrv.Statistics) error {
	errFactory := errors.New()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return errFactory.Wrap(ErrWrite, err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, Encode(stats), filePerm); err != nil {
		return errFactory.Wrap(ErrWrite, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return errFactory.Wrap(ErrWrite, err)
	}

	return nil
}

func (s *FileStore) Load() (hrv.Statistics, error) {
	errFactory := errors.New()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return hrv.Statistics{}, errFactory.WithMessage(ErrNoHistory, s.path)
		}
		return hrv.Statistics{}, errFactory.Wrap(ErrRead, err)
	}

	return Decode(data)
}

// Encode renders stats as "Key: Value" lines.
func Encode(stats hrv.Statistics) []byte {
	var b bytes.Buffer
	line := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	line(keyTime, stats.Time.Format(time.RFC3339Nano))
	line(keyMeanRR, formatFloat(stats.MeanPPI))
	line(keyMeanHR, strconv.Itoa(stats.MeanHR))
	line(keySDNN, formatFloat(stats.SDNN))
	line(keyRMSSD, formatFloat(stats.RMSSD))

	return b.Bytes()
}

// Decode parses the output of Encode. Unknown keys are ignored; every known
// key must be present.
func Decode(data []byte) (hrv.Statistics, error) {
	errFactory := errors.New()

	values := make(map[string]string, 5)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return hrv.Statistics{}, errFactory.WithMessage(ErrParse, "malformed line: "+line)
		}
		values[key] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return hrv.Statistics{}, errFactory.Wrap(ErrRead, err)
	}

	for _, key := range []string{keyTime, keyMeanRR, keyMeanHR, keySDNN, keyRMSSD} {
		if _, ok := values[key]; !ok {
			return hrv.Statistics{}, errFactory.WithMessage(ErrParse, "missing "+key)
		}
	}

	var (
		stats hrv.Statistics
		err   error
	)
	if stats.Time, err = time.Parse(time.RFC3339Nano, values[keyTime]); err != nil {
		return hrv.Statistics{}, errFactory.Wrap(ErrParse, err)
	}
	if stats.MeanPPI, err = strconv.ParseFloat(values[keyMeanRR], 64); err != nil {
		return hrv.Statistics{}, errFactory.Wrap(ErrParse, err)
	}
	if stats.MeanHR, err = strconv.Atoi(values[keyMeanHR]); err != nil {
		return hrv.Statistics{}, errFactory.Wrap(ErrParse, err)
	}
	if stats.SDNN, err = strconv.ParseFloat(values[keySDNN], 64); err != nil {
		return hrv.Statistics{}, errFactory.Wrap(ErrParse, err)
	}
	if stats.RMSSD, err = strconv.ParseFloat(values[keyRMSSD], 64); err != nil {
		return hrv.Statistics{}, errFactory.Wrap(ErrParse, err)
	}

	return stats, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
