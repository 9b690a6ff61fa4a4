package taskset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pairsched/internal/logging"
	"pairsched/internal/sched"

	"github.com/sirupsen/logrus"
)

// Format selects the on-disk task representation.
type Format string

const (
	// FormatRates is a CSV with header "id,exec,period,ratio0,...".
	FormatRates Format = "rates"
	// FormatTwoCore is a headerless tab-separated "id exec0 exec1 period".
	FormatTwoCore Format = "two-core"
)

// LoadFile reads a task set from path in the given format.
func LoadFile(path string, format Format) ([]*sched.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task set %s: %w", path, err)
	}
	defer f.Close()

	var tasks []*sched.Task
	switch format {
	case FormatRates, "":
		tasks, err = ReadRates(f)
	case FormatTwoCore:
		tasks, err = ReadTwoCore(f)
	default:
		return nil, fmt.Errorf("unknown task set format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"file":   path,
		"format": format,
		"tasks":  len(tasks),
	}).Debug("Loaded task set")
	return tasks, nil
}

// ReadRates parses the rate-model CSV. The first row is a header.
func ReadRates(r io.Reader) ([]*sched.Task, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	// read header
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var tasks []*sched.Task
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: want id, exec, period and at least two ratios, got %d fields", line, len(rec))
		}

		id, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: id: %w", line, err)
		}
		exec, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: exec: %w", line, err)
		}
		period, err := parsePeriod(rec[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: period: %w", line, err)
		}
		rates := make([]float64, 0, len(rec)-3)
		for _, field := range rec[3:] {
			rate, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: ratio: %w", line, err)
			}
			rates = append(rates, rate)
		}

		t, err := sched.NewTask(sched.TaskID(id), exec, period, rates)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tasks = append(tasks, t)
	}

	if err := checkWidth(tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ReadTwoCore parses tab-separated rows of id, cost on core 0, cost on
// core 1 and period. Extra trailing columns are ignored.
func ReadTwoCore(r io.Reader) ([]*sched.Task, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	var tasks []*sched.Task
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("line %d: want id, exec0, exec1 and period, got %d fields", line, len(rec))
		}

		id, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: id: %w", line, err)
		}
		var costs [2]float64
		for i := range costs {
			costs[i], err = strconv.ParseFloat(strings.TrimSpace(rec[1+i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: exec%d: %w", line, i, err)
			}
		}
		period, err := parsePeriod(rec[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: period: %w", line, err)
		}

		t, err := sched.NewTwoCoreTask(sched.TaskID(id), costs[0], costs[1], period)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func parsePeriod(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// checkWidth rejects files whose rows disagree on the core count.
func checkWidth(tasks []*sched.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	want := tasks[0].CoreCount()
	for _, t := range tasks[1:] {
		if n := t.CoreCount(); n != want {
			return fmt.Errorf("task %d has %d ratios, task %d has %d: %w", t.ID, n, tasks[0].ID, want, sched.ErrInvalidInput)
		}
	}
	return nil
}
