package taskset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"pairsched/internal/sched"
)

// GenSpec describes a synthetic rate-model task set.
type GenSpec struct {
	Cores       int
	Tasks       int
	Utilization int       // percent of each period spent executing
	Periods     []int64   // a period is drawn uniformly from here per task
	Ratios      []float64 // len == Cores; shuffled per task into its rate vector
}

// DefaultGenSpec matches the four-core sets the experiments were run on.
func DefaultGenSpec() GenSpec {
	return GenSpec{
		Cores:       4,
		Tasks:       20,
		Utilization: 40,
		Periods:     []int64{20, 50, 100, 200},
		Ratios:      []float64{1, 0.8, 1.2, 0.9},
	}
}

func (g GenSpec) validate() error {
	switch {
	case g.Cores < 2:
		return fmt.Errorf("cores %d: need at least two", g.Cores)
	case g.Tasks <= 0:
		return fmt.Errorf("tasks %d must be positive", g.Tasks)
	case g.Utilization <= 0:
		return fmt.Errorf("utilization %d must be positive", g.Utilization)
	case len(g.Periods) == 0:
		return fmt.Errorf("no periods to draw from")
	case len(g.Ratios) != g.Cores:
		return fmt.Errorf("%d ratios for %d cores", len(g.Ratios), g.Cores)
	}
	return nil
}

// Generate draws a task set. Task ids run 0..Tasks-1.
func Generate(rng *rand.Rand, g GenSpec) ([]*sched.Task, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	tasks := make([]*sched.Task, 0, g.Tasks)
	for id := 0; id < g.Tasks; id++ {
		period := g.Periods[rng.Intn(len(g.Periods))]
		exec := float64(period) / 100 * float64(g.Utilization)

		rates := make([]float64, len(g.Ratios))
		for i, j := range rng.Perm(len(g.Ratios)) {
			rates[i] = g.Ratios[j]
		}

		t, err := sched.NewTask(sched.TaskID(id), exec, period, rates)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// WriteRates writes tasks in the rate-model CSV format ReadRates parses.
func WriteRates(w io.Writer, tasks []*sched.Task) error {
	cw := csv.NewWriter(w)

	cores := 0
	if len(tasks) > 0 {
		cores = len(tasks[0].Rates)
	}
	header := []string{"id", "exec", "period"}
	for i := 0; i < cores; i++ {
		header = append(header, "ratio"+strconv.Itoa(i))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, t := range tasks {
		if len(t.Rates) != cores {
			return fmt.Errorf("task %d is not a rate-model task over %d cores", t.ID, cores)
		}
		rec := []string{
			strconv.FormatUint(uint64(t.ID), 10),
			strconv.FormatFloat(t.Exec, 'g', -1, 64),
			strconv.FormatInt(t.Period, 10),
		}
		for _, r := range t.Rates {
			rec = append(rec, strconv.FormatFloat(r, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing task %d: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// GenerateFile generates a set and writes it into dir under the first free
// set number. It returns the path written.
func GenerateFile(dir string, rng *rand.Rand, g GenSpec) (string, error) {
	tasks, err := Generate(rng, g)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating dir %s: %w", dir, err)
	}

	info := SetInfo{SetNo: 1, Cores: g.Cores, Utilization: g.Utilization, Tasks: g.Tasks}
	var path string
	for {
		path = filepath.Join(dir, info.FileName())
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		info.SetNo++
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("os.Create(%s): %w", path, err)
	}
	defer f.Close()

	if err := WriteRates(f, tasks); err != nil {
		return "", err
	}
	return path, nil
}
