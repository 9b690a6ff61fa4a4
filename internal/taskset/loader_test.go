package taskset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pairsched/internal/sched"

	"github.com/stretchr/testify/require"
)

func TestReadRates(t *testing.T) {
	in := "id,exec,period,ratio0,ratio1,ratio2\n" +
		"0,8,20,1,0.8,1.2\n" +
		"1, 20, 50, 0.9, 1, 0.8\n"

	tasks, err := ReadRates(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	require.Equal(t, sched.TaskID(1), tasks[1].ID)
	require.Equal(t, int64(50), tasks[1].Period)
	require.Equal(t, 20.0, tasks[1].Exec)
	require.Equal(t, []float64{0.9, 1, 0.8}, tasks[1].Rates)
	require.InDelta(t, 8.0/(20*0.8), tasks[0].Utilization(1), 1e-12)
}

func TestReadRates_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"too few fields": "id,exec,period,r0\n0,1,2,1\n",
		"bad period":     "h\n0,1,2.5,1,1\n",
		"bad ratio":      "h\n0,1,2,1,x\n",
		"zero period":    "h\n0,1,0,1,1\n",
		"ragged":         "h\n0,1,10,1,1\n1,1,10,1,1,1\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadRates(strings.NewReader(in))
			require.Error(t, err)
		})
	}

	_, err := ReadRates(strings.NewReader("h\n0,1,0,1,1\n"))
	require.ErrorIs(t, err, sched.ErrInvalidInput)
}

func TestReadTwoCore(t *testing.T) {
	in := "1\t4\t2\t10\n2\t3\t6\t20\textra\n"

	tasks, err := ReadTwoCore(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, []float64{4, 2}, tasks[0].Costs)
	require.InDeltaSlice(t, []float64{0.15, 0.3}, tasks[1].Utilizations(), 1e-12)

	_, err = ReadTwoCore(strings.NewReader("1\t4\t2\n"))
	require.Error(t, err)
	_, err = ReadTwoCore(strings.NewReader("1\t0\t2\t10\n"))
	require.ErrorIs(t, err, sched.ErrInvalidInput)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.tsv")
	require.NoError(t, os.WriteFile(path, []byte("1\t4\t2\t10\n"), 0o644))

	tasks, err := LoadFile(path, FormatTwoCore)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, err = LoadFile(path, "xml")
	require.Error(t, err)
	_, err = LoadFile(filepath.Join(dir, "missing.csv"), FormatRates)
	require.Error(t, err)
}
