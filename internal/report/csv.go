package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"pairsched/internal/sched"
)

var csvHeader = []string{"frame", "start", "frame_length", "event", "task_id", "core", "cluster", "demand", "spare"}

// CSV logs every placement decision of every frame, one row per event.
type CSV struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVFile creates path and writes the header.
func NewCSVFile(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c, err := NewCSV(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.file = f
	return c, nil
}

// NewCSV writes to w; the caller keeps ownership of w.
func NewCSV(w io.Writer) (*CSV, error) {
	cw := csv.NewWriter(w)

	// write header
	if err := cw.Write(csvHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	return &CSV{writer: cw}, cw.Error()
}

func (c *CSV) ReportFrame(fr sched.FrameReport) error {
	for _, ev := range fr.Trace {
		rec := []string{
			strconv.FormatInt(fr.Index, 10),
			strconv.FormatInt(fr.Start, 10),
			strconv.FormatInt(fr.Length, 10),
			ev.Kind.String(),
			strconv.FormatUint(uint64(ev.TaskID), 10),
			strconv.Itoa(int(ev.Core)),
			clusterField(ev),
			fmt.Sprintf("%.4f", ev.Demand),
			fmt.Sprintf("%.4f", ev.Spare),
		}
		if err := c.writer.Write(rec); err != nil {
			return err
		}
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the file opened by NewCSVFile.
func (c *CSV) Close() error {
	c.writer.Flush()
	if c.file == nil {
		return c.writer.Error()
	}
	if err := c.writer.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

// Rejections of a core that could not open a cluster carry no key.
func clusterField(ev sched.Event) string {
	if ev.Cluster == (sched.ClusterKey{}) {
		return ""
	}
	return ev.Cluster.String()
}
