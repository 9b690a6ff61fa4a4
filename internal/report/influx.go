package report

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"pairsched/internal/logging"
	"pairsched/internal/sched"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

// PointWriter is the part of api.WriteAPIBlocking the reporter needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxConfig holds the connection settings, normally read from the environment.
type InfluxConfig struct {
	Host   string
	Token  string
	Org    string
	Bucket string
}

// InfluxConfigFromEnv reads INFLUXDB_HOST, INFLUXDB_TOKEN, INFLUXDB_ORG and INFLUXDB_BUCKET.
func InfluxConfigFromEnv() (InfluxConfig, error) {
	cfg := InfluxConfig{
		Host:   os.Getenv("INFLUXDB_HOST"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
	var missing []string
	for name, v := range map[string]string{
		"INFLUXDB_HOST":   cfg.Host,
		"INFLUXDB_TOKEN":  cfg.Token,
		"INFLUXDB_ORG":    cfg.Org,
		"INFLUXDB_BUCKET": cfg.Bucket,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required environment variables: %v", missing)
	}
	return cfg, nil
}

// Influx writes one point per placement and one summary point per frame.
// Simulated time is mapped onto timestamps as Base + start*Unit.
type Influx struct {
	RunID string
	Base  time.Time
	Unit  time.Duration

	ctx    context.Context
	writer PointWriter
	client influxdb2.Client
}

// NewInflux connects to InfluxDB and checks its health.
func NewInflux(ctx context.Context, cfg InfluxConfig, runID string) (*Influx, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	health, err := client.Health(hctx)
	if err != nil {
		client.Close()
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		return nil, err
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influxdb health check at %s: status %s", cfg.Host, health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	r := NewInfluxWriter(ctx, client.WriteAPIBlocking(cfg.Org, cfg.Bucket), runID)
	r.client = client
	return r, nil
}

// NewInfluxWriter reports through an existing writer.
func NewInfluxWriter(ctx context.Context, w PointWriter, runID string) *Influx {
	return &Influx{
		RunID:  runID,
		Base:   time.Unix(0, 0).UTC(),
		Unit:   time.Millisecond,
		ctx:    ctx,
		writer: w,
	}
}

func (r *Influx) ReportFrame(fr sched.FrameReport) error {
	ts := r.Base.Add(time.Duration(fr.Start) * r.Unit)
	points := make([]*write.Point, 0, 1+len(fr.Clusters)*2)

	tasks := 0
	for _, c := range fr.Clusters {
		tasks += len(c.TaskIDs)
	}
	points = append(points, influxdb2.NewPoint("frame_summary",
		map[string]string{
			"run_id": r.RunID,
		},
		map[string]interface{}{
			"frame":        fr.Index,
			"frame_length": fr.Length,
			"clusters":     len(fr.Clusters),
			"tasks":        tasks,
			"overflow":     fr.Schedule.Overflows(),
		},
		ts))

	for _, core := range fr.Schedule.Cores() {
		for _, p := range fr.Schedule.Tasks(core) {
			points = append(points, influxdb2.NewPoint("frame_schedule",
				map[string]string{
					"run_id":   r.RunID,
					"core":     strconv.Itoa(int(core)),
					"cluster":  p.Cluster.String(),
					"task_id":  strconv.FormatUint(uint64(p.TaskID), 10),
					"overflow": strconv.FormatBool(p.Overflow),
				},
				map[string]interface{}{
					"frame":     fr.Index,
					"share":     p.Share,
					"remaining": fr.Schedule.Remaining(core),
				},
				ts))
		}
	}

	if err := r.writer.WritePoint(r.ctx, points...); err != nil {
		return fmt.Errorf("failed to write frame %d points: %w", fr.Index, err)
	}
	return nil
}

func (r *Influx) Close() error {
	if r.client != nil {
		r.client.Close()
	}
	return nil
}
