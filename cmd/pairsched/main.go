package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pairsched/internal/logging"
	"pairsched/internal/report"
	"pairsched/internal/sched"
	"pairsched/internal/taskset"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const Version = "0.3.0"

func loadEnvironment() {
	logger := logging.GetLogger()

	envFile := ".env"
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
	} else {
		logger.WithField("file", envFile).Debug("Loaded environment variables")
	}
}

type runOptions struct {
	configFile  string
	tasksFile   string
	format      string
	csvFile     string
	metricsFile string
	influx      bool
	quiet       bool
}

func loadTasks(path, format string) ([]*sched.Task, sched.CoreSet, error) {
	logger := logging.GetLogger()

	tasks, err := taskset.LoadFile(path, taskset.Format(format))
	if err != nil {
		return nil, nil, err
	}
	if len(tasks) == 0 {
		return nil, nil, fmt.Errorf("%s: no tasks", path)
	}
	cores := sched.NewCoreSet(tasks[0].CoreCount())

	if info, err := taskset.ParseSetName(path); err == nil && info.Cores != len(cores) {
		logger.WithFields(logrus.Fields{
			"file":       path,
			"name_cores": info.Cores,
			"task_cores": len(cores),
		}).Warn("Core count in file name does not match the task set")
	}
	return tasks, cores, nil
}

func runSchedule(ctx context.Context, opts runOptions) error {
	logger := logging.GetLogger()

	cfg, err := sched.Load(opts.configFile)
	if err != nil {
		return err
	}
	if err := logging.SetLogLevel(cfg.LogLevel); err != nil {
		logger.WithField("log_level", cfg.LogLevel).Warn("Ignoring invalid log level in config")
	}
	logger.WithField("config", fmt.Sprintf("%+v", cfg)).Debug("Loaded config")

	tasks, cores, err := loadTasks(opts.tasksFile, opts.format)
	if err != nil {
		return err
	}

	var reporters report.Multi
	defer func() {
		if err := reporters.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close reporters")
		}
	}()

	if !opts.quiet {
		reporters = append(reporters, report.NewText(os.Stdout))
	}
	if opts.csvFile != "" {
		c, err := report.NewCSVFile(opts.csvFile)
		if err != nil {
			return fmt.Errorf("csv log: %w", err)
		}
		reporters = append(reporters, c)
	}
	var metrics *report.Metrics
	if opts.metricsFile != "" {
		metrics = report.NewMetrics()
		reporters = append(reporters, metrics)
	}
	if opts.influx {
		icfg, err := report.InfluxConfigFromEnv()
		if err != nil {
			return err
		}
		runID := fmt.Sprintf("%s-%d", filepath.Base(opts.tasksFile), time.Now().Unix())
		r, err := report.NewInflux(ctx, icfg, runID)
		if err != nil {
			return err
		}
		reporters = append(reporters, r)
	}

	driver, err := sched.NewDriver(cfg, cores, tasks, reporters)
	if err != nil {
		return err
	}
	runErr := driver.Run(ctx)

	if metrics != nil {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			logger.WithField("file", opts.metricsFile).WithError(err).Error("Failed to write metrics")
		}
	}
	return runErr
}

func validateTasks(path, format string) error {
	tasks, cores, err := loadTasks(path, format)
	if err != nil {
		return err
	}
	if err := cores.Validate(tasks); err != nil {
		return err
	}
	logging.GetLogger().WithFields(logrus.Fields{
		"file":  path,
		"tasks": len(tasks),
		"cores": len(cores),
	}).Info("Task set is valid")
	return nil
}

func main() {
	logger := logging.GetLogger()

	loadEnvironment()

	var opts runOptions
	var logLevel string
	gen := taskset.DefaultGenSpec()
	var genDir string
	var seed int64

	rootCmd := &cobra.Command{
		Use:     "pairsched",
		Short:   "Frame-based core-pair scheduling for heterogeneous multicore task sets",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")

	defaultConfig := os.Getenv("PAIRSCHED_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yml"
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the frame schedule of a task set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSchedule(ctx, opts)
		},
	}
	runCmd.Flags().StringVarP(&opts.configFile, "config", "c", defaultConfig, "Path to scheduler configuration file")
	runCmd.Flags().StringVarP(&opts.tasksFile, "tasks", "t", "", "Path to task set file")
	runCmd.Flags().StringVar(&opts.format, "format", string(taskset.FormatRates), "Task set format (rates, two-core)")
	runCmd.Flags().StringVar(&opts.csvFile, "csv", "", "Write placement decisions to this CSV file")
	runCmd.Flags().StringVar(&opts.metricsFile, "metrics", "", "Write Prometheus metrics to this textfile after the run")
	runCmd.Flags().BoolVar(&opts.influx, "influx", false, "Write schedules to InfluxDB (INFLUXDB_* environment)")
	runCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print frames to stdout")
	runCmd.MarkFlagRequired("tasks")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a task set file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateTasks(opts.tasksFile, opts.format)
		},
	}
	validateCmd.Flags().StringVarP(&opts.tasksFile, "tasks", "t", "", "Path to task set file")
	validateCmd.Flags().StringVar(&opts.format, "format", string(taskset.FormatRates), "Task set format (rates, two-core)")
	validateCmd.MarkFlagRequired("tasks")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic rate-model task set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			if len(gen.Ratios) != gen.Cores {
				return fmt.Errorf("--ratios has %d values for %d cores", len(gen.Ratios), gen.Cores)
			}
			path, err := taskset.GenerateFile(genDir, rand.New(rand.NewSource(seed)), gen)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"file": path,
				"seed": seed,
			}).Info("Task set written")
			return nil
		},
	}
	generateCmd.Flags().StringVar(&genDir, "dir", ".", "Output directory")
	generateCmd.Flags().IntVar(&gen.Cores, "cores", gen.Cores, "Number of cores")
	generateCmd.Flags().IntVar(&gen.Tasks, "tasks", gen.Tasks, "Number of tasks")
	generateCmd.Flags().IntVar(&gen.Utilization, "utilization", gen.Utilization, "Execution requirement as percent of the period")
	generateCmd.Flags().Int64SliceVar(&gen.Periods, "periods", gen.Periods, "Periods to draw from")
	generateCmd.Flags().Float64SliceVar(&gen.Ratios, "ratios", gen.Ratios, "Per-core rate multipliers, shuffled per task")
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: current time)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Fatal("Command execution failed")
	}
}
