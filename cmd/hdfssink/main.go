package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nimbusdata/hdfssink/modules/sinktask"
	"github.com/nimbusdata/hdfssink/pkg/ingest"
	"github.com/nimbusdata/hdfssink/pkg/schema"
	"github.com/nimbusdata/hdfssink/pkg/sink"
	"github.com/nimbusdata/hdfssink/pkg/sink/hive"
	"github.com/nimbusdata/hdfssink/tempodb/backend/local"
	"github.com/nimbusdata/hdfssink/tempodb/wal"
)

const appName = "hdfssink"

var cli struct {
	Config string `kong:"help='path to the sink task config file (yaml)',default='hdfssink.yaml'"`

	Run struct {
	} `kong:"cmd,help='run the sink, consuming from Kafka and writing to the configured storage backend'"`

	RecoverOnly struct {
	} `kong:"cmd,help='start the sink exactly as run does; each partition recovers on its first write pass, and the process does not exit after recovery but keeps consuming until interrupted'"`
}

func main() {
	ktx := kong.Parse(&cli, kong.Name(appName), kong.Description("Kafka-to-object-store sink"))

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	logger = level.NewFilter(logger, level.AllowInfo())

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load config", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()

	storage, err := local.New(&local.Config{Path: cfg.Sink.TopicsDir}, &wal.Config{})
	if err != nil {
		level.Error(logger).Log("msg", "failed to construct storage backend", "err", err)
		os.Exit(1)
	}

	compat, err := schema.New(cfg.Sink.SchemaCompatibility)
	if err != nil {
		level.Error(logger).Log("msg", "invalid schema compatibility policy", "err", err)
		os.Exit(1)
	}

	// The catalog's gRPC stub is generated from a .proto this repo doesn't
	// own; wire hive.NewClient's invoke to a real grpc.ClientConn.Invoke
	// bound to cfg.HiveEndpoint at deploy time.
	var hiveService sink.HiveService = hive.Noop{}
	if cfg.Sink.HiveIntegration {
		hiveService = hive.NewClient(nil)
	}

	partitioner, err := cfg.NewPartitioner()
	if err != nil {
		level.Error(logger).Log("msg", "invalid partitioner config", "err", err)
		os.Exit(1)
	}

	task, err := sinktask.New(cfg, storage, partitioner, ingest.JSONLRecordWriterProvider{}, compat, hiveService, logger, reg)
	if err != nil {
		level.Error(logger).Log("msg", "failed to construct sink task", "err", err)
		os.Exit(1)
	}

	switch ktx.Command() {
	case "run":
		runTask(logger, task)
	case "recover-only":
		level.Info(logger).Log("msg", "recover-only runs the same loop as run; each partition recovers on its first write pass and the task keeps running until interrupted")
		runTask(logger, task)
	default:
		level.Error(logger).Log("msg", "unknown command", "command", ktx.Command())
		os.Exit(1)
	}
}

func runTask(logger log.Logger, task *sinktask.Task) {
	ctx := context.Background()
	if err := services.StartAndAwaitRunning(ctx, task); err != nil {
		level.Error(logger).Log("msg", "sink task failed to start", "err", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	level.Info(logger).Log("msg", "shutting down")
	if err := services.StopAndAwaitTerminated(ctx, task); err != nil {
		level.Error(logger).Log("msg", "sink task failed to stop cleanly", "err", err)
		os.Exit(1)
	}
}

// loadConfig reads YAML configuration via viper (environment-variable
// overrides under the HDFSSINK_ prefix), then strictly decodes into
// sinktask.Config so unknown keys are rejected. Viper's key delimiter is
// set to "::" so dotted option names such as "topics.dir" stay single keys.
func loadConfig(path string) (sinktask.Config, error) {
	cfg := sinktask.DefaultConfig()

	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	v.SetEnvPrefix("HDFSSINK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	raw, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return cfg, fmt.Errorf("re-marshaling merged config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}
