package di

import (
	"context"
	"fmt"
	"time"

	drepo "TradeGate/internal/domain/repository"
	"TradeGate/internal/engine"
	"TradeGate/internal/ensemble"
	"TradeGate/internal/guard"
	"TradeGate/internal/handler/api"
	internalrepo "TradeGate/internal/repository"
	"TradeGate/internal/rollup"
	"TradeGate/internal/service/cohort"
	"TradeGate/internal/service/modelfeed"
	"TradeGate/internal/service/stream"
	"TradeGate/internal/state"
	"TradeGate/internal/usecase"
	pkgch "TradeGate/pkg/clickhouse"
	"TradeGate/pkg/config"
	xhttp "TradeGate/pkg/http"
	pkgkafka "TradeGate/pkg/kafka"
	applogger "TradeGate/pkg/logger"
	"TradeGate/pkg/metrics"
	"TradeGate/pkg/server"
)

// AuditBackend bundles the configured sink with its optional read side.
// Only the ClickHouse backend serves reads; with Kafka the audit API
// degrades to health-only.
type AuditBackend struct {
	Sink  drepo.AuditSink
	Store drepo.AuditStore
	CH    *pkgch.Client
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideSpecs converts configured timeframes into rollup specs.
func ProvideSpecs(cfg *config.Config) []drepo.TimeframeSpec {
	specs := make([]drepo.TimeframeSpec, 0, len(cfg.Timeframes))
	for _, tf := range cfg.Timeframes {
		specs = append(specs, drepo.TimeframeSpec{
			Name:    drepo.Timeframe(tf.Name),
			Window:  tf.Window,
			MinBars: tf.MinBars,
			Weight:  tf.Weight,
		})
	}
	return specs
}

// ProvideRollupManager creates the per-instance rollup manager.
func ProvideRollupManager(cfg *config.Config, specs []drepo.TimeframeSpec) *rollup.Manager {
	return rollup.NewManager(specs, cfg.Rollup.Capacity)
}

// ProvideBarStream creates the configured bar source.
func ProvideBarStream(cfg *config.Config, l *applogger.Logger) drepo.BarStream {
	if cfg.Stream.Type == "kafka" {
		return stream.NewKafka(stream.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.BarsTopic,
			GroupID:  cfg.Kafka.Consumer.GroupID,
			Symbol:   cfg.Instance.Symbol,
			MinBytes: cfg.Kafka.Consumer.MinBytes,
			MaxBytes: cfg.Kafka.Consumer.MaxBytes,
		}, l)
	}
	return stream.New(cfg.Stream.URL, cfg.Instance.Symbol, cfg.Stream.ReconnectDelay, cfg.Stream.PingInterval, l)
}

// ProvideModelFeed creates the model provider HTTP client.
func ProvideModelFeed(cfg *config.Config) drepo.ModelFeed {
	return modelfeed.New(cfg)
}

// ProvideStateStore creates the cohort persistence backend: Redis when
// configured, the atomic file store otherwise.
func ProvideStateStore(cfg *config.Config) (drepo.SignalStateStore, error) {
	if cfg.Cohort.Redis.Enabled {
		rs, err := state.NewRedisStore(
			cfg.Cohort.Redis.Addr,
			cfg.Cohort.Redis.Password,
			cfg.Cohort.Redis.DB,
			cfg.Cohort.StalenessMax,
		)
		if err != nil {
			return nil, fmt.Errorf("redis state store: %w", err)
		}
		return rs, nil
	}
	return state.NewFileStore(cfg.Cohort.StatePath, cfg.Cohort.StalenessMax), nil
}

// ProvideCohortSource creates the live cohort feed with cached fallback.
func ProvideCohortSource(cfg *config.Config, store drepo.SignalStateStore, m drepo.Metrics, l *applogger.Logger) usecase.CohortSource {
	cf := cohort.NewCachedFeed(cohort.New(cfg), store)
	cf.SetLogger(l)
	cf.SetMetrics(m)
	return cf
}

// ProvideSkillTracker creates the per-timeframe skill tracker.
func ProvideSkillTracker(cfg *config.Config, specs []drepo.TimeframeSpec) *ensemble.SkillTracker {
	sources := make([]string, 0, len(specs))
	for _, s := range specs {
		sources = append(sources, string(s.Name))
	}
	return ensemble.NewSkillTracker(sources, cfg.Ensemble.Window, cfg.Ensemble.Kappa)
}

// ProvideEngine creates the decision engine from configured thresholds.
func ProvideEngine(cfg *config.Config) *engine.Engine {
	return engine.New(engine.Thresholds{
		SMin:                          cfg.Thresholds.SMin,
		MMin:                          cfg.Thresholds.MMin,
		ConfMin:                       cfg.Thresholds.ConfMin,
		AlphaMin:                      cfg.Thresholds.AlphaMin,
		FlipModel:                     cfg.Thresholds.FlipModel,
		FlipMood:                      cfg.Thresholds.FlipMood,
		RequireConsensus:              cfg.Thresholds.RequireConsensus,
		AllowModelOnlyWhenMoodNeutral: cfg.Thresholds.AllowModelOnlyWhenMoodNeutral,
		NeutralBand:                   cfg.Thresholds.NeutralBand,
	})
}

// ProvideGuard creates the risk and execution guard.
func ProvideGuard(cfg *config.Config) *guard.Guard {
	return guard.New(guard.Limits{
		EdgeScaleBps:    cfg.Risk.EdgeScaleBps,
		TakerFeeBps:     cfg.Risk.TakerFeeBps,
		SlippageBps:     cfg.Risk.SlippageBps,
		BufferBps:       cfg.Risk.BufferBps,
		ImpactK:         cfg.Risk.ImpactK,
		MaxImpactBps:    cfg.Risk.MaxImpactBps,
		HardImpactBps:   cfg.Risk.HardImpactBps,
		AllowSoftImpact: cfg.Risk.AllowSoftImpact,
		BaseNotional:    cfg.Risk.BaseNotional,
		MaxPosition:     cfg.Risk.MaxPosition,
	})
}

// ProvideAuditBackend creates the configured audit trail backend.
func ProvideAuditBackend(cfg *config.Config, l *applogger.Logger) (*AuditBackend, error) {
	switch cfg.Audit.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithPool(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}

		store := internalrepo.NewCHAuditStore(client)
		store.SetLogger(l)
		return &AuditBackend{Sink: store, Store: store, CH: client}, nil

	default:
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		pub := internalrepo.NewKafkaAuditPublisher(producer, cfg.Kafka.DecisionsTopic, cfg.Kafka.IntentsTopic)
		pub.SetLogger(l)

		// Aggregated error logs ride the same producer.
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
		return &AuditBackend{Sink: pub}, nil
	}
}

// ProvideEvaluator creates the per-bar evaluation pipeline.
func ProvideEvaluator(
	cfg *config.Config,
	specs []drepo.TimeframeSpec,
	rm *rollup.Manager,
	model drepo.ModelFeed,
	cohortSrc usecase.CohortSource,
	tracker *ensemble.SkillTracker,
	eng *engine.Engine,
	g *guard.Guard,
	audit *AuditBackend,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.Evaluator {
	base := ""
	if len(specs) > 0 {
		base = string(specs[0].Name)
	}
	ev := usecase.NewEvaluator(
		usecase.EvaluatorConfig{
			Symbol:          cfg.Instance.Symbol,
			Specs:           specs,
			EnsembleEnabled: cfg.Ensemble.Enabled,
			BarsPerDay:      barsPerDay(base),
			ADVBars:         cfg.Risk.ADVWindowDays * barsPerDay(base),
		},
		rm, model, cohortSrc, tracker, eng, g, audit.Sink, m,
	)
	ev.SetLogger(l)
	return ev
}

// ProvideBarCollector creates the stream consumer.
func ProvideBarCollector(s drepo.BarStream, ev *usecase.Evaluator, m drepo.Metrics, l *applogger.Logger) *usecase.BarCollector {
	c := usecase.NewBarCollector(s, ev, m)
	c.SetLogger(l)
	return c
}

// ProvideHandler creates the audit/health HTTP handler.
func ProvideHandler(
	l *applogger.Logger,
	audit *AuditBackend,
	collector *usecase.BarCollector,
	ev *usecase.Evaluator,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewAuditEchoHandler(l, audit.Store, collector, ev, cfg.Instance.Symbol)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.BarCollector,
	audit *AuditBackend,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, collector, audit.Sink, audit.CH, handler)
}

func barsPerDay(tf string) int {
	switch tf {
	case "1s":
		return 86400
	case "5m":
		return 288
	case "15m":
		return 96
	case "1h":
		return 24
	default:
		return 1440
	}
}
