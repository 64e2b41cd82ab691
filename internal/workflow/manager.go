package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"scrivo/internal/analysis"
	"scrivo/internal/config"
	"scrivo/internal/notifications"
	"scrivo/internal/pipeline"
	"scrivo/internal/queue"
	"scrivo/internal/resultcache"
)

// ItemProcessor runs one media file through the processing pipeline.
// *pipeline.Processor is the production implementation.
type ItemProcessor interface {
	Process(ctx context.Context, input string, opts pipeline.ProcessOptions) (*pipeline.Outcome, error)
}

// ItemAnalyzer produces an LLM analysis report for a completed outcome.
// *analysis.Analyzer is the production implementation.
type ItemAnalyzer interface {
	AnalyzeOutcome(ctx context.Context, outcome *pipeline.Outcome, req analysis.Request) (*analysis.Report, error)
}

// Manager coordinates queue processing, watch-directory ingestion, and
// scheduled maintenance.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	processor ItemProcessor
	notifier  notifications.Service
	analyzer  ItemAnalyzer
	cache     *resultcache.Cache
	logger    *slog.Logger

	pollInterval  time.Duration
	watchInterval time.Duration
	heartbeat     *HeartbeatMonitor

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	cron     *cron.Cron
	lastErr  error
	lastItem *queue.Item

	queueActive bool
	queueStart  time.Time
}

// ManagerOption configures optional Manager collaborators.
type ManagerOption func(*Manager)

// WithNotifier replaces the default ntfy notifier (used in tests).
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// WithAnalyzer enables post-transcription analysis for queue items.
func WithAnalyzer(analyzer ItemAnalyzer) ManagerOption {
	return func(m *Manager) {
		m.analyzer = analyzer
	}
}

// WithCache lets the watch loop fingerprint files and the maintenance job
// prune orphaned cache entries.
func WithCache(cache *resultcache.Cache) ManagerOption {
	return func(m *Manager) {
		m.cache = cache
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, processor ItemProcessor, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:           cfg,
		store:         store,
		processor:     processor,
		notifier:      notifications.NewService(cfg),
		logger:        logger,
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		watchInterval: time.Duration(cfg.Workflow.WatchScanInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
