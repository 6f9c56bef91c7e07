package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/storage"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"github.com/SAP-F-2025/lms-service/pkg/encryption"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Attempt engine
	QuotaCountsExpired bool

	// Background expiry; a zero interval disables the sweeper
	ExpirySweepInterval time.Duration
	ExpirySweepBatch    int
}

// ServiceDependencies are the infrastructure handles services are built on.
type ServiceDependencies struct {
	Repo      repositories.Repository
	Validator *validator.Validator
	Blobs     storage.BlobStore
	Encrypter *encryption.Encrypter
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Clock     Clock
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceDependencies
	logger *slog.Logger
	config ServiceManagerConfig

	// Service instances
	assessmentService   AssessmentService
	questionService     QuestionService
	attemptService      AttemptService
	gradingService      GradingService
	scheduleService     ScheduleService
	secureFileService   SecureFileService
	materialService     MaterialService
	importExportService ImportExportService

	sweeper     *ExpirySweeper
	stopSweeper context.CancelFunc
	sweeperDone chan struct{}

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps ServiceDependencies, logger *slog.Logger, config ServiceManagerConfig) ServiceManager {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		logger: logger,
		config: config,
	}
}

// Initialize builds every service and starts the expiry sweeper when one is
// configured.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if sm.config.ExpirySweepInterval > 0 {
		sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		sm.stopSweeper = cancel
		sm.sweeperDone = make(chan struct{})
		go func() {
			defer close(sm.sweeperDone)
			sm.sweeper.Run(sweepCtx)
		}()
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

func (sm *serviceManager) initializeServices() error {
	d := sm.deps
	if d.Repo == nil {
		return fmt.Errorf("repository is required")
	}
	if d.Blobs == nil || d.Encrypter == nil {
		return fmt.Errorf("blob store and encrypter are required")
	}

	sm.gradingService = NewGradingService(sm.logger)
	sm.assessmentService = NewAssessmentService(d.Repo, sm.logger, d.Validator)
	sm.questionService = NewQuestionService(d.Repo, sm.logger, d.Validator)

	sm.attemptService = NewAttemptService(d.Repo, sm.logger, d.Validator, AttemptServiceOptions{
		Grading:            sm.gradingService,
		Publisher:          d.Publisher,
		Metrics:            d.Metrics,
		Clock:              d.Clock,
		QuotaCountsExpired: sm.config.QuotaCountsExpired,
	})
	sm.logger.Info("Attempt service initialized", "quota_counts_expired", sm.config.QuotaCountsExpired)

	sm.scheduleService = NewScheduleService(d.Repo, sm.logger, d.Validator, d.Publisher, d.Clock, sm.config.QuotaCountsExpired)
	sm.secureFileService = NewSecureFileService(d.Blobs, d.Encrypter, d.Metrics, d.Clock, sm.logger)
	sm.materialService = NewMaterialService(d.Repo, sm.secureFileService, sm.logger, d.Validator, d.Publisher)
	sm.importExportService = NewImportExportService(sm.scheduleService, sm.questionService, sm.logger)

	sm.sweeper = NewExpirySweeper(d.Repo, sm.attemptService, d.Clock, sm.logger,
		sm.config.ExpirySweepInterval, sm.config.ExpirySweepBatch)
	return nil
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Service getters
func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.assessmentService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.questionService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.attemptService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.gradingService
}

func (sm *serviceManager) Schedule() ScheduleService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.scheduleService
}

func (sm *serviceManager) SecureFile() SecureFileService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.secureFileService
}

func (sm *serviceManager) Material() MaterialService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.materialService
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.importExportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown stops the sweeper and waits for it, bounded by ctx.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.logger.Info("Shutting down service manager")

	if sm.stopSweeper != nil {
		sm.stopSweeper()
		select {
		case <-sm.sweeperDone:
		case <-ctx.Done():
			return fmt.Errorf("expiry sweeper did not stop: %w", ctx.Err())
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down")
	return nil
}
