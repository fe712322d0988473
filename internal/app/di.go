// Package app provides the dependency injection container that assembles filevault.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/allisson/filevault/internal/config"
	"github.com/allisson/filevault/internal/database"
	"github.com/allisson/filevault/internal/http"
	"github.com/allisson/filevault/internal/metrics"
	"github.com/allisson/filevault/internal/storage"
	"github.com/allisson/filevault/internal/sweeper"

	activityUseCase "github.com/allisson/filevault/internal/activity/usecase"
	cryptoService "github.com/allisson/filevault/internal/crypto/service"
	filesHTTP "github.com/allisson/filevault/internal/files/http"
	filesUseCase "github.com/allisson/filevault/internal/files/usecase"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
	quotaHTTP "github.com/allisson/filevault/internal/quota/http"
	quotaUseCase "github.com/allisson/filevault/internal/quota/usecase"
	vaultHTTP "github.com/allisson/filevault/internal/vault/http"
	vaultService "github.com/allisson/filevault/internal/vault/service"
	vaultUseCase "github.com/allisson/filevault/internal/vault/usecase"
)

// Metadata store drivers accepted in DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverBolt     = "bolt"
)

// Container holds all application dependencies. Components are created on first
// access and cached.
type Container struct {
	config *config.Config

	// ctx bounds background work started while wiring (rate limiter cleanup);
	// it is cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	boltDB          *bbolt.DB
	txManager       database.TxManager
	blobStore       *storage.BlobStore
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Crypto
	kmsService        cryptoService.KMSService
	keyProvider       cryptoService.KeyProvider
	streamCipher      cryptoService.StreamCipher
	integrityVerifier cryptoService.IntegrityVerifier

	// Activity
	eventRepository activityUseCase.EventRepository
	recorder        activityUseCase.Recorder
	relay           activityUseCase.Relay

	// Files
	fileRepository filesUseCase.FileRepository
	fileUseCase    filesUseCase.FileUseCase
	fileHandler    *filesHTTP.FileHandler

	// Quota
	quotaPolicy     *quotaDomain.Policy
	usageRepository quotaUseCase.UsageRepository
	ledger          quotaUseCase.Ledger

	// Vault
	membershipRepository vaultUseCase.MembershipRepository
	pinHasher            vaultService.PinHasher
	capabilityStore      *vaultService.MemoryCapabilityStore
	vaultUseCase         vaultUseCase.VaultUseCase
	vaultHandler         *vaultHTTP.VaultHandler
	quotaHandler         *quotaHTTP.QuotaHandler

	// Servers and workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	sweeper       *sweeper.Sweeper

	mu                       sync.Mutex
	loggerInit               sync.Once
	dbInit                   sync.Once
	boltDBInit               sync.Once
	txManagerInit            sync.Once
	blobStoreInit            sync.Once
	metricsProviderInit      sync.Once
	businessMetricsInit      sync.Once
	kmsServiceInit           sync.Once
	keyProviderInit          sync.Once
	streamCipherInit         sync.Once
	integrityVerifierInit    sync.Once
	eventRepositoryInit      sync.Once
	recorderInit             sync.Once
	relayInit                sync.Once
	fileRepositoryInit       sync.Once
	fileUseCaseInit          sync.Once
	fileHandlerInit          sync.Once
	quotaPolicyInit          sync.Once
	usageRepositoryInit      sync.Once
	ledgerInit               sync.Once
	membershipRepositoryInit sync.Once
	pinHasherInit            sync.Once
	capabilityStoreInit      sync.Once
	vaultUseCaseInit         sync.Once
	vaultHandlerInit         sync.Once
	quotaHandlerInit         sync.Once
	httpServerInit           sync.Once
	metricsServerInit        sync.Once
	sweeperInit              sync.Once
	initErrors               map[string]error
}

// NewContainer creates a new container for cfg.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the structured logger.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the SQL connection pool. It fails when DB_DRIVER is "bolt".
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// BoltDB returns the embedded metadata store. It fails unless DB_DRIVER is "bolt".
func (c *Container) BoltDB() (*bbolt.DB, error) {
	var err error
	c.boltDBInit.Do(func() {
		c.boltDB, err = c.initBoltDB()
		if err != nil {
			c.initErrors["boltDB"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["boltDB"]; exists {
		return nil, storedErr
	}
	return c.boltDB, nil
}

// TxManager returns the transaction manager of the configured metadata store.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// BlobStore returns the encrypted object store.
func (c *Container) BlobStore() (*storage.BlobStore, error) {
	var err error
	c.blobStoreInit.Do(func() {
		c.blobStore, err = c.initBlobStore()
		if err != nil {
			c.initErrors["blobStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["blobStore"]; exists {
		return nil, storedErr
	}
	return c.blobStore, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the public API server with its router set up.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Sweeper returns the expiration sweeper.
func (c *Container) Sweeper() (*sweeper.Sweeper, error) {
	var err error
	c.sweeperInit.Do(func() {
		c.sweeper, err = c.initSweeper()
		if err != nil {
			c.initErrors["sweeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}

// Shutdown releases every initialized resource. Servers are stopped before the
// stores they read from are closed.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.blobStore != nil {
		if err := c.blobStore.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("blob store close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.boltDB != nil {
		if err := c.boltDB.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("bolt database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initDB() (*sql.DB, error) {
	if c.config.DBDriver != DriverPostgres && c.config.DBDriver != DriverMySQL {
		return nil, fmt.Errorf("no sql database for driver: %s", c.config.DBDriver)
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initBoltDB() (*bbolt.DB, error) {
	if c.config.DBDriver != DriverBolt {
		return nil, fmt.Errorf("no bolt database for driver: %s", c.config.DBDriver)
	}
	return database.OpenBolt(c.config.BoltPath)
}

func (c *Container) initTxManager() (database.TxManager, error) {
	switch c.config.DBDriver {
	case DriverPostgres, DriverMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
		}
		return database.NewTxManager(db), nil
	case DriverBolt:
		boltDB, err := c.BoltDB()
		if err != nil {
			return nil, fmt.Errorf("failed to get bolt database for tx manager: %w", err)
		}
		return database.NewBoltTxManager(boltDB), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initBlobStore() (*storage.BlobStore, error) {
	return storage.OpenBlobStore(c.ctx, c.config.BlobBucketURL)
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// databasePing returns the readiness check of the configured metadata store.
func (c *Container) databasePing() (http.PingFunc, error) {
	if c.config.DBDriver == DriverBolt {
		boltDB, err := c.BoltDB()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return database.BoltView(ctx, boltDB, func(*bbolt.Tx) error { return nil })
		}, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return db.PingContext, nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	dbPing, err := c.databasePing()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	blobStore, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for http server: %w", err)
	}
	fileHandler, err := c.FileHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get file handler for http server: %w", err)
	}
	vaultHandler, err := c.VaultHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault handler for http server: %w", err)
	}
	quotaHandler, err := c.QuotaHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get quota handler for http server: %w", err)
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(
		&http.Readiness{Database: dbPing, Storage: blobStore.Ping},
		c.config.ServerHost,
		c.config.ServerPort,
		logger,
	)
	server.SetupRouter(c.ctx, http.RouterConfig{
		FileHandler:          fileHandler,
		VaultHandler:         vaultHandler,
		QuotaHandler:         quotaHandler,
		MetricsProvider:      provider,
		MetricsNamespace:     c.config.MetricsNamespace,
		CORSEnabled:          c.config.CORSEnabled,
		CORSAllowOrigins:     c.config.CORSAllowOrigins,
		GateRateLimitEnabled: c.config.VaultGateRateLimitEnabled,
		GateRequestsPerSec:   c.config.VaultGateRequestsPerSec,
		GateBurst:            c.config.VaultGateBurst,
	})
	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

func (c *Container) initSweeper() (*sweeper.Sweeper, error) {
	fileUseCase, err := c.FileUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get file use case for sweeper: %w", err)
	}
	vaultUseCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for sweeper: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for sweeper: %w", err)
	}

	return sweeper.New(
		sweeper.Config{
			Interval:  c.config.SweepInterval,
			BatchSize: c.config.SweepBatchSize,
		},
		fileUseCase,
		vaultUseCase,
		businessMetrics,
		c.Logger(),
	), nil
}
