package app

import (
	"fmt"

	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
	quotaHTTP "github.com/allisson/filevault/internal/quota/http"
	quotaBolt "github.com/allisson/filevault/internal/quota/repository/bolt"
	quotaMySQL "github.com/allisson/filevault/internal/quota/repository/mysql"
	quotaPostgreSQL "github.com/allisson/filevault/internal/quota/repository/postgresql"
	quotaUseCase "github.com/allisson/filevault/internal/quota/usecase"
	vaultHTTP "github.com/allisson/filevault/internal/vault/http"
	vaultBolt "github.com/allisson/filevault/internal/vault/repository/bolt"
	vaultMySQL "github.com/allisson/filevault/internal/vault/repository/mysql"
	vaultPostgreSQL "github.com/allisson/filevault/internal/vault/repository/postgresql"
	vaultService "github.com/allisson/filevault/internal/vault/service"
	vaultUseCase "github.com/allisson/filevault/internal/vault/usecase"
)

// QuotaPolicy returns the quota policy parsed from configuration.
func (c *Container) QuotaPolicy() (*quotaDomain.Policy, error) {
	var err error
	c.quotaPolicyInit.Do(func() {
		c.quotaPolicy, err = quotaDomain.ParsePolicy(
			c.config.QuotaDefault,
			c.config.QuotaRoleBaselines,
			c.config.QuotaDepartmentBonuses,
			c.config.QuotaUnlimitedRoles,
		)
		if err != nil {
			c.initErrors["quotaPolicy"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["quotaPolicy"]; exists {
		return nil, storedErr
	}
	return c.quotaPolicy, nil
}

// UsageRepository returns the quota usage repository.
func (c *Container) UsageRepository() (quotaUseCase.UsageRepository, error) {
	var err error
	c.usageRepositoryInit.Do(func() {
		c.usageRepository, err = c.initUsageRepository()
		if err != nil {
			c.initErrors["usageRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["usageRepository"]; exists {
		return nil, storedErr
	}
	return c.usageRepository, nil
}

// QuotaLedger returns the quota ledger.
func (c *Container) QuotaLedger() (quotaUseCase.Ledger, error) {
	var err error
	c.ledgerInit.Do(func() {
		c.ledger, err = c.initQuotaLedger()
		if err != nil {
			c.initErrors["ledger"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ledger"]; exists {
		return nil, storedErr
	}
	return c.ledger, nil
}

// MembershipRepository returns the vault membership repository.
func (c *Container) MembershipRepository() (vaultUseCase.MembershipRepository, error) {
	var err error
	c.membershipRepositoryInit.Do(func() {
		c.membershipRepository, err = c.initMembershipRepository()
		if err != nil {
			c.initErrors["membershipRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["membershipRepository"]; exists {
		return nil, storedErr
	}
	return c.membershipRepository, nil
}

// PinHasher returns the argon2id PIN hasher.
func (c *Container) PinHasher() (vaultService.PinHasher, error) {
	var err error
	c.pinHasherInit.Do(func() {
		c.pinHasher, err = vaultService.NewPinHasher()
		if err != nil {
			c.initErrors["pinHasher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["pinHasher"]; exists {
		return nil, storedErr
	}
	return c.pinHasher, nil
}

// CapabilityStore returns the in-process store of gate capabilities.
func (c *Container) CapabilityStore() *vaultService.MemoryCapabilityStore {
	c.capabilityStoreInit.Do(func() {
		c.capabilityStore = vaultService.NewMemoryCapabilityStore()
	})
	return c.capabilityStore
}

// VaultUseCase returns the vault use case, wrapped with metrics.
func (c *Container) VaultUseCase() (vaultUseCase.VaultUseCase, error) {
	var err error
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, err = c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.vaultUseCase, nil
}

// VaultHandler returns the HTTP handler for /v1/vault.
func (c *Container) VaultHandler() (*vaultHTTP.VaultHandler, error) {
	var err error
	c.vaultHandlerInit.Do(func() {
		c.vaultHandler, err = c.initVaultHandler()
		if err != nil {
			c.initErrors["vaultHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultHandler"]; exists {
		return nil, storedErr
	}
	return c.vaultHandler, nil
}

// QuotaHandler returns the HTTP handler for /v1/quota.
func (c *Container) QuotaHandler() (*quotaHTTP.QuotaHandler, error) {
	var err error
	c.quotaHandlerInit.Do(func() {
		c.quotaHandler, err = c.initQuotaHandler()
		if err != nil {
			c.initErrors["quotaHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["quotaHandler"]; exists {
		return nil, storedErr
	}
	return c.quotaHandler, nil
}

func (c *Container) initUsageRepository() (quotaUseCase.UsageRepository, error) {
	if c.config.DBDriver == DriverBolt {
		boltDB, err := c.BoltDB()
		if err != nil {
			return nil, fmt.Errorf("failed to get bolt database for usage repository: %w", err)
		}
		return quotaBolt.NewBoltUsageRepository(boltDB), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for usage repository: %w", err)
	}

	switch c.config.DBDriver {
	case DriverMySQL:
		return quotaMySQL.NewMySQLUsageRepository(db), nil
	case DriverPostgres:
		return quotaPostgreSQL.NewPostgreSQLUsageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initQuotaLedger() (quotaUseCase.Ledger, error) {
	policy, err := c.QuotaPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to parse quota policy: %w", err)
	}
	repo, err := c.UsageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get usage repository for ledger: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for ledger: %w", err)
	}
	return quotaUseCase.NewLedger(repo, policy, businessMetrics, c.Logger()), nil
}

func (c *Container) initMembershipRepository() (vaultUseCase.MembershipRepository, error) {
	if c.config.DBDriver == DriverBolt {
		boltDB, err := c.BoltDB()
		if err != nil {
			return nil, fmt.Errorf("failed to get bolt database for membership repository: %w", err)
		}
		return vaultBolt.NewBoltMembershipRepository(boltDB), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for membership repository: %w", err)
	}

	switch c.config.DBDriver {
	case DriverMySQL:
		return vaultMySQL.NewMySQLMembershipRepository(db), nil
	case DriverPostgres:
		return vaultPostgreSQL.NewPostgreSQLMembershipRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initVaultUseCase() (vaultUseCase.VaultUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for vault use case: %w", err)
	}
	repo, err := c.MembershipRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get membership repository for vault use case: %w", err)
	}
	fileUseCase, err := c.FileUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get file use case for vault use case: %w", err)
	}
	ledger, err := c.QuotaLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to get quota ledger for vault use case: %w", err)
	}
	hasher, err := c.PinHasher()
	if err != nil {
		return nil, fmt.Errorf("failed to get pin hasher for vault use case: %w", err)
	}
	recorder, err := c.ActivityRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity recorder for vault use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for vault use case: %w", err)
	}

	useCase, err := vaultUseCase.NewVaultUseCase(
		vaultUseCase.Config{CapabilityTTL: c.config.VaultCapabilityTTL},
		txManager,
		repo,
		fileUseCase,
		ledger,
		hasher,
		c.CapabilityStore(),
		recorder,
		c.Logger(),
	)
	if err != nil {
		return nil, err
	}
	return vaultUseCase.NewVaultUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initVaultHandler() (*vaultHTTP.VaultHandler, error) {
	useCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for vault handler: %w", err)
	}
	return vaultHTTP.NewVaultHandler(useCase, c.Logger()), nil
}

func (c *Container) initQuotaHandler() (*quotaHTTP.QuotaHandler, error) {
	ledger, err := c.QuotaLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to get quota ledger for quota handler: %w", err)
	}
	return quotaHTTP.NewQuotaHandler(ledger, c.Logger()), nil
}
