package app

import (
	"fmt"

	filesHTTP "github.com/allisson/filevault/internal/files/http"
	filesBolt "github.com/allisson/filevault/internal/files/repository/bolt"
	filesMySQL "github.com/allisson/filevault/internal/files/repository/mysql"
	filesPostgreSQL "github.com/allisson/filevault/internal/files/repository/postgresql"
	filesUseCase "github.com/allisson/filevault/internal/files/usecase"
)

// FileRepository returns the file metadata repository.
func (c *Container) FileRepository() (filesUseCase.FileRepository, error) {
	var err error
	c.fileRepositoryInit.Do(func() {
		c.fileRepository, err = c.initFileRepository()
		if err != nil {
			c.initErrors["fileRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileRepository"]; exists {
		return nil, storedErr
	}
	return c.fileRepository, nil
}

// FileUseCase returns the file use case, wrapped with metrics.
func (c *Container) FileUseCase() (filesUseCase.FileUseCase, error) {
	var err error
	c.fileUseCaseInit.Do(func() {
		c.fileUseCase, err = c.initFileUseCase()
		if err != nil {
			c.initErrors["fileUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileUseCase"]; exists {
		return nil, storedErr
	}
	return c.fileUseCase, nil
}

// FileHandler returns the HTTP handler for /v1/files.
func (c *Container) FileHandler() (*filesHTTP.FileHandler, error) {
	var err error
	c.fileHandlerInit.Do(func() {
		c.fileHandler, err = c.initFileHandler()
		if err != nil {
			c.initErrors["fileHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileHandler"]; exists {
		return nil, storedErr
	}
	return c.fileHandler, nil
}

func (c *Container) initFileRepository() (filesUseCase.FileRepository, error) {
	if c.config.DBDriver == DriverBolt {
		boltDB, err := c.BoltDB()
		if err != nil {
			return nil, fmt.Errorf("failed to get bolt database for file repository: %w", err)
		}
		return filesBolt.NewBoltFileRepository(boltDB), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for file repository: %w", err)
	}

	switch c.config.DBDriver {
	case DriverMySQL:
		return filesMySQL.NewMySQLFileRepository(db), nil
	case DriverPostgres:
		return filesPostgreSQL.NewPostgreSQLFileRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initFileUseCase() (filesUseCase.FileUseCase, error) {
	maxUploadBytes, err := c.config.MaxUploadBytes()
	if err != nil {
		return nil, err
	}
	repo, err := c.FileRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get file repository for file use case: %w", err)
	}
	blobStore, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for file use case: %w", err)
	}
	memberships, err := c.MembershipRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get membership repository for file use case: %w", err)
	}
	streamCipher, err := c.StreamCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get stream cipher for file use case: %w", err)
	}
	recorder, err := c.ActivityRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity recorder for file use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for file use case: %w", err)
	}

	useCase := filesUseCase.NewFileUseCase(
		filesUseCase.Config{MaxUploadBytes: maxUploadBytes},
		repo,
		blobStore,
		memberships,
		streamCipher,
		c.IntegrityVerifier(),
		recorder,
		c.Logger(),
	)
	return filesUseCase.NewFileUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initFileHandler() (*filesHTTP.FileHandler, error) {
	useCase, err := c.FileUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get file use case for file handler: %w", err)
	}
	return filesHTTP.NewFileHandler(useCase, c.Logger()), nil
}
