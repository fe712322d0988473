package app

import (
	"fmt"

	activityBolt "github.com/allisson/filevault/internal/activity/repository/bolt"
	activityMySQL "github.com/allisson/filevault/internal/activity/repository/mysql"
	activityPostgreSQL "github.com/allisson/filevault/internal/activity/repository/postgresql"
	activityUseCase "github.com/allisson/filevault/internal/activity/usecase"
)

// EventRepository returns the activity outbox repository.
func (c *Container) EventRepository() (activityUseCase.EventRepository, error) {
	var err error
	c.eventRepositoryInit.Do(func() {
		c.eventRepository, err = c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRepository"]; exists {
		return nil, storedErr
	}
	return c.eventRepository, nil
}

// ActivityRecorder returns the recorder every use case reports to.
func (c *Container) ActivityRecorder() (activityUseCase.Recorder, error) {
	var err error
	c.recorderInit.Do(func() {
		c.recorder, err = c.initActivityRecorder()
		if err != nil {
			c.initErrors["recorder"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recorder"]; exists {
		return nil, storedErr
	}
	return c.recorder, nil
}

// ActivityRelay returns the outbox relay.
func (c *Container) ActivityRelay() (activityUseCase.Relay, error) {
	var err error
	c.relayInit.Do(func() {
		c.relay, err = c.initActivityRelay()
		if err != nil {
			c.initErrors["relay"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["relay"]; exists {
		return nil, storedErr
	}
	return c.relay, nil
}

func (c *Container) initEventRepository() (activityUseCase.EventRepository, error) {
	if c.config.DBDriver == DriverBolt {
		boltDB, err := c.BoltDB()
		if err != nil {
			return nil, fmt.Errorf("failed to get bolt database for event repository: %w", err)
		}
		return activityBolt.NewBoltEventRepository(boltDB), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case DriverMySQL:
		return activityMySQL.NewMySQLEventRepository(db), nil
	case DriverPostgres:
		return activityPostgreSQL.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initActivityRecorder() (activityUseCase.Recorder, error) {
	repo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for recorder: %w", err)
	}
	return activityUseCase.NewRecorder(repo, c.Logger()), nil
}

func (c *Container) initActivityRelay() (activityUseCase.Relay, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for relay: %w", err)
	}
	repo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for relay: %w", err)
	}

	logger := c.Logger()
	return activityUseCase.NewRelay(
		activityUseCase.RelayConfig{
			Interval:   c.config.ActivityRelayInterval,
			BatchSize:  c.config.ActivityRelayBatchSize,
			MaxRetries: c.config.ActivityRelayMaxRetries,
		},
		txManager,
		repo,
		activityUseCase.NewLogPublisher(logger),
		logger,
	), nil
}
