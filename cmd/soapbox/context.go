package main

import (
	"log/slog"
	"strings"
	"sync"

	"soapbox/internal/blobstore"
	"soapbox/internal/catalog"
	"soapbox/internal/config"
	"soapbox/internal/logging"
	"soapbox/internal/media"
	"soapbox/internal/source"
	syncpkg "soapbox/internal/sync"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, logErr := logging.NewFromConfig(cfg)
		if logErr != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger, nil
}

func (c *commandContext) openStore() (*catalog.Store, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// newEngine wires a sync engine from the configuration. The caller owns
// the returned store and must close it.
func (c *commandContext) newEngine() (*syncpkg.Engine, *catalog.Store, error) {
	store, cfg, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	engine := syncpkg.NewEngine(
		cfg,
		store,
		source.New(cfg, logger),
		blobstore.New(cfg),
		media.NewTranscoder(cfg, logger),
		media.Probe,
		logger,
	)
	return engine, store, nil
}
