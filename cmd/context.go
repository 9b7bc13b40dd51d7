package main

import (
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	newClient service.ClientFactory

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		newClient:    service.NewLLMClient,
	}
}

// ensureConfig loads .env, the YAML file named by --config or
// SRT_CONFIG_FILE, and the environment, once.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		_ = godotenv.Load()

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			path = os.Getenv("SRT_CONFIG_FILE")
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Log.Level = *c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// setupLogging installs the global logger described by cfg. The returned
// function flushes and closes it.
func setupLogging(cfg config.LogConfig) (func(), error) {
	level := log.ParseLevel(cfg.Level)
	if strings.TrimSpace(cfg.File) == "" {
		log.InitLogger(level)
		return func() { _ = log.GetLogger().Sync() }, nil
	}

	fileLogger, err := log.NewFileLogger(cfg.File, level)
	if err != nil {
		return nil, err
	}
	log.SetLogger(fileLogger.Logger)
	return func() { _ = fileLogger.Close() }, nil
}
