/*
Package cli implements the promptstruct command tree.

Every command that touches learned state builds an App: configuration,
logger, storage backend, feedback store, recommendation engine and prompt
history, wired the same way for the CLI and the MCP server.
*/
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/config"
	"github.com/khanglvm/promptstruct/internal/convert"
	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/history"
	"github.com/khanglvm/promptstruct/internal/learning"
	"github.com/khanglvm/promptstruct/internal/logger"
	"github.com/khanglvm/promptstruct/internal/provider"
	"github.com/khanglvm/promptstruct/internal/storage"
)

// Globals holds the persistent root flags.
type Globals struct {
	ConfigPath string
	LogLevel   string
}

// App is the wired application state for one command run.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Storage  storage.Storage
	Feedback *feedback.Store
	Engine   *learning.Engine
	History  *history.History
}

// newApp loads config and opens storage. A storage init failure is logged
// and the app keeps working on in-memory defaults.
func (g *Globals) newApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(cfg.StorageOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := st.Init(); err != nil {
		log.Warn("storage unavailable, changes will not persist", zap.Error(err))
	}

	store := feedback.NewStore(st, learning.NewUpdater(cfg.LearningParams(), log), log)
	store.Load(ctx)

	return &App{
		Config:   cfg,
		Logger:   log,
		Storage:  st,
		Feedback: store,
		Engine:   learning.NewEngine(store, cfg.LearningParams()),
		History:  history.New(st, log),
	}, nil
}

// Close releases storage and flushes the logger.
func (a *App) Close() {
	if err := a.Storage.Close(); err != nil {
		a.Logger.Warn("failed to close storage", zap.Error(err))
	}
	_ = logger.Sync(a.Logger)
}

// Provider builds the configured completion provider.
func (a *App) Provider(name, model string) (provider.CompletionProvider, error) {
	if name == "" {
		name = a.Config.Provider
	}
	pcfg := a.Config.ProviderConfig()
	pcfg.Logger = a.Logger
	if model != "" {
		pcfg.Model = model
	}
	if name != a.Config.Provider {
		// The configured endpoint belongs to the configured provider.
		pcfg.BaseURL = ""
	}

	p, err := provider.DefaultRegistry().New(name, pcfg)
	if errors.Is(err, provider.ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w\n  Hint: set %s or api_key in the config file", err, config.EnvAPIKey)
	}
	return p, err
}

// Converter builds a converter over the app's learned state.
func (a *App) Converter(p provider.CompletionProvider, applyRecommendations bool) *convert.Converter {
	return convert.New(p, a.Engine, a.Feedback, a.History, convert.Options{
		Temperature:          a.Config.Temperature,
		MaxTokens:            a.Config.MaxTokens,
		ApplyRecommendations: applyRecommendations,
		BatchSize:            a.Config.Batch.Size,
		BatchDelay:           a.Config.Batch.Delay,
	}, a.Logger)
}

// schemaOr returns schema, or the configured default when blank.
func (a *App) schemaOr(schema string) string {
	if schema == "" {
		return a.Config.DefaultSchema
	}
	return schema
}

// formatJSON pretty-prints data.
func formatJSON(data interface{}) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func printJSON(w io.Writer, data interface{}) error {
	out, err := formatJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
