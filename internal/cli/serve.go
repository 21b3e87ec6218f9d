package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seqthink/internal/archive"
	"seqthink/internal/collab"
	"seqthink/internal/engine"
	"seqthink/internal/insight"
	"seqthink/internal/mcpserver"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long:  "Run the sequential thinking MCP server on stdin/stdout until the client disconnects.",
		RunE:  runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider := cfg.ProviderPreset()
	if !strings.EqualFold(cfg.Provider, provider.Name) {
		logger.Warn("unknown provider, falling back",
			zap.String("configured", cfg.Provider),
			zap.String("using", provider.Name))
	}
	if missing := cfg.MissingKeys(); len(missing) > 0 {
		logger.Warn("api key not set, reasoning calls will fail",
			zap.Strings("missing", missing))
	}

	key, err := provider.APIKey()
	if err != nil {
		return err
	}

	extractor := insight.NewExtractor(nil)
	if cfg.InsightRules != "" {
		rules, err := insight.LoadRules(cfg.InsightRules)
		if err != nil {
			return err
		}
		extractor = insight.NewExtractor(rules)
		logger.Info("loaded insight rules", zap.String("path", cfg.InsightRules))
	}

	collaborator := collab.NewOpenAI(collab.OpenAIConfig{
		BaseURL:      provider.BaseURL,
		APIKey:       key,
		Model:        provider.ModelID(cfg.Model),
		SystemPrompt: cfg.SystemPrompt,
		Timeout:      time.Duration(cfg.Timeout),
	}, logger)

	opts := engine.Options{
		MinEstimatedTotal: cfg.Session.MinEstimatedTotal,
		TerminalPolicy:    engine.TerminalPolicy(cfg.Session.OnTerminal),
	}
	if cfg.Archive.Enabled {
		store, err := archive.New(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Recorder = store
	}

	eng := engine.New(collaborator, extractor, logger, opts)

	logger.Info("starting server",
		zap.String("provider", provider.Name),
		zap.String("model", provider.ModelID(cfg.Model)),
		zap.String("session", eng.SessionID()))

	return mcpserver.ServeStdio(mcpserver.New(eng, logger))
}
