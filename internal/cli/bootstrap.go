package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/rahul/taskbreak/internal/agent"
	"github.com/rahul/taskbreak/internal/gateway"
	"github.com/rahul/taskbreak/internal/governance"
	"github.com/rahul/taskbreak/internal/observability"
	"github.com/rahul/taskbreak/internal/session"
	"github.com/rahul/taskbreak/internal/store"
	"github.com/rahul/taskbreak/internal/tools"
	"github.com/rahul/taskbreak/pkg/config"
)

// services holds the process-wide services every command shares.
type services struct {
	cfg     *config.Config
	logger  *observability.Logger
	brain   *agent.Brain
	policy  *governance.DefaultPolicyEngine
	history *store.HistoryStore
	browser *tools.BrowserRenderer
}

// bootstrap loads the config and builds the model, tools and archive. It
// fails before anything is started when no credential is configured.
func bootstrap(ctx context.Context, app *App) (*services, error) {
	cfg, err := config.LoadConfig(app.ConfigPath)
	if err != nil {
		return nil, err
	}

	name, provider, err := cfg.ResolveProvider()
	if err != nil {
		return nil, err
	}

	model, err := agent.NewModel(ctx, name, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", name, err)
	}

	policy, err := buildPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	rt := &services{
		cfg:    cfg,
		logger: observability.NewLogger(cfg.Logging.LLMLogPath, cfg.Logging.MaxSizeMB),
		policy: policy,
	}

	gen := cfg.Generation
	registry := tools.NewRegistry()
	if gen.GroundingEnabled() {
		search, err := tools.NewSearchTool(gen.SearchResults)
		if err != nil {
			log.Printf("Warning: Failed to initialize search tool: %v", err)
		} else {
			registry.Register(search)
		}

		var fallback tools.Renderer
		if gen.BrowserFallback {
			rt.browser = tools.NewBrowserRenderer()
			fallback = rt.browser
		}
		registry.Register(tools.NewPageReader(fallback))
	}

	opts := agent.Options{
		BreakdownTemperature: gen.BreakdownTemperature,
		ContentTemperature:   gen.ContentTemperature,
		TopP:                 gen.TopP,
		MaxToolRounds:        gen.MaxToolRounds,
	}
	rt.brain = agent.NewBrain(model, agent.NewPromptManager(gen.PromptsDir), registry, rt.logger, opts)

	if cfg.Memory.Path != "" {
		rt.history, err = store.NewHistoryStore(cfg.Memory.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
	}

	log.Printf("[ BOOT ] provider=%s model=%s grounding=%v tools=%d", name, provider.Model, gen.GroundingEnabled(), registry.Len())
	return rt, nil
}

func buildPolicy(p config.PolicyConfig) (*governance.DefaultPolicyEngine, error) {
	gov := governance.NewDefaultPolicyEngine()
	gov.MaxInputLen = p.MaxInputLen
	for _, pattern := range p.DenyPatterns {
		if err := gov.DenyInput(pattern); err != nil {
			return nil, fmt.Errorf("invalid policy pattern %q: %w", pattern, err)
		}
	}
	return gov, nil
}

func (rt *services) newSession(chatID string) *session.Session {
	s := session.New(chatID, rt.brain, rt.logger)
	if rt.history != nil {
		s.Archiver = rt.history
	}
	return s
}

func (rt *services) dispatcher() *gateway.Dispatcher {
	var history gateway.RunArchive
	if rt.history != nil {
		history = rt.history
	}
	return gateway.NewDispatcher(rt.newSession, rt.policy, history, rt.logger)
}

func (rt *services) Close() {
	if rt.browser != nil {
		rt.browser.Close()
	}
	if rt.history != nil {
		if err := rt.history.Close(); err != nil {
			log.Printf("failed to close history: %v", err)
		}
	}
}
