// Package di wires chatguard together with dig.
package di

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/chatguard/internal/adapters/color"
	"github.com/mikey/chatguard/internal/adapters/lang"
	"github.com/mikey/chatguard/internal/adapters/store"
	"github.com/mikey/chatguard/internal/adapters/transport"
	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/dispatch"
	"github.com/mikey/chatguard/internal/factory"
	"github.com/mikey/chatguard/internal/logging"
	"github.com/mikey/chatguard/internal/mute"
	"github.com/mikey/chatguard/internal/pipeline"
	"github.com/mikey/chatguard/internal/rules"
	"github.com/mikey/chatguard/internal/session"
	"github.com/mikey/chatguard/internal/utils"
)

// ConfigFile is the explicit configuration file, empty to search the default paths
type ConfigFile string

// moderatorParams are the collaborators injected into the moderator
type moderatorParams struct {
	dig.In

	Config   *config.Config
	Logger   *zap.Logger
	Store    store.Store
	Engine   *rules.Engine
	Gate     *mute.Gate
	Settings pipeline.Settings
	Loop     *dispatch.Loop
	Sessions *session.Registry
	Sinks    *transport.Sinks
	World    *transport.WorldView
	Perms    *transport.PermissionCache
	Warner   *pipeline.Warner
}

// BuildContainer creates the container of the chatguard service
func BuildContainer(file ConfigFile) (*dig.Container, error) {
	container, err := buildBase(file, logging.InitLogger)
	if err != nil {
		return nil, err
	}

	// Register dispatch loop
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*dispatch.Loop, error) {
		d, err := cfg.GetDispatch()
		if err != nil {
			return nil, err
		}
		return dispatch.NewLoop(logger.Named("dispatch"), d.Tick, d.QueueSize), nil
	}); err != nil {
		return nil, err
	}

	// Register transport side
	if err := container.Provide(func(logger *zap.Logger) *transport.Hub {
		return transport.NewHub(logger.Named("hub"))
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(transport.NewSinks); err != nil {
		return nil, err
	}
	if err := container.Provide(transport.NewWorldView); err != nil {
		return nil, err
	}
	if err := container.Provide(transport.NewPermissionCache); err != nil {
		return nil, err
	}

	// Register session registry and warner
	if err := container.Provide(func(logger *zap.Logger) *session.Registry {
		return session.NewRegistry(logger.Named("session"))
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(logger *zap.Logger) (*pipeline.Warner, error) {
		return pipeline.NewWarner(logger, pipeline.DefaultWarnerSize)
	}); err != nil {
		return nil, err
	}

	// Register moderation pipeline
	if err := container.Provide(NewMuteSettings); err != nil {
		return nil, err
	}
	if err := container.Provide(mute.NewGate); err != nil {
		return nil, err
	}
	if err := container.Provide(NewPipelineSettings); err != nil {
		return nil, err
	}
	if err := container.Provide(newModerator); err != nil {
		return nil, err
	}

	// Register frame handler and transport
	if err := container.Provide(func(loop *dispatch.Loop, mod *pipeline.Moderator, world *transport.WorldView,
		perms *transport.PermissionCache, logger *zap.Logger) *transport.Handler {
		return transport.NewHandler(loop, mod, world, perms, logger.Named("handler"))
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(newTransport); err != nil {
		return nil, err
	}

	return container, nil
}

// BuildCheckContainer creates the container used by the offline tools. It
// logs to the console and never connects a transport.
func BuildCheckContainer(file ConfigFile, verbose, jsonLog bool) (*dig.Container, error) {
	return buildBase(file, func(*config.Config) (*zap.Logger, error) {
		return logging.InitConsoleLogger(verbose, jsonLog)
	})
}

// buildBase registers configuration, logging, storage and the rule engine
func buildBase(file ConfigFile, newLogger func(*config.Config) (*zap.Logger, error)) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(string(file))
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(newLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory) (store.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register classifier, nil when no provider is configured
	if err := container.Provide(func(f *factory.LLMFactory) (core.Classifier, error) {
		return f.CreateClassifier(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register rules
	if err := container.Provide(func(cfg *config.Config, f *factory.LLMFactory, classifier core.Classifier, logger *zap.Logger) ([]core.Rule, error) {
		var defs []rules.Definition
		if err := cfg.UnmarshalKey("rules.list", &defs); err != nil {
			return nil, err
		}
		builder, err := f.CreateMatcherBuilder(classifier)
		if err != nil {
			return nil, err
		}
		compiled, err := rules.Compile(defs, builder)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rules: %w", err)
		}
		logger.Info("Loaded rules", zap.Int("count", len(compiled)))
		return compiled, nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) *color.Stripper {
		return color.NewStripper(cfg.GetMessages().ColorPermissionPrefix)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(compiled []core.Rule, stripper *color.Stripper, logger *zap.Logger) *rules.Engine {
		return rules.NewEngine(compiled, stripper, logger.Named("rules"))
	}); err != nil {
		return nil, err
	}

	return container, nil
}

func newModerator(p moderatorParams) (*pipeline.Moderator, error) {
	storeCfg, err := p.Config.GetStore()
	if err != nil {
		return nil, err
	}

	return pipeline.NewModerator(pipeline.Dependencies{
		Sessions:  p.Sessions,
		Loader:    session.TimeoutLoader{Loader: p.Store, Timeout: storeCfg.LoadTimeout},
		Store:     p.Store,
		Engine:    p.Engine,
		Gate:      p.Gate,
		Lang:      lang.NewCatalog(p.Config),
		Broadcast: p.Sinks,
		Spy:       p.Sinks,
		Log:       p.Store,
		Commands:  p.Sinks,
		Notifier:  p.Sinks,
		World:     p.World,
		Perms:     p.Perms,
		Scheduler: p.Loop,
		Warner:    p.Warner,
	}, p.Settings, p.Logger.Named("pipeline")), nil
}

func newTransport(cfg *config.Config, handler *transport.Handler, hub *transport.Hub, logger *zap.Logger) (transport.Transport, error) {
	server, err := cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch server.Transport {
	case "websocket":
		return transport.NewWebSocketServer(server.ListenAddress, server.Path, server.WriteTimeout, handler, hub, logger.Named("websocket")), nil
	case "stdio":
		return transport.NewLineTransport(os.Stdin, os.Stdout, handler, hub, logger.Named("stdio")), nil
	default:
		return nil, fmt.Errorf("unsupported transport: %s", server.Transport)
	}
}
