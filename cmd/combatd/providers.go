package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/config"
	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/dice"
	"github.com/cory-johannsen/rpgcombat/internal/game/engine"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/gameserver"
	"github.com/cory-johannsen/rpgcombat/internal/scripting"
	"github.com/cory-johannsen/rpgcombat/internal/server"
	"github.com/cory-johannsen/rpgcombat/internal/storage/postgres"
)

// App is the fully wired daemon.
type App struct {
	Lifecycle *server.Lifecycle
	Scripts   *scripting.Manager
}

// ProviderSet builds an App from a Config and a logger.
var ProviderSet = wire.NewSet(
	provideRoller,
	provideAbilities,
	provideItems,
	gameserver.NewHostWorld,
	provideEngine,
	provideScripts,
	provideStore,
	provideLoop,
	provideService,
	provideGRPCServer,
	provideLifecycle,
	wire.Struct(new(App), "*"),
)

func provideRoller(cfg config.Config, logger *zap.Logger) *dice.Roller {
	if cfg.Engine.Seed != 0 {
		logger.Warn("using seeded dice source", zap.Uint64("seed", cfg.Engine.Seed))
		return dice.NewLoggedRoller(dice.NewSeededSource(cfg.Engine.Seed), logger)
	}
	return dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
}

func provideAbilities(cfg config.Config, logger *zap.Logger) (*ability.Catalog, error) {
	start := time.Now()
	cat, err := ability.LoadDirectory(cfg.Content.AbilitiesDir)
	if err != nil {
		return nil, fmt.Errorf("loading abilities: %w", err)
	}
	logger.Info("abilities loaded",
		zap.Int("count", len(cat.All())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cat, nil
}

func provideItems(cfg config.Config, abilities *ability.Catalog, logger *zap.Logger) (*item.Catalog, error) {
	start := time.Now()
	cat, err := item.LoadDirectory(cfg.Content.ItemsDir)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	for _, id := range cat.IDs() {
		d, _ := cat.Get(id)
		for _, slot := range item.Slots() {
			passives, _ := d.Passives(slot)
			actives, _ := d.Actives(slot)
			for _, e := range append(passives, actives...) {
				if _, ok := abilities.Get(e.Ability); !ok {
					logger.Warn("item references unknown ability",
						zap.String("item", id),
						zap.String("slot", string(slot)),
						zap.String("ability", e.Ability),
					)
				}
			}
		}
	}
	logger.Info("items loaded",
		zap.Int("count", len(cat.IDs())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cat, nil
}

func provideEngine(cfg config.Config, abilities *ability.Catalog, roller *dice.Roller,
	world *gameserver.HostWorld, logger *zap.Logger) *engine.Context {
	return engine.New(engine.Config{
		Tuning:           cfg.Combat,
		Thresholds:       cfg.Equipment,
		DefaultMaxHealth: cfg.Engine.DefaultMaxHealth,
	}, abilities, roller, world, world, logger)
}

// provideScripts loads the Lua hooks and attaches them to the engine. An empty
// scripts dir disables scripting.
func provideScripts(cfg config.Config, c *engine.Context, roller *dice.Roller,
	logger *zap.Logger) (*scripting.Manager, func(), error) {
	mgr := scripting.NewManager(roller, logger)
	if cfg.Content.ScriptsDir == "" {
		logger.Info("scripting disabled")
		return mgr, mgr.Close, nil
	}
	if err := mgr.Load(cfg.Content.ScriptsDir, cfg.Content.InstructionLimit); err != nil {
		return nil, nil, fmt.Errorf("loading scripts: %w", err)
	}
	mgr.SetHost(c)
	c.SetHooks(mgr)
	return mgr, mgr.Close, nil
}

// provideStore connects to PostgreSQL when persistence is enabled. The
// returned store is a nil interface otherwise.
func provideStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (gameserver.HealthStore, func(), error) {
	if !cfg.Database.Enabled {
		logger.Info("health persistence disabled")
		return nil, func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("name", cfg.Database.Name),
	)
	return postgres.NewHealthRepository(pool.DB()), pool.Close, nil
}

func provideLoop(cfg config.Config, c *engine.Context, logger *zap.Logger) *gameserver.Loop {
	return gameserver.NewLoop(c, cfg.Engine.TickInterval, logger)
}

func provideService(cfg config.Config, loop *gameserver.Loop, world *gameserver.HostWorld,
	items *item.Catalog, store gameserver.HealthStore, logger *zap.Logger) *gameserver.Service {
	return gameserver.NewService(loop, world, items, store, cfg.GRPC.CallTimeout, logger)
}

func provideGRPCServer(cfg config.Config, svc *gameserver.Service, logger *zap.Logger) *gameserver.GRPCServer {
	return gameserver.NewGRPCServer(cfg.GRPC.Addr(), svc, logger)
}

// provideLifecycle registers the services so that shutdown stops gRPC first,
// then flushes player health, then stops the tick loop.
func provideLifecycle(cfg config.Config, loop *gameserver.Loop, svc *gameserver.Service,
	grpcSrv *gameserver.GRPCServer, logger *zap.Logger) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	lc.Add("tick-loop", loop)

	done := make(chan struct{})
	lc.Add("health-flush", &server.FuncService{
		StartFn: func() error {
			<-done
			return nil
		},
		StopFn: func() {
			defer close(done)
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			saved, err := svc.Flush(ctx)
			if err != nil && !errors.Is(err, gameserver.ErrLoopStopped) {
				logger.Error("flushing health", zap.Int("saved", saved), zap.Error(err))
				return
			}
			logger.Info("health flushed", zap.Int("saved", saved))
		},
	})

	lc.Add("grpc", grpcSrv)
	return lc
}
