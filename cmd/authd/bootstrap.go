package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/keygate/keygate/internal/audit"
	"github.com/keygate/keygate/internal/auth"
	config "github.com/keygate/keygate/internal/config/authd"
	domainauth "github.com/keygate/keygate/internal/domain/auth"
	"github.com/keygate/keygate/internal/hash"
	"github.com/keygate/keygate/internal/obs"
	pg "github.com/keygate/keygate/internal/repository/postgres"
	redisrepo "github.com/keygate/keygate/internal/repository/redis"
	"github.com/keygate/keygate/internal/token"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(obs.LogConfig{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		App:    cfg.App.Name,
		Env:    cfg.App.Env,
		Ver:    cfg.App.Version,
	})
}

func initOTel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(context.Context) error, error) {
	ot, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enable {
		logger.Info("otel tracing enabled", zap.String("endpoint", cfg.OTEL.OTLPEndpoint))
	}
	return ot.Shutdown, nil
}

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.New(ctx, cfg.DB)
}

// engineDeps bundles the engine with everything that owns a connection and
// needs closing on shutdown.
type engineDeps struct {
	Engine *auth.Engine
	closer []func() error
}

func (d *engineDeps) Close() {
	for _, fn := range d.closer {
		_ = fn()
	}
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *pg.DB) (*engineDeps, error) {
	deps := &engineDeps{}

	hasher, err := hash.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	codec, err := token.NewCodec([]byte(cfg.Auth.JWTSecret), nil)
	if err != nil {
		return nil, err
	}

	var ledger domainauth.Ledger
	switch cfg.Ledger.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		deps.closer = append(deps.closer, rdb.Close)
		ledger = redisrepo.NewLedger(rdb, nil)
		logger.Info("refresh-token ledger: redis", zap.String("addr", cfg.Redis.Addr))
	default:
		ledger = pg.NewLedger(db)
		logger.Info("refresh-token ledger: postgres")
	}

	var pub audit.Publisher = audit.Nop{}
	if cfg.Audit.Enable {
		kp := audit.NewKafkaPublisher(cfg.Audit.Brokers, cfg.Audit.Topic, logger)
		deps.closer = append(deps.closer, kp.Close)
		pub = kp
		logger.Info("audit trail: kafka", zap.Strings("brokers", cfg.Audit.Brokers), zap.String("topic", cfg.Audit.Topic))
	}

	deps.Engine = auth.NewEngine(pg.NewUserRepo(db), ledger, hasher, codec, pub, logger, auth.Config{
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	return deps, nil
}
