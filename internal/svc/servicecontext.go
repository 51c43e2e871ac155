package svc

import (
	"errors"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "papertrade-api/internal/cache"
	"papertrade-api/internal/config"
	"papertrade-api/internal/store"
	executorpkg "papertrade-api/pkg/executor"
	"papertrade-api/pkg/journal"
	llmpkg "papertrade-api/pkg/llm"
	marketpkg "papertrade-api/pkg/market"
	_ "papertrade-api/pkg/market/hyperliquid" // registers the hyperliquid provider
	schedulerpkg "papertrade-api/pkg/scheduler"
)

// errCacheMiss marks cache lookups that found nothing.
var errCacheMiss = errors.New("svc: cache miss")

type ServiceContext struct {
	Config config.Config

	LLMConfig *llmpkg.Config
	LLMClient llmpkg.LLMClient

	ExecutorConfig *executorpkg.Config
	Oracle         executorpkg.Oracle

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.Provider
	DefaultMarket   marketpkg.Provider

	SchedulerConfig *schedulerpkg.Config
	Manager         *schedulerpkg.Manager
	Journal         *journal.Writer

	DBConn sqlx.SqlConn
	Cache  cache.Cache
	TTL    cachekeys.TTLSet
	Store  *store.Store
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		TTL:    cachekeys.NewTTLSet(c.TTL),
	}

	if c.LLM.Value != nil {
		svc.LLMConfig = c.LLM.Value
		client, err := llmpkg.NewClient(svc.LLMConfig)
		if err != nil {
			log.Fatalf("failed to build llm client: %v", err)
		}
		svc.LLMClient = client
	}

	if c.Executor.Value != nil {
		svc.ExecutorConfig = c.Executor.Value
		if svc.LLMClient == nil {
			log.Fatalf("executor config requires an llm section")
		}
		oracle, err := executorpkg.NewExecutor(svc.ExecutorConfig, svc.LLMClient)
		if err != nil {
			log.Fatalf("failed to build decision oracle: %v", err)
		}
		svc.Oracle = oracle
	}

	if c.Market.Value != nil {
		svc.MarketConfig = c.Market.Value
		providers, err := svc.MarketConfig.BuildProviders()
		if err != nil {
			log.Fatalf("failed to build market providers: %v", err)
		}
		svc.MarketProviders = providers
		if svc.MarketConfig.Default != "" {
			svc.DefaultMarket = providers[svc.MarketConfig.Default]
		}
	}

	if c.Postgres.DSN != "" {
		svc.DBConn = sqlx.NewSqlConn("pgx", c.Postgres.DSN)
	}
	if strings.TrimSpace(c.Redis.Host) != "" {
		rds := redis.MustNewRedis(c.Redis)
		svc.Cache = cache.NewNode(rds, syncx.NewSingleFlight(), cache.NewStat(cachekeys.Namespace), errCacheMiss)
	}
	if svc.DBConn != nil {
		st, err := store.New(svc.DBConn, svc.Cache, svc.TTL)
		if err != nil {
			log.Fatalf("failed to build store: %v", err)
		}
		svc.Store = st
	}

	if c.JournalDir != "" {
		svc.Journal = journal.NewWriter(c.JournalDir)
	}

	if c.Scheduler.Value != nil {
		svc.SchedulerConfig = c.Scheduler.Value
		if svc.Oracle == nil {
			log.Fatalf("scheduler config requires executor and llm sections")
		}
		if len(svc.MarketProviders) == 0 {
			log.Fatalf("scheduler config requires a market section")
		}
		opts := []schedulerpkg.ManagerOption{}
		if svc.Store != nil {
			opts = append(opts, schedulerpkg.WithStore(svc.Store))
		}
		if svc.Journal != nil {
			opts = append(opts, schedulerpkg.WithJournal(svc.Journal))
		}
		manager, err := schedulerpkg.NewManager(svc.SchedulerConfig, svc.Oracle, svc.MarketProviders, opts...)
		if err != nil {
			log.Fatalf("failed to build scheduler manager: %v", err)
		}
		svc.Manager = manager
	}

	return svc
}
