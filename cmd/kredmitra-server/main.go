// cmd/kredmitra-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"kredmitra/internal/accounts"
	"kredmitra/internal/admin"
	"kredmitra/internal/advisor"
	"kredmitra/internal/altdata"
	"kredmitra/internal/api"
	"kredmitra/internal/coach"
	"kredmitra/internal/common/auth"
	"kredmitra/internal/common/aws"
	"kredmitra/internal/common/camunda"
	"kredmitra/internal/common/config"
	"kredmitra/internal/common/database"
	"kredmitra/internal/common/graph"
	"kredmitra/internal/common/llm"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/observability"
	"kredmitra/internal/community"
	"kredmitra/internal/notify"
	"kredmitra/internal/onboarding"
	"kredmitra/internal/pipeline"
	"kredmitra/internal/repayment"
	"kredmitra/internal/store"
	"kredmitra/internal/ussd"
	"kredmitra/pkg/registry"

	srr "kredmitra/internal/workers/engagement/send-repayment-reminder"
	svs "kredmitra/internal/workers/engagement/send-vouching-sms"
	bap "kredmitra/internal/workers/scoring/build-alternative-profile"
	sa "kredmitra/internal/workers/scoring/score-applicant"
	va "kredmitra/internal/workers/scoring/verify-applicant"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("Starting kredmitra server", map[string]interface{}{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	})

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Postgres ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()

	// --- Neo4j (in-memory when no URI is configured) ---
	var refGraph graph.Client = graph.NewMemoryClient()
	if cfg.Database.Neo4j.URI != "" {
		err = retryWithBackoff(func() error {
			var err error
			refGraph, err = graph.NewNeo4jClient(ctx, graph.OptionsFromConfig(cfg.Database.Neo4j))
			return err
		}, 10, 2*time.Second, log, "Neo4j connection")
		if err != nil {
			zapLog.Fatal("neo4j failed after retries", zap.Error(err))
		}
	}
	defer refGraph.Close(context.Background())

	users := store.NewUsers(pg, rdb, seconds(cfg.Database.Redis.UserTTL), log)
	if err := users.Migrate(ctx); err != nil {
		zapLog.Fatal("user migration failed", zap.Error(err))
	}

	// --- Elasticsearch user index (optional) ---
	var esClient *database.ElasticsearchClient
	var userIndex *admin.UserIndex
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		userIndex = admin.NewUserIndex(esClient.Client, cfg.Database.Elasticsearch.UserIndex)
		if err := esClient.EnsureIndex(ctx, userIndex.Name(), userIndex.Mapping()); err != nil {
			zapLog.Fatal("user index setup failed", zap.Error(err))
		}
		users.WithIndexer(userIndex)
	}

	// --- AWS notifications ---
	var (
		sesClient notify.SESService
		snsClient notify.SNSService
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if awsCfg.SES.Enabled {
			sesClient = aws.NewSESClient(sdkCfg)
		}
		if awsCfg.SNS.Enabled {
			snsClient = aws.NewSNSClient(sdkCfg)
		}
	}
	notifier := notify.New(notify.ConfigFrom(awsCfg), sesClient, snsClient, log)

	// --- Generative model ---
	gen, err := llm.NewClient(ctx, cfg.APIs.GenAI, log)
	if err != nil {
		zapLog.Fatal("genai client failed", zap.Error(err))
	}
	adv := advisor.New(gen, log)

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	chats := store.NewChats(rdb)

	if cfg.Seed.Enabled {
		seeded, err := store.NewSeeder(users, chats, rdb, hasher, log).Seed(ctx, false)
		if err != nil {
			zapLog.Fatal("seeding failed", zap.Error(err))
		}
		log.Info("Seed check complete", map[string]interface{}{"seeded": seeded})
	}

	source := altdata.NewMockSource()
	scorer := pipeline.New(adv, source, obs, log)

	repayments := repayment.NewService(users, adv, notifier, log)
	communitySvc := community.NewService(refGraph, adv, notifier, log)
	adminSvc := admin.NewService(users, notifier, log)
	if userIndex != nil {
		adminSvc.WithSearch(userIndex)
	}

	// --- Camunda (optional) ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.Connect(ctx, camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		repayments.WithProcess(zeebe, cfg.Camunda.RepaymentProcess)
	}

	deps := api.Dependencies{
		Accounts:   accounts.NewService(users, store.NewSessions(rdb, seconds(cfg.Auth.SessionTTL)), hasher, cfg.Auth, log),
		Onboarding: onboarding.NewService(onboarding.NewOTPService(rdb, notifier, seconds(cfg.Auth.OTPTTL), seconds(cfg.Auth.OTPCooldown), log), scorer, users, log),
		Repayment:  repayments,
		Coach:      coach.NewService(users, chats, adv, log),
		Community:  communitySvc,
		Admin:      adminSvc,
		USSD:       ussd.NewGateway(ussd.NewEngine(ussd.NewRedisStore(rdb, seconds(cfg.USSD.SessionTTL)), adv, scorer, log).WithUsers(users)),
		Advisor:    adv,
		Users:      users,

		AllowedOrigins: cfg.Server.AllowedOrigins,
		AITimeout:      config.GetDuration(cfg.APIs.GenAI.Timeout),
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	if zeebe != nil {
		reg, err := registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Fatal("activity registry load failed", zap.Error(err))
		}

		handlers := map[string]camunda.HandlerFunc{
			va.TaskType:  va.NewHandler(va.LoadConfig(cfg), log).Handle,
			bap.TaskType: bap.NewHandler(bap.LoadConfig(cfg), source, log).Handle,
			sa.TaskType:  sa.NewHandler(sa.LoadConfig(cfg), scorer, users, log).Handle,
			srr.TaskType: srr.NewHandler(srr.LoadConfig(cfg), repayments, log).Handle,
			svs.TaskType: svs.NewHandler(svs.LoadConfig(cfg), communitySvc, log).Handle,
		}
		for taskType, handle := range handlers {
			if !config.IsWorkerEnabled(cfg, taskType) {
				log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
				continue
			}
			wcfg := config.GetWorkerConfig(cfg, taskType)
			if _, ok := cfg.Workers[taskType]; !ok {
				wcfg.Timeout = int(reg.Timeout(taskType, config.GetDuration(wcfg.Timeout)).Milliseconds())
			}
			workers = append(workers, camunda.NewWorker(zeebe.Zeebe(), taskType, wcfg, traced(obs, taskType, handle), reg, log))
		}
		log.Info("Workers registered", map[string]interface{}{"count": len(workers), "registryVersion": reg.Version()})
	}

	// --- Health & Metrics Server ---
	checks := map[string]api.Check{
		"postgres": pg.Ping,
		"redis":    rdb.Ping,
		"neo4j":    refGraph.VerifyConnectivity,
	}
	if esClient != nil {
		checks["elasticsearch"] = func(context.Context) error { return esClient.Ping() }
	}
	if zeebe != nil {
		checks["zeebe"] = zeebe.HealthCheck
	}

	apiServer := api.NewServer(cfg.Server.Address(), api.NewRouter(deps, log), cfg.Server, log)
	healthServer := api.NewServer(cfg.Server.HealthAddress(), api.NewHealthHandler(checks), cfg.Server, log)

	go func() {
		if err := healthServer.Start(); err != nil {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()
	go func() {
		if err := apiServer.Start(); err != nil {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("kredmitra server stopped gracefully", nil)
}

// traced records job counts and durations through the OpenTelemetry meter.
func traced(obs *observability.Observability, taskType string, handle camunda.HandlerFunc) camunda.HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		ctx, span := obs.StartSpan(context.Background(), "job."+taskType)
		handle(client, job)
		span.End()
		obs.RecordJobProcessed(ctx, taskType, "handled")
		obs.RecordJobDuration(ctx, taskType, time.Since(start), "handled")
	}
}
