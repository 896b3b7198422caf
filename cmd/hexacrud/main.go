package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	accessApp "github.com/davicafu/hexacrud/internal/access/application"
	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	accessEvents "github.com/davicafu/hexacrud/internal/access/infra/inbound/events"
	accessHttp "github.com/davicafu/hexacrud/internal/access/infra/inbound/http"
	auditClickhouse "github.com/davicafu/hexacrud/internal/access/infra/outbound/audit/clickhouse"
	"github.com/davicafu/hexacrud/internal/access/infra/outbound/directory"
	accessPublisher "github.com/davicafu/hexacrud/internal/access/infra/outbound/events"
	"github.com/davicafu/hexacrud/internal/access/infra/outbound/token"
	"github.com/davicafu/hexacrud/internal/config"
	infraCache "github.com/davicafu/hexacrud/internal/infra/cache"
	infraMongo "github.com/davicafu/hexacrud/internal/infra/db/mongodb"
	"github.com/davicafu/hexacrud/internal/infra/db/sqldb"
	infraEvents "github.com/davicafu/hexacrud/internal/infra/events"
	infraRelayer "github.com/davicafu/hexacrud/internal/infra/relayer"
	recordApp "github.com/davicafu/hexacrud/internal/record/application"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	recordEvents "github.com/davicafu/hexacrud/internal/record/infra/inbound/events"
	recordHttp "github.com/davicafu/hexacrud/internal/record/infra/inbound/http"
	recordMongo "github.com/davicafu/hexacrud/internal/record/infra/outbound/db/mongodb"
	recordSQL "github.com/davicafu/hexacrud/internal/record/infra/outbound/db/sqldb"
	uploadApp "github.com/davicafu/hexacrud/internal/upload/application"
	uploadDomain "github.com/davicafu/hexacrud/internal/upload/domain"
	uploadHttp "github.com/davicafu/hexacrud/internal/upload/infra/inbound/http"
	uploadStorage "github.com/davicafu/hexacrud/internal/upload/infra/outbound/storage"
	"github.com/davicafu/hexacrud/pkg/logger"
	"github.com/davicafu/hexacrud/pkg/middleware"
	"github.com/davicafu/hexacrud/pkg/utils"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	sharedBus "github.com/davicafu/hexacrud/shared/platform/bus"
	sharedCache "github.com/davicafu/hexacrud/shared/platform/cache"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const consumerGroup = "hexacrud"

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	var (
		recordRepo recordDomain.RecordRepository
		outboxRepo sharedDomain.OutboxRepository
	)
	switch cfg.DBDriver {
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(context.Background())

		repo, err := recordMongo.NewRecordRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to init MongoDB repository", zap.Error(err))
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Fatal("failed to create MongoDB indexes", zap.Error(err))
		}
		recordRepo = repo
		outboxRepo = infraMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB)
		log.Info("✅ MongoDB conectado", zap.String("db", cfg.MongoDB))

	default:
		dialect, err := sqldb.ParseDialect(cfg.DBDriver)
		if err != nil {
			log.Fatal("invalid DB_DRIVER", zap.Error(err))
		}
		dsn := cfg.SQLitePath
		if dialect == sqldb.Postgres {
			dsn = cfg.PostgresDSN
		}
		db, err := sqldb.Open(dialect, dsn)
		if err != nil {
			log.Fatal("failed to open database", zap.Error(err))
		}
		defer db.Close()

		if err := recordSQL.InitSchema(db, dialect); err != nil {
			log.Fatal("failed to initialize schema", zap.Error(err))
		}
		recordRepo = recordSQL.NewRecordRepoSQL(db, dialect)
		outboxRepo = sqldb.NewOutboxRepoSQL(db, dialect)
		log.Info("✅ Base de datos SQL lista", zap.Stringer("dialect", dialect))
	}

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	if cfg.RedisAddr == "" {
		log.Info("⚡️ REDIS_ADDR vacío, cache en memoria")
		cacheInstance = infraCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
			cacheInstance = infraCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		} else {
			cacheInstance = infraCache.NewRedisCache(rdb, cfg.CacheTTL)
			log.Info("✅ Redis conectado, cache habilitado")
		}
	}

	// ---------------- Storage ----------------
	var files uploadDomain.FileStorage
	if cfg.UseMinio() {
		minioStorage, err := uploadStorage.NewMinioStorage(ctx, uploadStorage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatal("failed to init MinIO storage", zap.Error(err))
		}
		files = minioStorage
		log.Info("✅ MinIO conectado", zap.String("bucket", cfg.MinioBucket))
	} else {
		fsStorage, err := uploadStorage.NewFileSystemStorage(cfg.UploadDir)
		if err != nil {
			log.Fatal("failed to init upload dir", zap.Error(err))
		}
		files = fsStorage
	}

	// --------------- Servicios --------------
	recordService := recordApp.NewRecordService(recordRepo, cacheInstance, log,
		recordApp.WithHooks(recordApp.DefaultHooks(recordRepo)),
		recordApp.WithAttachmentStore(uploadApp.Attachments{Storage: files}),
		recordApp.WithCacheTTL(int(cfg.CacheTTL.Seconds())))
	for collection, hooks := range accessApp.Hooks(recordService) {
		recordService.Use(collection, hooks...)
	}
	uploadService := uploadApp.NewUploadService(files, recordService, log)

	// ---------------- Events ---------------
	recordConsumer := recordEvents.NewRecordConsumer(cacheInstance, log)

	var decisionLog accessDomain.DecisionLog
	if cfg.ClickHouseAddr != "" {
		repo, err := auditClickhouse.NewDecisionLogRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, auditoría desactivada", zap.Error(err))
		} else if err := repo.InitSchema(ctx); err != nil {
			log.Warn("⚠️ No se pudo crear la tabla de auditoría", zap.Error(err))
			repo.Close()
		} else {
			defer repo.Close()
			decisionLog = repo
			log.Info("✅ ClickHouse conectado, auditoría habilitada")
		}
	}

	var recordPublisher, accessPublisherBus sharedBus.EventPublisher
	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		recordWriter := infraEvents.NewWriter(cfg.KafkaBrokers, recordDomain.RecordTopic)
		accessWriter := infraEvents.NewWriter(cfg.KafkaBrokers, accessDomain.AccessTopic)
		defer recordWriter.Close()
		defer accessWriter.Close()
		recordPublisher = infraEvents.NewKafkaPublisher(recordWriter, log)
		accessPublisherBus = infraEvents.NewKafkaPublisher(accessWriter, log)

		recordReader := infraEvents.NewReader(cfg.KafkaBrokers, recordDomain.RecordTopic, consumerGroup+"-record")
		defer recordReader.Close()
		infraEvents.NewConsumerAdapter(recordReader, recordConsumer, log).Start(ctx)

		if decisionLog != nil {
			accessReader := infraEvents.NewReader(cfg.KafkaBrokers, accessDomain.AccessTopic, consumerGroup+"-audit")
			defer accessReader.Close()
			infraEvents.NewConsumerAdapter(accessReader, accessEvents.NewDecisionConsumer(decisionLog, log), log).Start(ctx)
		}
	} else {
		log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")

		recordBus := infraEvents.NewInMemoryEventBus(recordDomain.RecordTopic)
		accessBus := infraEvents.NewInMemoryEventBus(accessDomain.AccessTopic)
		recordPublisher = recordBus
		accessPublisherBus = accessBus

		infraEvents.Listen(ctx, recordBus.Subscribe(100), recordConsumer, log)
		if decisionLog != nil {
			infraEvents.Listen(ctx, accessBus.Subscribe(100), accessEvents.NewDecisionConsumer(decisionLog, log), log)
		}
	}

	// ------------ Outbox Worker ------------
	eventRegistry := make(map[string]sharedEvents.EventMetadata)
	for k, v := range recordDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}
	for k, v := range accessDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}
	publishers := map[string]sharedBus.EventPublisher{
		recordDomain.RecordTopic: recordPublisher,
		accessDomain.AccessTopic: accessPublisherBus,
	}
	outboxWorker := infraRelayer.NewOutboxWorker(outboxRepo, publishers, eventRegistry, cfg.OutboxPeriod, cfg.OutboxLimit, log)
	go outboxWorker.Start(ctx)

	// ---------------- Access ----------------
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	tokens, err := token.NewJWTService(cfg.JWTSecret)
	if err != nil {
		log.Fatal("failed to init token service", zap.Error(err))
	}
	policy := accessDomain.NewAuthorizationPolicy(cfg.Role, cfg.AppEnv)
	gate := accessApp.NewGate(tokens, directory.NewRecordDirectory(recordRepo), policy,
		accessPublisher.NewDecisionPublisher(accessPublisherBus), log)
	authService := accessApp.NewAuthService(recordRepo, tokens, cfg.JWTTTL, log)

	seeder, err := accessApp.NewPermissionSeeder(recordService, cfg.SeedAt, log)
	if err != nil {
		log.Fatal("invalid SEED_AT", zap.Error(err))
	}
	go seeder.Start(ctx)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRPS, cfg.LoginBurst, log)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				loginLimiter.Cleanup()
			}
		}
	}()

	// ---------------- HTTP ----------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	router := gin.New()
	router.Use(middleware.ZapLogger(log), gin.Recovery(), metrics.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.NoRoute(func(c *gin.Context) {
		utils.SendNotFound(c, "Route not found")
	})

	api := router.Group("/api/v1")
	guard := accessHttp.Guard(gate)
	presenter := recordHttp.NewPresenter(cfg.BaseURL)
	for _, res := range accessDomain.Resources() {
		handler := recordHttp.NewRecordHandler(recordService, string(res), presenter, log)
		recordHttp.RegisterRecordRoutes(api, handler, guard)
	}
	accessHttp.RegisterAuthRoutes(api, accessHttp.NewAuthHandler(authService, log), middleware.RateLimit(loginLimiter))
	uploadHttp.RegisterUploadRoutes(router, uploadHttp.NewUploadHandler(uploadService, presenter, log), guard)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Apagando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}
