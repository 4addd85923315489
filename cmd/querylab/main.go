package main

import (
	"context"
	"database/sql"

	config "github.com/davicafu/querylab/internal/config"
	infraMongo "github.com/davicafu/querylab/internal/infra/db/mongodb"
	infraPostgres "github.com/davicafu/querylab/internal/infra/db/postgres"
	infraSqlite "github.com/davicafu/querylab/internal/infra/db/sqlite"
	infraEvents "github.com/davicafu/querylab/internal/infra/events"
	infraRelayer "github.com/davicafu/querylab/internal/infra/relayer"
	recordApp "github.com/davicafu/querylab/internal/record/application"
	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	recordAudit "github.com/davicafu/querylab/internal/record/infra/outbound/analytics/clickhouse"
	recordCache "github.com/davicafu/querylab/internal/record/infra/outbound/cache"
	recordFs "github.com/davicafu/querylab/internal/record/infra/outbound/filesystem"
	recordRepoMongo "github.com/davicafu/querylab/internal/record/infra/outbound/db/mongodb"
	recordRepoPostgres "github.com/davicafu/querylab/internal/record/infra/outbound/db/postgre"
	recordRepoSqlite "github.com/davicafu/querylab/internal/record/infra/outbound/db/sqlite"
	recordConsumerEvents "github.com/davicafu/querylab/internal/record/infra/inbound/events"
	recordHttp "github.com/davicafu/querylab/internal/record/infra/inbound/http"

	"github.com/davicafu/querylab/pkg/logger"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedBus "github.com/davicafu/querylab/shared/platform/bus"
	sharedCache "github.com/davicafu/querylab/shared/platform/cache"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	var recordRepo recordDomain.RecordRepository
	var outboxRepo sharedDomain.OutboxRepository

	switch cfg.DBDriver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping Postgres", zap.Error(err))
		}
		if err := recordRepoPostgres.InitPostgres(db); err != nil {
			log.Fatal("failed to initialize Postgres", zap.Error(err))
		}

		recordRepo = recordRepoPostgres.NewRecordRepoPostgres(db)
		outboxRepo = infraPostgres.NewOutboxRepoPostgres(db)

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(ctx)

		repo, err := recordRepoMongo.NewRecordRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to initialize MongoDB", zap.Error(err))
		}
		recordRepo = repo
		outboxRepo = infraMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB)

	default: // sqlite
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping SQLite", zap.Error(err))
		}
		if err := recordRepoSqlite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}

		recordRepo = recordRepoSqlite.NewRecordRepoSQLite(db)
		outboxRepo = infraSqlite.NewOutboxRepoSQLite(db)
	}

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = recordCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = recordCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- Analytics -----------
	var auditRepo recordDomain.SearchAuditRepository
	if cfg.UseClickhouse {
		repo, err := recordAudit.NewSearchAuditRepo(cfg.ClickhouseAddr, cfg.ClickhouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, auditoría en fichero JSON", zap.Error(err))
			auditRepo = recordFs.NewJSONAuditStorage(cfg.AuditFilePath)
		} else {
			auditRepo = repo
			log.Info("✅ ClickHouse conectado, auditoría de búsquedas habilitada")
		}
	} else {
		auditRepo = recordFs.NewJSONAuditStorage(cfg.AuditFilePath)
	}

	// --------------- Servicio --------------
	recordService := recordApp.NewRecordService(recordRepo, cacheInstance, auditRepo, log)

	// ---------------- Events ---------------
	var eventPublisher sharedBus.EventPublisher

	recordConsumer := recordConsumerEvents.NewRecordConsumer(cacheInstance, log)

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		recordWriter := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   recordDomain.RecordTopic,
		})
		defer recordWriter.Close()

		eventPublisher = infraEvents.NewKafkaPublisher(recordWriter, log)

		recordKafkaReader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    recordDomain.RecordTopic,
			GroupID:  "querylab-record-service",
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer recordKafkaReader.Close()

		recordConsumerAdapter := infraEvents.NewConsumerAdapter(recordKafkaReader, recordConsumer, log)
		recordConsumerAdapter.Start(ctx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		inMemoryRecordBus := infraEvents.NewInMemoryEventBus(recordDomain.RecordTopic)
		eventPublisher = inMemoryRecordBus

		recordEventsChannel := inMemoryRecordBus.Subscribe(10)

		log.Info("🎧 Iniciando listener en memoria para eventos de records")
		recordConsumerEvents.BackgroundConsumerChan(ctx, recordEventsChannel, recordConsumer)
	}

	// ------------ Outbox Worker ------------
	eventRegistry := recordDomain.NewEventRegistry()

	outboxWorker := infraRelayer.NewOutboxWorker(outboxRepo, eventPublisher, eventRegistry, cfg.OutboxPeriod, cfg.OutboxLimit, log)
	go outboxWorker.Start(ctx)

	// ---------------- HTTP ----------------
	recordHandler := recordHttp.NewRecordHandler(recordService)
	router := gin.Default()
	recordHttp.RegisterRecordRoutes(router, recordHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
