package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	config "github.com/davicafu/listdash/internal/config"
	listingApp "github.com/davicafu/listdash/internal/listing/application"
	listingDomain "github.com/davicafu/listdash/internal/listing/domain"
	listingEvents "github.com/davicafu/listdash/internal/listing/infra/inbound/events"
	listingHttp "github.com/davicafu/listdash/internal/listing/infra/inbound/http"
	"github.com/davicafu/listdash/internal/listing/infra/outbound/api"
	"github.com/davicafu/listdash/internal/listing/infra/outbound/listcache"
	infraEvents "github.com/davicafu/listdash/internal/shared/infra/events"
	sharedBus "github.com/davicafu/listdash/internal/shared/infra/platform/bus"
	"github.com/davicafu/listdash/internal/shared/infra/platform/kv"
	"github.com/davicafu/listdash/pkg/logger"
	"github.com/davicafu/listdash/pkg/utils"

	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LogLevel) // inicializa zap
	log := logger.Logger()    // obtiene logger estructurado
	defer log.Sync()          // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------- Preferencias -------------
	store, closeStore := openPrefStore(ctx, cfg, log)
	defer closeStore()
	prefs := listingApp.NewPreferenceStore(store, cfg.PrefNamespace, cfg.StorageTimeout, logger.Named("prefs"))

	// ---------------- Métricas --------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := listcache.NewMetrics(reg)

	// ---------------- Tablas ----------------
	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.FetchTimeout, logger.Named("api"))
	sessions := listingApp.NewSessionManager(logger.Named("sessions"))
	invalidator := listingApp.NewInvalidator(logger.Named("invalidator"))

	cacheOpts := func(name string) []listcache.Option {
		return []listcache.Option{
			listcache.WithMaxEntries(cfg.CacheMaxEntries),
			listcache.WithFetchTimeout(cfg.FetchTimeout),
			listcache.WithMetrics(metrics),
			listcache.WithLogger(logger.Named("cache").With(zap.String("table", name))),
		}
	}
	var caches []interface{ Close() }

	register := func(b listingApp.TableBinding, c interface{ Close() }, inv listingDomain.Invalidatable) {
		sessions.Register(b)
		invalidator.Register(inv)
		caches = append(caches, c)
	}

	{
		spec := mustTable(log, listingDomain.TableFiles)
		c := listcache.New[listingDomain.FileInfo](spec.ID, cacheOpts(spec.ID)...)
		register(listingApp.Bind(spec, c, api.Fetcher[listingDomain.FileInfo](client, spec), prefs, log), c, c)
	}
	{
		spec := mustTable(log, listingDomain.TableLogs)
		c := listcache.New[listingDomain.LogEntry](spec.ID, cacheOpts(spec.ID)...)
		register(listingApp.Bind(spec, c, api.Fetcher[listingDomain.LogEntry](client, spec), prefs, log), c, c)
	}
	{
		spec := mustTable(log, listingDomain.TableActivityLogs)
		c := listcache.New[listingDomain.ActivityLog](spec.ID, cacheOpts(spec.ID)...)
		register(listingApp.Bind(spec, c, api.Fetcher[listingDomain.ActivityLog](client, spec), prefs, log), c, c)
	}
	{
		spec := mustTable(log, listingDomain.TableUsers)
		c := listcache.New[listingDomain.UserInfo](spec.ID, cacheOpts(spec.ID)...)
		register(listingApp.Bind(spec, c, api.Fetcher[listingDomain.UserInfo](client, spec), prefs, log), c, c)
	}
	{
		spec := mustTable(log, listingDomain.TableRoles)
		c := listcache.New[listingDomain.RoleInfo](spec.ID, cacheOpts(spec.ID)...)
		register(listingApp.Bind(spec, c, api.Fetcher[listingDomain.RoleInfo](client, spec), prefs, log), c, c)
	}
	{
		// Las subidas se sondean mientras quede algún lote en curso.
		spec := mustTable(log, listingDomain.TableUploads)
		c := listcache.New[listingDomain.Batch](spec.ID, cacheOpts(spec.ID)...)
		b := listingApp.Bind(spec, c, api.Fetcher[listingDomain.Batch](client, spec), prefs, log,
			listingApp.WithWatch[listingDomain.Batch](cfg.PollInterval, listingDomain.AnyInProgress))
		register(b, c, c)
	}

	// ---------------- Events ---------------
	consumer := listingEvents.NewInvalidationConsumer(invalidator, logger.Named("invalidation"))
	var publisher sharedBus.EventBus
	var consumerAdapter *infraEvents.ConsumerAdapter

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos", zap.String("topic", cfg.KafkaTopic))

		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Topic:    cfg.KafkaTopic,
			Balancer: &kafka.Hash{},
		}
		kafkaPublisher := infraEvents.NewKafkaPublisher(writer, log)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			GroupID:  cfg.KafkaConsumerName,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		consumerAdapter = infraEvents.NewConsumerAdapter(reader, consumer, log)
		consumerAdapter.Start(ctx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		inMemoryBus := infraEvents.NewInMemoryEventBus(cfg.KafkaTopic)
		defer inMemoryBus.Close()
		publisher = inMemoryBus

		log.Info("🎧 Iniciando listener en memoria para eventos de mutación")
		listingEvents.BackgroundConsumerChan(ctx, inMemoryBus.Subscribe(64), consumer)
	}
	notifier := listingApp.NewMutationNotifier(publisher, logger.Named("mutations"))

	// ---------------- HTTP ----------------
	handler := listingHttp.NewListingHandler(sessions, invalidator, notifier, logger.Named("http"))
	router := gin.Default()
	listingHttp.RegisterListingRoutes(router, handler)
	listingHttp.RegisterOpsRoutes(router, reg)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}

	// ---------------- Apagado ----------------
	sessions.CloseAll()
	for _, c := range caches {
		c.Close()
	}
	if consumerAdapter != nil {
		if err := consumerAdapter.Wait(); err != nil {
			log.Warn("failed to close Kafka reader", zap.Error(err))
		}
	}
	log.Info("👋 Apagado completo")
}

func mustTable(log *zap.Logger, id string) listingDomain.TableSpec {
	spec, err := listingDomain.LookupTable(id)
	if err != nil {
		log.Fatal("unknown table", zap.String("table", id), zap.Error(err))
	}
	return spec
}

// openPrefStore abre el backend configurado. Si no responde se usa memoria:
// las preferencias nunca impiden arrancar.
func openPrefStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (kv.Store, func()) {
	fallback := func(err error) (kv.Store, func()) {
		log.Warn("⚠️ Backend de preferencias no disponible, se usa memoria",
			zap.String("backend", cfg.PrefBackend), zap.Error(err))
		mem := kv.NewMemoryStore(time.Minute)
		return mem, mem.Stop
	}
	ping := func(fn func(ctx context.Context) error) error {
		return utils.Retry(ctx, 3, 500*time.Millisecond, func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return fn(pingCtx)
		})
	}

	switch cfg.PrefBackend {
	case config.PrefBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := ping(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
			rdb.Close()
			return fallback(err)
		}
		log.Info("✅ Redis conectado, preferencias persistidas")
		return kv.NewRedisStore(rdb, "listdash"), func() { rdb.Close() }

	case config.PrefBackendSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return fallback(err)
		}
		if err := kv.InitSQLite(db); err != nil {
			db.Close()
			return fallback(err)
		}
		log.Info("✅ SQLite abierto", zap.String("path", cfg.SQLitePath))
		return kv.NewSQLiteStore(db), func() { db.Close() }

	case config.PrefBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fallback(err)
		}
		if err := ping(pool.Ping); err != nil {
			pool.Close()
			return fallback(err)
		}
		if err := kv.InitPostgres(ctx, pool); err != nil {
			pool.Close()
			return fallback(err)
		}
		log.Info("✅ Postgres conectado")
		return kv.NewPostgresStore(pool), pool.Close

	case config.PrefBackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fallback(err)
		}
		if err := ping(func(ctx context.Context) error { return client.Ping(ctx, nil) }); err != nil {
			_ = client.Disconnect(context.Background())
			return fallback(err)
		}
		log.Info("✅ Mongo conectado", zap.String("database", cfg.MongoDatabase))
		coll := client.Database(cfg.MongoDatabase).Collection("kv_store")
		return kv.NewMongoStore(coll), func() { _ = client.Disconnect(context.Background()) }
	}

	mem := kv.NewMemoryStore(time.Minute)
	return mem, mem.Stop
}
