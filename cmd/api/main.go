package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/inventory"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/purchasing"
	"github.com/jhoicas/POS-Sucursales-api/internal/application/sales"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/entity"
	"github.com/jhoicas/POS-Sucursales-api/internal/domain/repository"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/cache"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/memory"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/pdf"
	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/POS-Sucursales-api/internal/interfaces/http"
	"github.com/jhoicas/POS-Sucursales-api/pkg/config"
	"github.com/jhoicas/POS-Sucursales-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// storage agrupa los puertos que dependen del driver configurado.
type storage struct {
	txRunner repository.TxRunner
	repos    repository.TxRepos
	products repository.ProductCatalog
	branches repository.BranchRegistry
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	inventoryMetrics := metrics.NewInventoryMetrics(registry)

	observers := []inventory.MovementObserver{inventoryMetrics}
	var stockCache inventory.BranchStockCache
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			// sin Redis las consultas van directo al almacenamiento
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, caché de stock deshabilitada")
		} else {
			branchCache := cache.NewBranchStockCache(client, cfg.Redis.StockTTL(), log.Component("stock_cache"))
			stockCache = branchCache
			observers = append(observers, branchCache)
		}
		cancel()
	}

	engine := inventory.NewEngine(store.txRunner, store.products, store.branches, log.Component("inventory"), observers...)
	stockQuery := inventory.NewStockQuery(store.repos.Stock, store.repos.Movements, store.products, stockCache)
	salesSvc := sales.NewService(store.txRunner, engine, store.repos.Sales, infrapdf.NewReceiptGenerator(), sales.Config{
		RestockOnVoid: cfg.Sales.RestockOnVoid,
		Location:      cfg.Business.Location(),
	}, log.Component("sales"))
	purchasingSvc := purchasing.NewService(store.txRunner, engine, store.repos.Orders, cfg.Business.Location(), log.Component("purchasing"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "POS Sucursales API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:           engine,
		StockQuery:       stockQuery,
		Sales:            salesSvc,
		Purchasing:       purchasingSvc,
		JWTSecret:        cfg.JWT.Secret,
		OperationTimeout: cfg.HTTP.OperationTimeout(),
		Metrics:          registry,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		store := memory.NewStore()
		seedDemoCatalog(store)
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &storage{
			txRunner: store.TxRunner(),
			repos:    store.Repos(),
			products: store.Products(),
			branches: store.Branches(),
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.MigrationsAuto {
		if err := postgres.Migrate(ctx, pool, "up"); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("migraciones aplicadas")
	}
	return &storage{
		txRunner: postgres.NewTxRunner(pool),
		repos:    postgres.Repos(pool),
		products: postgres.NewProductRepository(pool),
		branches: postgres.NewBranchRepository(pool),
		close:    pool.Close,
	}, nil
}

// seedDemoCatalog carga dos sucursales y un catálogo mínimo para STORAGE_DRIVER=memory.
func seedDemoCatalog(store *memory.Store) {
	store.AddBranch(entity.Branch{ID: "b-centro", Code: "CEN", Name: "Sucursal Centro", IsActive: true})
	store.AddBranch(entity.Branch{ID: "b-norte", Code: "NOR", Name: "Sucursal Norte", IsActive: true})

	iva := decimal.RequireFromString("0.19")
	store.AddProduct(entity.Product{ID: "p-arroz", SKU: "ARR-500", Name: "Arroz 500g", Price: decimal.NewFromInt(2900), TaxRate: decimal.RequireFromString("0.05"), MinStock: 20, IsActive: true})
	store.AddProduct(entity.Product{ID: "p-aceite", SKU: "ACE-1000", Name: "Aceite 1L", Price: decimal.NewFromInt(12500), TaxRate: iva, MinStock: 10, IsActive: true})
	store.AddProduct(entity.Product{ID: "p-jabon", SKU: "JAB-3", Name: "Jabón x3", Price: decimal.NewFromInt(8700), TaxRate: iva, MinStock: 8, IsActive: true})
}
