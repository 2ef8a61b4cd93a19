package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"hedgewatch/internal/api"
	"hedgewatch/internal/config"
	"hedgewatch/internal/monitor"
	"hedgewatch/internal/provider"
	"hedgewatch/internal/repository"
	"hedgewatch/internal/service"
	"hedgewatch/internal/websocket"
	"hedgewatch/pkg/crypto"
	"hedgewatch/pkg/utils"
)

func main() {
	// .env опционален: в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	log := utils.InitLogger(utils.LoggerConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	log.WithField("dsn", cfg.Database.DSNWithoutPassword()).Info("connected to database")

	// Инициализация репозиториев
	hedgeRepo := repository.NewHedgeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// WebSocket hub для real-time обновлений
	hub := websocket.NewHub()
	go hub.Run()

	// Сервис уведомлений принимает события мониторинга
	notificationService := service.NewNotificationService(notificationRepo, log)
	notificationService.SetWebSocketHub(hub)

	// Внешние провайдеры
	httpClient := provider.GetGlobalHTTPClient()

	prices := buildPriceSource(cfg, httpClient)
	valuation := provider.NewHTTPValuationProvider(cfg.Providers.ValuationAPIURL, httpClient)

	gateway, err := buildGateway(cfg, httpClient, prices)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize execution gateway")
	}

	// Цикл мониторинга
	updater := monitor.NewPnlUpdater(hedgeRepo, prices, log)
	assessor := monitor.NewAssessor(cfg.Monitor.MinHedgeSize, cfg.Monitor.ConcentrationPct)
	controller := monitor.NewController(hedgeRepo, gateway, notificationService, cfg.Monitor.Simulation, log)

	engine := monitor.NewEngine(updater, assessor, controller, valuation, notificationService, hub, monitor.Config{
		PnlUpdateFreq: cfg.Monitor.PnlUpdateFreq,
		RiskCheckFreq: cfg.Monitor.RiskCheckFreq,
	}, log)

	// Мониторинг стартует вместе с сервером; управляется через API
	engine.Start(context.Background())

	// Сервисы
	monitorService := service.NewMonitorService(engine)
	hedgeService := service.NewHedgeService(hedgeRepo, gateway, cfg.Monitor.Simulation, log)

	// Настройка HTTP роутера
	router := api.SetupRoutes(&api.Dependencies{
		MonitorService:      monitorService,
		HedgeService:        hedgeService,
		NotificationService: notificationService,
		Hub:                 hub,
	})

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		log.WithField("addr", server.Addr).Info("starting server")
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("server failed")
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("server failed")
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Останавливаем циклы мониторинга и дожидаемся текущих тиков
	engine.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	httpClient.Close()
	log.Info("server exited")
}

// buildPriceSource собирает цепочку источников цен:
// первичный HTTP источник, опциональный резерв и кеш поверх цепочки
func buildPriceSource(cfg *config.Config, client *provider.HTTPClient) provider.PriceSource {
	primary := provider.NewHTTPPriceSource(cfg.Providers.PriceAPIURL, client, cfg.Providers.PriceRateLimit)

	var source provider.PriceSource = primary
	if cfg.Providers.PriceBackupURL != "" {
		backup := provider.NewHTTPPriceSource(cfg.Providers.PriceBackupURL, client, cfg.Providers.PriceRateLimit)
		source = provider.NewFallbackPriceSource(primary, backup)
	}

	return provider.NewCachedPriceSource(source, cfg.Providers.PriceCacheTTL)
}

// buildGateway возвращает шлюз исполнения.
// В режиме симуляции реальный шлюз не вызывается вовсе.
func buildGateway(cfg *config.Config, client *provider.HTTPClient, prices provider.PriceSource) (provider.ExecutionGateway, error) {
	if cfg.Monitor.Simulation {
		return provider.NewSimulatedGateway(prices), nil
	}

	if cfg.Providers.GatewayAPIKeyEnc == "" {
		return nil, fmt.Errorf("GATEWAY_API_KEY_ENC is required outside simulation mode")
	}

	// API ключ хранится зашифрованным AES-256-GCM
	apiKey, err := crypto.DecryptWithKeyString(cfg.Providers.GatewayAPIKeyEnc, cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt gateway api key: %w", err)
	}

	return provider.NewHTTPExecutionGateway(cfg.Providers.GatewayURL, apiKey, client), nil
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
