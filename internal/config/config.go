package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Monitor   MonitorConfig
	Providers ProvidersConfig
	Logging   LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	EncryptionKey string // 32 байта для AES-256, шифрование API ключа шлюза
}

// MonitorConfig - настройки фонового мониторинга
type MonitorConfig struct {
	// Две независимые частоты: обновление PnL дешевое и частое,
	// риск-проверка дорогая (внешняя оценка портфеля) и редкая
	PnlUpdateFreq time.Duration // частота обновления PnL активных хеджей
	RiskCheckFreq time.Duration // частота риск-проверки портфелей

	// Константы риск-модели
	MinHedgeSize     float64 // минимальная стоимость позиции для рекомендации (USD)
	ConcentrationPct float64 // потолок концентрации одного актива в портфеле (%)

	// Режим симуляции: хеджи записываются, но шлюз исполнения не вызывается
	Simulation bool
}

// ProvidersConfig - настройки внешних провайдеров данных
type ProvidersConfig struct {
	PriceAPIURL       string // первичный источник цен
	PriceBackupURL    string // резервный источник цен (пусто = без резерва)
	PriceCacheTTL     time.Duration
	PriceRateLimit    float64 // запросов в секунду к источнику цен
	ValuationAPIURL   string  // провайдер оценки портфелей
	GatewayURL        string  // шлюз исполнения позиций
	GatewayAPIKeyEnc  string  // API ключ шлюза, зашифрованный AES-256-GCM (base64)
	RequestTimeout    time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level      string
	Format     string
	File       string // путь к файлу логов (пусто = только stdout)
	MaxSizeMB  int    // размер файла до ротации
	MaxBackups int
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "hedgewatch"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Monitor: MonitorConfig{
			// PnL тик короче риск-тика: обновление цен дешевое,
			// оценка портфеля - внешний дорогой вызов
			PnlUpdateFreq: getEnvAsDuration("PNL_UPDATE_FREQ", 1*time.Minute),
			RiskCheckFreq: getEnvAsDuration("RISK_CHECK_FREQ", 5*time.Minute),

			MinHedgeSize:     getEnvAsFloat("MIN_HEDGE_SIZE", 1000),
			ConcentrationPct: getEnvAsFloat("CONCENTRATION_PCT", 40),

			Simulation: getEnvAsBool("SIMULATION_MODE", false),
		},
		Providers: ProvidersConfig{
			PriceAPIURL:      getEnv("PRICE_API_URL", "https://api.prices.internal"),
			PriceBackupURL:   getEnv("PRICE_BACKUP_URL", ""),
			PriceCacheTTL:    getEnvAsDuration("PRICE_CACHE_TTL", 2*time.Minute),
			PriceRateLimit:   getEnvAsFloat("PRICE_RATE_LIMIT", 10),
			ValuationAPIURL:  getEnv("VALUATION_API_URL", "https://api.valuation.internal"),
			GatewayURL:       getEnv("GATEWAY_URL", "https://api.gateway.internal"),
			GatewayAPIKeyEnc: getEnv("GATEWAY_API_KEY_ENC", ""),
			RequestTimeout:   getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
		},
	}

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен: без него нельзя расшифровать
	// API ключ шлюза исполнения
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for decrypting the gateway API key")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Monitor.PnlUpdateFreq <= 0 {
		return fmt.Errorf("PNL_UPDATE_FREQ must be positive, got %v", c.Monitor.PnlUpdateFreq)
	}

	if c.Monitor.RiskCheckFreq <= 0 {
		return fmt.Errorf("RISK_CHECK_FREQ must be positive, got %v", c.Monitor.RiskCheckFreq)
	}

	// PnL тик обязан быть короче риск-тика (см. MonitorConfig)
	if c.Monitor.PnlUpdateFreq >= c.Monitor.RiskCheckFreq {
		return fmt.Errorf("PNL_UPDATE_FREQ (%v) must be shorter than RISK_CHECK_FREQ (%v)",
			c.Monitor.PnlUpdateFreq, c.Monitor.RiskCheckFreq)
	}

	if c.Monitor.MinHedgeSize < 0 {
		return fmt.Errorf("MIN_HEDGE_SIZE cannot be negative, got %f", c.Monitor.MinHedgeSize)
	}

	if c.Monitor.ConcentrationPct <= 0 || c.Monitor.ConcentrationPct >= 100 {
		return fmt.Errorf("CONCENTRATION_PCT must be in (0, 100), got %f", c.Monitor.ConcentrationPct)
	}

	if c.Providers.RequestTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %v", c.Providers.RequestTimeout)
	}

	if c.Providers.PriceRateLimit <= 0 {
		return fmt.Errorf("PRICE_RATE_LIMIT must be positive, got %f", c.Providers.PriceRateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of debug|info|warn|error, got %q", c.Logging.Level)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
