package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	WMS       WMSConfig
	Kafka     KafkaConfig
	Pricing   PricingConfig
	Telemetry TelemetryConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// StoreConfig elige la persistencia: postgres o memory (desarrollo y pruebas).
type StoreConfig struct {
	Driver string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WMSConfig integración con el WMS de las bodegas de plataforma.
// BaseURL vacío = cliente no-op (desarrollo): acepta todo y devuelve un ID simulado.
type WMSConfig struct {
	BaseURL        string
	APIKey         string
	CallbackSecret string
	Timeout        time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	SyncInterval   time.Duration // 0 = sin sincronización periódica en proceso
}

// KafkaConfig publicación de stock y consumo de órdenes. Sin brokers se usa el publicador de log.
type KafkaConfig struct {
	Brokers    []string
	StockTopic string
	OrderTopic string
	GroupID    string
}

// Enabled indica si hay brokers configurados.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// PricingConfig comisión plana de plataforma (fracción, ej. 0.08).
type PricingConfig struct {
	CommissionRate decimal.Decimal
}

// TelemetryConfig exportador OTLP/HTTP; vacío = trazas deshabilitadas.
type TelemetryConfig struct {
	OTLPEndpoint string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, WMS_BASE_URL, KAFKA_BROKERS, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	rate, err := decimal.NewFromString(getString(v, "PLATFORM_COMMISSION_RATE", "0.08"))
	if err != nil {
		return nil, fmt.Errorf("PLATFORM_COMMISSION_RATE inválido: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "marketplace-ledger"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver: getString(v, "STORE_DRIVER", "postgres"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "marketplace_ledger"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "marketplace-ledger"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		WMS: WMSConfig{
			BaseURL:        getString(v, "WMS_BASE_URL", ""),
			APIKey:         getString(v, "WMS_API_KEY", ""),
			CallbackSecret: getString(v, "WMS_CALLBACK_SECRET", ""),
			Timeout:        time.Duration(getInt(v, "WMS_TIMEOUT_SECONDS", 15)) * time.Second,
			MaxAttempts:    getInt(v, "WMS_MAX_ATTEMPTS", 5),
			RetryDelay:     time.Duration(getInt(v, "WMS_RETRY_DELAY_MS", 500)) * time.Millisecond,
			SyncInterval:   time.Duration(getInt(v, "WMS_SYNC_INTERVAL_SECONDS", 0)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getString(v, "KAFKA_BROKERS", "")),
			StockTopic: getString(v, "KAFKA_STOCK_TOPIC", "channel-stock"),
			OrderTopic: getString(v, "KAFKA_ORDER_TOPIC", "channel-orders"),
			GroupID:    getString(v, "KAFKA_GROUP_ID", "marketplace-ledger"),
		},
		Pricing: PricingConfig{CommissionRate: rate},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getString(v, "OTEL_EXPORTER_ENDPOINT", ""),
		},
	}

	if cfg.Store.Driver != "postgres" && cfg.Store.Driver != "memory" {
		return nil, fmt.Errorf("STORE_DRIVER desconocido: %q", cfg.Store.Driver)
	}
	if cfg.WMS.MaxAttempts < 1 {
		cfg.WMS.MaxAttempts = 1
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
