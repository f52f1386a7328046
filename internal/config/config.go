package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config contiene toda la configuración del servicio
type Config struct {
	Gemini     GeminiConfig     `yaml:"gemini"`
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Discord    DiscordConfig    `yaml:"discord"`
	Simulation SimulationConfig `yaml:"simulation"`
	Log        LogConfig        `yaml:"log"`
}

// GeminiConfig configuración del endpoint generativo.
// La API key vive solo en el servidor; nunca se entrega al navegador.
type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	Backend        string `yaml:"backend"` // rest | genai
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PromptsDir     string `yaml:"prompts_dir"` // opcional, sobreescribe las plantillas embebidas
}

// HTTPConfig configuración del servidor web
type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	UploadMaxBytes int64  `yaml:"upload_max_bytes"`
	SessionCookie  string `yaml:"session_cookie"`

	// SessionIdleMinutes tiempo sin visitas tras el cual una sesión sale de
	// memoria; 0 la conserva siempre
	SessionIdleMinutes int `yaml:"session_idle_minutes"`
}

// StorageConfig configuración del almacenamiento clave/valor
type StorageConfig struct {
	Driver     string `yaml:"driver"`    // memory | file | sqlite | mysql
	BasePath   string `yaml:"base_path"` // directorio para el driver file
	SQLitePath string `yaml:"sqlite_path"`
}

// DatabaseConfig configuración de la base de datos MySQL
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DiscordConfig configuración del bot que avisa de análisis de alto riesgo
type DiscordConfig struct {
	BotToken      string `yaml:"bot_token"`
	ChannelID     string `yaml:"channel_id"`
	RiskThreshold int    `yaml:"risk_threshold"`
}

// Enabled indica si hay credenciales suficientes para notificar
func (d DiscordConfig) Enabled() bool {
	return d.BotToken != "" && d.ChannelID != ""
}

// SimulationConfig configuración de la animación de la escena
type SimulationConfig struct {
	FPS int `yaml:"fps"`
}

// LogConfig configuración de logging
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default devuelve la configuración base antes de aplicar archivo y entorno
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model:          "gemini-2.0-flash",
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/models",
			Backend:        "rest",
			TimeoutSeconds: 45,
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			UploadMaxBytes:     10 << 20,
			SessionCookie:      "roadsphere_session",
			SessionIdleMinutes: 30,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			BasePath:   "data/sessions",
			SQLitePath: "data/roadsphere.db",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "3306",
			Database: "roadsphere",
		},
		Discord: DiscordConfig{
			RiskThreshold: 70,
		},
		Simulation: SimulationConfig{
			FPS: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load carga la configuración: valores por defecto, archivo YAML opcional
// (ROADSPHERE_CONFIG) y por último variables de entorno.
func Load() (*Config, error) {
	// Cargar archivo .env si existe
	godotenv.Load()

	cfg := Default()

	if path := os.Getenv("ROADSPHERE_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate revisa los valores enumerados
func (c *Config) Validate() error {
	switch c.Gemini.Backend {
	case "rest", "genai":
	default:
		return fmt.Errorf("backend de Gemini desconocido: %q", c.Gemini.Backend)
	}
	switch c.Storage.Driver {
	case "memory", "file", "sqlite", "mysql":
	default:
		return fmt.Errorf("driver de storage desconocido: %q", c.Storage.Driver)
	}
	if c.HTTP.SessionIdleMinutes < 0 {
		return fmt.Errorf("session_idle_minutes inválido: %d", c.HTTP.SessionIdleMinutes)
	}
	if c.Simulation.FPS <= 0 {
		return fmt.Errorf("fps de simulación inválido: %d", c.Simulation.FPS)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("no se pudo leer configuración (%s): %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("configuración YAML inválida (%s): %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Gemini.APIKey = getEnvOrDefault("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnvOrDefault("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.BaseURL = strings.TrimRight(getEnvOrDefault("GEMINI_BASE_URL", cfg.Gemini.BaseURL), "/")
	cfg.Gemini.Backend = strings.ToLower(getEnvOrDefault("GEMINI_BACKEND", cfg.Gemini.Backend))
	cfg.Gemini.TimeoutSeconds = getIntOrDefault("GEMINI_TIMEOUT_SECONDS", cfg.Gemini.TimeoutSeconds)
	cfg.Gemini.PromptsDir = getEnvOrDefault("PROMPTS_DIR", cfg.Gemini.PromptsDir)

	cfg.HTTP.Addr = getEnvOrDefault("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.SessionCookie = getEnvOrDefault("SESSION_COOKIE", cfg.HTTP.SessionCookie)
	cfg.HTTP.SessionIdleMinutes = getIntOrDefault("SESSION_IDLE_MINUTES", cfg.HTTP.SessionIdleMinutes)
	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			cfg.HTTP.UploadMaxBytes = parsed
		}
	}

	cfg.Storage.Driver = strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", cfg.Storage.Driver))
	cfg.Storage.BasePath = getEnvOrDefault("STORAGE_BASE_PATH", cfg.Storage.BasePath)
	cfg.Storage.SQLitePath = getEnvOrDefault("SQLITE_PATH", cfg.Storage.SQLitePath)

	cfg.Database.Host = getEnvOrDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvOrDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.Username = getEnvOrDefault("DB_USERNAME", cfg.Database.Username)
	cfg.Database.Password = getEnvOrDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnvOrDefault("DB_DATABASE", cfg.Database.Database)

	cfg.Discord.BotToken = getEnvOrDefault("DISCORD_BOT_TOKEN", cfg.Discord.BotToken)
	cfg.Discord.ChannelID = getEnvOrDefault("DISCORD_CHANNEL_ID", cfg.Discord.ChannelID)
	cfg.Discord.RiskThreshold = getIntOrDefault("DISCORD_RISK_THRESHOLD", cfg.Discord.RiskThreshold)

	cfg.Simulation.FPS = getIntOrDefault("SIMULATION_FPS", cfg.Simulation.FPS)

	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		cfg.Log.Development = v == "true"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
