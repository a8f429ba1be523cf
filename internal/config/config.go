// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/paiban/nurseshift/pkg/scheduler/draft"
)

// EnvConfigPath 指定 YAML 配置文件路径的环境变量
const EnvConfigPath = "NURSESHIFT_CONFIG"

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name" validate:"required"`
	Env       string `yaml:"env" validate:"oneof=development test production"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" validate:"oneof=memory postgres"`
	Host            string        `yaml:"host" validate:"required_if=Driver postgres"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name" validate:"required_if=Driver postgres"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	RateLimit float64       `yaml:"rate_limit" validate:"gte=0"` // 每秒请求数，0 表示不限流
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	DayRequired      int           `yaml:"day_required" validate:"gte=0"`
	NightRequired    int           `yaml:"night_required" validate:"gte=0"`
	TargetWorkDays   int           `yaml:"target_work_days" validate:"gte=0,lte=31"`
	TargetHolidays   int           `yaml:"target_holidays" validate:"gte=0,lte=31"` // 0 表示使用群体平均值
	DraftCount       int           `yaml:"draft_count" validate:"gte=1,lte=20"`
	Seed             uint32        `yaml:"seed"`
	Workers          int           `yaml:"workers" validate:"gte=0"`
	RefineIterations int           `yaml:"refine_iterations" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	Year             int           `yaml:"year" validate:"omitempty,gte=2000,lte=2100"`
	Month            int           `yaml:"month" validate:"omitempty,gte=1,lte=12"`
}

// HolidayTarget 返回休日目标，未设置时为 nil
func (c *SchedulerConfig) HolidayTarget() *int {
	if c.TargetHolidays <= 0 {
		return nil
	}
	v := c.TargetHolidays
	return &v
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load 加载配置：.env、环境变量、YAML 文件（path 或 NURSESHIFT_CONFIG），最后校验
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := FromEnv()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv 从环境变量构建配置，未设置的项使用默认值
func FromEnv() *Config {
	defaults := draft.DefaultOptions()
	return &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "nurseshift"),
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "memory"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "nurseshift"),
			User:            getEnv("DB_USER", "nurseshift"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			Timeout:   getEnvDuration("API_TIMEOUT", 30*time.Second),
			RateLimit: getEnvFloat("API_RATE_LIMIT", 100),
			CORS: CORSConfig{
				Enabled: getEnvBool("API_CORS_ENABLED", true),
				Origins: getEnvList("API_CORS_ORIGINS", []string{"*"}),
			},
		},
		Scheduler: SchedulerConfig{
			DayRequired:      getEnvInt("SCHEDULER_DAY_REQUIRED", defaults.Staffing.DayRequired),
			NightRequired:    getEnvInt("SCHEDULER_NIGHT_REQUIRED", defaults.Staffing.NightRequired),
			TargetWorkDays:   getEnvInt("SCHEDULER_TARGET_WORK_DAYS", defaults.TargetWorkDays),
			TargetHolidays:   getEnvInt("SCHEDULER_TARGET_HOLIDAYS", 0),
			DraftCount:       getEnvInt("SCHEDULER_DRAFT_COUNT", defaults.Count),
			Seed:             uint32(getEnvInt("SCHEDULER_SEED", 0)),
			Workers:          getEnvInt("SCHEDULER_WORKERS", 4),
			RefineIterations: getEnvInt("SCHEDULER_REFINE_ITERATIONS", defaults.RefineIterations),
			Timeout:          getEnvDuration("SCHEDULER_TIMEOUT", 30*time.Second),
			Year:             getEnvInt("SCHEDULER_YEAR", 0),
			Month:            getEnvInt("SCHEDULER_MONTH", 0),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}
}

// Validate 校验配置
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
