package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"safemama-triage/common/config"

	"gopkg.in/yaml.v3"
)

// Config 分诊服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	HTTP struct {
		Addr         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}

	Triage struct {
		// 高风险因素白名单；为空时使用评估器默认值
		RiskFactors     []string
		RiskFactorsFile string // 可选 YAML 文件，覆盖默认白名单

		// 孕周合理范围（超出范围的推算结果被丢弃）
		MinPlausibleWeeks int
		MaxPlausibleWeeks int
	}

	Classifier struct {
		Mode    string // llm, keyword, none
		BaseURL string
		Model   string
		APIKey  string
		Timeout time.Duration
	}

	Alert struct {
		Transport    string // redis, mqtt, none
		Stream       string // Redis Streams 名称
		StreamMaxLen int64
		Topic        string // MQTT 主题
	}

	Cache struct {
		ProfileTTL time.Duration // 0 表示不缓存档案
	}

	Log struct {
		Level  string
		Format string
	}
}

// riskFactorsFile RISK_FACTORS_FILE 的 YAML 结构
type riskFactorsFile struct {
	RiskFactors []string `yaml:"risk_factors"`
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "safemama")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "safemama-triage")
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.ReadTimeout = 10 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second

	cfg.Triage.MinPlausibleWeeks = 0
	cfg.Triage.MaxPlausibleWeeks = 45
	cfg.Triage.RiskFactorsFile = getEnv("RISK_FACTORS_FILE", "")
	if cfg.Triage.RiskFactorsFile != "" {
		factors, err := LoadRiskFactors(cfg.Triage.RiskFactorsFile)
		if err != nil {
			return nil, err
		}
		cfg.Triage.RiskFactors = factors
	}

	cfg.Classifier.Mode = getEnv("CLASSIFIER_MODE", "keyword")
	cfg.Classifier.BaseURL = getEnv("CLASSIFIER_BASE_URL", "https://api.openai.com/v1")
	cfg.Classifier.Model = getEnv("CLASSIFIER_MODEL", "gpt-4.1-mini")
	cfg.Classifier.APIKey = getEnv("CLASSIFIER_API_KEY", "")
	cfg.Classifier.Timeout = time.Duration(getEnvInt("CLASSIFIER_TIMEOUT_MS", 8000)) * time.Millisecond

	cfg.Alert.Transport = getEnv("ALERT_TRANSPORT", "redis")
	cfg.Alert.Stream = getEnv("ALERT_STREAM", "triage:alerts")
	cfg.Alert.StreamMaxLen = int64(getEnvInt("ALERT_STREAM_MAXLEN", 10000))
	cfg.Alert.Topic = getEnv("ALERT_TOPIC", "safemama/triage/alerts")

	cfg.Cache.ProfileTTL = time.Duration(getEnvInt("PROFILE_CACHE_TTL_SECONDS", 300)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验枚举类配置
func (c *Config) Validate() error {
	switch c.Classifier.Mode {
	case "llm", "keyword", "none":
	default:
		return fmt.Errorf("invalid CLASSIFIER_MODE: %q", c.Classifier.Mode)
	}
	switch c.Alert.Transport {
	case "redis", "mqtt", "none":
	default:
		return fmt.Errorf("invalid ALERT_TRANSPORT: %q", c.Alert.Transport)
	}
	if c.Classifier.Mode == "llm" && c.Classifier.Timeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT_MS must be positive")
	}
	return nil
}

// LoadRiskFactors 从 YAML 文件读取高风险因素白名单（支持 ${ENV} 展开）
func LoadRiskFactors(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk factors file: %w", err)
	}

	var doc riskFactorsFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse risk factors file: %w", err)
	}

	factors := make([]string, 0, len(doc.RiskFactors))
	for _, f := range doc.RiskFactors {
		f = strings.TrimSpace(f)
		if f != "" {
			factors = append(factors, f)
		}
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("risk factors file %s lists no factors", path)
	}
	return factors, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
