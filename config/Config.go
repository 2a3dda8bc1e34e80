package config

import (
	"time"

	"github.com/mohitkumar/promptflow/analytics"
	"github.com/mohitkumar/promptflow/logger"
)

type StorageType string

const STORAGE_TYPE_FILE StorageType = "file"
const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type ProviderType string

const PROVIDER_TYPE_OPENAI ProviderType = "openai"
const PROVIDER_TYPE_ECHO ProviderType = "echo"

type Config struct {
	HttpPort        int
	StorageType     StorageType
	FileConfig      FileStorageConfig
	RedisConfig     RedisStorageConfig
	CacheTTL        time.Duration
	EngineConfig    EngineConfig
	SchemaFile      string
	LLMConfig       LLMConfig
	LoggerConfig    logger.Config
	AnalyticsConfig analytics.DataCollectorConfig
	MetricsPeriod   time.Duration
}

type FileStorageConfig struct {
	DataDir string
}

type RedisStorageConfig struct {
	Addrs          []string
	Namespace      string
	Password       string
	PoolSize       int
	PartitionCount int
}

type EngineConfig struct {
	StepConcurrency int
	FunctionTimeout time.Duration
	FailFast        bool
}

type LLMConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// RetryInterval is the first delay between retried requests.
	RetryInterval time.Duration
	// DefaultProvider serves model names no registered prefix claims.
	DefaultProvider ProviderType
}

func Default() Config {
	return Config{
		HttpPort:    8080,
		StorageType: STORAGE_TYPE_FILE,
		FileConfig:  FileStorageConfig{DataDir: "data"},
		RedisConfig: RedisStorageConfig{
			Addrs:     []string{"localhost:6379"},
			Namespace: "promptflow",
		},
		CacheTTL: time.Minute,
		EngineConfig: EngineConfig{
			StepConcurrency: 8,
			FunctionTimeout: 5 * time.Second,
		},
		LLMConfig: LLMConfig{
			BaseURL:         "https://api.openai.com/v1",
			Timeout:         60 * time.Second,
			MaxRetries:      2,
			RetryInterval:   500 * time.Millisecond,
			DefaultProvider: PROVIDER_TYPE_OPENAI,
		},
		LoggerConfig: logger.Config{Level: "info", Format: "json"},
		AnalyticsConfig: analytics.DataCollectorConfig{
			CollectorType: analytics.NOOP_DATA_COLLECTOR,
		},
	}
}
