// config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Auth          AuthConfiguration
	Log           LogConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port                      string
	RateLimitRequests         int
	DecisionRateLimitRequests int
	AdminRateLimitRequests    int
	RateLimitWindow           string
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	Enabled  bool
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Enabled bool
	Addr    string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	Enabled bool
	URL     string
	Index   string
}

type AuthConfiguration struct {
	JWTSecret  string
	AdminGroup string
}

type LogConfiguration struct {
	Dir string
}

// EngineConfig holds the decision and verification tunables. Defaults match
// the documented zero-trust behavior; only override them deliberately.
type EngineConfig struct {
	DecisionTTL       time.Duration
	CacheTTL          time.Duration
	EvaluationTimeout time.Duration
	AccessLogSize     int

	VerifyInterval    time.Duration
	SweepInterval     time.Duration
	ReverifyWindow    time.Duration
	DegradedThreshold int
	// SessionIdleTimeout prunes sessions not seen for this long. Zero means
	// twice ReverifyWindow.
	SessionIdleTimeout time.Duration

	AuditQueueSize int
	PolicyFile     string
}

var config *Configuration

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.rateLimitRequests", 100)
	viper.SetDefault("server.decisionRateLimitRequests", 1000)
	viper.SetDefault("server.adminRateLimitRequests", 30)
	viper.SetDefault("server.rateLimitWindow", "1m")

	viper.SetDefault("neo4j.enabled", false)
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.dialTimeout", "5s")
	viper.SetDefault("redis.readTimeout", "3s")
	viper.SetDefault("redis.writeTimeout", "3s")
	viper.SetDefault("redis.poolSize", 10)
	viper.SetDefault("elasticsearch.enabled", false)
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("elasticsearch.index", "access-decisions")

	viper.SetDefault("auth.adminGroup", "sentinel-admin")
	viper.SetDefault("log.dir", "")

	viper.SetDefault("engine.decisionTTL", "1h")
	viper.SetDefault("engine.cacheTTL", "30m")
	viper.SetDefault("engine.evaluationTimeout", "0s")
	viper.SetDefault("engine.accessLogSize", 100)
	viper.SetDefault("engine.policyFile", "")
	viper.SetDefault("verifier.interval", "60s")
	viper.SetDefault("verifier.sweepInterval", "5m")
	viper.SetDefault("verifier.reverifyWindow", "30m")
	viper.SetDefault("verifier.degradedThreshold", 50)
	viper.SetDefault("verifier.sessionIdleTimeout", "1h")
	viper.SetDefault("audit.queueSize", 1024)
}

func InitConfig() error {
	viper.AddConfigPath("config")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	return viper.Unmarshal(&config)
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetEngineConfig reads the engine and verifier settings. It is safe to call
// without InitConfig; defaults are registered on first use.
func GetEngineConfig() EngineConfig {
	setDefaults()
	return EngineConfig{
		DecisionTTL:        viper.GetDuration("engine.decisionTTL"),
		CacheTTL:           viper.GetDuration("engine.cacheTTL"),
		EvaluationTimeout:  viper.GetDuration("engine.evaluationTimeout"),
		AccessLogSize:      viper.GetInt("engine.accessLogSize"),
		VerifyInterval:     viper.GetDuration("verifier.interval"),
		SweepInterval:      viper.GetDuration("verifier.sweepInterval"),
		ReverifyWindow:     viper.GetDuration("verifier.reverifyWindow"),
		DegradedThreshold:  viper.GetInt("verifier.degradedThreshold"),
		SessionIdleTimeout: viper.GetDuration("verifier.sessionIdleTimeout"),
		AuditQueueSize:     viper.GetInt("audit.queueSize"),
		PolicyFile:         viper.GetString("engine.policyFile"),
	}
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
