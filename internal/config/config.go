package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/khanghh/riskauth/params"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr  = ":3000"
	DefaultRiskBackend = "mysql"
	DefaultBcryptCost  = 10
)

type MySQLConfig struct {
	Dsn             string   `mapstructure:"dsn"`
	Replicas        []string `mapstructure:"replicas"`
	TablePrefix     string   `mapstructure:"tablePrefix"`
	MaxIdleConns    int      `mapstructure:"maxIdleConns"`
	MaxOpenConns    int      `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime int      `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime int      `mapstructure:"connMaxLifetime"`
}

type SessionConfig struct {
	TokenMaxAge  time.Duration `mapstructure:"tokenMaxAge"`
	CookieName   string        `mapstructure:"cookieName"`
	CookieSecure bool          `mapstructure:"cookieSecure"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type ThresholdConfig struct {
	Medium   int `mapstructure:"medium"`   // score above which the tier is MEDIUM
	High     int `mapstructure:"high"`     // score above which the tier is HIGH
	Critical int `mapstructure:"critical"` // score from which the tier is CRITICAL
}

type RiskConfig struct {
	Backend         string          `mapstructure:"backend"` // mysql, redis or memory
	ExposeScore     *bool           `mapstructure:"exposeScore"`
	TrustOnFirstUse *bool           `mapstructure:"trustOnFirstUse"`
	MaxRetries      int             `mapstructure:"maxRetries"`
	Weights         map[string]int  `mapstructure:"weights"`
	Thresholds      ThresholdConfig `mapstructure:"thresholds"`
}

type RateLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

type AdminConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

type Config struct {
	Debug        bool            `mapstructure:"debug"`
	MasterKey    string          `mapstructure:"masterKey"`
	ListenAddr   string          `mapstructure:"listenAddr"`
	AllowOrigins []string        `mapstructure:"allowOrigins"`
	BcryptCost   int             `mapstructure:"bcryptCost"`
	Redis        RedisConfig     `mapstructure:"redis"`
	Session      SessionConfig   `mapstructure:"session"`
	MySQL        MySQLConfig     `mapstructure:"mysql"`
	Risk         RiskConfig      `mapstructure:"risk"`
	RateLimit    RateLimitConfig `mapstructure:"rateLimit"`
	Admin        AdminConfig     `mapstructure:"admin"`
}

func boolPtr(v bool) *bool {
	return &v
}

func (c *Config) Sanitize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.MasterKey == "" {
		return errors.New("masterKey is required")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = DefaultBcryptCost
	}
	if c.Session.TokenMaxAge == 0 {
		c.Session.TokenMaxAge = params.SessionTokenExpiration
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = params.SessionCookieName
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = params.RateLimitMax
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = params.RateLimitWindow
	}

	c.Risk.Backend = strings.ToLower(c.Risk.Backend)
	if c.Risk.Backend == "" {
		c.Risk.Backend = DefaultRiskBackend
	}
	switch c.Risk.Backend {
	case "mysql", "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("risk backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unsupported risk backend %q", c.Risk.Backend)
	}
	if c.MySQL.Dsn == "" {
		return errors.New("mysql.dsn is required")
	}
	if c.Risk.ExposeScore == nil {
		c.Risk.ExposeScore = boolPtr(true)
	}
	if c.Risk.TrustOnFirstUse == nil {
		c.Risk.TrustOnFirstUse = boolPtr(true)
	}
	if c.Risk.MaxRetries == 0 {
		c.Risk.MaxRetries = params.RiskUpdateMaxRetries
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
