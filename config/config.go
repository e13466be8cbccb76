package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			Password string `mapstructure:"password"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Payments PaymentsConfig `mapstructure:"payments"`
}

// JWTConfig holds the signing secret and token policy. Loaded once at startup
// and never mutated afterwards.
type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
}

// AuthConfig holds credential policy knobs.
type AuthConfig struct {
	BcryptCost        int `mapstructure:"bcryptCost"`
	MinUsernameLength int `mapstructure:"minUsernameLength"`
	MaxUsernameLength int `mapstructure:"maxUsernameLength"`
	MinPasswordLength int `mapstructure:"minPasswordLength"`
}

// OAuthProviderConfig is one entry of the enabled-provider registry.
type OAuthProviderConfig struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
	Scope        string `mapstructure:"scope"`
}

type OAuthConfig struct {
	RedirectURL string                         `mapstructure:"redirectURL"`
	Providers   map[string]OAuthProviderConfig `mapstructure:"providers"`
}

// Enabled reports whether a provider has credentials configured.
func (c OAuthConfig) Enabled(provider string) bool {
	p, ok := c.Providers[provider]
	return ok && p.ClientID != ""
}

type PaymentsConfig struct {
	ShopID    string `mapstructure:"shopID"`
	SecretKey string `mapstructure:"secretKey"`
	ReturnURL string `mapstructure:"returnURL"`
}

// InitConfig loads config.yml from disk, falling back to the embedded copy,
// with POLKA_* environment variables taking precedence over both.
func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("POLKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.JWT.SecretKey == "" {
		return Config{}, fmt.Errorf("jwt.secretKey must be configured")
	}
	return config, nil
}
