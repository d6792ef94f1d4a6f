package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/notionify/auth-broker/domain"
)

// ServerConfig holds all configuration for the broker.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	// RedisAddr enables the purchase idempotency guard when non-empty.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	StripeSecretKey string `mapstructure:"STRIPE_SECRET_KEY"`

	// SuccessViewPath is where the callback flow redirects the browser,
	// on success and on failure alike.
	SuccessViewPath string `mapstructure:"SUCCESS_VIEW_PATH"`

	// Projects is the ordered registry input, one entry per key named in
	// PROJECT_KEYS. Credentials come from {KEY}_CLIENT_ID,
	// {KEY}_CLIENT_SECRET and {KEY}_REDIRECT_URL.
	Projects []domain.ProjectConfig `mapstructure:"-"`
}

// Display metadata for the project keys shipped with the service. Keys
// outside this table fall back to the key itself as display name.
var projectMetadata = map[string]struct {
	name        string
	description string
	icon        string
}{
	"rednote": {name: "小红书", description: "小红书同步到Notion", icon: "📍"},
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. The result is immutable by convention; build it once at startup
// and pass it by reference.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/auth-broker/")
	v.AddConfigPath("$HOME/.auth-broker")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/auth_broker_dev")
	v.SetDefault("MONGO_DB_NAME", "auth_broker_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "auth-broker")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("SUCCESS_VIEW_PATH", "/success")
	v.SetDefault("PROJECT_KEYS", "rednote")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.Projects = loadProjects(v, v.GetString("PROJECT_KEYS"))

	return &cfg, nil
}

// loadProjects builds the ordered project list for the comma-separated key
// list. Order here is registration order and drives listing order.
func loadProjects(v *viper.Viper, keyList string) []domain.ProjectConfig {
	var projects []domain.ProjectConfig
	for _, key := range strings.Split(keyList, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		prefix := strings.ToUpper(key)
		project := domain.ProjectConfig{
			Key:          key,
			DisplayName:  key,
			ClientID:     v.GetString(prefix + "_CLIENT_ID"),
			ClientSecret: v.GetString(prefix + "_CLIENT_SECRET"),
			RedirectURL:  v.GetString(prefix + "_REDIRECT_URL"),
		}
		if meta, ok := projectMetadata[key]; ok {
			project.DisplayName = meta.name
			project.Description = meta.description
			project.Icon = meta.icon
		}
		projects = append(projects, project)
	}
	return projects
}
