package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Welcome  WelcomeConfig  `mapstructure:"welcome"`
	Content  ContentConfig  `mapstructure:"content"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mail     MailConfig     `mapstructure:"mail"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type WelcomeConfig struct {
	Dwell    time.Duration `mapstructure:"dwell"`
	ExitHold time.Duration `mapstructure:"exit_hold"`
	// Catalog is an optional TOML greeting list replacing the embedded one.
	Catalog string `mapstructure:"catalog"`
}

type ContentConfig struct {
	Dir     string   `mapstructure:"dir"`
	Profile string   `mapstructure:"profile"`
	Pinned  []string `mapstructure:"pinned"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	// URL enables the Redis view counter, e.g. redis://localhost:6379/0.
	// When empty, views are kept in sqlite.
	URL string `mapstructure:"url"`
}

type MailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	To           string `mapstructure:"to"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Load reads configs/config.yaml (or path, when set) and overlays FOLIO_*
// environment variables. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindLegacyEnv keeps the plain variable names used by earlier deployments
// working next to the FOLIO_ prefixed ones.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "FOLIO_SERVER_PORT", "PORT")
	_ = v.BindEnv("mail.smtp_host", "FOLIO_MAIL_SMTP_HOST", "SMTP_HOST")
	_ = v.BindEnv("mail.smtp_port", "FOLIO_MAIL_SMTP_PORT", "SMTP_PORT")
	_ = v.BindEnv("mail.smtp_user", "FOLIO_MAIL_SMTP_USER", "SMTP_USER")
	_ = v.BindEnv("mail.smtp_password", "FOLIO_MAIL_SMTP_PASSWORD", "SMTP_PASS")
	_ = v.BindEnv("mail.to", "FOLIO_MAIL_TO", "TO_EMAIL")
	_ = v.BindEnv("admin.username", "FOLIO_ADMIN_USERNAME", "ADMIN_USERNAME")
	_ = v.BindEnv("admin.password", "FOLIO_ADMIN_PASSWORD", "ADMIN_PASSWORD")
	_ = v.BindEnv("redis.url", "FOLIO_REDIS_URL", "REDIS_URL")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("welcome.dwell", "1200ms")
	v.SetDefault("welcome.exit_hold", "500ms")
	v.SetDefault("welcome.catalog", "")

	v.SetDefault("content.dir", "content/projects")
	v.SetDefault("content.profile", "content/profile.yaml")
	v.SetDefault("content.pinned", []string{})

	v.SetDefault("database.path", "folio.db")
	v.SetDefault("redis.url", "")

	v.SetDefault("mail.smtp_host", "smtp.gmail.com")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.smtp_user", "")
	v.SetDefault("mail.smtp_password", "")
	v.SetDefault("mail.to", "")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "admin123")
}

// Validate applies the rules the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Welcome.Dwell <= 0 {
		return fmt.Errorf("config: welcome.dwell must be positive")
	}
	if c.Welcome.ExitHold <= 0 {
		return fmt.Errorf("config: welcome.exit_hold must be positive")
	}
	if strings.TrimSpace(c.Content.Dir) == "" {
		return fmt.Errorf("config: content.dir is required")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config: database.path is required")
	}
	return nil
}
