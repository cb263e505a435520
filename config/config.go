// config/config.go
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config is the service configuration.
type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Upload   UploadConfig   `mapstructure:"upload"`
	OTP      OTPConfig      `mapstructure:"otp"`
	Geo      GeoConfig      `mapstructure:"geo"`
	Mail     MailConfig     `mapstructure:"mail"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"` // comma separated in the environment
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type FirebaseConfig struct {
	ProjectID         string `mapstructure:"project_id"`
	CredentialsFile   string `mapstructure:"credentials_file"`
	CredentialsBase64 string `mapstructure:"credentials_base64"`
	StorageBucket     string `mapstructure:"storage_bucket"`
}

type UploadConfig struct {
	BaseFolder        string `mapstructure:"base_folder"`
	MaxBytes          int    `mapstructure:"max_bytes"`
	MaxImageDimension int    `mapstructure:"max_image_dimension"`
	Concurrency       int    `mapstructure:"concurrency"` // 0 = unlimited
	Thumbnails        bool   `mapstructure:"thumbnails"`
}

type OTPConfig struct {
	CodeTTL      time.Duration `mapstructure:"code_ttl"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	HourlyQuota  int           `mapstructure:"hourly_quota"`
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	CountryCode  string        `mapstructure:"country_code"`
	SMSUsername  string        `mapstructure:"sms_username"`
	SMSPassword  string        `mapstructure:"sms_password"`
	SMSSenderID  string        `mapstructure:"sms_sender_id"`
	SMSAPIURL    string        `mapstructure:"sms_api_url"`
}

type GeoConfig struct {
	GoogleAPIKey      string        `mapstructure:"google_api_key"`
	ReferenceAPIKey   string        `mapstructure:"reference_api_key"`
	ReferenceBaseURL  string        `mapstructure:"reference_base_url"`
	Country           string        `mapstructure:"country"`
	Debounce          time.Duration `mapstructure:"debounce"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads .env (if any) and the environment over built-in defaults.
// SERVER_JWT_SECRET maps to server.jwt_secret and so on.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.session_ttl", 2*time.Hour)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"https://barrim.com",
		"https://www.barrim.com",
	})

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "barrim")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.credentials_base64", "")
	v.SetDefault("firebase.storage_bucket", "")

	v.SetDefault("upload.base_folder", "businesses")
	v.SetDefault("upload.max_bytes", 25*1024*1024)
	v.SetDefault("upload.max_image_dimension", 2048)
	v.SetDefault("upload.concurrency", 0)
	v.SetDefault("upload.thumbnails", true)

	v.SetDefault("otp.code_ttl", 10*time.Minute)
	v.SetDefault("otp.cooldown", 60*time.Second)
	v.SetDefault("otp.hourly_quota", 5)
	v.SetDefault("otp.challenge_ttl", 5*time.Minute)
	v.SetDefault("otp.country_code", "+91")
	v.SetDefault("otp.sms_username", "")
	v.SetDefault("otp.sms_password", "")
	v.SetDefault("otp.sms_sender_id", "Barrim")
	v.SetDefault("otp.sms_api_url", "https://www.bestsmsbulk.com/bestsmsbulkapi/common/sendSmsWpAPI.php")

	v.SetDefault("geo.google_api_key", "")
	v.SetDefault("geo.reference_api_key", "")
	v.SetDefault("geo.reference_base_url", "https://api.countrystatecity.in/v1")
	v.SetDefault("geo.country", "IN")
	v.SetDefault("geo.debounce", time.Second)
	v.SetDefault("geo.requests_per_second", 10.0)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@barrim.com")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Server.JWTSecret == "" {
		return eris.New("server.jwt_secret is required")
	}
	if c.OTP.Cooldown <= 0 {
		return eris.New("otp.cooldown must be positive")
	}
	if c.Geo.Debounce <= 0 {
		return eris.New("geo.debounce must be positive")
	}
	if c.Server.SessionTTL <= 0 {
		return eris.New("server.session_ttl must be positive")
	}
	return nil
}
