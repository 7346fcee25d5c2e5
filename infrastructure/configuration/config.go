package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
	Graph       Graph       `json:"graph"`
	Vault       Vault       `json:"vault"`
	Media       Media       `json:"media"`
	Publisher   Publisher   `json:"publisher"`
	Scheduler   Scheduler   `json:"scheduler"`
	Events      Events      `json:"events"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
	DB       int    `json:"db"`
}

type Logger struct {
	Level string `json:"level"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	Facebook  OAuthClient `json:"facebook"`
	Instagram OAuthClient `json:"instagram"`
	Generic   OAuthClient `json:"generic"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	AuthURL      string   `json:"authURL"`
	TokenURL     string   `json:"tokenURL"`
	Scopes       []string `json:"scopes"`
}

// Graph points at the provider APIs; tests and staging swap these for local fakes.
type Graph struct {
	BaseURL          string `json:"baseURL"`
	InstagramBaseURL string `json:"instagramBaseURL"`
	TimeoutSeconds   int    `json:"timeoutSeconds"`
}

type Vault struct {
	Key  string `json:"key"`
	Salt string `json:"salt"`
}

type Media struct {
	Bucket        string `json:"bucket"`
	Region        string `json:"region"`
	Prefix        string `json:"prefix"`
	PublicBaseURL string `json:"publicBaseURL"`
	JPEGQuality   int    `json:"jpegQuality"`
}

// Publisher tunes the poll and retry ceilings of the publish state machine.
type Publisher struct {
	StoryPollSeconds    int `json:"storyPollSeconds"`
	StoryMaxPolls       int `json:"storyMaxPolls"`
	StoryWarmupSeconds  int `json:"storyWarmupSeconds"`
	VideoPollSeconds    int `json:"videoPollSeconds"`
	VideoMaxPolls       int `json:"videoMaxPolls"`
	PublishRetrySeconds int `json:"publishRetrySeconds"`
	PublishMaxAttempts  int `json:"publishMaxAttempts"`
	ProbeCacheSeconds   int `json:"probeCacheSeconds"`
	MaxHashtags         int `json:"maxHashtags"`
	MaxCaptionRunes     int `json:"maxCaptionRunes"`
}

type Scheduler struct {
	Enabled           bool `json:"enabled"`
	TickSeconds       int  `json:"tickSeconds"`
	BatchSize         int  `json:"batchSize"`
	JobTimeoutSeconds int  `json:"jobTimeoutSeconds"`
}

// Events selects where terminal job events go: "pubsub", "servicebus" or "none".
type Events struct {
	Sink string `json:"sink"`
}

var C Config

// LoadedEnvFiles lists the dotenv files read while the configuration was built.
var LoadedEnvFiles []string

func init() {
	LoadedEnvFiles = Load("config.env", ".env")
}

// Load reads the dotenv files into the process environment and then rebuilds C
// from the config file and the environment. It returns the dotenv files read.
func Load(envFiles ...string) []string {
	loaded := LoadEnvFromFile(envFiles...)
	C = Config{}
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initOAuth(&C)
	initGraph(&C)
	initVault(&C)
	initMedia(&C)
	initPublisher(&C)
	initScheduler(&C)
	logger.SetLevel(C.Logger.Level)
	return loaded
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "social_publisher")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "localhost")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "postgres")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")

	// Azure SQL in production
	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "sa")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "social_publisher")
	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "localhost")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")
	C.Database.Mongo.User = getConfigValue(C.Database.Mongo.User, "MONGO_USER", "")
	C.Database.Mongo.Password = getConfigValue(C.Database.Mongo.Password, "MONGO_PASSWORD", "")

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "localhost")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
}

func initApp(C *Config) {
	// SECRET_KEY from environment overrides the config file for JWT verification
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		C.App.TLSEnabled = parseBool(v, C.App.TLSEnabled)
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initOAuth(C *Config) {
	fb := &C.OAuth.Facebook
	fb.ClientID = getConfigValue(fb.ClientID, "FACEBOOK_CLIENT_ID", "")
	fb.ClientSecret = getConfigValue(fb.ClientSecret, "FACEBOOK_CLIENT_SECRET", "")
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	fb.RedirectURI = getConfigValue(fb.RedirectURI, "FACEBOOK_REDIRECT_URI",
		fmt.Sprintf("%s://localhost:%d/auth/facebook/callback", scheme, C.App.Port))
	if C.App.TLSEnabled && !hasHTTPS(fb.RedirectURI) {
		fb.RedirectURI = toHTTPSCallback(fb.RedirectURI)
	}
	if len(fb.Scopes) == 0 {
		fb.Scopes = []string{
			"pages_show_list", "pages_read_engagement", "pages_manage_posts",
			"instagram_basic", "instagram_content_publish", "business_management",
		}
	}

	g := &C.OAuth.Generic
	g.ClientID = getConfigValue(g.ClientID, "OAUTH_CLIENT_ID", "")
	g.ClientSecret = getConfigValue(g.ClientSecret, "OAUTH_CLIENT_SECRET", "")
	g.TokenURL = getConfigValue(g.TokenURL, "OAUTH_TOKEN_URL", "")
}

func initGraph(C *Config) {
	C.Graph.BaseURL = strings.TrimRight(getConfigValue(C.Graph.BaseURL, "GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"), "/")
	C.Graph.InstagramBaseURL = strings.TrimRight(getConfigValue(C.Graph.InstagramBaseURL, "INSTAGRAM_BASE_URL", "https://graph.instagram.com"), "/")
	if C.Graph.TimeoutSeconds == 0 {
		C.Graph.TimeoutSeconds = 30
	}
}

func initVault(C *Config) {
	C.Vault.Key = getConfigValue(C.Vault.Key, "VAULT_KEY", "")
	C.Vault.Salt = getConfigValue(C.Vault.Salt, "VAULT_SALT", "social-publisher.vault")
	if C.Vault.Key == "" {
		logger.GetLogger().Warn("Vault.Key not set; credential encryption will fail. Provide VAULT_KEY via environment.")
	}
}

func initMedia(C *Config) {
	C.Media.Bucket = getConfigValue(C.Media.Bucket, "MEDIA_BUCKET", "")
	C.Media.Region = getConfigValue(C.Media.Region, "MEDIA_REGION", "us-east-1")
	C.Media.PublicBaseURL = strings.TrimRight(getConfigValue(C.Media.PublicBaseURL, "MEDIA_PUBLIC_BASE_URL", ""), "/")
	if C.Media.Prefix == "" {
		C.Media.Prefix = "normalized"
	}
	if C.Media.JPEGQuality == 0 {
		C.Media.JPEGQuality = 90
	}
}

func initPublisher(C *Config) {
	p := &C.Publisher
	setDefault(&p.StoryPollSeconds, 5)
	setDefault(&p.StoryMaxPolls, 24)
	setDefault(&p.StoryWarmupSeconds, 2)
	setDefault(&p.VideoPollSeconds, 10)
	setDefault(&p.VideoMaxPolls, 60)
	setDefault(&p.PublishRetrySeconds, 3)
	setDefault(&p.PublishMaxAttempts, 5)
	setDefault(&p.ProbeCacheSeconds, 300)
	setDefault(&p.MaxHashtags, 30)
	setDefault(&p.MaxCaptionRunes, 2200)
}

func initScheduler(C *Config) {
	s := &C.Scheduler
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		s.Enabled = parseBool(v, s.Enabled)
	} else if !viper.IsSet("scheduler.enabled") {
		s.Enabled = true
	}
	setDefault(&s.TickSeconds, 60)
	setDefault(&s.BatchSize, 20)
	setDefault(&s.JobTimeoutSeconds, 600)
	if C.Events.Sink == "" {
		C.Events.Sink = getEnv("EVENTS_SINK", "none")
	}
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func parseBool(v string, fallback bool) bool {
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	}
	return fallback
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }
func toHTTPSCallback(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
