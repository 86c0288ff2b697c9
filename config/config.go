package config

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/redis/go-redis/v9"
)

// Config - Global variable to export
var Config AppConfig

// AppConfig defines the full application configuration.
type AppConfig struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Milvus   MilvusConfig   `koanf:"milvus"`
	OpenAI   OpenAIConfig   `koanf:"openai"`
	Temporal TemporalConfig `koanf:"temporal"`
	Pipeline PipelineConfig `koanf:"pipeline"`
}

// ServerConfig defines HTTP server configurations
type ServerConfig struct {
	PublicPort int  `koanf:"publicport"`
	Debug      bool `koanf:"debug"`
}

// DatabaseConfig related to database
type DatabaseConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	Version  uint   `koanf:"version"`
	TimeZone string `koanf:"timezone"`
	Pool     struct {
		IdleConnections int           `koanf:"idleconnections"`
		MaxConnections  int           `koanf:"maxconnections"`
		ConnLifeTime    time.Duration `koanf:"connlifetime"`
	}
}

// CacheConfig related to Redis
type CacheConfig struct {
	Redis struct {
		RedisOptions redis.Options `koanf:"redisoptions"`
	}
	ImageAnalysisTTL time.Duration `koanf:"imageanalysisttl"`
}

// MilvusConfig is the milvus configuration.
type MilvusConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
}

// OpenAIConfig defines the configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey         string `koanf:"apikey"`
	EmbeddingModel string `koanf:"embeddingmodel"`
	CreativeModel  string `koanf:"creativemodel"`
	AnalystModel   string `koanf:"analystmodel"`
	VisionModel    string `koanf:"visionmodel"`
}

// TemporalConfig holds the connection parameters for the Temporal cluster
// that hosts the knowledge backfill workflow.
type TemporalConfig struct {
	HostPort  string `koanf:"hostport"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"taskqueue"`
}

// PipelineConfig tunes the ad-generation pipeline.
type PipelineConfig struct {
	// Retrieval caps and similarity floors.
	PracticeTopK          int     `koanf:"practicetopk"`
	ExampleTopK           int     `koanf:"exampletopk"`
	PracticeMinSimilarity float64 `koanf:"practiceminsimilarity"`
	ExampleMinSimilarity  float64 `koanf:"exampleminsimilarity"`

	// Per-call timeout applied to every external call in the request path.
	CallTimeout time.Duration `koanf:"calltimeout"`

	// Prompt token ceiling for the retrieved context block.
	ContextTokenBudget int `koanf:"contexttokenbudget"`

	// Fixed unit costs of the additive AI-cost estimate.
	Cost struct {
		Vision    float64 `koanf:"vision"`
		Embedding float64 `koanf:"embedding"`
		Creative  float64 `koanf:"creative"`
		Analyst   float64 `koanf:"analyst"`
	} `koanf:"cost"`

	// Backfill worker pacing.
	BackfillDelay     time.Duration `koanf:"backfilldelay"`
	BackfillBatchSize int           `koanf:"backfillbatchsize"`

	// Optional path to a YAML rule file overriding the built-in
	// length-selection rules.
	LengthRulesPath string `koanf:"lengthrulespath"`
}

// Init - Assign global config to decoded config struct
func Init(filePath string) error {
	k := koanf.New(".")
	parser := yaml.Parser()

	if err := k.Load(confmap.Provider(map[string]any{
		"pipeline.practicetopk":          10,
		"pipeline.exampletopk":           5,
		"pipeline.practiceminsimilarity": 0.6,
		"pipeline.exampleminsimilarity":  0.5,
		"pipeline.calltimeout":           "30s",
		"pipeline.contexttokenbudget":    6000,
		"pipeline.backfilldelay":         "500ms",
		"pipeline.backfillbatchsize":     100,
		"cache.imageanalysisttl":         "720h",
	}, "."), nil); err != nil {
		log.Fatal(err.Error())
	}

	if err := k.Load(file.Provider(filePath), parser); err != nil {
		log.Fatal(err.Error())
	}

	if err := k.Load(env.ProviderWithValue("CFG_", ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CFG_")), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return err
	}

	if err := k.Unmarshal("", &Config); err != nil {
		return err
	}

	return ValidateConfig(&Config)
}

// ValidateConfig is for custom validation rules for the configuration
func ValidateConfig(cfg *AppConfig) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return nil
}

var defaultConfigPath = "config/config.yaml"

// ParseConfigFlag allows clients to specify the relative path to the file from
// which the configuration will be loaded.
func ParseConfigFlag() string {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("file", defaultConfigPath, "configuration file")
	flag.Parse()

	return *configPath
}
