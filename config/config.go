package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// Config holds all configuration for the department QA service.
type Config struct {
	Document   DocumentConfig   `yaml:"document"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Guardrail  GuardrailConfig  `yaml:"guardrail"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Synthesis  SynthesisConfig  `yaml:"synthesis"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DocumentConfig locates the single source document.
type DocumentConfig struct {
	Path  string `yaml:"path"` // file path or glob relative to the root dir
	Clean bool   `yaml:"clean"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`    // words per chunk
	Overlap int `yaml:"overlap"` // words shared by consecutive chunks
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // "hashing", "openai"
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Dimension  int           `yaml:"dimension"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type IndexConfig struct {
	Backend        string `yaml:"backend"` // "bolt", "postgres"
	DataDir        string `yaml:"data_dir"`
	PostgresURLEnv string `yaml:"postgres_url_env"`
}

// GuardrailConfig tunes the in/out-of-scope decision boundary.
type GuardrailConfig struct {
	Keywords            []string `yaml:"keywords"` // doublestar patterns, matched per word
	MinKeywordMatches   int      `yaml:"min_keyword_matches"`
	KeywordRatio        float64  `yaml:"keyword_ratio"`
	SemanticEnabled     bool     `yaml:"semantic_enabled"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	Exemplars           []string `yaml:"exemplars"`
	Message             string   `yaml:"message"`
}

type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	MinScore       float64 `yaml:"min_score"`
	ExpandQuery    bool    `yaml:"expand_query"`
	MetadataFilter bool    `yaml:"metadata_filter"`
}

type SynthesisConfig struct {
	MaxContextWords int `yaml:"max_context_words"`
}

// GenerationConfig holds language model configuration.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"` // "extractive", "openai", "bedrock"
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Region      string        `yaml:"region"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

type CacheConfig struct {
	Backend          string        `yaml:"backend"` // "memory", "redis", "none"
	Size             int           `yaml:"size"`
	TTL              time.Duration `yaml:"ttl"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisPasswordEnv string        `yaml:"redis_password_env"`
	Prefix           string        `yaml:"prefix"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
	MaxBatch         int           `yaml:"max_batch"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console", "json"
}

// DefaultKeywords is the department vocabulary used by the scope guardrail.
var DefaultKeywords = []string{
	"program", "programs", "eligibility", "faculty", "department", "departments",
	"dean", "chairman", "m.sc", "msc", "ph.d", "phd", "engineering", "admission",
	"admissions", "course", "courses", "semester", "credit", "credits", "fee", "fees",
	"requirement", "requirements", "degree", "degrees", "undergraduate", "graduate",
	"postgraduate", "bachelor", "master", "doctorate", "curriculum", "syllabus",
	"professor", "lecturer", "instructor", "staff", "hod", "head", "contact",
	"email", "phone", "office", "building", "lab", "laboratory", "research",
	"thesis", "dissertation", "cgpa", "gpa", "merit", "scholarship", "duration",
}

var DefaultExemplars = []string{
	"What are the admission requirements for the undergraduate program?",
	"Which degree programs does the department offer?",
	"Who is the chairman of the department?",
	"What is the eligibility criteria for M.Sc. admission?",
	"How can I contact the department office?",
	"Who are the faculty members and professors?",
	"What is the fee structure for the programs?",
	"How long does the PhD program take to complete?",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Document: DocumentConfig{
			Path:  "data/processed/*.txt",
			Clean: true,
		},
		Chunking: ChunkingConfig{
			Size:    250,
			Overlap: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:   "hashing",
			Model:      "text-embedding-3-small",
			BaseURL:    "http://localhost:8001/v1",
			APIKeyEnv:  "OPENAI_API_KEY",
			Dimension:  512,
			BatchSize:  64,
			Timeout:    15 * time.Second,
			MaxRetries: 2,
		},
		Index: IndexConfig{
			Backend:        "bolt",
			DataDir:        ".deptqa",
			PostgresURLEnv: "DATABASE_URL",
		},
		Guardrail: GuardrailConfig{
			Keywords:            append([]string(nil), DefaultKeywords...),
			MinKeywordMatches:   1,
			KeywordRatio:        0.15,
			SemanticEnabled:     true,
			SimilarityThreshold: 0.55,
			Exemplars:           append([]string(nil), DefaultExemplars...),
			Message:             domain.MessageOutOfScope,
		},
		Retrieve: RetrieveConfig{
			TopK:     3,
			MinScore: 0.3,
		},
		Synthesis: SynthesisConfig{
			MaxContextWords: 600,
		},
		Generation: GenerationConfig{
			Provider:    "extractive",
			Model:       "TinyLlama/TinyLlama-1.1B-Chat-v1.0",
			BaseURL:     "http://localhost:8000/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Region:      "us-east-1",
			MaxTokens:   512,
			Temperature: 0.3,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
		},
		Cache: CacheConfig{
			Backend:          "memory",
			Size:             256,
			TTL:              10 * time.Minute,
			RedisAddr:        "localhost:6379",
			RedisPasswordEnv: "REDIS_PASSWORD",
			Prefix:           "deptqa:answer:",
		},
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     90 * time.Second,
			BatchConcurrency: 4,
			MaxBatch:         32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for deptqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "deptqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".deptqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ApplyEnv overrides values from environment variables. The unprefixed names
// are the ones used by existing deployments.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	flag := func(dst *bool, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				switch strings.ToLower(v) {
				case "1", "true", "yes":
					*dst = true
				default:
					*dst = false
				}
				return
			}
		}
	}
	num := func(dst *int, names ...string) error {
		for _, name := range names {
			v, ok := lookup(name)
			if !ok || v == "" {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, name, v)
			}
			*dst = n
			return nil
		}
		return nil
	}

	str(&c.Document.Path, "DEPTQA_DOCUMENT", "PDF_PATH")
	str(&c.Embedding.Provider, "DEPTQA_EMBEDDING_PROVIDER")
	str(&c.Embedding.Model, "DEPTQA_EMBEDDING_MODEL", "EMBEDDING_MODEL")
	str(&c.Embedding.BaseURL, "DEPTQA_EMBEDDING_BASE_URL")
	str(&c.Generation.Provider, "DEPTQA_LLM_PROVIDER")
	str(&c.Generation.Model, "DEPTQA_LLM_MODEL", "LLM_MODEL")
	str(&c.Generation.BaseURL, "DEPTQA_LLM_BASE_URL")
	str(&c.Generation.Region, "AWS_REGION")
	str(&c.Index.Backend, "DEPTQA_INDEX_BACKEND")
	str(&c.Index.DataDir, "DEPTQA_DATA_DIR")
	str(&c.Cache.Backend, "DEPTQA_CACHE_BACKEND")
	str(&c.Cache.RedisAddr, "REDIS_ADDR")
	str(&c.Server.Host, "DEPTQA_HOST", "API_HOST")
	str(&c.Logging.Level, "DEPTQA_LOG_LEVEL", "LOG_LEVEL")

	for _, f := range []struct {
		dst   *bool
		names []string
	}{
		{&c.Retrieve.ExpandQuery, []string{"DEPTQA_EXPAND_QUERY"}},
		{&c.Retrieve.MetadataFilter, []string{"DEPTQA_METADATA_FILTER", "APPLY_METADATA_FILTER"}},
	} {
		flag(f.dst, f.names...)
	}

	for _, f := range []struct {
		dst   *int
		names []string
	}{
		{&c.Chunking.Size, []string{"DEPTQA_CHUNK_SIZE", "CHUNK_SIZE"}},
		{&c.Chunking.Overlap, []string{"DEPTQA_CHUNK_OVERLAP", "CHUNK_OVERLAP"}},
		{&c.Retrieve.TopK, []string{"DEPTQA_TOP_K", "TOP_K_RETRIEVAL"}},
		{&c.Server.Port, []string{"DEPTQA_PORT", "API_PORT"}},
	} {
		if err := num(f.dst, f.names...); err != nil {
			return err
		}
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	return nil
}

// Validate rejects out-of-range values. All errors wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			add("%s must be within [0,1], got %g", name, v)
		}
	}

	if strings.TrimSpace(c.Document.Path) == "" {
		add("document.path is required")
	}
	if c.Chunking.Size <= 0 {
		add("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap <= 0 || c.Chunking.Overlap >= c.Chunking.Size {
		add("chunking.overlap must satisfy 0 < overlap < size, got %d (size %d)", c.Chunking.Overlap, c.Chunking.Size)
	}

	switch c.Embedding.Provider {
	case "hashing":
		if c.Embedding.Dimension < 16 {
			add("embedding.dimension must be at least 16 for the hashing provider, got %d", c.Embedding.Dimension)
		}
	case "openai":
		if c.Embedding.Model == "" {
			add("embedding.model is required for the openai provider")
		}
	default:
		add("unknown embedding.provider %q", c.Embedding.Provider)
	}
	if c.Embedding.BatchSize <= 0 {
		add("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.Timeout <= 0 {
		add("embedding.timeout must be positive")
	}
	if c.Embedding.MaxRetries < 0 || c.Embedding.MaxRetries > 2 {
		add("embedding.max_retries must be within [0,2], got %d", c.Embedding.MaxRetries)
	}

	switch c.Index.Backend {
	case "bolt", "postgres":
	default:
		add("unknown index.backend %q", c.Index.Backend)
	}
	if c.Index.DataDir == "" {
		add("index.data_dir is required")
	}

	if len(c.Guardrail.Keywords) == 0 && !c.Guardrail.SemanticEnabled {
		add("guardrail needs keywords or semantic_enabled")
	}
	if c.Guardrail.MinKeywordMatches < 1 {
		add("guardrail.min_keyword_matches must be at least 1, got %d", c.Guardrail.MinKeywordMatches)
	}
	if c.Guardrail.KeywordRatio <= 0 || c.Guardrail.KeywordRatio > 1 {
		add("guardrail.keyword_ratio must be within (0,1], got %g", c.Guardrail.KeywordRatio)
	}
	unit("guardrail.similarity_threshold", c.Guardrail.SimilarityThreshold)
	if c.Guardrail.SemanticEnabled && len(c.Guardrail.Exemplars) == 0 {
		add("guardrail.exemplars are required when semantic_enabled is set")
	}

	if c.Retrieve.TopK < 1 || c.Retrieve.TopK > 20 {
		add("retrieve.top_k must be within [1,20], got %d", c.Retrieve.TopK)
	}
	unit("retrieve.min_score", c.Retrieve.MinScore)

	if c.Synthesis.MaxContextWords < 1 {
		add("synthesis.max_context_words must be positive, got %d", c.Synthesis.MaxContextWords)
	}

	switch c.Generation.Provider {
	case "extractive", "openai", "bedrock":
	default:
		add("unknown generation.provider %q", c.Generation.Provider)
	}
	if c.Generation.MaxTokens <= 0 {
		add("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		add("generation.temperature must be within [0,2], got %g", c.Generation.Temperature)
	}
	if c.Generation.Timeout <= 0 {
		add("generation.timeout must be positive")
	}
	if c.Generation.MaxRetries < 0 || c.Generation.MaxRetries > 2 {
		add("generation.max_retries must be within [0,2], got %d", c.Generation.MaxRetries)
	}

	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		add("unknown cache.backend %q", c.Cache.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be a valid port, got %d", c.Server.Port)
	}
	if c.Server.BatchConcurrency < 1 {
		add("server.batch_concurrency must be at least 1, got %d", c.Server.BatchConcurrency)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DataDir returns the data directory for a root dir.
func (c *Config) DataDir(root string) string {
	if filepath.IsAbs(c.Index.DataDir) {
		return c.Index.DataDir
	}
	return filepath.Join(root, c.Index.DataDir)
}

// IndexDBPath returns the path to the index database.
func (c *Config) IndexDBPath(root string) string {
	return filepath.Join(c.DataDir(root), "index.db")
}

// EnsureDataDir ensures the data directory exists.
func (c *Config) EnsureDataDir(root string) error {
	return os.MkdirAll(c.DataDir(root), 0755)
}
