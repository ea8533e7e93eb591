package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"

	defaultPort           = "5000"
	defaultGeminiModel    = "gemini-1.5-flash-latest"
	defaultStaticDir      = "static"
	defaultPromptPath     = "system_prompt.txt"
	defaultMaxUploadBytes = 10 * 1024 * 1024
	defaultMaxImageBytes  = 8 * 1024 * 1024
)

var (
	// ErrMissingGeminiKey aborts startup when the default provider has no credential.
	ErrMissingGeminiKey = errors.New("GEMINI_API_KEY is not set")
	// ErrMissingArkConfig aborts startup when the ark provider lacks a model or credentials.
	ErrMissingArkConfig = errors.New("ark provider requires ARK_MODEL and ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY")
)

// Config aggregates the service configuration.
type Config struct {
	Server ServerConfig
	AI     AIConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai}, nil
}

// ServerConfig describes the HTTP surface.
type ServerConfig struct {
	Addr           string
	Debug          bool
	LogLevel       string
	StaticDir      string
	MaxUploadBytes int64
	MaxImageBytes  int64
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(os.Getenv("PORT"))
	if err != nil {
		return ServerConfig{}, err
	}

	maxUpload, err := parseOptionalIntEnv("MAX_UPLOAD_BYTES")
	if err != nil {
		return ServerConfig{}, err
	}
	maxUploadBytes := int64(defaultMaxUploadBytes)
	if maxUpload != nil && *maxUpload > 0 {
		maxUploadBytes = int64(*maxUpload)
	}

	maxImage, err := parseOptionalIntEnv("MAX_IMAGE_BYTES")
	if err != nil {
		return ServerConfig{}, err
	}
	maxImageBytes := int64(defaultMaxImageBytes)
	if maxImage != nil && *maxImage > 0 {
		maxImageBytes = int64(*maxImage)
	}
	if maxImageBytes > maxUploadBytes {
		if maxImage != nil {
			return ServerConfig{}, fmt.Errorf("MAX_IMAGE_BYTES (%d) exceeds MAX_UPLOAD_BYTES (%d)", maxImageBytes, maxUploadBytes)
		}
		maxImageBytes = maxUploadBytes
	}

	debug := parseDebugFlag(os.Getenv("FLASK_DEBUG"))
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}

	return ServerConfig{
		Addr:           addr,
		Debug:          debug,
		LogLevel:       getEnvOrDefault("LOG_LEVEL", logLevel),
		StaticDir:      getEnvOrDefault("STATIC_DIR", defaultStaticDir),
		MaxUploadBytes: maxUploadBytes,
		MaxImageBytes:  maxImageBytes,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}, nil
}

// parseAddr accepts a bare port ("5000") or a full listen address (":5000", "127.0.0.1:5000").
func parseAddr(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		port = defaultPort
	}

	if strings.Contains(port, ":") {
		return port, nil
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return "0.0.0.0:" + port, nil
}

// parseDebugFlag is lenient:
// only "true", "1" and "t" enable debug mode.
func parseDebugFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "t":
		return true
	default:
		return false
	}
}

// AIConfig describes the model provider.
type AIConfig struct {
	Provider         string
	SystemPromptPath string

	GeminiAPIKey string
	GeminiModel  string

	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// ArkEnabled reports whether the Ark credentials are complete.
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// Validate checks that the selected provider can be constructed.
func (c AIConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return ErrMissingGeminiKey
		}
	case ProviderArk:
		if !c.ArkEnabled() {
			return ErrMissingArkConfig
		}
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.Provider)
	}
	return nil
}

// Float32Temperature returns the configured temperature narrowed for SDKs that take float32.
func (c AIConfig) Float32Temperature() *float32 {
	return narrow(c.Temperature)
}

// Float32TopP returns the configured top-p narrowed for SDKs that take float32.
func (c AIConfig) Float32TopP() *float32 {
	return narrow(c.TopP)
}

func narrow(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
}

// NewArkChatModel creates an Ark chat model from the configuration.
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.ArkEnabled() {
		return nil, ErrMissingArkConfig
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: c.Float32Temperature(),
		TopP:        c.Float32TopP(),
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("MODEL_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("MODEL_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("MODEL_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens != nil && (*maxTokens < 1 || *maxTokens > math.MaxInt32) {
		return AIConfig{}, fmt.Errorf("invalid MODEL_MAX_TOKENS value: %d", *maxTokens)
	}

	cfg := AIConfig{
		Provider:         strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini)),
		SystemPromptPath: getEnvOrDefault("SYSTEM_PROMPT_PATH", defaultPromptPath),
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", defaultGeminiModel),
		APIKey:           strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:        strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:        strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:            strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:          getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:           getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:      temperature,
		TopP:             topP,
		MaxTokens:        maxTokens,
	}

	if err := cfg.Validate(); err != nil {
		return AIConfig{}, err
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
