package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	AWS      AWSConfig
	Router   RouterConfig
	Voice    VoiceConfig
	Learning LearningConfig
	FAQ      FAQConfig
	AI       AIConfig
	Log      LogConfig
	Tracing  TracingConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig()
	if err != nil {
		return nil, err
	}

	routes, err := ParseDepartmentRoutes(os.Getenv("QUEUE_MAP"))
	if err != nil {
		return nil, err
	}

	router, err := loadRouterConfig(routes)
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig(routes, router)
	if err != nil {
		return nil, err
	}

	faq, err := loadFAQConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	tracing, err := loadTracingConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AWS:      awsCfg,
		Router:   router,
		Voice:    voice,
		Learning: loadLearningConfig(),
		FAQ:      faq,
		AI:       ai,
		Log:      loadLogConfig(),
		Tracing:  tracing,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr             string
	StaticDir        string
	AllowedOrigins   []string
	SessionRetention time.Duration
	SweepInterval    time.Duration
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(os.Getenv("PORT"))
	if err != nil {
		return ServerConfig{}, err
	}

	retention, err := parseDurationEnv("SESSION_RETENTION", time.Hour)
	if err != nil {
		return ServerConfig{}, err
	}

	sweep, err := parseDurationEnv("SESSION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:             addr,
		StaticDir:        getEnvOrDefault("STATIC_DIR", "web"),
		AllowedOrigins:   splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		SessionRetention: retention,
		SweepInterval:    sweep,
	}, nil
}

func parseAddr(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3000" 或 "127.0.0.1:3000"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AWSConfig 描述 AWS SDK 相关配置。
type AWSConfig struct {
	Region      string
	CallTimeout time.Duration
}

func loadAWSConfig() (AWSConfig, error) {
	timeout, err := parseDurationEnv("AWS_CALL_TIMEOUT", 10*time.Second)
	if err != nil {
		return AWSConfig{}, err
	}
	if timeout <= 0 {
		return AWSConfig{}, fmt.Errorf("invalid AWS_CALL_TIMEOUT value %q: must be positive", os.Getenv("AWS_CALL_TIMEOUT"))
	}

	return AWSConfig{
		Region:      getEnvOrDefault("AWS_REGION", "eu-west-2"),
		CallTimeout: timeout,
	}, nil
}

// DepartmentRoutes maps department names to queue ARNs in configuration order.
type DepartmentRoutes = *orderedmap.OrderedMap[string, string]

// ParseDepartmentRoutes decodes a QUEUE_MAP JSON object, keeping key order.
func ParseDepartmentRoutes(raw string) (DepartmentRoutes, error) {
	routes := orderedmap.New[string, string]()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return routes, nil
	}

	if err := json.Unmarshal([]byte(raw), routes); err != nil {
		return nil, fmt.Errorf("invalid QUEUE_MAP value: %w", err)
	}
	return routes, nil
}

// RouterConfig 描述文本轮次路由配置。
type RouterConfig struct {
	Routes             DepartmentRoutes
	ModelID            string
	GuardrailID        string
	GuardrailVersion   string
	Locale             string
	GenerativeFallback bool
}

func loadRouterConfig(routes DepartmentRoutes) (RouterConfig, error) {
	generative, err := parseBoolEnv("GENERATIVE_FALLBACK", true)
	if err != nil {
		return RouterConfig{}, err
	}

	return RouterConfig{
		Routes:             routes,
		ModelID:            getEnvOrDefault("MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		GuardrailID:        strings.TrimSpace(os.Getenv("GUARDRAIL_ID")),
		GuardrailVersion:   strings.TrimSpace(os.Getenv("GUARDRAIL_VERSION")),
		Locale:             getEnvOrDefault("LOCALE", "en_US"),
		GenerativeFallback: generative,
	}, nil
}

// VoiceConfig 描述语音流式路由配置。
type VoiceConfig struct {
	Routes           DepartmentRoutes
	ModelID          string
	GuardrailID      string
	GuardrailVersion string
	Locale           string
	// Timeout bounds one whole turn: opening the stream and reading it.
	Timeout time.Duration
}

func loadVoiceConfig(routes DepartmentRoutes, router RouterConfig) (VoiceConfig, error) {
	timeout, err := parseDurationEnv("VOICE_TIMEOUT", time.Minute)
	if err != nil {
		return VoiceConfig{}, err
	}
	if timeout <= 0 {
		return VoiceConfig{}, fmt.Errorf("invalid VOICE_TIMEOUT value %q: must be positive", os.Getenv("VOICE_TIMEOUT"))
	}

	return VoiceConfig{
		Routes:           routes,
		ModelID:          getEnvOrDefault("VOICE_MODEL_ID", "amazon.nova-sonic-v1:0"),
		GuardrailID:      router.GuardrailID,
		GuardrailVersion: router.GuardrailVersion,
		Locale:           router.Locale,
		Timeout:          timeout,
	}, nil
}

// LearningConfig identifies the Lex intent that receives learned utterances.
type LearningConfig struct {
	BotID      string
	BotVersion string
	LocaleID   string
	IntentID   string
	Timeout    time.Duration
}

// Enabled reports whether every identifier needed for DescribeIntent is present.
func (c LearningConfig) Enabled() bool {
	return c.BotID != "" && c.BotVersion != "" && c.LocaleID != "" && c.IntentID != ""
}

func loadLearningConfig() LearningConfig {
	return LearningConfig{
		BotID:      strings.TrimSpace(os.Getenv("BOT_ID")),
		BotVersion: getEnvOrDefault("BOT_VERSION", "DRAFT"),
		LocaleID:   getEnvOrDefault("LOCALE_ID", "en_GB"),
		IntentID:   strings.TrimSpace(os.Getenv("INTENT_ID")),
		Timeout:    30 * time.Second,
	}
}

// FAQConfig 描述 FAQ 答案缓存配置。
type FAQConfig struct {
	Table string
	TTL   time.Duration
}

func loadFAQConfig() (FAQConfig, error) {
	ttl, err := parseDurationEnv("FAQ_CACHE_TTL", 24*time.Hour)
	if err != nil {
		return FAQConfig{}, err
	}
	return FAQConfig{
		Table: strings.TrimSpace(os.Getenv("FAQ_CACHE_TABLE")),
		TTL:   ttl,
	}, nil
}

// AIConfig 描述生成模型提供方配置。Provider 为 bedrock 时使用 RouterConfig.ModelID。
type AIConfig struct {
	Provider    string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// ArkEnabled 表示是否选择了 Ark 且提供了必需的密钥。
func (c AIConfig) ArkEnabled() bool {
	return c.Provider == "ark" && c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", "bedrock"))
	if provider != "bedrock" && provider != "ark" {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want bedrock or ark", provider)
	}

	return AIConfig{
		Provider:    provider,
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	FilePath    string
	Environment string
}

// Production reports whether console output should be JSON.
func (c LogConfig) Production() bool {
	return c.Environment == "production"
}

func loadLogConfig() LogConfig {
	return LogConfig{
		FilePath:    strings.TrimSpace(os.Getenv("LOG_FILE_PATH")),
		Environment: getEnvOrDefault("GO_ENV", "development"),
	}
}

// TracingConfig 描述 OpenTelemetry 配置。
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func loadTracingConfig() (TracingConfig, error) {
	enabled, err := parseBoolEnv("OTEL_ENABLED", false)
	if err != nil {
		return TracingConfig{}, err
	}
	return TracingConfig{
		Enabled:     enabled,
		Endpoint:    getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		ServiceName: getEnvOrDefault("OTEL_SERVICE_NAME", "connect-relay"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
