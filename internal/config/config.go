package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	WhatsApp  WhatsAppConfig
	AI        AIConfig
	Voice     VoiceConfig
	Speech    SpeechConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	State     StateConfig
	Guard     GuardConfig
	Clinic    ClinicConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
}

// AI providers understood by AIConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	Provider     string
	AnthropicKey string
	GeminiKey    string
	Model        string
}

// VoiceConfig configures ElevenLabs speech synthesis. Voice replies are
// disabled when APIKey is empty.
type VoiceConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
	BaseURL string
}

// SpeechConfig configures Google Cloud Speech transcription.
type SpeechConfig struct {
	CredentialsPath string
	LanguageCode    string
	AltLanguages    []string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to mirror bookings to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the sheets mirror has been configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// State backends.
const (
	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

// StateConfig selects where sessions and booking drafts live.
type StateConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// GuardConfig tunes the duplicate / rate-limit gate.
type GuardConfig struct {
	DuplicateWindow   time.Duration
	RateWindow        time.Duration
	RateLimit         int
	ProcessingTimeout time.Duration
}

// ClinicConfig holds clinic-facing defaults used until settings are loaded from storage.
type ClinicConfig struct {
	Name         string
	BookingTimes []string
	PhonePattern string
	PhoneExample string
	NotifyPhone  string
	AdminPhone   string
	OfferImages  []string
	DoctorImages []string
	Latitude     float64
	Longitude    float64
	Address      string
	MapsURL      string
	MediaDelay   time.Duration
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", getenvWithDefault("PORT", "8080")),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: getenvWithDefault("WHATSAPP_PHONE_NUMBER_ID", os.Getenv("PHONE_NUMBER_ID")),
			VerifyToken:   getenvWithDefault("META_VERIFY_TOKEN", os.Getenv("VERIFY_TOKEN")),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v21.0"),
		},
		AI: AIConfig{
			Provider:     strings.ToLower(getenvWithDefault("AI_PROVIDER", ProviderAnthropic)),
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			GeminiKey:    os.Getenv("GEMINI_API_KEY"),
			Model:        os.Getenv("AI_MODEL"),
		},
		Voice: VoiceConfig{
			APIKey:  os.Getenv("ELEVENLABS_API_KEY"),
			VoiceID: getenvWithDefault("ELEVENLABS_VOICE_ID", "yXEnnEln9armDCyhkXcA"),
			ModelID: getenvWithDefault("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
			BaseURL: getenvWithDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		},
		Speech: SpeechConfig{
			CredentialsPath: os.Getenv("GOOGLE_SPEECH_CREDENTIALS_PATH"),
			LanguageCode:    getenvWithDefault("SPEECH_LANGUAGE", "ar-SA"),
			AltLanguages:    splitList(getenvWithDefault("SPEECH_ALT_LANGUAGES", "en-US")),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "clinic"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		State: StateConfig{
			Backend:       strings.ToLower(getenvWithDefault("STATE_BACKEND", StateBackendMemory)),
			RedisAddr:     getenvWithDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
		},
		Clinic: ClinicConfig{
			Name:         getenvWithDefault("CLINIC_NAME", "Ibtisama Clinic"),
			BookingTimes: splitList(getenvWithDefault("CLINIC_BOOKING_TIMES", "3 PM,6 PM,9 PM")),
			PhonePattern: getenvWithDefault("PHONE_PATTERN", `^07\d{8}$`),
			PhoneExample: getenvWithDefault("PHONE_EXAMPLE", "07XXXXXXXX"),
			NotifyPhone:  os.Getenv("CLINIC_NOTIFY_PHONE"),
			AdminPhone:   os.Getenv("CLINIC_ADMIN_PHONE"),
			OfferImages:  splitList(os.Getenv("OFFER_IMAGES")),
			DoctorImages: splitList(os.Getenv("DOCTOR_IMAGES")),
			Address:      os.Getenv("CLINIC_ADDRESS"),
			MapsURL:      os.Getenv("CLINIC_MAPS_URL"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 21 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Amman"),
		},
	}

	var err error
	if cfg.State.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.State.TTL, err = getenvDuration("STATE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.Guard.DuplicateWindow, err = getenvDuration("GUARD_DUPLICATE_WINDOW", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Guard.RateWindow, err = getenvDuration("GUARD_RATE_WINDOW", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Guard.RateLimit, err = getenvInt("GUARD_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.Guard.ProcessingTimeout, err = getenvDuration("GUARD_PROCESSING_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Clinic.MediaDelay, err = getenvDuration("MEDIA_DELAY", 900*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Clinic.Latitude, err = getenvFloat("CLINIC_LATITUDE", 0); err != nil {
		return nil, err
	}
	if cfg.Clinic.Longitude, err = getenvFloat("CLINIC_LONGITUDE", 0); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.WhatsApp.AccessToken == "":
		return errors.New("WHATSAPP_TOKEN must be provided")
	case c.WhatsApp.PhoneNumberID == "":
		return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
	case c.WhatsApp.VerifyToken == "":
		return errors.New("META_VERIFY_TOKEN must be provided")
	}

	if c.WhatsApp.BaseURL == "" {
		return errors.New("WHATSAPP_BASE_URL must not be empty")
	}

	if c.WhatsApp.APIVersion == "" {
		return errors.New("WHATSAPP_API_VERSION must not be empty")
	}

	switch c.AI.Provider {
	case ProviderAnthropic:
		if c.AI.AnthropicKey == "" {
			return errors.New("ANTHROPIC_API_KEY must be provided")
		}
	case ProviderGemini:
		if c.AI.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY must be provided")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AI.Provider)
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	switch c.State.Backend {
	case StateBackendMemory:
	case StateBackendRedis:
		if c.State.RedisAddr == "" {
			return errors.New("REDIS_ADDR must be provided for the redis state backend")
		}
	default:
		return fmt.Errorf("unsupported STATE_BACKEND %q", c.State.Backend)
	}

	if c.Guard.RateLimit <= 0 {
		return errors.New("GUARD_RATE_LIMIT must be positive")
	}

	if len(c.Clinic.BookingTimes) == 0 {
		return errors.New("CLINIC_BOOKING_TIMES must list at least one slot")
	}

	if c.Clinic.PhonePattern == "" {
		return errors.New("PHONE_PATTERN must not be empty")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
