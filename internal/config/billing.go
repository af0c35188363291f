package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gosimple/slug"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Unlimited marks a tier limit that is never enforced.
const Unlimited int64 = -1

// FreeTier is applied to users without a live subscription.
const FreeTier = "free"

// DefaultModel is the pricing fallback for unknown model identifiers.
const DefaultModel = "default"

type Tier struct {
	Code              string  `mapstructure:"code" json:"code"`
	Name              string  `mapstructure:"name" json:"name"`
	MonthlyMessages   int64   `mapstructure:"monthlyMessages" json:"monthly_messages"`
	MonthlyDebates    int64   `mapstructure:"monthlyDebates" json:"monthly_debates"`
	MonthlyPrice      float64 `mapstructure:"monthlyPrice" json:"monthly_price"`
	AnnualPrice       float64 `mapstructure:"annualPrice" json:"annual_price"`
	OveragePerMessage float64 `mapstructure:"overagePerMessage" json:"overage_per_message"`
}

func (t Tier) UnlimitedMessages() bool { return t.MonthlyMessages == Unlimited }

func (t Tier) UnlimitedDebates() bool { return t.MonthlyDebates == Unlimited }

type ModelPrice struct {
	Model       string  `mapstructure:"model" json:"model"`
	PricePer1K  float64 `mapstructure:"pricePer1K" json:"price_per_1k"`
	DisplayName string  `mapstructure:"displayName" json:"display_name,omitempty"`
}

type BillingConfig struct {
	Tiers  []Tier       `mapstructure:"tiers" json:"tiers"`
	Models []ModelPrice `mapstructure:"models" json:"models"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Tiers: []Tier{
			{Code: "free", Name: "Free", MonthlyMessages: 50, MonthlyDebates: 5},
			{Code: "starter", Name: "Starter", MonthlyMessages: 500, MonthlyDebates: 50, MonthlyPrice: 9.99, AnnualPrice: 99.90, OveragePerMessage: 0.02},
			{Code: "professional", Name: "Professional", MonthlyMessages: 5000, MonthlyDebates: 500, MonthlyPrice: 29.99, AnnualPrice: 299.90, OveragePerMessage: 0.01},
			{Code: "enterprise", Name: "Enterprise", MonthlyMessages: Unlimited, MonthlyDebates: Unlimited, MonthlyPrice: 99.99, AnnualPrice: 999.90},
		},
		Models: []ModelPrice{
			{Model: DefaultModel, PricePer1K: 0.03},
			{Model: "openai/gpt-4o", PricePer1K: 0.01, DisplayName: "GPT-4o"},
			{Model: "anthropic/claude-3.5-sonnet", PricePer1K: 0.015, DisplayName: "Claude 3.5 Sonnet"},
			{Model: "google/gemini-flash-1.5", PricePer1K: 0.0006, DisplayName: "Gemini Flash 1.5"},
			{Model: "meta-llama/llama-3.1-70b-instruct", PricePer1K: 0.0009, DisplayName: "Llama 3.1 70B"},
		},
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewBillingConfigHolder reads billing.yml from the configured paths, falling
// back to DefaultBillingConfig, and reloads it whenever the file changes.
func NewBillingConfigHolder(cfg Config, log *zap.Logger) (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	for _, path := range cfg.BillingConfigPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("CONSENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("billing config file not found, using defaults")
		return NewStaticBillingConfigHolder(DefaultBillingConfig())
	}

	loaded, err := decodeBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(loaded)
	log.Info("billing config loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.Int("tiers", len(loaded.Tiers)),
		zap.Int("models", len(loaded.Models)),
	)

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBillingConfig(v)
		if err != nil {
			log.Warn("billing config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticBillingConfigHolder validates and wraps a fixed configuration.
func NewStaticBillingConfigHolder(cfg BillingConfig) (*BillingConfigHolder, error) {
	cfg = normalizeBillingConfig(cfg)
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *BillingConfigHolder) Current() BillingConfig {
	if h == nil {
		return normalizeBillingConfig(DefaultBillingConfig())
	}
	return h.current.Load().(BillingConfig)
}

// Tier looks up a tier by code; the code is normalized the same way as the config.
func (h *BillingConfigHolder) Tier(code string) (Tier, bool) {
	code = NormalizeTierCode(code)
	for _, tier := range h.Current().Tiers {
		if tier.Code == code {
			return tier, true
		}
	}
	return Tier{}, false
}

func (h *BillingConfigHolder) ModelPrice(model string) (ModelPrice, bool) {
	model = normalizeModel(model)
	for _, price := range h.Current().Models {
		if price.Model == model {
			return price, true
		}
	}
	return ModelPrice{}, false
}

func NormalizeTierCode(code string) string {
	return slug.Make(strings.TrimSpace(code))
}

func normalizeModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	defaults := DefaultBillingConfig()
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = defaults.Tiers
	}
	if len(cfg.Models) == 0 {
		cfg.Models = defaults.Models
	}
	cfg = normalizeBillingConfig(cfg)
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

func normalizeBillingConfig(cfg BillingConfig) BillingConfig {
	tiers := make([]Tier, 0, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		tier.Code = NormalizeTierCode(tier.Code)
		if strings.TrimSpace(tier.Name) == "" {
			tier.Name = tier.Code
		}
		tiers = append(tiers, tier)
	}
	models := make([]ModelPrice, 0, len(cfg.Models))
	for _, price := range cfg.Models {
		price.Model = normalizeModel(price.Model)
		models = append(models, price)
	}
	return BillingConfig{Tiers: tiers, Models: models}
}

func validateBillingConfig(cfg BillingConfig) error {
	seen := make(map[string]struct{}, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		if tier.Code == "" {
			return errors.New("billing: tier code is required")
		}
		if _, dup := seen[tier.Code]; dup {
			return fmt.Errorf("billing: duplicate tier %q", tier.Code)
		}
		seen[tier.Code] = struct{}{}
		if tier.MonthlyMessages < Unlimited || tier.MonthlyDebates < Unlimited {
			return fmt.Errorf("billing: tier %q has an invalid limit", tier.Code)
		}
		if tier.MonthlyPrice < 0 || tier.AnnualPrice < 0 || tier.OveragePerMessage < 0 {
			return fmt.Errorf("billing: tier %q has a negative price", tier.Code)
		}
	}
	if _, ok := seen[FreeTier]; !ok {
		return errors.New("billing: free tier is required")
	}

	models := make(map[string]struct{}, len(cfg.Models))
	for _, price := range cfg.Models {
		if price.Model == "" {
			return errors.New("billing: model identifier is required")
		}
		if _, dup := models[price.Model]; dup {
			return fmt.Errorf("billing: duplicate model %q", price.Model)
		}
		models[price.Model] = struct{}{}
		if price.PricePer1K < 0 {
			return fmt.Errorf("billing: model %q has a negative price", price.Model)
		}
	}
	return nil
}
