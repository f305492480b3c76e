// Package settings reads auto-moderation configuration owned by external
// tooling. Lookups go through a short-lived in-process cache since the warn
// limit is consulted on every warn command.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/barsik-modbot-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WarnLimit is the setting that controls warning escalation.
const WarnLimit = "warn_limit"

// ConfigurationError reports a missing or malformed setting. An undefined
// escalation threshold would make moderation behavior unpredictable, so this
// is surfaced rather than defaulted.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("setting %q: %s", e.Setting, e.Reason)
}

// Provider is the read-only settings lookup consumed by command processing.
type Provider struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewProvider returns a Provider caching rows for ttl.
func NewProvider(db *gorm.DB, ttl time.Duration, logger *logrus.Logger) *Provider {
	return &Provider{
		db:     db,
		cache:  cache.New(ttl, ttl*2),
		logger: logger,
	}
}

// Get returns the named setting row, from cache when fresh.
func (p *Provider) Get(ctx context.Context, name string) (*models.AutoModSetting, error) {
	if val, found := p.cache.Get(name); found {
		return val.(*models.AutoModSetting), nil
	}

	var setting models.AutoModSetting
	err := p.db.WithContext(ctx).Where("setting_name = ?", name).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ConfigurationError{Setting: name, Reason: "not configured"}
		}
		return nil, err
	}

	p.cache.SetDefault(name, &setting)
	p.logger.WithField("setting", name).Debug("Setting loaded")
	return &setting, nil
}

// MaxWarnings returns the warning count at which a warn escalates into a ban,
// read from the warn_limit setting. The payload may carry the value as a JSON
// number or a numeric string; anything else is a ConfigurationError.
func (p *Provider) MaxWarnings(ctx context.Context) (int, error) {
	setting, err := p.Get(ctx, WarnLimit)
	if err != nil {
		return 0, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(setting.Config), &payload); err != nil {
		return 0, &ConfigurationError{Setting: WarnLimit, Reason: "config is not valid JSON"}
	}
	raw, ok := payload["max_warnings"]
	if !ok {
		return 0, &ConfigurationError{Setting: WarnLimit, Reason: "max_warnings is missing"}
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	}
	return 0, &ConfigurationError{Setting: WarnLimit, Reason: "max_warnings is not a number"}
}
