package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/model"
)

// Load reads an optional .env file and overlays BOOKBIN_* environment
// variables on top of Default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv overlays variables looked up through getenv on top of Default.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()
	p := parser{getenv: getenv}

	p.str("BOOKBIN_CATALOG_A_URL", &c.CatalogA.BaseURL)
	p.seconds("BOOKBIN_CATALOG_A_TIMEOUT", &c.CatalogA.Timeout)
	p.seconds("BOOKBIN_CATALOG_A_INTERVAL", &c.CatalogA.Interval)
	p.str("BOOKBIN_CATALOG_B_URL", &c.CatalogB.BaseURL)
	p.seconds("BOOKBIN_CATALOG_B_TIMEOUT", &c.CatalogB.Timeout)
	p.seconds("BOOKBIN_CATALOG_B_INTERVAL", &c.CatalogB.Interval)
	p.integer("BOOKBIN_MAX_ATTEMPTS", &c.MaxAttempts)
	p.seconds("BOOKBIN_RETRY_DELAY", &c.RetryDelay)
	p.str("BOOKBIN_USER_AGENT", &c.UserAgent)

	p.integer("BOOKBIN_DEFAULT_PAGES", &c.DefaultPages)
	p.str("BOOKBIN_DEFAULT_LANGUAGE", &c.DefaultLanguage)
	p.str("BOOKBIN_DEFAULT_BINDING", &c.DefaultBinding)
	p.str("BOOKBIN_DESCRIPTION_PLACEHOLDER", &c.DescriptionPlaceholder)

	p.dec("BOOKBIN_PRICE_FLOOR", &c.PriceFloor)
	p.factors("BOOKBIN_PRICE_FACTORS", c.PriceFactors)
	p.codes("BOOKBIN_CONDITION_CODES", c.ConditionCodes)
	p.str("BOOKBIN_CATEGORY_CODE", &c.CategoryCode)
	p.integer("BOOKBIN_WEIGHT_PER_PAGE", &c.WeightPerPage)

	p.list("BOOKBIN_EXPORT_COLUMNS", ";", &c.ExportColumns)
	p.boolean("BOOKBIN_PRICE_FLOOR_FILTER", &c.PriceFloorFilter)
	p.str("BOOKBIN_LOCATION", &c.Location)
	p.str("BOOKBIN_POSTAL_CODE", &c.PostalCode)
	p.str("BOOKBIN_BIN_PATTERN", &c.BinPattern)

	p.boolean("BOOKBIN_COVER_CACHE", &c.CoverCache)
	p.integer("BOOKBIN_COVER_MAX_DIMENSION", &c.CoverMaxDimension)

	p.str("BOOKBIN_REDIS_ADDR", &c.RedisAddr)
	p.seconds("BOOKBIN_CACHE_TTL", &c.CacheTTL)
	p.list("BOOKBIN_KAFKA_BROKERS", ",", &c.KafkaBrokers)
	p.str("BOOKBIN_KAFKA_TOPIC", &c.KafkaTopic)

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(key))
	return v, v != ""
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = b
}

// seconds accepts fractional seconds, e.g. "1.5".
func (p *parser) seconds(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = time.Duration(f * float64(time.Second))
}

func (p *parser) dec(key string, dst *decimal.Decimal) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = d
}

func (p *parser) list(key, sep string, dst *[]string) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	*dst = splitList(v, sep)
}

// factors parses "NEW:0.70,GOOD:0.50" into dst, replacing listed grades only.
func (p *parser) factors(key string, dst map[model.Condition]decimal.Decimal) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	pairs, err := splitPairs(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	for cond, raw := range pairs {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			p.fail(key, fmt.Errorf("factor for %s: %w", cond, err))
			continue
		}
		dst[cond] = d
	}
}

func (p *parser) codes(key string, dst map[model.Condition]string) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	pairs, err := splitPairs(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	for cond, code := range pairs {
		dst[cond] = code
	}
}

func splitPairs(s string) (map[model.Condition]string, error) {
	out := make(map[model.Condition]string)
	for _, part := range splitList(s, ",") {
		k, v, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("expected CONDITION:value, got %q", part)
		}
		cond, err := model.ParseCondition(k)
		if err != nil {
			return nil, err
		}
		out[cond] = strings.TrimSpace(v)
	}
	return out, nil
}

func splitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
