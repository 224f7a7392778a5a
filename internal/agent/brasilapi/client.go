// Package brasilapi is the BrasilAPI / CPTEC client used for CEP lookups,
// city search and weather forecasts.
package brasilapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cepclima/server/internal/agent/extract"
	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
	logx "github.com/cepclima/server/pkg/logger"
)

const (
	minForecastDays = 1
	maxForecastDays = 6
)

// Cache stores decoded responses. Failures are logged and never fail a lookup.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	days      int
	ttl       ttls
	http      *http.Client
	cache     Cache
}

type ttls struct {
	zip, city, forecast time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

func New(cfg model.BrasilAPIConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		days:      clampDays(cfg.ForecastDays),
		ttl: ttls{
			zip:      cfg.CacheTTL.ZipCode,
			city:     cfg.CacheTTL.City,
			forecast: cfg.CacheTTL.Forecast,
		},
		http: http.DefaultClient,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForecastDays is the configured default forecast horizon.
func (c *Client) ForecastDays() int {
	return c.days
}

// LookupZipCode resolves a CEP to its address.
func (c *Client) LookupZipCode(ctx context.Context, cep string) (*model.Address, error) {
	zip, ok := extract.NormalizeZipCode(cep)
	if !ok {
		return nil, errx.Invalid(errx.ResourceCEP, "CEP deve conter 8 dígitos")
	}

	var body zipCodeResponse
	key := "brasilapi:cep:" + zip
	if err := c.fetch(ctx, errx.ResourceCEP, key, c.ttl.zip, "/cep/v1/"+zip, &body); err != nil {
		return nil, err
	}
	return body.toModel(zip), nil
}

// SearchCities lists the CPTEC localities matching name.
func (c *Client) SearchCities(ctx context.Context, name string) ([]model.CityLocation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errx.Invalid(errx.ResourceLocalidade, "nome da cidade é obrigatório")
	}

	var body []cityResponse
	key := "brasilapi:cidade:" + strings.ToLower(name)
	if err := c.fetch(ctx, errx.ResourceLocalidade, key, c.ttl.city, "/cptec/v1/cidade/"+url.PathEscape(name), &body); err != nil {
		return nil, err
	}

	cities := make([]model.CityLocation, 0, len(body))
	for _, r := range body {
		cities = append(cities, model.CityLocation{ID: r.ID, Name: r.Nome, State: r.Estado})
	}
	return cities, nil
}

// Forecast fetches the forecast for a CPTEC city code. days outside 1..6
// falls back to the configured horizon.
func (c *Client) Forecast(ctx context.Context, cityCode, days int) (*model.Forecast, error) {
	if cityCode <= 0 {
		return nil, errx.Invalid(errx.ResourcePrevisao, "")
	}
	if days < minForecastDays || days > maxForecastDays {
		days = c.days
	}

	var body forecastResponse
	key := fmt.Sprintf("brasilapi:previsao:%d:%d", cityCode, days)
	path := fmt.Sprintf("/cptec/v1/clima/previsao/%d/%d", cityCode, days)
	if err := c.fetch(ctx, errx.ResourcePrevisao, key, c.ttl.forecast, path, &body); err != nil {
		return nil, err
	}
	return body.toModel(), nil
}

func (c *Client) fetch(ctx context.Context, res errx.Resource, key string, ttl time.Duration, path string, dst any) error {
	if c.cache != nil && ttl > 0 {
		hit, err := c.cache.Get(ctx, key, dst)
		if err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("lookup cache read failed")
		} else if hit {
			logx.Debug().Str("key", key).Msg("lookup cache hit")
			return nil
		}
	}

	if err := c.get(ctx, res, path, dst); err != nil {
		return err
	}

	if c.cache != nil && ttl > 0 {
		if err := c.cache.Set(ctx, key, dst, ttl); err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("lookup cache write failed")
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, res errx.Resource, path string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errx.NewCode(errx.CodeGeneric, http.StatusInternalServerError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		appErr := errx.FromTransport(res, err)
		logx.Warn().Err(err).Str("resource", string(res)).Str("path", path).Str("code", string(appErr.Code)).Msg("brasilapi request failed")
		return appErr
	}
	defer resp.Body.Close()

	logx.Debug().
		Str("resource", string(res)).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("brasilapi response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var body errorBody
		_ = json.Unmarshal(raw, &body)
		return errx.FromStatus(res, resp.StatusCode, http.StatusText(resp.StatusCode), body.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errx.FromTransport(res, fmt.Errorf("decode %s response: %w", res, err))
	}
	return nil
}

func clampDays(n int) int {
	if n < minForecastDays || n > maxForecastDays {
		return 4
	}
	return n
}
