package wiki

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
	feedmetrics "FlipSight/internal/service/metrics"
	"FlipSight/internal/service/ratelimit"
	xhttp "FlipSight/pkg/http"
	"FlipSight/pkg/logger"
)

// The upstream blocks anonymous default user agents, so a descriptive one
// is mandatory on every request.
const defaultUserAgent = "flipsight - GE flip decision support"

// Client implements QuoteFeed against the wiki real-time price API.
type Client struct {
	baseURL   string
	userAgent string
	http      *xhttp.Client
	limiter   *ratelimit.Limiter
	rps       float64
	log       *logger.Logger
}

func New(baseURL, userAgent string, httpClient *xhttp.Client, log *logger.Logger) drepo.QuoteFeed {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	feedmetrics.Register()
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      httpClient,
		limiter:   ratelimit.New(),
		rps:       4, // polite ceiling across all endpoints
		log:       log,
	}
}

// priceEntry mirrors one item's entry in the latest/5m/1h payloads. The
// latest endpoint fills high/low, the averaged ones the avg* fields.
type priceEntry struct {
	High     int64 `json:"high"`
	HighTime int64 `json:"highTime"`
	Low      int64 `json:"low"`
	LowTime  int64 `json:"lowTime"`

	AvgHighPrice    int64 `json:"avgHighPrice"`
	HighPriceVolume int64 `json:"highPriceVolume"`
	AvgLowPrice     int64 `json:"avgLowPrice"`
	LowPriceVolume  int64 `json:"lowPriceVolume"`
}

func (c *Client) Latest(ctx context.Context) (map[int]*models.Quote, error) {
	return c.fetchPrices(ctx, "latest")
}

func (c *Client) FiveMinute(ctx context.Context) (map[int]*models.Quote, error) {
	return c.fetchPrices(ctx, "5m")
}

func (c *Client) Hourly(ctx context.Context) (map[int]*models.Quote, error) {
	return c.fetchPrices(ctx, "1h")
}

func (c *Client) Mapping(ctx context.Context) ([]*models.ItemMeta, error) {
	var items []*models.ItemMeta
	if err := c.get(ctx, "mapping", &items); err != nil {
		return nil, fmt.Errorf("fetch mapping: %w", err)
	}
	return items, nil
}

func (c *Client) Volumes(ctx context.Context) (map[int]int64, error) {
	var payload struct {
		Data map[string]int64 `json:"data"`
	}
	if err := c.get(ctx, "volumes", &payload); err != nil {
		return nil, fmt.Errorf("fetch volumes: %w", err)
	}
	out := make(map[int]int64, len(payload.Data))
	for k, v := range payload.Data {
		id, err := strconv.Atoi(k)
		if err != nil || v <= 0 {
			continue
		}
		out[id] = v
	}
	return out, nil
}

func (c *Client) fetchPrices(ctx context.Context, endpoint string) (map[int]*models.Quote, error) {
	var payload struct {
		Data map[string]*priceEntry `json:"data"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	out := make(map[int]*models.Quote, len(payload.Data))
	for k, e := range payload.Data {
		id, err := strconv.Atoi(k)
		if err != nil || e == nil {
			continue
		}
		out[id] = &models.Quote{
			ItemID:       id,
			BidInstant:   e.Low,
			AskInstant:   e.High,
			BidTime:      e.LowTime,
			AskTime:      e.HighTime,
			BidAvg5m:     e.AvgLowPrice,
			AskAvg5m:     e.AvgHighPrice,
			BuyVolume5m:  e.HighPriceVolume,
			SellVolume5m: e.LowPriceVolume,
		}
	}
	c.log.Debug("feed fetched", logger.String("endpoint", endpoint), logger.Int("items", len(out)))
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, dest interface{}) error {
	if !c.limiter.Allow("wiki", c.rps, c.rps) {
		feedmetrics.FeedErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("feed rate limit exceeded")
	}
	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/" + endpoint,
		Headers: map[string]string{
			"User-Agent": c.userAgent,
			"Accept":     "application/json",
		},
	}, dest)
	feedmetrics.FeedLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		feedmetrics.FeedErrors.WithLabelValues(endpoint).Inc()
	}
	return err
}
