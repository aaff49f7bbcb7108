package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Result is the gateway's verdict for one submission. A non-match is a
// normal result, not a failure.
type Result struct {
	Matched    bool
	Confidence float64
}

// Classifier resolves whether an image contains the target item.
// Implementations must degrade to a no-match result on transport or
// configuration failure rather than surface an error to gameplay.
type Classifier interface {
	Classify(ctx context.Context, image []byte, targetLabel string) Result
}

// Config holds settings for the vision gateway
type Config struct {
	// Endpoint is the Azure Computer Vision resource endpoint
	// (e.g. https://myresource.cognitiveservices.azure.com)
	Endpoint string
	// Key is the subscription key for the resource
	Key string
	// Threshold is the minimum tag confidence counted as a hit
	Threshold float64
	// Timeout bounds each analyze call
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for the vision gateway
func DefaultConfig() Config {
	return Config{
		Threshold: 0.6,
		Timeout:   15 * time.Second,
	}
}

// Gateway adapts the Azure Computer Vision tags API to the game's
// match/confidence contract.
type Gateway struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure Gateway implements Classifier
var _ Classifier = (*Gateway)(nil)

// New creates a vision gateway. An empty endpoint or key leaves the
// gateway in a degraded mode where every submission is a no-match, so the
// server runs without credentials instead of crashing.
func New(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Gateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "vision")),
	}
}

// tag is one entry of the analyze response's tag list
type tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type analyzeResponse struct {
	Tags []tag `json:"tags"`
}

// Classify sends the image to the analyze endpoint and matches the
// returned tags against the target label. All failures degrade to a
// no-match result: a flaky vision service costs this attempt, not the
// server.
func (g *Gateway) Classify(ctx context.Context, image []byte, targetLabel string) Result {
	if g.cfg.Endpoint == "" || g.cfg.Key == "" {
		g.logger.Warn("vision gateway not configured, treating submission as no-match")
		return Result{}
	}

	url := fmt.Sprintf("%s/vision/v3.2/analyze?visualFeatures=Tags",
		strings.TrimRight(g.cfg.Endpoint, "/"))

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		g.logger.Error("failed to build analyze request", slog.String("error", err.Error()))
		return Result{}
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", g.cfg.Key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Error("analyze call failed", slog.String("error", err.Error()))
		return Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		g.logger.Error("analyze call returned error status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return Result{}
	}

	var analyzed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analyzed); err != nil {
		g.logger.Error("failed to decode analyze response", slog.String("error", err.Error()))
		return Result{}
	}

	return g.matchTags(analyzed.Tags, targetLabel)
}

// matchTags applies the matching policy: the first tag at or above the
// confidence threshold whose name equals, contains, or is contained by the
// target label (case-insensitive) is a hit, and its confidence is surfaced.
func (g *Gateway) matchTags(tags []tag, targetLabel string) Result {
	target := strings.ToLower(targetLabel)

	for _, t := range tags {
		if t.Confidence < g.cfg.Threshold {
			continue
		}
		name := strings.ToLower(t.Name)
		if name == target || strings.Contains(name, target) || strings.Contains(target, name) {
			return Result{Matched: true, Confidence: t.Confidence}
		}
	}
	return Result{}
}
