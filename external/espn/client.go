package espn

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/allanhy/tallysight-sub000/internal/platform/resilience"
	"github.com/allanhy/tallysight-sub000/internal/usecase"
	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL     = "https://site.api.espn.com/apis/site/v2/sports"
	defaultTimeout     = 15 * time.Second
	maxResponseBodyLen = 8 << 20
)

var errESPNTransient = crerr.New("espn transient failure")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches scoreboards from the ESPN site API. It never retries.
type Client struct {
	httpClient *fasthttp.Client
	baseURL    string
	timeout    time.Duration
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     resilience.SingleFlight
	validate   *validator.Validate
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "tallysight-sync",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseBodyLen,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		logger:     logger.Named("espn"),
		breaker:    resilience.NewCircuitBreakerFromConfig("espn", cfg.CircuitBreaker),
		validate:   validator.New(),
	}
}

// Breaker exposes the circuit breaker so callers can observe state transitions. It is nil when disabled.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// ScoreboardURL builds the scoreboard URL for a sport, optionally scoped to a YYYYMMDD date.
func (c *Client) ScoreboardURL(sport, date string) (string, error) {
	path, ok := SportPath(sport)
	if !ok {
		return "", fmt.Errorf("%w: unsupported sport %q, expected one of %s", usecase.ErrInvalidInput, sport, strings.Join(SupportedSports(), ", "))
	}

	fullURL := c.baseURL + "/" + path + "/scoreboard"
	if date = strings.TrimSpace(date); date != "" {
		fullURL += "?" + url.Values{"dates": []string{date}}.Encode()
	}
	return fullURL, nil
}

// FetchScoreboard returns every event on the sport's current scoreboard.
// Upstream, transport and decode problems surface as *usecase.FetchFailure.
func (c *Client) FetchScoreboard(ctx context.Context, sport, date string) ([]game.ExternalGame, error) {
	fullURL, err := c.ScoreboardURL(sport, date)
	if err != nil {
		return nil, err
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("espn.sport", strings.ToUpper(strings.TrimSpace(sport))),
			attribute.String("espn.url", fullURL),
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, &usecase.FetchFailure{Message: "request aborted", Err: err}
	}

	// The shared request ignores the leader's cancellation and deadline so joined
	// callers are not failed by it. c.timeout still bounds the request.
	sharedCtx := context.WithoutCancel(ctx)
	out, err, shared := c.flight.Do(fullURL, func() (any, error) {
		var events []game.ExternalGame
		execErr := c.breaker.Execute(func() error {
			raw, reqErr := c.executeRequest(sharedCtx, fullURL)
			if reqErr != nil {
				return reqErr
			}
			decoded, decodeErr := c.decodeScoreboard(raw)
			if decodeErr != nil {
				return decodeErr
			}
			events = decoded
			return nil
		}, isCircuitFailure)
		if crerr.Is(execErr, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(sharedCtx, "espn circuit breaker rejected request", "state", c.breaker.State())
			return nil, &usecase.FetchFailure{
				Message: "sport data provider is temporarily unavailable",
				Err:     fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, execErr),
			}
		}
		return events, execErr
	})
	if err != nil {
		c.logger.WarnContext(ctx, "espn scoreboard fetch failed", "url", fullURL, "shared", shared, "error", err)
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &usecase.FetchFailure{Message: "request aborted", Err: ctxErr}
	}

	events, ok := out.([]game.ExternalGame)
	if !ok {
		return nil, &usecase.FetchFailure{Message: fmt.Sprintf("unexpected scoreboard payload type %T", out)}
	}
	return append([]game.ExternalGame(nil), events...), nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		msg := err.Error()
		if crerr.Is(err, fasthttp.ErrTimeout) {
			msg = fmt.Sprintf("request timed out after %s", c.timeout)
		}
		return nil, &usecase.FetchFailure{Message: msg, Err: crerr.Mark(err, errESPNTransient)}
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		failure := &usecase.FetchFailure{StatusCode: status}
		if isTransientStatus(status) {
			failure.Err = crerr.Mark(crerr.Newf("espn status=%d body=%s", status, abbreviateBody(resp.Body())), errESPNTransient)
		}
		return nil, failure
	}

	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) decodeScoreboard(raw []byte) ([]game.ExternalGame, error) {
	var envelope scoreboardEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, &usecase.FetchFailure{Message: "decode scoreboard payload: " + err.Error(), Err: err}
	}
	if envelope.Events == nil {
		return nil, &usecase.FetchFailure{Message: "decode scoreboard payload: events field is missing"}
	}

	events := make([]game.ExternalGame, 0, len(*envelope.Events))
	for i, item := range *envelope.Events {
		if err := c.validate.Struct(item); err != nil {
			return nil, &usecase.FetchFailure{Message: fmt.Sprintf("validate scoreboard event %d: %v", i, err), Err: err}
		}
		converted, err := item.toExternalGame()
		if err != nil {
			return nil, &usecase.FetchFailure{Message: "validate scoreboard payload: " + err.Error(), Err: err}
		}
		events = append(events, converted)
	}
	return events, nil
}
