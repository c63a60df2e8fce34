package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/user"
	"github.com/allanhy/tallysight-sub000/internal/platform/cache"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/allanhy/tallysight-sub000/internal/platform/resilience"
	"github.com/allanhy/tallysight-sub000/internal/usecase"
	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	defaultIntrospectPath = "/v1/auth/introspect"
	defaultTimeout        = 5 * time.Second
	defaultCacheTTL       = 30 * time.Second
)

var errIdentityTransient = crerr.New("identity provider transient failure")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	IntrospectPath string
	AdminKey       string
	Timeout        time.Duration
	CacheTTL       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client verifies bearer tokens against the identity provider's introspection endpoint.
type Client struct {
	httpClient    *fasthttp.Client
	introspectURL string
	adminKey      string
	timeout       time.Duration
	logger        *logging.Logger
	breaker       *resilience.CircuitBreaker
	principals    *cache.Store[user.Principal]
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
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:         "tallysight-identity",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}
	}
	path := cfg.IntrospectPath
	if strings.TrimSpace(path) == "" {
		path = defaultIntrospectPath
	}

	return &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(cfg.BaseURL, path),
		adminKey:      strings.TrimSpace(cfg.AdminKey),
		timeout:       timeout,
		logger:        logger.Named("identity"),
		breaker:       resilience.NewCircuitBreakerFromConfig("identity", cfg.CircuitBreaker),
		principals:    cache.NewStore[user.Principal](ttl),
	}
}

func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// VerifyAccessToken resolves token to a principal. Rejected or inactive tokens
// yield usecase.ErrUnauthorized; provider trouble yields usecase.ErrDependencyUnavailable.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	return c.principals.GetOrLoad(ctx, hashToken(token), func(ctx context.Context) (user.Principal, error) {
		var principal user.Principal
		err := c.breaker.Execute(func() error {
			var introspectErr error
			principal, introspectErr = c.introspect(ctx, token)
			return introspectErr
		}, isCircuitFailure)
		if crerr.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "identity circuit breaker rejected request", "state", c.breaker.State())
			return user.Principal{}, fmt.Errorf("%w: identity provider circuit open", usecase.ErrDependencyUnavailable)
		}
		return principal, err
	})
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	if err := ctx.Err(); err != nil {
		return user.Principal{}, err
	}

	body := bytebufferpool.Get()
	defer bytebufferpool.Put(body)
	if err := sonic.ConfigDefault.NewEncoder(body).Encode(introspectRequest{Token: token}); err != nil {
		return user.Principal{}, fmt.Errorf("marshal introspect request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.introspectURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.adminKey != "" {
		req.Header.Set("x-admin-key", c.adminKey)
	}
	req.SetBody(body.B)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return user.Principal{}, crerr.Mark(fmt.Errorf("%w: request introspection: %v", usecase.ErrDependencyUnavailable, err), errIdentityTransient)
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusUnauthorized:
		return user.Principal{}, fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
	case status == fasthttp.StatusForbidden:
		c.logger.WarnContext(ctx, "identity provider rejected admin key", "status_code", status)
		return user.Principal{}, fmt.Errorf("%w: introspection forbidden", usecase.ErrDependencyUnavailable)
	case status >= fasthttp.StatusInternalServerError || status == fasthttp.StatusTooManyRequests:
		return user.Principal{}, crerr.Mark(fmt.Errorf("%w: identity status=%d", usecase.ErrDependencyUnavailable, status), errIdentityTransient)
	case status != fasthttp.StatusOK:
		c.logger.WarnContext(ctx, "identity introspection non-200", "status_code", status)
		return user.Principal{}, fmt.Errorf("%w: introspection failed with status %d", usecase.ErrDependencyUnavailable, status)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(resp.Body(), &decoded); err != nil {
		return user.Principal{}, fmt.Errorf("%w: unmarshal introspect response: %v", usecase.ErrDependencyUnavailable, err)
	}
	if !decoded.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, fmt.Errorf("%w: introspect response has empty user_id", usecase.ErrDependencyUnavailable)
	}

	return user.Principal{
		UserID: decoded.UserID,
		Email:  decoded.Email,
		Roles:  decoded.Roles,
	}, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool     `json:"active"`
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}
