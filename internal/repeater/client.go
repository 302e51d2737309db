package repeater

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// API is the full set of backend operations the client exposes.
// It is implemented by *Client and can be faked in tests.
type API interface {
	Reader
	Writer

	Login(ctx context.Context, creds Credentials) error
	Register(ctx context.Context, creds Credentials) (*User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	ExportDeck(ctx context.Context, deckID string) (Export, error)
}

// Reader covers the read-only collection endpoints.
type Reader interface {
	ListDecks(ctx context.Context, filter DeckFilter) ([]Deck, error)
	GetDeck(ctx context.Context, deckID string) (*Deck, error)
	ListCards(ctx context.Context, filter CardFilter) ([]Card, error)
	ReviewHistory(ctx context.Context, cardID string) ([]Review, error)
	UserStatistics(ctx context.Context) (*Statistics, error)
	DeckStatistics(ctx context.Context, deckID string) (*Statistics, error)
	ListCategories(ctx context.Context) ([]Category, error)
	Me(ctx context.Context) (*User, error)
}

// Writer covers the endpoints that change server state.
type Writer interface {
	CreateDeck(ctx context.Context, req DeckCreate) (*Deck, error)
	UpdateDeck(ctx context.Context, deckID string, req DeckUpdate) (*Deck, error)
	DeleteDeck(ctx context.Context, deckID string) error
	CreateCard(ctx context.Context, req CardCreate) (*Card, error)
	UpdateCard(ctx context.Context, cardID string, req CardUpdate) (*Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	SubmitReview(ctx context.Context, req ReviewCreate) (*Review, error)
}

// TokenStore persists session cookies between runs.
type TokenStore interface {
	LoadTokens(ctx context.Context) (Tokens, error)
	SaveTokens(ctx context.Context, tokens Tokens) error
	ClearTokens(ctx context.Context) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

const (
	defaultAPIURL    = "http://127.0.0.1:8000"
	defaultUserAgent = "repeater/0.1"
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 20
	defaultRateBurst = 10

	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	refreshPath = "/auth/refresh"
)

// Options configure a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; zero uses the default, negative disables
	RateBurst int
	Tokens    TokenStore
	Logger    *zap.Logger
	Transport http.RoundTripper
}

// Client talks to the Repeater HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       http.CookieJar
	userAgent string
	limiter   *rate.Limiter
	tokens    TokenStore
	logger    *zap.Logger
	refreshes singleflight.Group
}

// NewClient builds a Client and restores any persisted session cookies.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: opts.Transport,
		},
		jar:       jar,
		userAgent: defaultUserAgent,
		limiter:   newLimiter(opts.RateLimit, opts.RateBurst),
		tokens:    opts.Tokens,
		logger:    logger.Named("api"),
	}

	if c.tokens != nil {
		stored, err := c.tokens.LoadTokens(ctx)
		switch {
		case err == nil:
			c.setTokens(stored)
		case errors.Is(err, ErrNoTokens):
		default:
			c.logger.Warn("restore session failed", zap.Error(err))
		}
	}
	return c, nil
}

func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit < 0 {
		return nil
	}
	if limit == 0 {
		limit = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Authenticated reports whether an access or refresh cookie is present.
func (c *Client) Authenticated() bool {
	return !c.currentTokens().Empty()
}

// ListDecks retrieves the user's decks.
func (c *Client) ListDecks(ctx context.Context, filter DeckFilter) ([]Deck, error) {
	values := url.Values{}
	if filter.Archived {
		values.Set("archived", "true")
	}
	var payload []Deck
	if err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/decks", RawQuery: values.Encode()}, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetDeck retrieves a single deck.
func (c *Client) GetDeck(ctx context.Context, deckID string) (*Deck, error) {
	if strings.TrimSpace(deckID) == "" {
		return nil, fmt.Errorf("deck id required")
	}
	var payload Deck
	if err := c.do(ctx, http.MethodGet, "/decks/"+url.PathEscape(deckID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreateDeck creates a deck.
func (c *Client) CreateDeck(ctx context.Context, req DeckCreate) (*Deck, error) {
	var payload Deck
	if err := c.do(ctx, http.MethodPost, "/decks", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UpdateDeck applies a partial update to a deck.
func (c *Client) UpdateDeck(ctx context.Context, deckID string, req DeckUpdate) (*Deck, error) {
	var payload Deck
	if err := c.do(ctx, http.MethodPatch, "/decks/"+url.PathEscape(deckID), req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeleteDeck deletes a deck and its cards.
func (c *Client) DeleteDeck(ctx context.Context, deckID string) error {
	return c.do(ctx, http.MethodDelete, "/decks/"+url.PathEscape(deckID), nil, nil)
}

// ListCards retrieves cards matching the filter.
func (c *Client) ListCards(ctx context.Context, filter CardFilter) ([]Card, error) {
	values := url.Values{}
	if id := strings.TrimSpace(filter.DeckID); id != "" {
		values.Set("deck_id", id)
	}
	if filter.OnlyDue {
		values.Set("only_due", "true")
	}
	if filter.ExcludeArchived {
		values.Set("exclude_archived", "true")
	}
	if filter.ExcludePaused {
		values.Set("exclude_paused", "true")
	}
	var payload []Card
	if err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/cards", RawQuery: values.Encode()}, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateCard creates a card in a deck.
func (c *Client) CreateCard(ctx context.Context, req CardCreate) (*Card, error) {
	var payload Card
	if err := c.do(ctx, http.MethodPost, "/cards", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UpdateCard applies a partial update to a card.
func (c *Client) UpdateCard(ctx context.Context, cardID string, req CardUpdate) (*Card, error) {
	var payload Card
	if err := c.do(ctx, http.MethodPatch, "/cards/"+url.PathEscape(cardID), req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeleteCard deletes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(cardID), nil, nil)
}

// SubmitReview records a review outcome. Scheduling happens server-side.
func (c *Client) SubmitReview(ctx context.Context, req ReviewCreate) (*Review, error) {
	var payload Review
	if err := c.do(ctx, http.MethodPost, "/reviews", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ReviewHistory retrieves the reviews of a card, most recent first.
func (c *Client) ReviewHistory(ctx context.Context, cardID string) ([]Review, error) {
	if strings.TrimSpace(cardID) == "" {
		return nil, fmt.Errorf("card id required")
	}
	var payload []Review
	if err := c.do(ctx, http.MethodGet, "/reviews/"+url.PathEscape(cardID), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// UserStatistics retrieves statistics across all decks.
func (c *Client) UserStatistics(ctx context.Context) (*Statistics, error) {
	var payload Statistics
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeckStatistics retrieves statistics for one deck.
func (c *Client) DeckStatistics(ctx context.Context, deckID string) (*Statistics, error) {
	var payload Statistics
	if err := c.do(ctx, http.MethodGet, "/stats/"+url.PathEscape(deckID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListCategories retrieves the user's categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var payload []Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Me retrieves the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var payload User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Login authenticates and persists the issued cookies.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, nil); err != nil {
		return err
	}
	return c.persistTokens(ctx)
}

// Register creates an account. The backend does not sign the user in.
func (c *Client) Register(ctx context.Context, creds Credentials) (*User, error) {
	var payload User
	if err := c.do(ctx, http.MethodPost, "/auth/register", creds, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Logout ends the session server-side and always clears local cookies.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.clearSession(ctx)
	if err != nil && !errors.Is(err, ErrUnauthorized) {
		return err
	}
	return nil
}

// Refresh exchanges the refresh cookie for a new access cookie. Concurrent
// callers share one request.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshes.Do(refreshPath, func() (any, error) {
		if err := c.send(ctx, http.MethodPost, &url.URL{Path: refreshPath}, nil, nil, false); err != nil {
			return nil, err
		}
		return nil, c.persistTokens(ctx)
	})
	return err
}

// ExportDeck downloads a deck export file.
func (c *Client) ExportDeck(ctx context.Context, deckID string) (Export, error) {
	if strings.TrimSpace(deckID) == "" {
		return Export{}, fmt.Errorf("deck id required")
	}
	var export Export
	rel := &url.URL{Path: "/decks/" + url.PathEscape(deckID) + "/export"}
	err := c.sendRetrying(ctx, http.MethodGet, rel, nil, func(resp *http.Response) error {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read export: %w", err)
		}
		export.Data = data
		export.Filename = filenameFromDisposition(resp.Header.Get("Content-Disposition"), deckID)
		return nil
	})
	if err != nil {
		return Export{}, err
	}
	return export, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}
	return c.sendRetrying(ctx, method, rel, payload, func(resp *http.Response) error {
		if dest == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// sendRetrying sends a request and, on a 401, refreshes the session once and
// retries. A failed refresh clears the session.
func (c *Client) sendRetrying(ctx context.Context, method string, rel *url.URL, payload []byte, handle func(*http.Response) error) error {
	err := c.send(ctx, method, rel, payload, handle, true)
	if !errors.Is(err, errNeedsRefresh) {
		return err
	}
	if refreshErr := c.Refresh(ctx); refreshErr != nil {
		c.logger.Info("session refresh failed", zap.String("path", rel.Path), zap.Error(refreshErr))
		c.clearSession(ctx)
		return fmt.Errorf("%w: %v", ErrUnauthorized, refreshErr)
	}
	err = c.send(ctx, method, rel, payload, handle, false)
	if errors.Is(err, ErrUnauthorized) {
		c.clearSession(ctx)
	}
	return err
}

var errNeedsRefresh = errors.New("access token rejected")

func (c *Client) send(ctx context.Context, method string, rel *url.URL, payload []byte, handle func(*http.Response) error, mayRefresh bool) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + rel.Path
	reqURL.RawQuery = rel.RawQuery
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", rel.Path),
			zap.String("request_id", requestID), zap.Error(err))
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", rel.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if mayRefresh && !strings.HasPrefix(rel.Path, "/auth/") && c.hasRefreshToken() {
			return errNeedsRefresh
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, readDetail(resp))
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			Method: method,
			Path:   rel.Path,
			Status: resp.StatusCode,
			Detail: readDetail(resp),
		}
	}
	if handle == nil {
		return nil
	}
	return handle(resp)
}

func (c *Client) hasRefreshToken() bool {
	return c.currentTokens().RefreshToken != ""
}

func (c *Client) currentTokens() Tokens {
	var tokens Tokens
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		switch cookie.Name {
		case accessCookie:
			tokens.AccessToken = cookie.Value
		case refreshCookie:
			tokens.RefreshToken = cookie.Value
		}
	}
	return tokens
}

func (c *Client) setTokens(tokens Tokens) {
	var cookies []*http.Cookie
	if tokens.AccessToken != "" {
		cookies = append(cookies, &http.Cookie{Name: accessCookie, Value: tokens.AccessToken, Path: "/"})
	}
	if tokens.RefreshToken != "" {
		cookies = append(cookies, &http.Cookie{Name: refreshCookie, Value: tokens.RefreshToken, Path: "/"})
	}
	if len(cookies) > 0 {
		c.jar.SetCookies(c.baseURL, cookies)
	}
}

func (c *Client) persistTokens(ctx context.Context) error {
	if c.tokens == nil {
		return nil
	}
	tokens := c.currentTokens()
	if tokens.Empty() {
		return nil
	}
	if err := c.tokens.SaveTokens(ctx, tokens); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *Client) clearSession(ctx context.Context) {
	expired := []*http.Cookie{
		{Name: accessCookie, Value: "", Path: "/", MaxAge: -1},
		{Name: refreshCookie, Value: "", Path: "/", MaxAge: -1},
	}
	c.jar.SetCookies(c.baseURL, expired)
	if c.tokens == nil {
		return
	}
	if err := c.tokens.ClearTokens(ctx); err != nil && !errors.Is(err, ErrNoTokens) {
		c.logger.Warn("clear session failed", zap.Error(err))
	}
}

func filenameFromDisposition(header, deckID string) string {
	fallback := "deck-" + deckID + ".json"
	if header == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return fallback
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fallback
	}
	return name
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", apiURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func readDetail(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return http.StatusText(resp.StatusCode)
	}
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var detail string
			if err := json.Unmarshal(payload.Detail, &detail); err == nil {
				return detail
			}
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}

// statusLabel is used by APIError.Error.
func statusLabel(code int) string {
	if text := http.StatusText(code); text != "" {
		return strconv.Itoa(code) + " " + text
	}
	return strconv.Itoa(code)
}
