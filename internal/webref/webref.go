// Package webref imports reference material for plan prompts. A
// user-supplied URL is screened by the security validator, fetched
// with a size cap, and distilled to readable text so the planner can
// ground its feature list in something concrete.
package webref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/mockbird/mockbird/internal/log"
)

const (
	// DefaultMaxBodyBytes caps how much of a page is read.
	DefaultMaxBodyBytes = 5 << 20

	// maxTextRunes caps the distilled text attached to a prompt.
	maxTextRunes = 6000

	userAgent = "mockbird/1.0"
)

var (
	// ErrEmptyURL is returned when no URL was given.
	ErrEmptyURL = errors.New("empty reference URL")

	// ErrBlockedURL is returned when the security policy rejects the
	// target.
	ErrBlockedURL = errors.New("reference URL blocked")

	// ErrFetchFailed is returned on a non-success HTTP status.
	ErrFetchFailed = errors.New("reference fetch failed")

	// ErrTooLarge is returned when the response exceeds the body cap.
	ErrTooLarge = errors.New("reference response too large")

	// ErrNoContent is returned when no readable text could be
	// extracted.
	ErrNoContent = errors.New("no readable content")
)

// Validator screens fetch targets and supplies the HTTP client that
// enforces the same policy at dial time.
type Validator interface {
	Validate(rawURL string) error
	Client() *http.Client
}

// Reference is the distilled content of one fetched page.
type Reference struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Text    string `json:"text"`
}

// Config carries the dependencies for a Fetcher.
type Config struct {
	Validator Validator
	Logger    log.Logger

	// MaxBodyBytes overrides DefaultMaxBodyBytes when positive.
	MaxBodyBytes int64
}

func (c Config) validate() error {
	if c.Validator == nil {
		return errors.New("validator is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Fetcher retrieves and distills reference pages.
type Fetcher struct {
	validator Validator
	client    *http.Client
	logger    log.Logger
	maxBytes  int64
}

// New creates a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid webref config: %w", err)
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &Fetcher{
		validator: cfg.Validator,
		client:    cfg.Validator.Client(),
		logger:    cfg.Logger,
		maxBytes:  maxBytes,
	}, nil
}

// Fetch retrieves one page and distills it into a Reference.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Reference, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Reference{}, ErrEmptyURL
	}

	if err := f.validator.Validate(rawURL); err != nil {
		f.logger.Warn("reference fetch blocked", "url", rawURL, "error", err)
		return Reference{}, fmt.Errorf("%w: %w", ErrBlockedURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Reference{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reference{}, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Reference{}, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return Reference{}, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, f.maxBytes)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Reference{}, fmt.Errorf("parse URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return Reference{}, fmt.Errorf("extract content: %w", err)
	}

	ref := Reference{
		URL:     rawURL,
		Title:   strings.TrimSpace(article.Title),
		Excerpt: collapseWhitespace(article.Excerpt),
		Text:    truncateRunes(collapseWhitespace(article.TextContent), maxTextRunes),
	}
	if ref.Text == "" {
		return Reference{}, ErrNoContent
	}

	f.logger.Info("reference fetched",
		"url", rawURL,
		"title", ref.Title,
		"text_chars", len(ref.Text))
	return ref, nil
}

// Digest formats references as one prompt context block.
func Digest(refs []Reference) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ref := range refs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		title := ref.Title
		if title == "" {
			title = ref.URL
		}
		fmt.Fprintf(&b, "Source: %s (%s)\n%s", title, ref.URL, ref.Text)
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
