// Package wikipedia fetches article wikitext from the English Wikipedia
// Parse API.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIURL = "https://en.wikipedia.org/w/api.php"

// Wikimedia requires a descriptive User-Agent for API requests.
// https://meta.wikimedia.org/wiki/User-Agent_policy
const userAgent = "Refdesk/1.0 (https://github.com/holmgren/refdesk; wikitext reference manager)"

// Characters that can never appear in a valid article title.
const invalidTitleChars = "#<>[]|{}"

var (
	ErrInvalidArticleTitle = errors.New("invalid article title")
	ErrArticleNotFound     = errors.New("article not found")
)

// Client is a minimal MediaWiki Parse API wrapper.
type Client struct {
	apiURL string
	client *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: timeout},
	}
}

type parseResponse struct {
	Parse struct {
		Title    string `json:"title"`
		Wikitext string `json:"wikitext"`
	} `json:"parse"`
	Error struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// FetchArticle retrieves the raw wikitext source of an article.
// Returns ErrInvalidArticleTitle for empty or malformed titles and
// ErrArticleNotFound when the article does not exist.
func (c *Client) FetchArticle(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("wikipedia: empty title: %w", ErrInvalidArticleTitle)
	}
	if strings.ContainsAny(title, invalidTitleChars) {
		return "", fmt.Errorf("wikipedia: title %q contains forbidden characters: %w", title, ErrInvalidArticleTitle)
	}

	params := url.Values{
		"action":        {"parse"},
		"page":          {title},
		"prop":          {"wikitext"},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("wikipedia: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia: unexpected status %s", resp.Status)
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("wikipedia: decode response: %w", err)
	}

	if parsed.Error.Code != "" {
		if parsed.Error.Code == "missingtitle" {
			return "", fmt.Errorf("wikipedia: %q: %w", title, ErrArticleNotFound)
		}
		return "", fmt.Errorf("wikipedia: api error %s: %s", parsed.Error.Code, parsed.Error.Info)
	}
	if parsed.Parse.Wikitext == "" {
		return "", fmt.Errorf("wikipedia: %q: empty wikitext in response", title)
	}

	return parsed.Parse.Wikitext, nil
}
