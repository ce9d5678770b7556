// Package github is the remote API client. It talks to GitHub or a GitHub
// Enterprise host through go-github and classifies every failure into an
// apierror.Kind before returning it.
package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"repodash/apierror"
	"repodash/logger"
)

const publicHost = "github.com"

// Client represents a GitHub API client
type Client struct {
	gh          *gh.Client
	webURL      string
	graphQLPath string
	now         func() time.Time

	mu           sync.Mutex
	rate         gh.Rate
	limitedUntil time.Time
}

// NewClient creates a client for host ("https://github.com" or an enterprise
// URL). Every request asks tokens for a credential; a nil source sends
// anonymous requests.
func NewClient(host string, tokens oauth2.TokenSource) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil || u.Host == "" {
		return nil, apierror.New(apierror.KindInvalidConfig, fmt.Errorf("invalid host %q", host))
	}

	var transport http.RoundTripper = http.DefaultTransport
	if tokens != nil {
		transport = &oauth2.Transport{Source: tokens, Base: transport}
	}
	httpClient := &http.Client{Timeout: 30 * time.Second, Transport: transport}

	client := gh.NewClient(httpClient)
	graphQLPath := "graphql"
	if u.Host != publicHost {
		base := u.Scheme + "://" + u.Host
		client, err = client.WithEnterpriseURLs(base+"/api/v3/", base+"/api/uploads/")
		if err != nil {
			return nil, apierror.New(apierror.KindInvalidConfig, err)
		}
		// enterprise serves GraphQL at /api/graphql, next to /api/v3/
		graphQLPath = "../graphql"
	}

	logger.Info("Initializing GitHub client", zap.String("base_url", client.BaseURL.String()))
	return &Client{
		gh:          client,
		webURL:      u.Scheme + "://" + u.Host,
		graphQLPath: graphQLPath,
		now:         time.Now,
	}, nil
}

// done records rate information from resp and classifies err.
func (c *Client) done(resp *gh.Response, err error) error {
	if resp != nil && resp.Rate.Limit > 0 {
		c.mu.Lock()
		c.rate = resp.Rate
		c.mu.Unlock()
	}
	if err == nil {
		return nil
	}
	classified := classify(err, c.now())
	if apierror.Is(classified, apierror.KindRateLimited) {
		if at := apierror.RetryAfterOf(classified); at != nil {
			c.mu.Lock()
			if at.After(c.limitedUntil) {
				c.limitedUntil = *at
			}
			c.mu.Unlock()
		}
	}
	return classified
}

// RateLimitMessage describes an active rate limit as of now, or returns ""
// when requests are not currently limited. It performs no I/O.
func (c *Client) RateLimitMessage(now time.Time) string {
	c.mu.Lock()
	rate := c.rate
	until := c.limitedUntil
	c.mu.Unlock()

	if rate.Limit > 0 && rate.Remaining == 0 && rate.Reset.Time.After(until) {
		until = rate.Reset.Time
	}
	if !until.After(now) {
		return ""
	}
	wait := until.Sub(now).Round(time.Minute)
	if wait < time.Minute {
		wait = time.Minute
	}
	return fmt.Sprintf("API rate limit reached. Resets at %s (in %s).", until.Format(time.Kitchen), wait)
}

func perPage(limit int) int {
	switch {
	case limit <= 0:
		return 30
	case limit > 100:
		return 100
	default:
		return limit
	}
}
