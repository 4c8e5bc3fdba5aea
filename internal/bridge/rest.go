package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	key, secret, base string
	rest              *resty.Client
}

func NewREST(key, secret, base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{key, secret, base, r}
}

// FetchHistory retrieves the sparse equity history points for the given
// account logins over the requested trailing window ("1m", "3m", "1y").
func (c *Client) FetchHistory(ctx context.Context, logins []string, rng string) ([]AccountHistory, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := ts

	path := "/api/v1/accounts/equity-history"

	var accounts []AccountHistory
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("api-key", c.key).
		SetHeader("nonce", nonce).
		SetHeader("timestamp", ts).
		SetHeader("sign", Sign(c.secret, nonce, c.key, ts)).
		SetQueryParams(map[string]string{
			"logins": strings.Join(logins, ","),
			"range":  rng,
		}).
		SetResult(&accounts).
		Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	return accounts, nil
}
