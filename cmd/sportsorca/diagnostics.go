package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sportsorca/nba-proxy/internal/config"
	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/gateway"
	"github.com/sportsorca/nba-proxy/pkg/logging"
	"github.com/sportsorca/nba-proxy/pkg/ratelimit"
)

var (
	errNoAPIKey     = errors.New("no API key: set --api-key, SPORTSORCA_API_KEY or API_KEY (a .env file works too)")
	errHealthFailed = errors.New("some API endpoints are experiencing issues")
	errInvalidKey   = errors.New("API key validation failed")
)

// healthEndpoints are probed in order with per_page=1.
var healthEndpoints = []struct{ name, path string }{
	{"Games", "/games"},
	{"Teams", "/teams"},
	{"Players", "/players"},
}

// upstreamSettings resolves the upstream root and key from flags, then the
// server's own environment (.env included).
func upstreamSettings(v *viper.Viper) (baseURL, apiKey string, err error) {
	env := config.Load()

	apiKey = v.GetString("api-key")
	if apiKey == "" {
		apiKey = env.APIKey
	}
	baseURL = v.GetString("upstream-url")
	if baseURL == "" {
		baseURL = env.BaseURL
	}
	if apiKey == "" {
		return "", "", errNoAPIKey
	}
	return strings.TrimRight(baseURL, "/"), apiKey, nil
}

type checkResult struct {
	name      string
	status    int
	latency   time.Duration
	limit     int
	remaining int
	err       error
}

func checkEndpoint(ctx context.Context, fetcher *client.Fetcher, baseURL, apiKey, name, path string, retries int, delay time.Duration) checkResult {
	res := checkResult{name: name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path+"?per_page=1", nil)
	if err != nil {
		res.err = err
		return res
	}
	req.Header.Set("Authorization", apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", client.UserAgent)

	start := time.Now()
	resp, err := fetcher.Fetch(ctx, req, retries, delay)
	res.latency = time.Since(start)
	if err != nil {
		res.err = err
		res.status = client.StatusCode(err)
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.status = resp.StatusCode
	res.limit, _ = strconv.Atoi(resp.Header.Get(ratelimit.HeaderLimit))
	res.remaining, _ = strconv.Atoi(resp.Header.Get(ratelimit.HeaderRemaining))
	return res
}

// explain turns a failed check into advice.
func explain(err error) string {
	upErr, ok := client.AsUpstream(err)
	switch {
	case !ok:
		return err.Error()
	case upErr.Class == client.ErrorClassRateLimit:
		retryAfter := "unknown"
		if upErr.HasRetryAfter {
			retryAfter = strconv.Itoa(int(upErr.RetryAfter.Seconds()))
		}
		return "Rate limit exceeded. Retry after: " + retryAfter + " seconds"
	case upErr.Class == client.ErrorClassUnauthorized:
		return "Authentication error. Your API key may be invalid."
	case upErr.Class == client.ErrorClassNetwork:
		return "No response received from server"
	default:
		return upErr.Message
	}
}

func newHealthCmd(v *viper.Viper) *cobra.Command {
	var (
		retries int
		delay   time.Duration
		spacing time.Duration
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the upstream API endpoints and quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			baseURL, apiKey, err := upstreamSettings(v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			fetcher := client.NewFetcher(&http.Client{Timeout: timeout}, logging.NewLogger("health-check"))

			fmt.Fprintf(out, "=== Upstream API Health Check (%s) ===\n", baseURL)

			healthy := true
			for i, ep := range healthEndpoints {
				if i > 0 {
					if err := client.Sleep(ctx, spacing); err != nil {
						return err
					}
				}

				res := checkEndpoint(ctx, fetcher, baseURL, apiKey, ep.name, ep.path, retries, delay)
				if res.err != nil {
					healthy = false
					if res.status > 0 {
						fmt.Fprintf(out, "✗ %s: failed with status %d\n", res.name, res.status)
					} else {
						fmt.Fprintf(out, "✗ %s: failed\n", res.name)
					}
					fmt.Fprintf(out, "  %s\n", explain(res.err))
					continue
				}

				fmt.Fprintf(out, "✓ %s: status %d, %s\n", res.name, res.status, res.latency.Round(time.Millisecond))
				fmt.Fprintf(out, "  %s\n", quotaLine(res.limit, res.remaining))
			}

			if !healthy {
				fmt.Fprintln(out, "\n✗ Some API endpoints are experiencing issues")
				return errHealthFailed
			}
			fmt.Fprintln(out, "\n✓ All API endpoints are operational")
			return nil
		},
	}
	cmd.Flags().IntVar(&retries, "retries", 2, "retries after a rate-limit response")
	cmd.Flags().DurationVar(&delay, "retry-delay", 2*time.Second, "initial backoff delay")
	cmd.Flags().DurationVar(&spacing, "spacing", time.Second, "pause between endpoints")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	return cmd
}

func newValidateKeyCmd(v *viper.Viper) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "validate-key",
		Short: "Check that the upstream API key is accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			baseURL, apiKey, err := upstreamSettings(v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fetcher := client.NewFetcher(&http.Client{Timeout: timeout}, logging.NewLogger("validate-key"))

			fmt.Fprintln(out, "Testing API key...")
			res := checkEndpoint(cmd.Context(), fetcher, baseURL, apiKey, "Games", "/games", 0, 0)
			if res.err != nil {
				fmt.Fprintf(out, "✗ API key validation failed: %s\n", explain(res.err))
				fmt.Fprintln(out, "\nSuggestions:")
				fmt.Fprintln(out, "1. Check your API key for typos")
				fmt.Fprintln(out, "2. Get a new API key from https://www.balldontlie.io/")
				fmt.Fprintln(out, "3. Update API_KEY in your .env file")
				return errInvalidKey
			}

			fmt.Fprintln(out, "✓ API key is valid!")
			fmt.Fprintf(out, "  %s\n", quotaLine(res.limit, res.remaining))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func newPingCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				status, err := gw.Health(ctx)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (upstream %s, %s)\n",
					status.Message, status.APIURL, status.Timestamp.Local().Format(time.RFC1123))
				return nil
			})
		},
	}
}
