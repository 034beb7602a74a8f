package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Exit codes of the healthcheck command.
const (
	exitUnhealthy       = 1
	exitInvalidResponse = 2
)

type healthcheckOptions struct {
	url     string
	timeout time.Duration
	strict  bool
}

func newHealthcheckCmd() *cobra.Command {
	opts := &healthcheckOptions{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
A server running on the in-memory demo store reports "degraded", which
passes unless --strict is given.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy or unreachable
  2 - Invalid response from server`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := opts.url
			if url == "" {
				port := os.Getenv("SERVER_PORT")
				if port == "" {
					port = "8080"
				}
				url = fmt.Sprintf("http://localhost:%s/health", port)
			}

			result := performHealthCheck(cmd.Context(), url, opts.timeout, opts.strict)
			if result.Error != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Health check failed: %s\n", result.Error)
				os.Exit(result.exitCode())
			}
			if !result.IsHealthy {
				fmt.Fprintf(cmd.ErrOrStderr(), "Server status: %s (HTTP %d)\n", result.Status, result.HTTPStatus)
				os.Exit(exitUnhealthy)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server status: %s (%dms)\n", result.Status, result.LatencyMs)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/health)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "treat a degraded server as unhealthy")
	return cmd
}

// HealthResponse is the part of the /health body the check reads.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one named check of a HealthResponse.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResult summarizes one probe of the health endpoint.
type HealthCheckResult struct {
	IsHealthy  bool
	Status     string
	HTTPStatus int
	LatencyMs  int64
	Error      string

	invalidResponse bool
}

func (r HealthCheckResult) exitCode() int {
	if r.invalidResponse {
		return exitInvalidResponse
	}
	return exitUnhealthy
}

func performHealthCheck(ctx context.Context, url string, timeout time.Duration, strict bool) HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthCheckResult{Error: fmt.Sprintf("create request: %v", err)}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthCheckResult{Error: err.Error(), LatencyMs: time.Since(start).Milliseconds()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result := HealthCheckResult{
		HTTPStatus: resp.StatusCode,
		LatencyMs:  time.Since(start).Milliseconds(),
	}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("parse response: %v", err)
		result.invalidResponse = true
		return result
	}
	result.Status = body.Status

	switch {
	case resp.StatusCode != http.StatusOK:
		result.IsHealthy = false
	case body.Status == "healthy":
		result.IsHealthy = true
	case body.Status == "degraded":
		result.IsHealthy = !strict
	}
	return result
}
