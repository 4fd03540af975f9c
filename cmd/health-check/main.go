// Package main provides a standalone health probe for the Platewise engine.
// Container HEALTHCHECK directives and monitoring scripts run it against the
// ops server and act on the exit code.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/platewise/v2/pkg/healthcheck"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

// Config holds command-line configuration
type Config struct {
	URL            string
	Timeout        time.Duration
	Verbose        bool
	OutputFormat   string
	ExpectedStatus string
	RetryCount     int
	RetryDelay     time.Duration
}

// probeResponse mirrors the wire format of the ops server's health report.
// The healthcheck package marshals durations as milliseconds and carries no
// unmarshal side, so the probe keeps its own decode types.
type probeResponse struct {
	Status        healthcheck.Status `json:"status"`
	Version       string             `json:"version"`
	Timestamp     time.Time          `json:"timestamp"`
	Checks        []probeCheck       `json:"checks"`
	TotalDuration float64            `json:"total_duration_ms"`
}

type probeCheck struct {
	Name     string             `json:"name"`
	Status   healthcheck.Status `json:"status"`
	Message  string             `json:"message,omitempty"`
	Duration float64            `json:"duration_ms"`
	Metadata interface{}        `json:"metadata,omitempty"`
}

func main() {
	config := parseFlags()
	os.Exit(runHealthCheck(config))
}

// parseFlags parses command-line flags
func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.URL, "url", "", "Health check endpoint URL (e.g., http://localhost:9090/health)")
	flag.DurationVar(&config.Timeout, "timeout", 10*time.Second, "Request timeout")
	flag.BoolVar(&config.Verbose, "verbose", false, "Verbose output")
	flag.StringVar(&config.OutputFormat, "format", "text", "Output format: text, json, compact")
	flag.StringVar(&config.ExpectedStatus, "expect", "healthy", "Expected status: healthy, degraded, unhealthy")
	flag.IntVar(&config.RetryCount, "retry", 0, "Number of retries on failure")
	flag.DurationVar(&config.RetryDelay, "retry-delay", 1*time.Second, "Delay between retries")

	flag.Parse()

	if config.URL == "" {
		config.URL = detectHealthCheckURL()
	}

	return config
}

// detectHealthCheckURL attempts to detect the health check URL
func detectHealthCheckURL() string {
	if url := os.Getenv("HEALTH_CHECK_URL"); url != "" {
		return url
	}

	// The ops server owns the health endpoints, so probe its usual addresses
	commonURLs := []string{
		"http://localhost:9090/health",
		"http://127.0.0.1:9090/health",
	}

	for _, url := range commonURLs {
		if checkURLReachable(url) {
			return url
		}
	}

	return "http://localhost:9090/health"
}

// checkURLReachable checks if a URL is reachable
func checkURLReachable(url string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runHealthCheck performs the health check via HTTP with retries
func runHealthCheck(config Config) int {
	client := &http.Client{Timeout: config.Timeout}

	var lastError error
	for attempt := 0; attempt <= config.RetryCount; attempt++ {
		if attempt > 0 {
			if config.Verbose {
				fmt.Printf("Retrying in %v... (attempt %d/%d)\n", config.RetryDelay, attempt, config.RetryCount)
			}
			time.Sleep(config.RetryDelay)
		}

		resp, err := client.Get(config.URL)
		if err != nil {
			lastError = err
			if config.Verbose {
				fmt.Printf("Request failed: %v\n", err)
			}
			continue
		}

		return handleResponse(resp, config)
	}

	fmt.Printf("Health check failed after %d attempts: %v\n", config.RetryCount+1, lastError)
	return exitCodeError
}

// handleResponse decodes the HTTP response and reports the result
func handleResponse(resp *http.Response, config Config) int {
	defer resp.Body.Close()

	var response probeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		return exitCodeError
	}

	return outputResult(response, config)
}

// outputResult outputs the result based on the configured format
func outputResult(response probeResponse, config Config) int {
	switch config.OutputFormat {
	case "json":
		data, _ := json.MarshalIndent(response, "", "  ")
		fmt.Println(string(data))
	case "compact":
		data, _ := json.Marshal(response)
		fmt.Println(string(data))
	default: // text
		outputText(response, config.Verbose)
	}

	expectedStatus := healthcheck.Status(config.ExpectedStatus)
	if response.Status == expectedStatus {
		return exitCodeSuccess
	}

	if response.Status == healthcheck.StatusUnhealthy {
		return exitCodeFailure
	}

	// Degraded counts as a failure when the caller expects healthy
	if response.Status == healthcheck.StatusDegraded && expectedStatus == healthcheck.StatusHealthy {
		return exitCodeFailure
	}

	return exitCodeSuccess
}

// outputText outputs the result in text format
func outputText(response probeResponse, verbose bool) {
	fmt.Printf("Status: %s\n", response.Status)
	fmt.Printf("Version: %s\n", response.Version)
	fmt.Printf("Timestamp: %s\n", response.Timestamp.Format(time.RFC3339))
	fmt.Printf("Duration: %.0fms\n", response.TotalDuration)

	if verbose && len(response.Checks) > 0 {
		fmt.Println("\nChecks:")
		for _, check := range response.Checks {
			fmt.Printf("  %s: %s", check.Name, check.Status)
			if check.Message != "" {
				fmt.Printf(" (%s)", check.Message)
			}
			fmt.Printf(" [%.0fms]\n", check.Duration)
		}
	}
}
