package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"database"`
	} `json:"services"`
}

func fail(format string, args ...interface{}) {
	fmt.Println(color.RedString("✗ "+format, args...))
	os.Exit(1)
}

func main() {
	url := "http://localhost:8080/health"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("Probing %s\n", url)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fail("cannot reach health endpoint: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fail("cannot read response: %v", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fail("invalid JSON response (%s): %v", resp.Status, err)
	}

	if health.Services.Database.Status != "ok" {
		fail("database is %q: %s", health.Services.Database.Status, health.Services.Database.Error)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		fail("service is %q (%s)", health.Status, resp.Status)
	}

	fmt.Println(color.GreenString("✓ healthy"))
	fmt.Printf("  version:   %s\n", health.Version)
	fmt.Printf("  database:  %s\n", health.Services.Database.Status)
	fmt.Printf("  timestamp: %s\n", health.Timestamp)
}
