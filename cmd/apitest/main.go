package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// SundaysResponse is the response for /api/v1/sundays
type SundaysResponse struct {
	Table   string   `json:"table"`
	Sundays []string `json:"sundays"`
	Columns []string `json:"columns"`
	Default string   `json:"default"`
	Feasts  []string `json:"feasts"`
}

// MonthTable is one entry of /api/v1/months
type MonthTable struct {
	Name    string   `json:"name"`
	Sundays []string `json:"sundays"`
	Columns []string `json:"columns"`
	Members int      `json:"members"`
}

type Member struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Rate     int    `json:"attendance_rate"`
	Badge    struct {
		Tier   string `json:"tier"`
		Source string `json:"source"`
	} `json:"badge"`
}

type BulkResponse struct {
	Column    string `json:"column"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

type RefreshReport struct {
	DryRun    bool     `json:"dry_run"`
	Applied   []string `json:"applied"`
	Decisions []struct {
		FullName string `json:"full_name"`
		Previous string `json:"previous_badge"`
		New      string `json:"new_badge"`
		Changed  bool   `json:"changed"`
	} `json:"decisions"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	apiKey       string
	month        string
	year         int
	client       *http.Client
	verbose      bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL, apiKey, month string, year int, verbose bool) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		month:   month,
		year:    year,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		verbose: verbose,
	}
}

func (tr *TestRunner) table() string {
	return fmt.Sprintf("%s_%d", tr.month, tr.year)
}

func (tr *TestRunner) Run() {
	fmt.Println("==============================================")
	fmt.Println("TMHT Attendance API Test Suite")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Printf("Scratch month: %s\n", tr.table())
	fmt.Println()

	// Run test groups
	tr.testHealth()
	tr.testSundays()
	if !tr.testCreateMonth() {
		tr.printSummary()
		return
	}
	defer tr.cleanup()

	ids := tr.testMembers()
	if len(ids) == 2 {
		tr.testAttendance(ids)
		tr.testBadges()
	}
	tr.testEdgeCases()

	// Print summary
	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	resp, err := tr.do("GET", "/health", nil)
	if err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	var health HealthResponse
	if err := tr.parseDataAs(resp, &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess("Health check passed")
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testSundays() {
	tr.printSection("Sunday Calendar")

	resp, err := tr.do("GET", fmt.Sprintf("/api/v1/sundays?month=%s&year=%d", tr.month, tr.year), nil)
	if err != nil {
		tr.recordError("Sundays", err.Error())
		return
	}

	var sundays SundaysResponse
	if err := tr.parseDataAs(resp, &sundays); err != nil {
		tr.recordError("Sundays", err.Error())
		return
	}

	if n := len(sundays.Sundays); n < 4 || n > 5 {
		tr.recordError("Sundays", fmt.Sprintf("expected 4 or 5 Sundays, got %d", n))
		return
	}
	tr.recordSuccess(fmt.Sprintf("%s has %d Sundays: %s", sundays.Table, len(sundays.Sundays), strings.Join(sundays.Columns, ", ")))

	if tr.verbose {
		for i, feast := range sundays.Feasts {
			if feast != "" {
				fmt.Printf("    %s: %s\n", sundays.Sundays[i][:10], feast)
			}
		}
	}
}

func (tr *TestRunner) testCreateMonth() bool {
	tr.printSection("Month Table")

	resp, err := tr.do("POST", "/api/v1/months", map[string]any{"month": tr.month, "year": tr.year})
	if err != nil {
		tr.recordError("Create month", err.Error())
		return false
	}

	var month MonthTable
	if err := tr.parseDataAs(resp, &month); err != nil {
		tr.recordError("Create month", err.Error())
		return false
	}
	tr.recordSuccess(fmt.Sprintf("Created %s with columns %v", month.Name, month.Columns))

	if _, err := tr.do("POST", "/api/v1/months", map[string]any{"month": tr.month, "year": tr.year}); err != nil {
		tr.recordSuccess("Duplicate month rejected")
	} else {
		tr.recordError("Duplicate month", "expected an error")
	}
	return true
}

func (tr *TestRunner) testMembers() []string {
	tr.printSection("Members")

	var ids []string
	for _, body := range []map[string]any{
		{"full_name": "Smoke Test Ama", "gender": "female", "level": "SHS1", "phone": "020-000-0001"},
		{"full_name": "Smoke Test Kofi", "gender": "male", "level": "JHS3"},
	} {
		resp, err := tr.do("POST", tr.monthPath("/members"), body)
		if err != nil {
			tr.recordError("Create member", err.Error())
			continue
		}
		var m Member
		if err := tr.parseDataAs(resp, &m); err != nil {
			tr.recordError("Create member", err.Error())
			continue
		}
		ids = append(ids, m.ID)
		tr.recordSuccess(fmt.Sprintf("Created %s (%s, badge %s)", m.FullName, m.ID, m.Badge.Tier))
	}

	resp, err := tr.do("GET", tr.monthPath("/members?q=0200000001"), nil)
	if err != nil {
		tr.recordError("Search", err.Error())
		return ids
	}
	var found []Member
	if err := tr.parseDataAs(resp, &found); err != nil {
		tr.recordError("Search", err.Error())
	} else if len(found) != 1 {
		tr.recordError("Search", fmt.Sprintf("phone search found %d members, want 1", len(found)))
	} else {
		tr.recordSuccess("Phone search matched without separators")
	}

	return ids
}

func (tr *TestRunner) testAttendance(ids []string) {
	tr.printSection("Attendance")

	resp, err := tr.do("GET", tr.monthPath("/sundays"), nil)
	if err != nil {
		tr.recordError("Available Sundays", err.Error())
		return
	}
	var opts struct {
		Available []time.Time `json:"available"`
	}
	if err := tr.parseDataAs(resp, &opts); err != nil {
		tr.recordError("Available Sundays", err.Error())
		return
	}

	// Everyone present every week except the second member on the last Sunday
	for i, sunday := range opts.Available {
		date := sunday.Format("2006-01-02")
		resp, err := tr.do("POST", tr.monthPath("/attendance/bulk"), map[string]any{
			"member_ids": ids,
			"date":       date,
			"present":    true,
		})
		if err != nil {
			tr.recordError("Bulk mark "+date, err.Error())
			continue
		}
		var bulk BulkResponse
		if err := tr.parseDataAs(resp, &bulk); err != nil || bulk.Failed != 0 {
			tr.recordError("Bulk mark "+date, fmt.Sprintf("%+v %v", bulk, err))
			continue
		}
		tr.recordSuccess(fmt.Sprintf("Bulk marked %d present on %s", bulk.Succeeded, bulk.Column))

		if i == len(opts.Available)-1 {
			if _, err := tr.do("POST", tr.monthPath("/attendance"), map[string]any{
				"member_id": ids[1],
				"date":      date,
				"present":   false,
			}); err != nil {
				tr.recordError("Mark absent", err.Error())
			} else {
				tr.recordSuccess("Marked one member absent on " + date)
			}
		}
	}

	resp, err = tr.do("GET", tr.monthPath("/members/"+ids[1]), nil)
	if err != nil {
		tr.recordError("Rate", err.Error())
		return
	}
	var m Member
	if err := tr.parseDataAs(resp, &m); err != nil {
		tr.recordError("Rate", err.Error())
		return
	}
	tr.recordSuccess(fmt.Sprintf("%s attendance rate: %d%%", m.FullName, m.Rate))
}

func (tr *TestRunner) testBadges() {
	tr.printSection("Badges")

	resp, err := tr.do("POST", tr.monthPath("/badges/refresh?dry_run=true"), nil)
	if err != nil {
		tr.recordError("Dry run", err.Error())
		return
	}
	var report RefreshReport
	if err := tr.parseDataAs(resp, &report); err != nil {
		tr.recordError("Dry run", err.Error())
		return
	}
	if len(report.Applied) != 0 {
		tr.recordError("Dry run", "dry run applied changes")
	} else {
		tr.recordSuccess(fmt.Sprintf("Dry run decided %d badges", len(report.Decisions)))
	}

	resp, err = tr.do("POST", tr.monthPath("/badges/refresh"), nil)
	if err != nil {
		tr.recordError("Refresh", err.Error())
		return
	}
	if err := tr.parseDataAs(resp, &report); err != nil {
		tr.recordError("Refresh", err.Error())
		return
	}
	for _, d := range report.Decisions {
		if tr.verbose {
			fmt.Printf("    %s: %s -> %s\n", d.FullName, d.Previous, d.New)
		}
		if d.New != "regular" {
			tr.recordError("Refresh", fmt.Sprintf("%s got %s, want regular", d.FullName, d.New))
			return
		}
	}
	tr.recordSuccess(fmt.Sprintf("Refreshed badges, %d applied", len(report.Applied)))
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"Invalid month name", "GET", "/api/v1/sundays?month=Smarch&year=2025", nil, http.StatusBadRequest},
		{"Malformed table key", "GET", "/api/v1/months/smarch-2025/members", nil, http.StatusBadRequest},
		{"Unknown member", "GET", tr.monthPath("/members/00000000-0000-0000-0000-000000000000"), nil, http.StatusNotFound},
		{"Weekday mark", "POST", tr.monthPath("/attendance"), map[string]any{
			"member_id": "x", "date": fmt.Sprintf("%d-%02d-01", tr.year, monthNumber(tr.month)), "present": true,
		}, 0},
		{"Validation failure", "POST", tr.monthPath("/members"), map[string]any{"full_name": "X", "gender": "other"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		resp, err := tr.request(tt.method, tt.path, tt.body)
		if err != nil {
			tr.recordError(tt.name, err.Error())
			continue
		}
		resp.Body.Close()

		// Day 1 may itself be a Sunday, so the weekday case only needs a 4xx
		if tt.wantStatus == 0 {
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				tr.recordSuccess(fmt.Sprintf("%s returns %d", tt.name, resp.StatusCode))
			} else {
				tr.recordError(tt.name, fmt.Sprintf("status %d, want 4xx", resp.StatusCode))
			}
			continue
		}

		if resp.StatusCode == tt.wantStatus {
			tr.recordSuccess(fmt.Sprintf("%s returns %d", tt.name, tt.wantStatus))
		} else {
			tr.recordError(tt.name, fmt.Sprintf("status %d, want %d", resp.StatusCode, tt.wantStatus))
		}
	}
}

func (tr *TestRunner) cleanup() {
	resp, err := tr.request("DELETE", tr.monthPath(""), nil)
	if err != nil {
		fmt.Printf("  ! cleanup failed: %v\n", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		fmt.Printf("  ! cleanup returned %d; delete %s by hand\n", resp.StatusCode, tr.table())
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (tr *TestRunner) monthPath(suffix string) string {
	return "/api/v1/months/" + tr.table() + suffix
}

func (tr *TestRunner) request(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, tr.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tr.apiKey != "" {
		req.Header.Set("X-API-Key", tr.apiKey)
	}

	return tr.client.Do(req)
}

func (tr *TestRunner) do(method, path string, body any) (*APIResponse, error) {
	resp, err := tr.request(method, path, body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("invalid JSON response (status %d): %s", resp.StatusCode, string(data))
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = fmt.Sprintf("%s (%s)", apiResp.Error.Message, apiResp.Error.Code)
		}
		return nil, fmt.Errorf("API error: %s", errMsg)
	}

	return &apiResp, nil
}

func (tr *TestRunner) parseDataAs(resp *APIResponse, target any) error {
	return json.Unmarshal(resp.Data, target)
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
	}

	if tr.errorCount == 0 {
		fmt.Println("All tests passed! ✓")
	} else {
		fmt.Printf("Tests completed with %d failure(s)\n", tr.errorCount)
	}
}

func monthNumber(name string) int {
	t, err := time.Parse("January", name)
	if err != nil {
		return 1
	}
	return int(t.Month())
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	apiKey := flag.String("key", os.Getenv("API_KEY"), "API key (defaults to $API_KEY)")
	month := flag.String("month", "January", "Scratch month to create and delete")
	year := flag.Int("year", 2099, "Year of the scratch month")
	verbose := flag.Bool("v", false, "Verbose output (show feasts and badge decisions)")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, *apiKey, *month, *year, *verbose)
	runner.Run()

	// Exit with error code if tests failed
	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
