package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/attendancetracker/internal/attendance"
)

const table = "attendance"

var _ attendance.Repository = &Client{}

// Client talks to the attendance table through the Supabase REST API.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(logger *slog.Logger, cfg Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + table,
		apiKey:     cfg.AnonKey,
	}, nil
}

func (c *Client) ListAll(ctx context.Context) ([]attendance.Record, error) {
	values := url.Values{}
	values.Set("select", "*")
	values.Set("order", "date.desc")

	rows := []row{}
	if err := c.do(ctx, "list attendance", http.MethodGet, values, nil, &rows); err != nil {
		return nil, err
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		record, err := r.record()
		if err != nil {
			return nil, attendance.OperationFailed("list attendance", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) Upsert(ctx context.Context, date attendance.Date, subject string, status attendance.Status) (attendance.Record, error) {
	values := url.Values{}
	values.Set("select", "id")
	values.Set("date", "eq."+date.String())
	values.Set("subject", "eq."+subject)

	existing := []row{}
	if err := c.do(ctx, "find attendance", http.MethodGet, values, nil, &existing); err != nil {
		return attendance.Record{}, err
	}

	saved := []row{}
	if len(existing) > 0 {
		values := url.Values{}
		values.Set("id", "eq."+string(existing[0].ID))
		body := updateRow{Status: status, UpdatedAt: time.Now().UTC()}
		if err := c.do(ctx, "update attendance", http.MethodPatch, values, body, &saved); err != nil {
			return attendance.Record{}, err
		}
	} else {
		body := []insertRow{{Date: date, Subject: subject, Status: status}}
		if err := c.do(ctx, "insert attendance", http.MethodPost, nil, body, &saved); err != nil {
			return attendance.Record{}, err
		}
	}
	if len(saved) == 0 {
		return attendance.Record{}, attendance.OperationFailed("upsert attendance", fmt.Errorf("no row returned"))
	}
	record, err := saved[0].record()
	if err != nil {
		return attendance.Record{}, attendance.OperationFailed("upsert attendance", err)
	}
	return record, nil
}

func (c *Client) DeleteOne(ctx context.Context, date attendance.Date, subject string) error {
	values := url.Values{}
	values.Set("date", "eq."+date.String())
	values.Set("subject", "eq."+subject)
	return c.do(ctx, "delete attendance", http.MethodDelete, values, nil, nil)
}

func (c *Client) DeleteAllForDate(ctx context.Context, date attendance.Date) error {
	values := url.Values{}
	values.Set("date", "eq."+date.String())
	return c.do(ctx, "delete attendance for date", http.MethodDelete, values, nil, nil)
}

func (c *Client) do(ctx context.Context, op string, method string, values url.Values, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return attendance.OperationFailed(op, fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL
	if len(values) > 0 {
		target += "?" + values.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return attendance.OperationFailed(op, fmt.Errorf("failed to create request: %w", err))
	}
	request.Header.Set("apikey", c.apiKey)
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Accept", "application/json")
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method != http.MethodGet {
		request.Header.Set("Prefer", "return=representation")
	}

	c.logger.Debug("supabase request", "method", request.Method, "url", request.URL.String())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return attendance.Unavailable(op, fmt.Errorf("failed to send request: %w", err))
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		apiErr := apiError{}
		data, _ := io.ReadAll(response.Body)
		if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("%s: %s", response.Status, strings.TrimSpace(string(data)))
		}
		return attendance.OperationFailed(op, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return attendance.OperationFailed(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
