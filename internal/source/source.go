package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/retry"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultPageSize = 50
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code error: [%d] %s", e.Code, e.Status)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code >= http.StatusInternalServerError
}

// IsTransient classifies fetch errors for the retry policy.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	// url.Error satisfies net.Error, a malformed URL is still permanent.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return retry.Transient(err) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Client fetches course sections from the public class search API.
type Client struct {
	log      *slog.Logger
	client   *http.Client
	destURL  string
	term     string
	pageSize int
}

// NewClient creates a Client. Timeouts outside (0, 5s] fall back to 5s.
func NewClient(log *slog.Logger, destinationURL, term string, pageSize int, timeout time.Duration) *Client {
	if timeout <= 0 || timeout > defaultTimeout {
		timeout = defaultTimeout
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		log:      log,
		client:   &http.Client{Timeout: timeout},
		destURL:  destinationURL,
		term:     term,
		pageSize: pageSize,
	}
}

type searchRequest struct {
	StartRow     int    `json:"startRow"`
	EndRow       int    `json:"endRow"`
	TermCode     string `json:"termCode"`
	PublicSearch string `json:"publicSearch"`
	Subject      string `json:"subject,omitempty"`
	CourseNumber string `json:"courseNumber,omitempty"`
}

// Fetch returns the current sections matching spec. An empty slice with a nil
// error means the upstream legitimately has no matching sections.
func (c *Client) Fetch(ctx context.Context, spec models.SearchSpec) ([]models.Section, error) {
	const opn = "source.Fetch"

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	resp, err := c.postSearch(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	defer resp.Body.Close()

	var records []json.RawMessage
	if err = json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", opn, err)
	}

	sections := c.mapRecords(ctx, spec, records)
	c.log.DebugContext(ctx, "Fetched sections", "spec", spec.String(), "records", len(records), "sections", len(sections))

	return sections, nil
}

func (c *Client) postSearch(ctx context.Context, spec models.SearchSpec) (*http.Response, error) {
	reqURL, err := url.Parse(c.destURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination URL %s: %w", c.destURL, err)
	}

	payload := searchRequest{
		StartRow:     0,
		EndRow:       c.pageSize,
		TermCode:     c.term,
		PublicSearch: "Y",
	}
	if spec.ByCourse() {
		payload.Subject = spec.Subject
		payload.CourseNumber = spec.CourseNumber
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", reqURL.String(), err)
	}

	req.Header.Add("User-Agent", "Mozilla/5.0 (compatible; GoHttpClient/1.0)")
	req.Header.Add("Accept", "application/json, text/plain, */*")
	req.Header.Add("Content-Type", "application/json; charset=UTF-8")

	c.log.DebugContext(ctx, "Send request", "method", req.Method, "URL", req.URL, "payload", string(body))

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", c.destURL, err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		res.Body.Close()
		return nil, &StatusError{Code: res.StatusCode, Status: res.Status}
	}

	return res, nil
}
