package lms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/observability"
)

// ErrGatewayUnavailable is returned for every backend or transport failure.
// The raw failure (which can include backend SQL fragments) is logged but
// never propagated, so it cannot leak into a user-facing message.
var ErrGatewayUnavailable = errors.New("school gateway unavailable")

// Gateway is the portal's view of the legacy school backend. A "no records"
// response from the backend is a valid empty result on every listing call,
// never an error.
type Gateway interface {
	Settings(ctx context.Context) (SettingsRecord, error)
	StudentClasses(ctx context.Context, studentID, academicYear, semester string) ([]ClassRecord, error)
	ClassActivities(ctx context.Context, classCode, academicYear, semester string) ([]ActivityRecord, error)
	StudentSubmissions(ctx context.Context, studentID string, classCodes []string) ([]SubmissionRecord, error)
	Notifications(ctx context.Context, studentID string) ([]NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, id int) error
	MarkAllNotificationsRead(ctx context.Context, studentID string) error
}

// ClientConfig carries the settings for the HTTP gateway client.
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Location *time.Location
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	location  *time.Location
	schemas   *gatewaySchemas
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// envelope is the uniform response wrapper the gateway emits.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient builds an HTTP gateway client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("gateway base url must not be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	schemas, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("failed to compile gateway schemas: %w", err)
	}

	return &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: timeout},
		location:  location,
		schemas:   schemas,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "lms_client").Logger(),
	}, nil
}

// Location returns the school's location, used to interpret zoneless
// gateway timestamps.
func (c *Client) Location() *time.Location {
	return c.location
}

func (c *Client) Settings(ctx context.Context) (SettingsRecord, error) {
	raw, err := c.query(ctx, "settings", "/api/query/settings", nil)
	if err != nil {
		return SettingsRecord{}, err
	}

	if err := c.validate("settings", c.schemas.settings, raw); err != nil {
		return SettingsRecord{}, err
	}

	var record SettingsRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		c.logger.Error().Err(err).Msg("malformed settings payload")
		return SettingsRecord{}, ErrGatewayUnavailable
	}

	return record, nil
}

func (c *Client) StudentClasses(ctx context.Context, studentID, academicYear, semester string) ([]ClassRecord, error) {
	params := url.Values{}
	params.Set("student_id", studentID)
	params.Set("academic_year", academicYear)
	params.Set("semester", semester)

	raw, err := c.query(ctx, "student_classes", "/api/query/classes", params)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []ClassRecord{}, nil
	}

	if err := c.validate("student_classes", c.schemas.classes, raw); err != nil {
		return nil, err
	}

	var records []ClassRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		c.logger.Error().Err(err).Msg("malformed class payload")
		return nil, ErrGatewayUnavailable
	}

	for i := range records {
		records[i].SubjectDescription = c.cleanText(records[i].SubjectDescription)
		records[i].FacultyName = c.cleanText(records[i].FacultyName)
	}

	return records, nil
}

func (c *Client) ClassActivities(ctx context.Context, classCode, academicYear, semester string) ([]ActivityRecord, error) {
	params := url.Values{}
	params.Set("class_code", classCode)
	params.Set("academic_year", academicYear)
	params.Set("semester", semester)

	raw, err := c.query(ctx, "class_activities", "/api/query/activities", params)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []ActivityRecord{}, nil
	}

	if err := c.validate("class_activities", c.schemas.activities, raw); err != nil {
		return nil, err
	}

	var records []ActivityRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		c.logger.Error().Err(err).Msg("malformed activity payload")
		return nil, ErrGatewayUnavailable
	}

	for i := range records {
		records[i].Title = c.cleanText(records[i].Title)
		records[i].Description = c.cleanText(records[i].Description)
	}

	return records, nil
}

func (c *Client) StudentSubmissions(ctx context.Context, studentID string, classCodes []string) ([]SubmissionRecord, error) {
	if len(classCodes) == 0 {
		return []SubmissionRecord{}, nil
	}

	params := url.Values{}
	params.Set("student_id", studentID)
	params.Set("class_codes", ClassCodeList(classCodes))

	raw, err := c.query(ctx, "student_submissions", "/api/query/submissions", params)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []SubmissionRecord{}, nil
	}

	if err := c.validate("student_submissions", c.schemas.submissions, raw); err != nil {
		return nil, err
	}

	var records []SubmissionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		c.logger.Error().Err(err).Msg("malformed submission payload")
		return nil, ErrGatewayUnavailable
	}

	return records, nil
}

func (c *Client) Notifications(ctx context.Context, studentID string) ([]NotificationRecord, error) {
	params := url.Values{}
	params.Set("student_id", studentID)

	raw, err := c.query(ctx, "notifications", "/api/query/notifications", params)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []NotificationRecord{}, nil
	}

	if err := c.validate("notifications", c.schemas.notifications, raw); err != nil {
		return nil, err
	}

	var records []NotificationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		c.logger.Error().Err(err).Msg("malformed notification payload")
		return nil, ErrGatewayUnavailable
	}

	for i := range records {
		records[i].Message = c.cleanText(records[i].Message)
	}

	return records, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int) error {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))

	_, err := c.exec(ctx, "mark_notification_read", "/api/exec/notifications/mark-read", params)
	return err
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, studentID string) error {
	params := url.Values{}
	params.Set("student_id", studentID)

	_, err := c.exec(ctx, "mark_all_notifications_read", "/api/exec/notifications/mark-all-read", params)
	return err
}

// query issues a read call. A nil payload with a nil error means the
// backend reported "no records"; callers translate that into an empty
// collection.
func (c *Client) query(ctx context.Context, operation, path string, params url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, operation, path, params)
}

// exec issues a procedure call. Procedures have no "no records" shape.
func (c *Client) exec(ctx context.Context, operation, path string, params url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, operation, path, params)
}

func (c *Client) do(ctx context.Context, method, operation, path string, params url.Values) (json.RawMessage, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		observability.GatewayRequests().WithLabelValues(operation, outcome).Inc()
		observability.GatewayLatency().WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	endpoint := c.baseURL + path
	if len(params) > 0 && method == http.MethodGet {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if method == http.MethodPost && len(params) > 0 {
		body = strings.NewReader(params.Encode())
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	if method == http.MethodPost {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.apiKey != "" {
		request.Header.Set("X-API-Key", c.apiKey)
	}

	response, err := c.http.Do(request)
	if err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("gateway request failed")
		return nil, ErrGatewayUnavailable
	}
	defer func() { _ = response.Body.Close() }()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("failed to read gateway response")
		return nil, ErrGatewayUnavailable
	}

	if response.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status", response.StatusCode).
			Str("operation", operation).
			Msg("gateway returned non-OK status")
		return nil, ErrGatewayUnavailable
	}

	var wrapped envelope
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("malformed gateway envelope")
		return nil, ErrGatewayUnavailable
	}

	if !wrapped.Success {
		if isNoRecords(wrapped.Message) {
			outcome = "empty"
			return nil, nil
		}

		// The message can contain raw backend detail such as SQL errors;
		// it stays in the logs.
		c.logger.Error().
			Str("operation", operation).
			Str("backend_message", wrapped.Message).
			Msg("gateway reported failure")
		return nil, ErrGatewayUnavailable
	}

	outcome = "ok"
	return wrapped.Data, nil
}

func (c *Client) validate(operation string, schema interface{ Validate(v interface{}) error }, raw json.RawMessage) error {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("gateway payload is not valid JSON")
		return ErrGatewayUnavailable
	}

	if err := schema.Validate(decoded); err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("gateway payload failed schema validation")
		return ErrGatewayUnavailable
	}

	return nil
}

func (c *Client) cleanText(value string) string {
	return strings.TrimSpace(c.sanitizer.Sanitize(value))
}

func isNoRecords(message string) bool {
	return strings.Contains(strings.ToLower(message), "no records")
}
