// Package clinicapi is the HTTP client for the clinic backend, plus the
// response interceptor that tears the session down on authorization
// failures.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/patient-portal/pkg/logging"
)

const defaultTimeout = 20 * time.Second

// ErrUnauthorized marks an authorization failure (missing, invalid or
// expired token). The AuthGuard has already run by the time a caller sees
// it; it is returned so local error handling still executes.
var ErrUnauthorized = errors.New("clinicapi: unauthorized")

// APIError carries a backend-supplied failure message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("clinicapi: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("clinicapi: status %d", e.StatusCode)
}

// TokenSource supplies the current session token; empty means absent.
// *session.Store satisfies it.
type TokenSource interface {
	Token() string
}

// Client talks to the clinic backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *logging.Logger
}

// NewClient creates a clinic backend client. A nil httpClient gets a default
// with a request timeout; pass a shared one so the AuthGuard transport wraps
// every call.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client, logger *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger.Component("clinicapi"),
	}
}

// HTTPClient exposes the underlying client so the AuthGuard can be installed
// on its transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Login exchanges credentials for an access token. It does not store the
// token; the caller owns the session store.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: out.Message}
	}
	return out.AccessToken, nil
}

// ListDoctors returns the bookable roster.
func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var out doctorListResponse
	if err := c.do(ctx, http.MethodGet, "/api/doctor/list", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: out.Message}
	}
	return out.DoctorData, nil
}

// GetProfile returns the logged-in patient's profile.
func (c *Client) GetProfile(ctx context.Context) (*UserProfile, error) {
	var out profileResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/get-profile", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: out.Message}
	}
	return &out.UserData, nil
}

// GetAvailability returns the bookable days and slots for one doctor.
func (c *Client) GetAvailability(ctx context.Context, specialty string, docID int) (*DoctorAvailability, error) {
	var out DoctorAvailability
	path := fmt.Sprintf("/api/doctor/%s/%d/availability", specialty, docID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BookAppointment submits a booking and returns the backend's message.
func (c *Client) BookAppointment(ctx context.Context, slotID, patientID int, note string) (string, error) {
	var out bookAppointmentResponse
	body := bookAppointmentRequest{SlotID: slotID, PatientID: patientID, Note: note}
	if err := c.do(ctx, http.MethodPost, "/api/user/book-appointment", body, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", &APIError{StatusCode: http.StatusOK, Message: out.Message}
	}
	return out.Message, nil
}

// ListAppointments returns the patient's booking history.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/api/user/appointments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("clinicapi: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("clinicapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clinicapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("clinicapi: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("clinicapi: %s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var failure struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		if json.Unmarshal(respBody, &failure) == nil {
			apiErr.Message = failure.Message
			if apiErr.Message == "" {
				apiErr.Message = failure.Detail
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("clinicapi: unmarshal response: %w", err)
	}
	return nil
}
