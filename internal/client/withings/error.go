package withings

import (
	"fmt"
	"io"
	"net/http"

	go_json "github.com/goccy/go-json"
)

// APIError carries a non-zero Withings status, or the HTTP status when the request itself failed.
type APIError struct {
	Status     int
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("withings api: http %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("withings api: status %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether the failure means the access token was rejected.
func (e *APIError) IsUnauthorized() bool {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return true
	case e.Status == 100, e.Status == 101, e.Status == 102, e.Status == 200, e.Status == 401:
		return true
	case e.Status >= 211 && e.Status <= 215:
		return true
	default:
		return false
	}
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	var errResp struct {
		Error string `json:"error"`
	}
	if err := go_json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		msg := string(body)
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    errResp.Error,
	}
}
