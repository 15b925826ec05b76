package tts

import (
	"encoding/json"

	"github.com/go-resty/resty/v2"

	"github.com/teslashibe/go-spotter/internal/httpc"
)

// newRestClient builds the shared client for the HTTP providers: the
// configured timeout, and retries on 429 and 5xx with linear backoff.
func newRestClient(cfg *Config) *resty.Client {
	return httpc.NewResty(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryDelay).
		AddRetryCondition(httpc.RetryCondition)
}

// apiError turns a non-2xx response into an APIError, reading the
// {"error": {...}} or {"detail": {...}} bodies the providers return.
func apiError(provider string, resp *resty.Response) error {
	body := resp.Body()

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	message, code := string(body), ""
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Error.Message != "":
			message, code = errResp.Error.Message, errResp.Error.Code
		case errResp.Detail.Message != "":
			message, code = errResp.Detail.Message, errResp.Detail.Status
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode(),
		Message:    message,
		Code:       code,
		Provider:   provider,
	}
}
