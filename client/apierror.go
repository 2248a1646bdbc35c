package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ValidationDetail is one entry of a 422 response's detail list.
type ValidationDetail struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// APIError is returned for any non-2xx response from the hosted services,
// and for completed jobs whose output carries an error object.
type APIError struct {
	StatusCode int
	Message    string
	Details    []ValidationDetail
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed with status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return "request failed"
}

func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// the detail field is either a string or a list of validation entries
/*
{"detail": "Request is still in progress"}
{"detail": [{"loc": ["body", "model_image"], "msg": "field required", "type": "value_error.missing"}]}
{"error": {"message": "Image dimensions too small", "type": "image_load_error"}}
*/
func (e *APIError) UnmarshalJSON(b []byte) error {
	var temp struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &temp); err != nil {
		return err
	}

	e.Message = temp.Message
	if len(temp.Detail) > 0 {
		var s string
		if err := json.Unmarshal(temp.Detail, &s); err == nil {
			e.Message = s
		} else {
			var details []ValidationDetail
			if err := json.Unmarshal(temp.Detail, &details); err != nil {
				return err
			}
			e.Details = details
			msgs := make([]string, 0, len(details))
			for _, d := range details {
				msgs = append(msgs, d.Msg)
			}
			e.Message = strings.Join(msgs, "; ")
		}
	}
	if e.Message == "" && len(temp.Error) > 0 {
		var s string
		if err := json.Unmarshal(temp.Error, &s); err == nil {
			e.Message = s
		} else {
			var obj struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(temp.Error, &obj); err == nil {
				e.Message = obj.Message
			}
		}
	}
	return nil
}

const maxErrorBody = 256

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, apiErr); err != nil {
			msg := strings.TrimSpace(string(body))
			if len(msg) > maxErrorBody {
				msg = msg[:maxErrorBody]
			}
			apiErr.Message = msg
		}
	}
	apiErr.StatusCode = status
	apiErr.Body = string(body)
	return apiErr
}
