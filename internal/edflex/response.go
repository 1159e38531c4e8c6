package edflex

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseResponse is the shared response interpreter for all API calls.
//
// Any status outside [200,300) is an error: the body is decoded into the
// structured error envelope when possible, otherwise the message is the
// literal "unknown error". A 2xx status does not guarantee success either:
// a decoded body carrying an error envelope is reported as an APIError.
// When expectJSON is false the body is returned verbatim on success.
func parseResponse(body []byte, statusCode int, expectJSON bool) ([]byte, error) {
	if statusCode < 200 || statusCode >= 300 {
		msg := "unknown error"
		var env errorEnvelope
		if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
			msg = buildErrorMessage(env.Errors)
		}
		return nil, &APIError{StatusCode: statusCode, Message: msg}
	}

	if !expectJSON {
		return body, nil
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v (body: %s)", ErrInvalidResponse, err, body)
	}

	if len(env.Errors) > 0 {
		return nil, &APIError{StatusCode: statusCode, Message: buildErrorMessage(env.Errors)}
	}

	return body, nil
}

// buildErrorMessage concatenates error objects as "{code} {title} {detail}"
// per entry, joining entries with ". ". An empty list yields "".
func buildErrorMessage(errs []errorObject) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s %s %s", e.Code, e.Title, e.Detail))
	}
	return strings.Join(parts, ". ")
}
