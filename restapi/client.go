/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mjsoltani/peyvandyar/log"
)

const (
	logKeyMethod = "method"
	logKeyURI    = "uri"
	logKeyStatus = "status"
)

// MaxErrorBodySize limits how much of a non-2xx response body is kept in ClientError.Body.
const MaxErrorBodySize = 1024

// DoRequest allows to do HTTP requests and log some its details
func DoRequest(client *http.Client, req *http.Request, logger log.FieldLogger) (*http.Response, error) {
	logger.AtLevel(log.LevelDebug, func(logFn log.LogFunc) {
		logFn("sent request",
			log.String(logKeyMethod, req.Method),
			log.String(logKeyURI, req.URL.String()),
		)
	})

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn(fmt.Sprintf("failed to do http request %s %s", req.Method, req.URL.String()),
			log.String(logKeyMethod, req.Method),
			log.String(logKeyURI, req.URL.String()),
			log.Error(err),
		)
		return nil, fmt.Errorf("do request: %w", err)
	}

	logger.AtLevel(log.LevelDebug, func(logFn log.LogFunc) {
		logFn("got response",
			log.String(logKeyMethod, req.Method),
			log.String(logKeyURI, req.URL.String()),
			log.Int(logKeyStatus, resp.StatusCode),
		)
	})
	return resp, nil
}

// DoRequestAndUnmarshalJSON does the HTTP request and unmarshals a 2xx JSON body into result.
// An empty 2xx body leaves result untouched. Any failure is returned as *ClientError:
// transport failures carry StatusCode 0, non-2xx responses carry the status, the upstream message
// (if the body has one) and the raw body.
func DoRequestAndUnmarshalJSON(client *http.Client, req *http.Request, result interface{}, logger log.FieldLogger) error {
	e := &ClientError{Method: req.Method, URL: req.URL}

	resp, err := DoRequest(client, req, logger)
	if err != nil {
		return e.wrap("do request", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close response body after doing http request",
				log.String(logKeyMethod, req.Method),
				log.String(logKeyURI, req.URL.String()),
				log.Error(closeErr),
			)
		}
	}()

	e.StatusCode = resp.StatusCode
	logger = logger.With(
		log.String(logKeyMethod, req.Method),
		log.String(logKeyURI, req.URL.String()),
		log.Int(logKeyStatus, resp.StatusCode),
	)

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("error reading response body", log.Error(err))
		return e.wrap("reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(buf)
		if len(body) > MaxErrorBodySize {
			body = body[:MaxErrorBodySize]
		}
		e.Body = body
		e.Message = extractErrorMessage(resp.Header.Get("Content-Type"), buf)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return e
	}

	if result == nil || len(bytes.TrimSpace(buf)) == 0 {
		return nil
	}
	if err = json.Unmarshal(buf, result); err != nil {
		logger.Warn("error unmarshaling response", log.Error(err))
		return e.wrap("unmarshaling response", err)
	}
	return nil
}

// extractErrorMessage looks for a human readable message in a JSON error body.
// Both {"message": "..."} and {"error": {"message": "..."}} shapes are recognized.
func extractErrorMessage(contentType string, buf []byte) string {
	if !strings.Contains(contentType, "json") || len(buf) == 0 {
		return ""
	}
	var flat struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(buf, &flat); err != nil {
		return ""
	}
	if flat.Message != "" {
		return flat.Message
	}
	if len(flat.Error) == 0 {
		return ""
	}
	var nested Error
	if err := json.Unmarshal(flat.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	var s string
	if err := json.Unmarshal(flat.Error, &s); err == nil {
		return s
	}
	return ""
}

// NewJSONRequest performs JSON marshaling of the passed data and creates a new http.Request
func NewJSONRequest(method, url string, data interface{}) (*http.Request, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, fmt.Errorf("method %s is not allowed for json request", method)
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", ContentTypeAppJSON)
	return req, nil
}
