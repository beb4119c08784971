package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

type apiError struct {
	Message string `json:"error"`
}

// apiURL joins the daemon address with a request path and query values.
func apiURL(path string, query url.Values) string {
	u := url.URL{Scheme: "http", Host: daemonAddr(), Path: path}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// doJSON issues a request with an optional JSON body and decodes the JSON
// response into out (which may be nil for empty responses). Non-2xx responses
// become errors carrying the daemon's error message.
func doJSON(method, rawURL string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, rawURL, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach daemon at %s: %w", daemonAddr(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s", apiErr.Message)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func getJSON(path string, query url.Values, out any) error {
	return doJSON(http.MethodGet, apiURL(path, query), nil, out)
}

func postJSON(path string, query url.Values, body, out any) error {
	return doJSON(http.MethodPost, apiURL(path, query), body, out)
}

// outputJSON pretty-prints v for the --json flag.
func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
