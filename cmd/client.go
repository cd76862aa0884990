package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// getJSON fetches path from the control server of a running foldersync
// and decodes the response into v.
func getJSON(path string, v any) error {
	url, err := daemonURL(path)
	if err != nil {
		return err
	}

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("foldersync not running: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if err := checkResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// checkResponse turns a non-2xx answer into an error carrying the
// server's error message.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return fmt.Errorf("request failed (%s): %s", resp.Status, body.Error)
}
