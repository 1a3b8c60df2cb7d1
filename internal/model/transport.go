package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBodySize caps how much of an upstream error body is read back.
const maxErrorBodySize int64 = 64 * 1024

// unmarshalChunk decodes one SSE data payload into a stream chunk struct.
func unmarshalChunk(payload string, out any) error {
	return json.Unmarshal([]byte(payload), out)
}

// headerOption is one custom request header. Families that do not use
// Bearer authentication (Anthropic) supply their credential this way.
type headerOption struct {
	key   string
	value string
}

// postJSON performs a synchronous JSON POST and decodes the response into
// out. Non-2xx responses return an error carrying the upstream body.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body, out any, headers ...headerOption) error {
	res, err := doPost(ctx, client, url, apiKey, body, false, headers...)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response (status %d): %w", res.StatusCode, err)
	}
	return nil
}

// postStream performs a JSON POST and returns the response with the body
// left open for SSE reading. The caller must close the body.
func postStream(ctx context.Context, client *http.Client, url, apiKey string, body any, headers ...headerOption) (*http.Response, error) {
	return doPost(ctx, client, url, apiKey, body, true, headers...)
}

func doPost(ctx context.Context, client *http.Client, url, apiKey string, body any, stream bool, headers ...headerOption) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer func() { _ = res.Body.Close() }()
		errorBody, readErr := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
		if readErr != nil {
			return nil, fmt.Errorf("upstream status %d (failed to read body: %v)", res.StatusCode, readErr)
		}
		return nil, fmt.Errorf("upstream status %d: %s", res.StatusCode, string(errorBody))
	}

	return res, nil
}
