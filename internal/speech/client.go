package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultRequestTimeout = 120 * time.Second

var errEmptyTranscript = errors.New("speech: empty transcript")

// ClientConfig configures the transcription client. URL points at a
// Deepgram-compatible prerecorded-audio endpoint.
type ClientConfig struct {
	URL        string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Client transcribes audio through a hosted speech-to-text API.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs the transcription client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: httpClient,
	}
}

type transcriptionResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe streams raw audio to the speech API and returns the best
// transcript.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	query := url.Values{}
	query.Set("model", c.model)
	query.Set("punctuate", "true")
	query.Set("smart_format", "true")

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"?"+query.Encode(), audio)
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", contentType)
	request.Header.Set("Authorization", "Token "+c.apiKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("speech request: %w", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read speech response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speech API responded with status %d", response.StatusCode)
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode speech response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", errEmptyTranscript
	}
	transcript := parsed.Results.Channels[0].Alternatives[0].Transcript
	if transcript == "" {
		return "", errEmptyTranscript
	}
	return transcript, nil
}
