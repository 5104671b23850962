package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultReplicateURL = "https://api.replicate.com"

// Replicate implements the Model interface using the Replicate predictions API
type Replicate struct {
	baseURL      string
	token        string
	model        string
	client       *http.Client
	pollInterval time.Duration
}

// NewReplicate creates a new Replicate Model instance. modelName is an
// "owner/name" pair such as "meta/meta-llama-3-70b-instruct".
func NewReplicate(baseURL string, token string, modelName string) (*Replicate, error) {
	if token == "" {
		return nil, fmt.Errorf("replicate api token is required")
	}
	if baseURL == "" {
		baseURL = defaultReplicateURL
	}
	if modelName == "" {
		modelName = "meta/meta-llama-3-70b-instruct"
	}

	return &Replicate{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		token:        token,
		model:        modelName,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: time.Second,
	}, nil
}

type replicateRequest struct {
	Input replicateInput `json:"input"`
}

type replicateInput struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float64 `json:"top_p"`
}

// replicatePrediction is the subset of a prediction the client reads
type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Generate creates a prediction, waits for it to finish and returns its output chunks
func (r *Replicate) Generate(ctx context.Context, prompt string, params Params) ([]string, error) {
	reqBody := replicateRequest{
		Input: replicateInput{
			Prompt:      prompt,
			Temperature: params.Temperature,
			MaxTokens:   params.MaxTokens,
			TopP:        params.TopP,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s/predictions", r.baseURL, r.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	prediction, err := r.do(req)
	if err != nil {
		return nil, err
	}

	for prediction.Status == "starting" || prediction.Status == "processing" {
		if prediction.URLs.Get == "" {
			return nil, fmt.Errorf("prediction %s has no status url", prediction.ID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, "GET", prediction.URLs.Get, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if prediction, err = r.do(req); err != nil {
			return nil, err
		}
	}

	if prediction.Status != "succeeded" {
		return nil, fmt.Errorf("prediction %s %s: %v", prediction.ID, prediction.Status, prediction.Error)
	}

	return decodeOutput(prediction.Output)
}

func (r *Replicate) do(req *http.Request) (*replicatePrediction, error) {
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling replicate API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("replicate API error (status %d): %s", resp.StatusCode, string(body))
	}

	var prediction replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &prediction, nil
}

// decodeOutput accepts both streamed-token lists and plain string output
func decodeOutput(raw json.RawMessage) ([]string, error) {
	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err == nil {
		return chunks, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("decoding prediction output: %w", err)
	}
	return []string{text}, nil
}

// Close closes the Replicate client (no-op for HTTP client)
func (r *Replicate) Close() error {
	return nil
}
