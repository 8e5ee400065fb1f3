package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"content-studio-be/pkg/capability"
	"content-studio-be/pkg/workflow"
)

// Client calls the media backend that renders, edits and animates images.
// The backend writes every result under a new unique path.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var (
	_ capability.ImageGenerator = (*Client)(nil)
	_ capability.ImageEditor    = (*Client)(nil)
	_ capability.Animator       = (*Client)(nil)
)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt          string   `json:"prompt"`
	CompanyName     string   `json:"company_name,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	Tone            string   `json:"tone,omitempty"`
	CompanyOverview string   `json:"company_overview,omitempty"`
	LogoPath        string   `json:"logo_path,omitempty"`
	BrandColors     []string `json:"brand_colors,omitempty"`
	ReferenceImages []string `json:"reference_images,omitempty"`
}

type editRequest struct {
	SourcePath  string `json:"source_path"`
	Instruction string `json:"instruction"`
}

type animateRequest struct {
	SourcePath      string `json:"source_path"`
	MotionPrompt    string `json:"motion_prompt,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

type mediaResponse struct {
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

func (c *Client) GenerateImage(ctx context.Context, req capability.ImageRequest) (*capability.MediaResult, error) {
	body := generateRequest{Prompt: req.Prompt}
	if b := req.Brand; b != nil {
		body.CompanyName = b.CompanyName
		body.Industry = b.Industry
		body.Tone = b.Tone
		body.CompanyOverview = b.Overview
		body.BrandColors = b.Colors()
		body.ReferenceImages = b.ReferenceImages
		if b.Logo != nil {
			body.LogoPath = b.Logo.Path
		}
	}
	return c.call(ctx, "/v1/images/generate", body, workflow.AssetImage)
}

func (c *Client) EditImage(ctx context.Context, req capability.EditRequest) (*capability.MediaResult, error) {
	return c.call(ctx, "/v1/images/edit", editRequest{SourcePath: req.SourcePath, Instruction: req.Instruction}, workflow.AssetImage)
}

func (c *Client) Animate(ctx context.Context, req capability.AnimateRequest) (*capability.MediaResult, error) {
	return c.call(ctx, "/v1/videos/animate", animateRequest{
		SourcePath:      req.SourcePath,
		MotionPrompt:    req.MotionPrompt,
		DurationSeconds: req.DurationSeconds,
	}, workflow.AssetVideo)
}

func (c *Client) call(ctx context.Context, path string, payload interface{}, kind workflow.AssetKind) (*capability.MediaResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &capability.PermanentError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &capability.PermanentError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &capability.TransientError{Err: fmt.Errorf("media backend request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &capability.TransientError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, capability.FromStatus(resp.StatusCode, string(respBody))
	}

	var out mediaResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &capability.TransientError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Path == "" {
		return nil, &capability.TransientError{Err: fmt.Errorf("media backend returned no path")}
	}
	return &capability.MediaResult{Path: out.Path, Kind: kind, Description: out.Description}, nil
}
