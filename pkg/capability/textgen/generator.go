package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"content-studio-be/pkg/capability"
	"content-studio-be/pkg/llm"
	"content-studio-be/pkg/workflow"

	"github.com/kaptinlin/jsonrepair"
)

const maxReplyHistory = 12

// Generator implements the text capabilities on top of an LLM provider
type Generator struct {
	provider llm.LLMProvider
}

var (
	_ capability.IdeaSuggester   = (*Generator)(nil)
	_ capability.Captioner       = (*Generator)(nil)
	_ capability.CampaignPlanner = (*Generator)(nil)
	_ capability.Responder       = (*Generator)(nil)
)

func NewGenerator(provider llm.LLMProvider) *Generator {
	return &Generator{provider: provider}
}

func (g *Generator) SuggestIdeas(ctx context.Context, req capability.IdeaRequest) ([]string, error) {
	count := req.Count
	if count <= 0 {
		count = 3
	}
	theme := req.Theme
	if theme == "" {
		theme = "anything that fits the brand"
	}

	raw, err := g.provider.Generate(ctx, fmt.Sprintf(ideasPrompt, count, describeBrand(req.Brand), theme), llm.WithJSON())
	if err != nil {
		return nil, err
	}

	var out struct {
		Ideas []string `json:"ideas"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}
	ideas := make([]string, 0, len(out.Ideas))
	for _, idea := range out.Ideas {
		if idea = strings.TrimSpace(idea); idea != "" {
			ideas = append(ideas, idea)
		}
	}
	if len(ideas) == 0 {
		return nil, &capability.TransientError{Err: fmt.Errorf("model returned no ideas")}
	}
	if len(ideas) > count {
		ideas = ideas[:count]
	}
	return ideas, nil
}

func (g *Generator) Caption(ctx context.Context, req capability.CaptionRequest) (*capability.CaptionResult, error) {
	raw, err := g.provider.Generate(ctx, fmt.Sprintf(captionPrompt, describeBrand(req.Brand), req.Brief, req.AssetPath), llm.WithJSON())
	if err != nil {
		return nil, err
	}

	var out capability.CaptionResult
	var wire struct {
		Caption  string   `json:"caption"`
		Hashtags []string `json:"hashtags"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		return nil, err
	}
	out.Caption = strings.TrimSpace(wire.Caption)
	if out.Caption == "" {
		return nil, &capability.TransientError{Err: fmt.Errorf("model returned an empty caption")}
	}
	for _, tag := range wire.Hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		out.Hashtags = append(out.Hashtags, tag)
	}
	return &out, nil
}

func (g *Generator) PlanWeek(ctx context.Context, req capability.CampaignRequest) (*workflow.WeekPlan, error) {
	c := req.Campaign
	month := ""
	if c.Month != "" {
		month = " for " + c.Month
	}
	prompt := fmt.Sprintf(campaignPrompt, c.CurrentWeek, c.TotalWeeks, month, c.PostsPerWeek, describeBrand(req.Brand), req.Brief)

	raw, err := g.provider.Generate(ctx, prompt, llm.WithJSON())
	if err != nil {
		return nil, err
	}

	var out struct {
		Theme string                 `json:"theme"`
		Posts []workflow.PlannedPost `json:"posts"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}
	if len(out.Posts) == 0 {
		return nil, &capability.TransientError{Err: fmt.Errorf("model returned an empty week plan")}
	}
	if len(out.Posts) > c.PostsPerWeek && c.PostsPerWeek > 0 {
		out.Posts = out.Posts[:c.PostsPerWeek]
	}
	return &workflow.WeekPlan{Week: c.CurrentWeek, Theme: out.Theme, Posts: out.Posts}, nil
}

func (g *Generator) Reply(ctx context.Context, req capability.ReplyRequest, onToken llm.TokenHandler) (string, error) {
	system := systemPrompt
	if req.Summary != "" {
		system += "\n\nCurrent session:\n" + req.Summary
	}
	messages := []llm.Message{{Role: "system", Content: system}}

	history := req.History
	if len(history) > maxReplyHistory {
		history = history[len(history)-maxReplyHistory:]
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})

	return g.provider.ChatStream(ctx, messages, onToken)
}

func describeBrand(b *workflow.Brand) string {
	if !b.Configured() {
		return "Brand: not configured yet."
	}
	var sb strings.Builder
	sb.WriteString("Brand:")
	if b.CompanyName != "" {
		fmt.Fprintf(&sb, " %s.", b.CompanyName)
	}
	if b.Industry != "" {
		fmt.Fprintf(&sb, " Industry: %s.", b.Industry)
	}
	if b.Tone != "" {
		fmt.Fprintf(&sb, " Tone: %s.", b.Tone)
	}
	if b.Overview != "" {
		fmt.Fprintf(&sb, " About: %s.", b.Overview)
	}
	if colors := b.Colors(); len(colors) > 0 {
		fmt.Fprintf(&sb, " Colours: %s.", strings.Join(colors, ", "))
	}
	if b.Scraped != nil && b.Scraped.Summary != "" {
		fmt.Fprintf(&sb, " Profile: %s.", b.Scraped.Summary)
	}
	return sb.String()
}

// decodeJSON extracts the JSON object from a model answer, repairing it when
// the model produced trailing commas, single quotes or a truncated tail
func decodeJSON(raw string, v interface{}) error {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if start := strings.Index(text, "{"); start >= 0 {
		text = text[start:]
		if end := strings.LastIndex(text, "}"); end >= 0 {
			text = text[:end+1]
		}
	}

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return &capability.TransientError{Err: fmt.Errorf("unparseable model output: %w", err)}
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return &capability.TransientError{Err: fmt.Errorf("unparseable model output: %w", err)}
	}
	return nil
}
