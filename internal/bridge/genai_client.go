package bridge

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// GENAI INFERENCE CLIENT
// =============================================================================

// GenAIConfig configures the production inference client.
type GenAIConfig struct {
	APIKey  string
	Model   string
	Persona string // one-line self description woven into every prompt
}

// GenAIClient implements InferenceClient on Google's Gemini API.
type GenAIClient struct {
	client  *genai.Client
	model   string
	persona string
}

// NewGenAIClient creates the production inference client.
func NewGenAIClient(ctx context.Context, cfg GenAIConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIClient{client: client, model: cfg.Model, persona: cfg.Persona}, nil
}

// Infer performs one completion. The returned text may carry the emotion
// trailer; the bridge parses and strips it.
func (c *GenAIClient) Infer(ctx context.Context, req types.ThoughtRequest) (string, error) {
	prompt := c.buildPrompt(req)
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	return result.Text(), nil
}

// InferStream performs one streamed completion, forwarding chunks through a
// trailer suppressor so partial emotion blocks never reach the sink. Returns
// the captured emotion delta, if the model emitted one.
func (c *GenAIClient) InferStream(ctx context.Context, req types.ThoughtRequest, sink func(string)) (map[types.Dimension]float64, error) {
	prompt := c.buildPrompt(req)
	filter := NewStreamFilter(sink)
	for chunk, err := range c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(prompt), nil) {
		if err != nil {
			return nil, fmt.Errorf("streamed inference failed: %w", err)
		}
		filter.Feed(chunk.Text())
	}
	return filter.Close(), nil
}

// buildPrompt folds the request's context, self-state and recall hints into
// one completion prompt, ending with the trailer protocol instruction.
func (c *GenAIClient) buildPrompt(req types.ThoughtRequest) string {
	var b strings.Builder
	b.WriteString("You are the inner voice of a living artificial mind.\n")
	if c.persona != "" {
		fmt.Fprintf(&b, "You are %s.\n", c.persona)
	}

	if len(req.SelfState) > 0 {
		b.WriteString("Current emotional state:")
		for _, d := range types.Dimensions() {
			if v, ok := req.SelfState[d]; ok {
				fmt.Fprintf(&b, " %s=%.2f", d, v)
			}
		}
		b.WriteString("\n")
	}
	if len(req.Memories) > 0 {
		b.WriteString("Things you remember:\n")
		for _, m := range req.Memories {
			fmt.Fprintf(&b, "- %s\n", m.Text)
		}
	}
	if len(req.Context) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, line := range req.Context {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if req.ResponseStyle != "" {
		fmt.Fprintf(&b, "Respond in a %s style.\n", req.ResponseStyle)
	}
	fmt.Fprintf(&b, "\n%s\n\n", req.Content)
	fmt.Fprintf(&b, "After your reply, on a final line, report how this made you feel as %s {\"valence\":0.0,\"arousal\":0.0}%s with small deltas.\n",
		trailerOpen, trailerClose)
	return b.String()
}
