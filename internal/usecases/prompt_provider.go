package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"viloai/internal/entities"
	"viloai/internal/interfaces"
)

var errNoJSON = errors.New("no JSON object in model response")

// PromptProvider turns classifier requests into prompts for any AIClient and
// parses the JSON the model answers with.
type PromptProvider struct {
	ai interfaces.AIClient
}

func NewPromptProvider(ai interfaces.AIClient) *PromptProvider {
	return &PromptProvider{ai: ai}
}

type classifyResponse struct {
	Intent           string  `json:"intent"`
	Confidence       float64 `json:"confidence"`
	DetectedLanguage string  `json:"detected_language"`
	SuggestedReplyFI string  `json:"suggested_reply_fi"`
	SuggestedReplyEN string  `json:"suggested_reply_en"`
}

func (p *PromptProvider) Classify(ctx context.Context, req interfaces.ClassifyRequest) (*entities.ClassificationResult, error) {
	raw, err := p.ai.GenerateResponse(ctx, buildClassifyPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, errNoJSON
	}
	var resp classifyResponse
	if err := json.Unmarshal([]byte(obj), &resp); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}

	intent := entities.Intent(strings.ToLower(strings.TrimSpace(resp.Intent)))
	if !intent.Valid() {
		return nil, fmt.Errorf("unknown intent %q", resp.Intent)
	}
	replyFI := strings.TrimSpace(resp.SuggestedReplyFI)
	replyEN := strings.TrimSpace(resp.SuggestedReplyEN)
	if replyFI == "" || replyEN == "" {
		return nil, errors.New("model must return both suggested replies")
	}

	lang := entities.Language(strings.ToLower(strings.TrimSpace(resp.DetectedLanguage)))
	if !lang.Valid() {
		lang = GuessLanguage(req.Text)
	}

	return &entities.ClassificationResult{
		Intent:           intent,
		Confidence:       clampConfidence(resp.Confidence),
		DetectedLanguage: lang,
		SuggestedReplyFI: replyFI,
		SuggestedReplyEN: replyEN,
	}, nil
}

type relevanceResponse struct {
	ShouldReply *bool   `json:"should_reply"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence"`
}

func (p *PromptProvider) CheckRelevance(ctx context.Context, commentText string) (*entities.RelevanceVerdict, error) {
	raw, err := p.ai.GenerateResponse(ctx, buildRelevancePrompt(commentText))
	if err != nil {
		return nil, fmt.Errorf("relevance: %w", err)
	}

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, errNoJSON
	}
	var resp relevanceResponse
	if err := json.Unmarshal([]byte(obj), &resp); err != nil {
		return nil, fmt.Errorf("parse relevance: %w", err)
	}
	if resp.ShouldReply == nil {
		return nil, errors.New("relevance response missing should_reply")
	}

	return &entities.RelevanceVerdict{
		ShouldReply: *resp.ShouldReply,
		Reason:      strings.TrimSpace(resp.Reason),
		Confidence:  clampConfidence(resp.Confidence),
	}, nil
}

func buildClassifyPrompt(req interfaces.ClassifyRequest) string {
	var sb strings.Builder

	sb.WriteString("You are the customer service assistant of a small Finnish business on Instagram.\n")
	sb.WriteString("Analyze the customer's latest message and answer with ONE JSON object and nothing else.\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- Detect the language of the latest message itself: \"fi\" for Finnish, \"en\" for English.\n")
	sb.WriteString("- Classify it into exactly one intent: ")
	for i, intent := range entities.Intents {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(intent))
	}
	sb.WriteString(".\n")
	sb.WriteString("- Write a suggested reply in BOTH Finnish and English.\n")
	sb.WriteString("- Keep replies short and answer only what was asked. Do not add upsell or follow-up questions.\n")
	sb.WriteString("- Use the business facts below for exact figures. Never invent prices, stock or addresses.\n")
	if len(req.History) > 0 {
		sb.WriteString("- Earlier turns are context only. Classify by the customer's actual request, not by a greeting.\n")
	}
	sb.WriteString("\n")

	if facts := formatFacts(req.Facts); facts != "" {
		sb.WriteString("Business facts:\n")
		sb.WriteString(facts)
		sb.WriteString("\n")
	}

	if len(req.History) > 0 {
		sb.WriteString("Earlier in this conversation (oldest first):\n")
		for _, turn := range req.History {
			who := "Customer"
			if turn.Role == entities.TurnBusiness {
				who = "Business"
			}
			fmt.Fprintf(&sb, "%s: %s\n", who, turn.Text)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Latest customer message:\n%s\n\n", req.Text)

	sb.WriteString(`Respond with:
{
    "intent": "one_of_the_intents",
    "confidence": 0.0,
    "detected_language": "fi or en",
    "suggested_reply_fi": "reply in Finnish",
    "suggested_reply_en": "reply in English"
}`)
	return sb.String()
}

func buildRelevancePrompt(comment string) string {
	return fmt.Sprintf(`Decide whether this Instagram comment on a business post needs a reply from the business.

Does NOT need a reply: bare emoji, generic praise ("Nice!", "🔥", "Love it"), tagging friends, acknowledgments ("ok", "thanks").
Needs a reply: questions, inquiries about price, availability or location, requests, complaints.

Answer with ONE JSON object and nothing else:
{
    "should_reply": true,
    "reason": "short reason",
    "confidence": 0.0
}

Comment: %s`, comment)
}

// formatFacts groups business facts by category in a fixed order.
func formatFacts(facts []entities.BusinessRule) string {
	if len(facts) == 0 {
		return ""
	}
	byCategory := make(map[entities.FactCategory][]entities.BusinessRule)
	for _, f := range facts {
		cat := f.Category
		if !cat.Valid() {
			cat = entities.FactOther
		}
		byCategory[cat] = append(byCategory[cat], f)
	}

	var sb strings.Builder
	for _, cat := range entities.FactCategories {
		group := byCategory[cat]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "[%s]\n", strings.ToUpper(string(cat)))
		for _, f := range group {
			fmt.Fprintf(&sb, "- %s: %s\n", f.Key, f.Value)
		}
	}
	return sb.String()
}

// ExtractJSONObject returns the first balanced {...} substring of s.
// Braces inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
