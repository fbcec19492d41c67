package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ignatzorin/customs-pricing/internal/models"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
)

const (
	scoringMaxTokens   = 900
	scoringTemperature = 0.2
	strictTemperature  = 0.4
	maxPromptTextRunes = 12000
	// Больше кодов в одном запросе не бывает, выше - ответ модели сломан.
	maxGtipCount = 50
)

const scoringSystemPrompt = `You are a senior customs consultant estimating how much expert work a client request needs.
The request is usually in Turkish, sometimes in English. Rate each criterion on a 0-10 scale using the anchors given for it.
Reply with a single JSON object and nothing else:
{"scores": {"<criterion key>": <0-10>}, "gtip_present": <bool>, "gtip_difficulty": <0-10>, "gtip_count": <int>,
 "legal_score": <0-10>, "language_score": <0-10>, "lang_gap_ratio": <0-1>, "extras": {"<title>": <0-10>}}
gtip_* describe tariff classification (GTİP / HS) codes mentioned or implied by the request.`

const strictInstruction = `Your previous answer gave almost the same score to every criterion.
Use the full 0-10 range: criteria irrelevant to this request must get 0-2, the dominant ones 7-10.`

// Score реализует pricing.Scorer. Ошибка сети или провайдера возвращается как есть,
// неразборчивый ответ модели даёт пустой результат без ошибки.
func (c *Client) Score(ctx context.Context, req pricing.ScoreRequest) (*pricing.ScoreResult, error) {
	if !c.HasCredential() {
		return nil, pricing.ErrMissingCredential
	}

	temperature := scoringTemperature
	if req.Strict {
		temperature = strictTemperature
	}

	messages := []map[string]string{
		{"role": "system", "content": scoringSystemPrompt},
		{"role": "user", "content": buildScoringPrompt(req)},
	}

	content, err := c.chatCompletionWithOptions(ctx, messages, scoringMaxTokens, temperature)
	if err != nil {
		return nil, fmt.Errorf("ai: оценка критериев: %w", err)
	}

	res := parseScoreResult(parseJSONFromText(content), req)
	res.Source = models.ScoringSourceModel
	if req.Strict {
		res.Source = models.ScoringSourceModelRetry
	}
	return res, nil
}

// buildScoringPrompt формирует пользовательское сообщение: текст, вложения, критерии и доп. модули.
func buildScoringPrompt(req pricing.ScoreRequest) string {
	var b strings.Builder

	text := strings.TrimSpace(req.Text)
	if runes := []rune(text); len(runes) > maxPromptTextRunes {
		text = string(runes[:maxPromptTextRunes]) + " …"
	}
	b.WriteString("REQUEST:\n")
	b.WriteString(text)
	b.WriteString("\n\n")

	if len(req.Attachments) > 0 {
		b.WriteString("ATTACHMENTS (metadata only):\n")
		for _, a := range req.Attachments {
			fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", a.Name, a.Type, a.Size)
		}
		b.WriteString("\n")
	}

	b.WriteString("CRITERIA (anchors for 0 / 2 / 5 / 8 / 10):\n")
	for _, c := range req.Criteria {
		fmt.Fprintf(&b, "- %s \"%s\": 0=%s; 2=%s; 5=%s; 8=%s; 10=%s\n",
			c.Key, c.Title, c.Anchors[0], c.Anchors[1], c.Anchors[2], c.Anchors[3], c.Anchors[4])
	}

	if len(req.Extras) > 0 {
		b.WriteString("\nEXTRA FACTORS (score each title 0-10 under \"extras\"):\n")
		for _, title := range req.Extras {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	if req.Strict {
		b.WriteString("\n")
		b.WriteString(strictInstruction)
	}
	return b.String()
}

// parseScoreResult переносит в результат только запрошенные ключи, приводя числа и строки к 0–10.
func parseScoreResult(raw map[string]interface{}, req pricing.ScoreRequest) *pricing.ScoreResult {
	res := &pricing.ScoreResult{
		Scores: make(map[string]float64),
		Extras: make(map[string]float64),
	}
	if len(raw) == 0 {
		return res
	}

	if scores, ok := raw["scores"].(map[string]interface{}); ok {
		for _, key := range req.Keys() {
			if v, ok := toFloat(scores[key]); ok {
				res.Scores[key] = pricing.ClampScore(v)
			}
		}
	}

	if extras, ok := raw["extras"].(map[string]interface{}); ok {
		for _, title := range req.Extras {
			if v, ok := toFloat(extras[title]); ok {
				res.Extras[title] = pricing.ClampScore(v)
			}
		}
	}

	res.GtipPresent = toBool(raw["gtip_present"])
	if v, ok := toFloat(raw["gtip_difficulty"]); ok {
		res.GtipDifficulty = pricing.ClampScore(v)
	}
	if v, ok := toFloat(raw["gtip_count"]); ok && v > 0 {
		res.GtipCount = int(math.Min(v, maxGtipCount))
	}
	if res.GtipPresent && res.GtipCount == 0 {
		res.GtipCount = 1
	}
	if v, ok := toFloat(raw["legal_score"]); ok {
		res.LegalScore = pricing.ClampScore(v)
	}
	if v, ok := toFloat(raw["language_score"]); ok {
		res.LanguageScore = pricing.ClampScore(v)
	}
	if v, ok := toFloat(raw["lang_gap_ratio"]); ok {
		ratio := v
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		res.LangGapRatio = &ratio
	}
	return res
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		s = strings.TrimSuffix(s, "/10")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "evet", "1":
			return true
		}
	}
	return false
}
