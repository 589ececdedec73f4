package encounter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/samdwyer/xueba/internal/gamedata"
)

// DefaultResponsesURL is the OpenAI responses endpoint.
const DefaultResponsesURL = "https://api.openai.com/v1/responses"

// LLMConfig configures the text-generation backed generator.
type LLMConfig struct {
	APIKey       string
	Model        string
	ResponsesURL string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// LLMGenerator asks an OpenAI-compatible responses endpoint to design the enemy.
type LLMGenerator struct {
	cfg LLMConfig
}

// NewLLMGenerator creates a generator, filling in defaults.
func NewLLMGenerator(cfg LLMConfig) *LLMGenerator {
	if cfg.ResponsesURL == "" {
		cfg.ResponsesURL = DefaultResponsesURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.HTTPClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &LLMGenerator{cfg: cfg}
}

// Prompt builds the enemy design request for a difficulty.
func Prompt(difficulty int) string {
	names := make([]string, 0, 9)
	for _, s := range gamedata.Subjects() {
		names = append(names, string(s))
	}
	hpLo, hpHi := HPRange(difficulty)
	atkLo, atkHi := ATKRange(difficulty)

	var b strings.Builder
	b.WriteString("设计一个卡牌游戏的Boss（考试题目）。\n")
	fmt.Fprintf(&b, "难度等级: %d (1-5)。\n", difficulty)
	fmt.Fprintf(&b, "科目从以下随机选择一个: %s。\n", strings.Join(names, ", "))
	b.WriteString("Boss要有名字（例如：'压轴导数题'，'古文背诵'），生命值（HP），攻击力（ATK），以及一段有趣的描述。\n")
	fmt.Fprintf(&b, "HP范围: %d - %d。\n", hpLo, hpHi)
	fmt.Fprintf(&b, "ATK范围: %d - %d。\n", atkLo, atkHi)
	b.WriteString(`只返回一个JSON对象，字段为 name, subject, hp, atk, description。`)
	return b.String()
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, difficulty int) (EnemyData, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return EnemyData{}, fmt.Errorf("api key is required")
	}
	requestBody, err := json.Marshal(map[string]any{
		"model": g.cfg.Model,
		"input": Prompt(ClampDifficulty(difficulty)),
	})
	if err != nil {
		return EnemyData{}, fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return EnemyData{}, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	res, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return EnemyData{}, fmt.Errorf("generate request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return EnemyData{}, fmt.Errorf("read generate response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := string(body)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return EnemyData{}, fmt.Errorf("generate request status %d: %s", res.StatusCode, strings.TrimSpace(msg))
	}

	text, err := outputText(body)
	if err != nil {
		return EnemyData{}, err
	}
	return ParseEnemy(text)
}

// outputText pulls the reply text from a responses payload.
func outputText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("decode generate response: invalid json")
	}
	if text := strings.TrimSpace(gjson.GetBytes(body, "output_text").String()); text != "" {
		return text, nil
	}
	var text string
	gjson.GetBytes(body, "output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, content gjson.Result) bool {
			text = strings.TrimSpace(content.Get("text").String())
			return text == ""
		})
		return text == ""
	})
	if text == "" {
		return "", fmt.Errorf("generate response missing output text")
	}
	return text, nil
}

// ParseEnemy decodes a reply, tolerating Markdown code fences around the object.
func ParseEnemy(text string) (EnemyData, error) {
	raw := stripCodeFence(text)
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	if !gjson.Valid(raw) {
		return EnemyData{}, fmt.Errorf("%w: reply is not json", ErrInvalidEnemy)
	}
	obj := gjson.Parse(raw)
	enemy := EnemyData{
		Name:        strings.TrimSpace(obj.Get("name").String()),
		Subject:     gamedata.Subject(strings.TrimSpace(obj.Get("subject").String())),
		HP:          int(obj.Get("hp").Int()),
		ATK:         int(obj.Get("atk").Int()),
		Description: strings.TrimSpace(obj.Get("description").String()),
	}
	if err := enemy.Validate(); err != nil {
		return EnemyData{}, err
	}
	return enemy, nil
}

func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

var _ Generator = (*LLMGenerator)(nil)
