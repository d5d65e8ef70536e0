package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/foxseedlab/jimaku/internal/translator"
	"google.golang.org/genai"
)

const translationTemperature float32 = 0.3

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// HTTPClient is optional.
	HTTPClient *http.Client
}

// Gemini implements translation, language detection and stream analysis on one genai client.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	slog.Info("gemini client initialized", "model", cfg.Model)
	return &Gemini{client: client, model: cfg.Model}, nil
}

func (g *Gemini) Translate(ctx context.Context, req translator.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(translationInstruction(req), genai.RoleUser),
		Temperature:       genai.Ptr(translationTemperature),
	}
	out, err := g.generate(ctx, req.ContextText, cfg)
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", req.TargetLanguage, err)
	}
	return out, nil
}

func (g *Gemini) Detect(ctx context.Context, text string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(detectionInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	}
	out, err := g.generate(ctx, text, cfg)
	if err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}
	return parseLanguageCode(out), nil
}

func (g *Gemini) Analyze(ctx context.Context, lines []string) (translator.Analysis, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(translationTemperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisSchema,
	}
	out, err := g.generate(ctx, strings.Join(lines, "\n"), cfg)
	if err != nil {
		return translator.Analysis{}, fmt.Errorf("analyze stream: %w", err)
	}
	return parseAnalysis(out)
}

func (g *Gemini) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func translationInstruction(req translator.Request) string {
	var b strings.Builder
	b.WriteString(req.Style.Instruction())
	b.WriteString("\n\nThe user message is a live transcript, one utterance per line, oldest first. ")
	b.WriteString("Earlier lines are context only. Translate only the last line")
	if src := translator.NormalizeLanguage(req.SourceLanguage); src != translator.UnknownLanguage {
		fmt.Fprintf(&b, " from %s", src)
	}
	fmt.Fprintf(&b, " into %s. ", req.TargetLanguage)
	b.WriteString("Reply with the translation only, without quotes, notes or the original text.")
	return b.String()
}

const detectionInstruction = "Identify the language of the user message. Reply with only its ISO 639-1 code in lowercase, for example en or ja. If the language cannot be determined, reply with unknown."

const analysisInstruction = "The user message is the latest part of a live stream transcript. Classify what the stream is about with a short category such as gaming, music, talk, news, education or sports, and summarise the current topic in one sentence written in the transcript's language."

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category": {Type: genai.TypeString},
		"summary":  {Type: genai.TypeString},
	},
	Required: []string{"category", "summary"},
}

// parseLanguageCode takes the first word of a detection reply and strips punctuation.
func parseLanguageCode(reply string) string {
	fields := strings.Fields(strings.ToLower(reply))
	if len(fields) == 0 {
		return translator.UnknownLanguage
	}
	code := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	if code == "" {
		return translator.UnknownLanguage
	}
	return code
}

func parseAnalysis(reply string) (translator.Analysis, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimSuffix(strings.TrimPrefix(reply, "```"), "```")
	var a translator.Analysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &a); err != nil {
		return translator.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	a.Category = strings.TrimSpace(a.Category)
	a.Summary = strings.TrimSpace(a.Summary)
	return a, nil
}

var (
	_ translator.Translator = (*Gemini)(nil)
	_ translator.Detector   = (*Gemini)(nil)
	_ translator.Analyzer   = (*Gemini)(nil)
)
