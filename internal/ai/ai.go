// Package ai grades free-text and audio answers with Gemini.
package ai

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/task.txt
var taskPrompt string

//go:embed prompts/audio.txt
var audioPrompt string

var (
	taskTmpl  = template.Must(template.New("task").Parse(taskPrompt))
	audioTmpl = template.Must(template.New("audio").Parse(audioPrompt))
)

// Verdict is the model's judgement of one answer.
type Verdict struct {
	Correct  bool   `yaml:"correct"`
	Feedback string `yaml:"feedback"`
}

type Validator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewValidator(ctx context.Context, apiKey, model string) (*Validator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(0)
	return &Validator{client: client, model: m}, nil
}

func (v *Validator) Close() error {
	return v.client.Close()
}

type promptData struct {
	Instructions   string
	AIInstructions string
	Response       string
}

// ValidateTaskResponse grades a free-text answer.
func (v *Validator) ValidateTaskResponse(ctx context.Context, text, instructions, aiInstructions string) (Verdict, error) {
	prompt, err := render(taskTmpl, promptData{
		Instructions:   instructions,
		AIInstructions: aiInstructions,
		Response:       text,
	})
	if err != nil {
		return Verdict{}, err
	}
	return v.generate(ctx, genai.Text(prompt))
}

// ValidateAudioResponse grades an audio recording.
func (v *Validator) ValidateAudioResponse(ctx context.Context, audio []byte, mimeType, instructions, aiInstructions string) (Verdict, error) {
	prompt, err := render(audioTmpl, promptData{
		Instructions:   instructions,
		AIInstructions: aiInstructions,
	})
	if err != nil {
		return Verdict{}, err
	}
	return v.generate(ctx, genai.Text(prompt), genai.Blob{MIMEType: mimeType, Data: audio})
}

func (v *Validator) generate(ctx context.Context, parts ...genai.Part) (Verdict, error) {
	resp, err := v.model.GenerateContent(ctx, parts...)
	if err != nil {
		return Verdict{}, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Verdict{}, fmt.Errorf("no content returned from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Verdict{}, fmt.Errorf("unexpected response type from Gemini")
	}
	return parseVerdict(string(text))
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// parseVerdict reads the model's YAML reply, tolerating a Markdown fence.
func parseVerdict(out string) (Verdict, error) {
	clean := strings.TrimSpace(out)
	clean = strings.TrimPrefix(clean, "```yaml")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")

	var raw struct {
		Correct  *bool  `yaml:"correct"`
		Feedback string `yaml:"feedback"`
	}
	if err := yaml.Unmarshal([]byte(clean), &raw); err != nil {
		return Verdict{}, fmt.Errorf("parsing verdict: %w", err)
	}
	if raw.Correct == nil {
		return Verdict{}, fmt.Errorf("verdict is missing the correct field")
	}
	return Verdict{Correct: *raw.Correct, Feedback: strings.TrimSpace(raw.Feedback)}, nil
}
