package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements Provider against the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates the production provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

// Close releases resources held by the underlying client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// ParseDocument sends the document as a multimodal part and asks for a
// verbatim plain-text extraction.
func (p *GeminiProvider) ParseDocument(ctx context.Context, data []byte, fileName, mimeType string) (*ParsedDocument, error) {
	if len(data) == 0 {
		return nil, &ParseError{FileName: fileName, Cause: fmt.Errorf("empty document")}
	}

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.1) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text("Extract the full plain text of this resume document verbatim. Return only the text, no commentary."),
	)
	if err != nil {
		return nil, &ParseError{FileName: fileName, Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, &ParseError{FileName: fileName, Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{FileName: fileName, Cause: fmt.Errorf("no text extracted")}
	}

	return &ParsedDocument{
		Text:       text,
		PageCount:  len(text)/charsPerPage + 1,
		Confidence: 0.9,
		Metadata: map[string]string{
			"parser":    p.model,
			"mime_type": mimeType,
		},
	}, nil
}

// AnalyzeResume prompts for a JSON analysis, validates it against the
// analysis schema, and normalizes it. Schema violations degrade to
// field-by-field defaulting rather than failing the call.
func (p *GeminiProvider) AnalyzeResume(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	start := time.Now()

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(req)))
	if err != nil {
		return nil, &AnalysisError{Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, &AnalysisError{Cause: err}
	}
	payload := cleanJSONBlock(text)

	// Best effort: a payload that fails schema validation still goes through
	// normalization, which substitutes defaults for anything unusable.
	_ = ValidateAnalysisJSON(payload)

	analysis, err := parseAnalysisResponse(payload, p.model)
	if err != nil {
		return nil, err
	}
	analysis.ProcessingTime = time.Since(start)
	return analysis, nil
}

// HealthCheck issues a token-count call as a cheap liveness probe.
func (p *GeminiProvider) HealthCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model := p.client.GenerativeModel(p.model)
	if _, err := model.CountTokens(ctx, genai.Text("ping")); err != nil {
		return HealthStatus{Status: HealthError, Details: err.Error()}
	}
	return HealthStatus{Status: HealthOK, Details: p.model}
}

// buildAnalysisPrompt constructs the analysis prompt: task description,
// exact output structure, then the inputs.
func buildAnalysisPrompt(req AnalyzeRequest) string {
	var sb strings.Builder

	sb.WriteString("You are an expert technical recruiter. Analyze the resume below against the job posting.\n")
	sb.WriteString("Score each dimension 0-100. Extract candidate contact details verbatim from the resume.\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString(`{
  "candidate": {"first_name": "", "last_name": "", "email": "", "phone": "", "location": "", "skills": [], "education": [], "certifications": [], "summary": ""},
  "overall_score": 0,
  "confidence": 0.0,
  "dimensions": {"skills": 0, "experience": 0, "education": 0, "certifications": 0, "overall_fit": 0},
  "summary": "",
  "matched_skills": [],
  "missing_skills": [],
  "highlights": [],
  "concerns": []
}`)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- matched_skills and missing_skills must be drawn from the job requirements list.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Job posting:\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", req.Job.Title))
	if req.Job.Department != "" {
		sb.WriteString(fmt.Sprintf("Department: %s\n", req.Job.Department))
	}
	sb.WriteString(fmt.Sprintf("Description: %s\n", req.Job.Description))
	sb.WriteString("Requirements:\n")
	for _, r := range req.Job.Requirements {
		sb.WriteString(fmt.Sprintf("- %s\n", r))
	}

	if req.ParsedHint != nil {
		if hint, err := json.Marshal(req.ParsedHint); err == nil {
			sb.WriteString("\nPreviously extracted candidate data (verify against the resume):\n")
			sb.Write(hint)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nResume text:\n\"\"\"\n")
	sb.WriteString(req.ResumeText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// extractTextFromResponse extracts text from a Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
