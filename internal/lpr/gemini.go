// Package lpr implements plate recognition and log summarisation on top of
// the Gemini API. Both fail soft: errors are logged and turned into "no
// plate" or a placeholder text.
package lpr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

const DefaultModel = "gemini-2.5-flash"

const (
	NoInsights    = "No insights available."
	AnalysisError = "Error analyzing logs."
)

const platePrompt = "Extract the license plate number from this image. " +
	"Return only the alphanumeric plate string without spaces or symbols. " +
	"If no plate is visible, return 'NONE'."

const digestPrompt = "Analyze these garage access logs and summarize suspicious " +
	"activities or frequent visitors in 2-3 sentences: "

// generator is the subset of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini is both the plate recogniser and the log summariser.
type Gemini struct {
	models generator
	model  string
	logger *slog.Logger
}

// NewGemini builds a client for the Gemini developer API.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return newGemini(client.Models, model, logger), nil
}

func newGemini(g generator, model string, logger *slog.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: g, model: model, logger: logger}
}

func (g *Gemini) Recognize(ctx context.Context, image []byte, mimeType string) (string, bool) {
	if len(image) == 0 {
		return "", false
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(platePrompt),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
		TopP:        genai.Ptr[float32](1),
	})
	if err != nil {
		g.logger.Warn("plate recognition failed", "error", err)
		return "", false
	}
	return parsePlateReply(resp.Text())
}

func (g *Gemini) Summarize(ctx context.Context, logs []types.AccessLog) string {
	data, err := json.Marshal(logs)
	if err != nil {
		return AnalysisError
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(digestPrompt+string(data)), nil)
	if err != nil {
		g.logger.Warn("log analysis failed", "error", err)
		return AnalysisError
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text
	}
	return NoInsights
}

// parsePlateReply maps the model reply to a normalised plate. "NONE" and
// replies with nothing plate-like are "no plate".
func parsePlateReply(reply string) (string, bool) {
	reply = strings.TrimSpace(reply)
	if strings.EqualFold(strings.Trim(reply, `'"`), "NONE") {
		return "", false
	}
	plate := types.NormalizePlate(reply)
	if plate == "" {
		return "", false
	}
	return plate, true
}
