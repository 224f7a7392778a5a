package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const (
	decisionPersona = "Você é um assistente especializado em análise de intenções do usuário para consultas de CEP e previsão do tempo. Seja preciso e amigável."
	analysisPersona = "Você é um assistente especializado em análise de consultas de CEP e previsão do tempo. Seja preciso e amigável."
)

//go:embed template/decision_prompt.txt
var decisionPrompt string

//go:embed template/analysis_prompt.txt
var analysisPrompt string

// RenderDecision builds the messages for the primary classification call.
func RenderDecision(ctx context.Context, userInput string) ([]*schema.Message, error) {
	return render(ctx, decisionPersona, decisionPrompt, userInput)
}

// RenderAnalysis builds the messages for the broader second attempt.
func RenderAnalysis(ctx context.Context, userInput string) ([]*schema.Message, error) {
	return render(ctx, analysisPersona, analysisPrompt, userInput)
}

func render(ctx context.Context, persona, body, userInput string) ([]*schema.Message, error) {
	// Plain replacement keeps quotes and braces in the template untouched.
	content := strings.NewReplacer(
		"{user_input}", sanitizeInput(userInput),
	).Replace(body)

	// Wrap via Eino prompt component using a messages placeholder to emit callbacks
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"messages": []*schema.Message{
			schema.SystemMessage(persona),
			schema.UserMessage(content),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decision prompt callbacks: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("decision prompt callbacks: unexpected %d messages", len(msgs))
	}
	return msgs, nil
}

// sanitizeInput keeps the user text on one line and free of the quote that
// delimits it in the prompt.
func sanitizeInput(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, `"`, "'")
}
