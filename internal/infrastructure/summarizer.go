package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"wadigest/internal/entities"
)

const summarySystemPrompt = "Você é um assistente especializado em análise de conversas e geração de resumos executivos profissionais."

const summaryPromptTemplate = `Você é um assistente especializado em analisar conversas de WhatsApp e gerar resumos executivos profissionais.

Analise as mensagens abaixo e gere um resumo estruturado em JSON com três campos:

**"full"** - Relatório completo em markdown com AS SEGUINTES SEÇÕES OBRIGATÓRIAS (nesta ordem):
- **Resumo Narrativo**: Contexto geral e principais assuntos discutidos
- **Análise de Sentimento**: Tom da conversa (Positivo, Neutro, Urgente, Descontraído, etc)
- **Principais Tópicos**: Lista dos temas abordados
- **👥 Destaques por Participante**: Liste APENAS os participantes que enviaram mensagens. Para cada um, crie sub-tópicos destacando suas contribuições mais relevantes: decisões tomadas, ações relevantes, avisos ou alertas importantes. Use o formato "* **Nome da Pessoa:**" seguido de bullet points indentados.
- **Decisões e Ações**: Compromissos gerais, próximos passos e responsabilidades
- **Observações**: Pontos de atenção ou destaques relevantes

**"short"** - Mensagem resumida (1-2 frases) em tom casual para enviar no WhatsApp

**"participants"** - Array com os nomes APENAS das pessoas que mais contribuíram (máximo 5)

Mensagens para analisar:
%s

RESPONDA APENAS COM O JSON no formato:
{"full": "## Resumo Narrativo\n...", "short": "mensagem curta aqui", "participants": ["Nome 1", "Nome 2"]}`

// QwenSummarizer calls a Qwen chat-completions endpoint through the OpenAI
// compatible-mode API. Mock mode short-circuits the provider entirely.
type QwenSummarizer struct {
	client  openai.Client
	model   string
	useMock bool
	log     zerolog.Logger
}

func NewQwenSummarizer(apiKey, baseURL, model string, useMock bool, logger zerolog.Logger) *QwenSummarizer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "qwen-turbo"
	}
	return &QwenSummarizer{
		client:  openai.NewClient(opts...),
		model:   model,
		useMock: useMock,
		log:     logger,
	}
}

func (s *QwenSummarizer) Summarize(ctx context.Context, transcript string) (entities.Summary, error) {
	if s.useMock {
		s.log.Warn().Msg("using mock summary (USE_MOCK_AI=true)")
		return mockSummary(transcript), nil
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage(fmt.Sprintf(summaryPromptTemplate, transcript)),
		},
		Temperature: openai.Float(0.5),
	})
	if err != nil {
		return entities.Summary{}, fmt.Errorf("calling summarization API: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return entities.Summary{}, fmt.Errorf("summarization API returned no content")
	}
	content := resp.Choices[0].Message.Content

	var parsed struct {
		Full         string   `json:"full"`
		Short        string   `json:"short"`
		Participants []string `json:"participants"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || parsed.Full == "" {
		// The model sometimes ignores the JSON instruction; the raw content
		// still works as the full report.
		s.log.Warn().Msg("summarizer returned non-JSON content, using it directly")
		return entities.Summary{
			Full:  content,
			Short: "Resumo do dia disponível! Confira o link abaixo.",
		}, nil
	}

	if parsed.Short == "" {
		parsed.Short = "Resumo disponível. Confira o link!"
	}
	return entities.Summary{
		Full:         parsed.Full,
		Short:        parsed.Short,
		Participants: parsed.Participants,
	}, nil
}

func mockSummary(transcript string) entities.Summary {
	lines := len(strings.Split(transcript, "\n"))
	return entities.Summary{
		Full: fmt.Sprintf("## Resumo Narrativo\nForam trocadas %d mensagens sobre atualizações do projeto.\n\n"+
			"## Análise de Sentimento\nClima: Positivo e colaborativo\n\n"+
			"## 👥 Destaques por Participante\n* **João Silva:**\n    * Confirmou a aprovação do projeto X\n"+
			"* **Maria Santos:**\n    * Ficou de enviar relatório amanhã\n\n"+
			"## Pontos de Ação\n- Confirmar dados com o cliente", lines),
		Short:        "Conversa produtiva sobre o projeto. Principais pontos definidos.",
		Participants: []string{"João Silva", "Maria Santos"},
	}
}
