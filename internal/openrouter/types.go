package openrouter

import (
	"encoding/json"

	openaigo "github.com/sashabaranov/go-openai"
)

// Params - параметры генерации. nil означает значение из конфигурации клиента.
type Params struct {
	Temperature *float32
	MaxTokens   *int
	TopP        *float32
}

// ResponseSchema описывает ожидаемую структуру ответа для response_format json_schema.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      json.Marshaler
	Strict      bool
}

// Message - один запрос к модели.
type Message struct {
	SystemMessage  string
	UserMessage    string
	Model          string
	Params         Params
	ResponseSchema *ResponseSchema

	// Поля ниже попадают только в журнал ошибок.
	UserID           string
	SourceTextHash   string
	SourceTextLength int
}

// Choice - вариант ответа модели.
type Choice struct {
	Role         string
	Content      string
	FinishReason string
}

// Usage - расход токенов.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response - ответ chat completions.
type Response struct {
	ID      string
	Model   string
	Choices []Choice
	Usage   Usage
}

func responseFromOpenAI(r openaigo.ChatCompletionResponse) Response {
	out := Response{
		ID:    r.ID,
		Model: r.Model,
		Usage: Usage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		},
	}
	for _, ch := range r.Choices {
		out.Choices = append(out.Choices, Choice{
			Role:         ch.Message.Role,
			Content:      ch.Message.Content,
			FinishReason: string(ch.FinishReason),
		})
	}
	return out
}
