package openrouter

import (
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// FlashcardSystemPrompt - системный промпт для генерации карточек из текста.
const FlashcardSystemPrompt = `You are an assistant that creates study flashcards.
Read the user's text and produce between 1 and 10 flashcards that cover its key facts and concepts.
Each flashcard has a "front" (a question or term, at most 200 characters) and a "back" (the answer or definition, at most 500 characters).
Write the flashcards in the language of the source text.
Respond only with JSON of the form {"flashcards":[{"front":"...","back":"..."}]}.`

// FlashcardCandidate - карточка, предложенная моделью.
type FlashcardCandidate struct {
	Front string `json:"front" validate:"required,min=1,max=200"`
	Back  string `json:"back" validate:"required,min=1,max=500"`
}

// FlashcardSet - ожидаемая структура ответа модели.
type FlashcardSet struct {
	Flashcards []FlashcardCandidate `json:"flashcards" validate:"required,min=1,max=10,dive"`
}

// Normalize обрезает пробелы по краям текста карточек.
func (s *FlashcardSet) Normalize() {
	for i := range s.Flashcards {
		s.Flashcards[i].Front = strings.TrimSpace(s.Flashcards[i].Front)
		s.Flashcards[i].Back = strings.TrimSpace(s.Flashcards[i].Back)
	}
}

// FlashcardSchema - строгая JSON-схема для response_format.
func FlashcardSchema() *ResponseSchema {
	card := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"front": {Type: jsonschema.String, Description: "Question or term, 1-200 characters"},
			"back":  {Type: jsonschema.String, Description: "Answer or definition, 1-500 characters"},
		},
		Required:             []string{"front", "back"},
		AdditionalProperties: false,
	}
	return &ResponseSchema{
		Name:        "flashcards",
		Description: "Flashcards generated from the source text",
		Strict:      true,
		Schema: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"flashcards": {Type: jsonschema.Array, Items: &card},
			},
			Required:             []string{"flashcards"},
			AdditionalProperties: false,
		},
	}
}
