package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"flashai/internal/models"
	"flashai/internal/openrouter"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MinSourceTextLength = 1000
	MaxSourceTextLength = 10000
)

// CompletionClient - клиент LLM. Реализуется openrouter.Client.
type CompletionClient interface {
	SendMessage(ctx context.Context, msg openrouter.Message, out any) error
	Model() string
}

// GenerationService предлагает карточки по исходному тексту.
type GenerationService interface {
	Generate(ctx context.Context, identity models.Identity, sourceText string) (*models.GenerateFlashcardsResponse, error)
}

var _ GenerationService = (*generationServiceImpl)(nil)

type generationServiceImpl struct {
	client CompletionClient
	now    func() time.Time
	logger *zap.Logger
}

func NewGenerationService(client CompletionClient, logger *zap.Logger) GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &generationServiceImpl{
		client: client,
		now:    time.Now,
		logger: logger.Named("GenerationService"),
	}
}

func (s *generationServiceImpl) Generate(ctx context.Context, identity models.Identity, sourceText string) (*models.GenerateFlashcardsResponse, error) {
	text := sanitizeSourceText(sourceText)
	length := utf8.RuneCountInString(text)
	if length < MinSourceTextLength || length > MaxSourceTextLength {
		return nil, fmt.Errorf("%w: source text must be between %d and %d characters, got %d",
			models.ErrInvalidInput, MinSourceTextLength, MaxSourceTextLength, length)
	}
	hash := hashData([]byte(text))

	log := s.logger.With(
		zap.String("user_id", identity.ID),
		zap.String("source_text_hash", hash),
		zap.Int("source_text_length", length),
	)
	log.Info("Generating flashcards")

	var set openrouter.FlashcardSet
	err := s.client.SendMessage(ctx, openrouter.Message{
		SystemMessage:    openrouter.FlashcardSystemPrompt,
		UserMessage:      text,
		ResponseSchema:   openrouter.FlashcardSchema(),
		UserID:           identity.ID,
		SourceTextHash:   hash,
		SourceTextLength: length,
	}, &set)
	if err != nil {
		// Клиент уже записал ошибку в журнал генераций.
		log.Warn("Flashcard generation failed", zap.Error(err))
		return nil, err
	}

	candidates := make([]models.FlashcardProposal, 0, len(set.Flashcards))
	for _, card := range set.Flashcards {
		candidates = append(candidates, models.FlashcardProposal{
			CandidateID: uuid.New(),
			Front:       card.Front,
			Back:        card.Back,
		})
	}

	log.Info("Flashcards generated", zap.Int("count", len(candidates)))
	return &models.GenerateFlashcardsResponse{
		Generation: models.GenerationSummary{
			Model:            s.client.Model(),
			SourceTextHash:   hash,
			SourceTextLength: length,
			GeneratedCount:   len(candidates),
			CreatedAt:        s.now().UTC(),
		},
		Candidates: candidates,
	}, nil
}
