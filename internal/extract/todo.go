package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
	"github.com/effortless-app/effortless-server/internal/timeutil"
)

// Builder turns one classified phrase into a persisted entity plus a
// user-facing confirmation message in German.
type Builder interface {
	Build(ctx context.Context, phrase string, user *database.User, knownTags []database.Tag, loc *time.Location, now time.Time) (*Item, string, error)
}

// TodoBuilder extracts and persists todos.
type TodoBuilder struct {
	db        *database.DB
	extractor TodoExtractor
	logger    *zap.Logger
}

func NewTodoBuilder(db *database.DB, extractor TodoExtractor, logger *zap.Logger) *TodoBuilder {
	return &TodoBuilder{db: db, extractor: extractor, logger: logger}
}

func (b *TodoBuilder) Build(ctx context.Context, phrase string, user *database.User, knownTags []database.Tag, loc *time.Location, now time.Time) (*Item, string, error) {
	extraction, err := b.extractor.ExtractTodo(ctx, phrase, loc, now, TagNames(knownTags))
	if err != nil {
		return nil, "", fmt.Errorf("todo extraction: %w", err)
	}

	todo, err := b.db.CreateTodo(&database.Todo{
		UserID:    user.UUID,
		Text:      extraction.Text,
		EventTime: extraction.EventTime,
	})
	if err != nil {
		return nil, "", fmt.Errorf("todo persistence: %w", err)
	}

	tagIDs := ResolveTagIDs(knownTags, extraction.TagNames)
	for _, tagID := range tagIDs {
		if err := b.db.AttachTodoTag(todo.ID, tagID); err != nil {
			b.logger.Warn("failed to attach tag to todo",
				zap.Int64("todo_id", todo.ID),
				zap.Int64("tag_id", tagID),
				zap.Error(err))
		}
	}

	message := fmt.Sprintf("Todo erstellt: \"%s\"", todo.Text)
	if todo.EventTime != nil {
		message = fmt.Sprintf("Todo erstellt: \"%s\" (fällig am %s)", todo.Text, timeutil.FormatLocal(*todo.EventTime, loc))
	}

	return &Item{
		Kind:      KindTodo,
		ID:        todo.ID,
		Text:      todo.Text,
		EventTime: todo.EventTime,
		TagIDs:    tagIDs,
	}, message, nil
}
