package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
	"github.com/effortless-app/effortless-server/internal/timeutil"
)

// Orchestrator runs the full pipeline for one incoming message: classify,
// extract each candidate concurrently, persist, and collect confirmations.
type Orchestrator struct {
	db              *database.DB
	classifier      CandidateExtractor
	todoBuilder     Builder
	reminderBuilder Builder
	logger          *zap.Logger

	// now is swapped out in tests for deterministic extraction.
	now func() time.Time
}

func NewOrchestrator(db *database.DB, classifier CandidateExtractor, todoBuilder, reminderBuilder Builder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		db:              db,
		classifier:      classifier,
		todoBuilder:     todoBuilder,
		reminderBuilder: reminderBuilder,
		logger:          logger,
		now:             time.Now,
	}
}

// ExtractAndCreate processes one raw message for a user. Candidates are
// extracted concurrently; a failing candidate is logged and skipped without
// affecting its siblings, so a partially processed message still succeeds.
// Items and Messages preserve the classifier's candidate order.
func (o *Orchestrator) ExtractAndCreate(ctx context.Context, userID, text string) (*Result, error) {
	user, err := o.db.GetUserByUUID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("unknown user: %s", userID)
	}

	loc, fellBack := timeutil.ResolveLocation(user.Timezone)
	if fellBack {
		o.logger.Warn("unknown user timezone, falling back to UTC",
			zap.String("user_id", userID),
			zap.String("timezone", user.Timezone))
	}

	knownTags, err := o.db.GetUserTags(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user tags: %w", err)
	}

	candidates, err := o.classifier.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classification: %w", err)
	}
	if len(candidates) == 0 {
		return &Result{Items: []Item{}, Messages: []string{}}, nil
	}

	now := o.now()

	// Index-aligned slices keep candidate order stable regardless of which
	// goroutine finishes first.
	items := make([]*Item, len(candidates))
	messages := make([]string, len(candidates))
	errs := make([]error, len(candidates))

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, candidate Candidate) {
			defer wg.Done()

			builder := o.todoBuilder
			if candidate.Kind == KindReminder {
				builder = o.reminderBuilder
			}
			items[i], messages[i], errs[i] = builder.Build(ctx, candidate.Text, user, knownTags, loc, now)
		}(i, candidate)
	}
	wg.Wait()

	result := &Result{Items: []Item{}, Messages: []string{}}
	for i, candidate := range candidates {
		if errs[i] != nil {
			o.logger.Error("candidate extraction failed",
				zap.String("user_id", userID),
				zap.String("kind", string(candidate.Kind)),
				zap.String("phrase", candidate.Text),
				zap.Error(errs[i]))
			continue
		}
		result.Items = append(result.Items, *items[i])
		result.Messages = append(result.Messages, messages[i])
	}
	return result, nil
}
