package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern and logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys and logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// DefinitionKey is the cache key of an assessment definition.
func DefinitionKey(assessmentID uint) string {
	return fmt.Sprintf("definition:%d", assessmentID)
}

// InvalidateAssessmentCache drops the cached definition and list pages of an assessment
func InvalidateAssessmentCache(ctx context.Context, cm *CacheManager, assessmentID uint) {
	SafeDelete(ctx, cm.Assessment, DefinitionKey(assessmentID))
	SafeInvalidatePattern(ctx, cm.Assessment, "list:*")
}

// InvalidateQuestionCache drops the question and every definition that may embed it
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%d", questionID))
	SafeInvalidatePattern(ctx, cm.Assessment, "definition:*")
}
