package grouptracking

import (
	"context"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/repository"
)

// HistoryService is the thin API-facing wrapper over
// GroupTrackingRepository,
// exposing the operations the gateway's tracked-groups endpoints call
// directly without reaching into repository internals.
type HistoryService struct {
	repo *repository.GroupTrackingRepository
}

func NewHistoryService(repo *repository.GroupTrackingRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// GetTrackedPeriods returns a tracked group's metadata and its most
// recent lastPeriods windows (0 means all).
func (s *HistoryService) GetTrackedPeriods(ctx context.Context, botID, groupID string, lastPeriods int64) (*domain.TrackedGroup, []domain.TrackedPeriod, error) {
	return s.repo.GetGroupMessages(ctx, botID, groupID, lastPeriods)
}

// GetGroups lists every group tracked for a bot.
func (s *HistoryService) GetGroups(ctx context.Context, botID string) ([]domain.TrackedGroup, error) {
	return s.repo.GetAllUserGroups(ctx, botID)
}

// DeleteGroupMessages drops every persisted period for one group.
func (s *HistoryService) DeleteGroupMessages(ctx context.Context, botID, groupID string) (int64, error) {
	return s.repo.DeleteGroupMessages(ctx, botID, groupID)
}

// DeleteAllMessages drops every persisted period for a bot, used on
// bot deletion.
func (s *HistoryService) DeleteAllMessages(ctx context.Context, botID string) (int64, error) {
	return s.repo.DeleteAllUserMessages(ctx, botID)
}
