package usecases

import (
	"context"
	"fmt"
	"time"

	"viloai/internal/entities"
	"viloai/internal/interfaces"
)

// UsageService enforces the monthly AI analysis quota. A limit of 0 is unlimited.
type UsageService struct {
	usage interfaces.UsageStore
	now   func() time.Time
}

func NewUsageService(usage interfaces.UsageStore) *UsageService {
	return &UsageService{usage: usage, now: time.Now}
}

func (s *UsageService) currentMonth() string {
	return s.now().UTC().Format("2006-01")
}

// CanAnalyze reports whether user still has analyses left this month.
func (s *UsageService) CanAnalyze(ctx context.Context, user *entities.User) (bool, error) {
	if user.MonthlyLimit <= 0 {
		return true, nil
	}
	used, err := s.usage.GetUsage(ctx, user.ID, s.currentMonth())
	if err != nil {
		return false, fmt.Errorf("read usage: %w", err)
	}
	return used < user.MonthlyLimit, nil
}

// Record counts one analysis against the current month.
func (s *UsageService) Record(ctx context.Context, userID int) error {
	if err := s.usage.IncrementUsage(ctx, userID, s.currentMonth()); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// Status returns the quota widget numbers. Remaining is -1 when unlimited.
func (s *UsageService) Status(ctx context.Context, user *entities.User) (*entities.UsageStatus, error) {
	month := s.currentMonth()
	used, err := s.usage.GetUsage(ctx, user.ID, month)
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}

	status := &entities.UsageStatus{
		Month:        month,
		MonthlyLimit: user.MonthlyLimit,
		Used:         used,
	}
	if user.MonthlyLimit > 0 {
		status.MonthlyRemaining = user.MonthlyLimit - used
		if status.MonthlyRemaining < 0 {
			status.MonthlyRemaining = 0
		}
		status.MonthlyPercent = (used * 100) / user.MonthlyLimit
		if status.MonthlyPercent > 100 {
			status.MonthlyPercent = 100
		}
	} else {
		status.MonthlyRemaining = -1
	}
	return status, nil
}
