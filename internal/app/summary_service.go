package app

import (
	"context"
	"time"

	"fintrack/internal/domain"

	"github.com/shopspring/decimal"
)

const maxSummaryDays = 366

// SummaryService computes per-day totals for dashboards.
type SummaryService struct {
	repo domain.TransactionRepository
	now  func() time.Time
}

// NewSummaryService creates a SummaryService backed by the given repository.
func NewSummaryService(repo domain.TransactionRepository) *SummaryService {
	return &SummaryService{repo: repo, now: time.Now}
}

// DayPoint is a single data point returned by GetDaily.
type DayPoint struct {
	Day string          `json:"day"`
	Net decimal.Decimal `json:"net"`
}

// GetDaily returns the net total of the claim's account for each of the last
// days local days, oldest first, along with the sum over the whole range.
func (s *SummaryService) GetDaily(ctx context.Context, claim *domain.SessionClaim, days int) ([]DayPoint, decimal.Decimal, error) {
	if claim.AccountID == "" {
		return nil, decimal.Zero, ErrNoAccount
	}
	if days <= 0 {
		days = 1
	}
	if days > maxSummaryDays {
		days = maxSummaryDays
	}

	today := s.now().In(time.Local)
	points := make([]DayPoint, 0, days)
	total := decimal.Zero

	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		net, err := s.repo.NetForLocalDay(ctx, claim.AccountID, day)
		if err != nil {
			return nil, decimal.Zero, err
		}
		total = total.Add(net)
		points = append(points, DayPoint{Day: day, Net: net})
	}
	return points, total, nil
}
