package ports

import (
	"context"

	"github.com/bnema/schoolsync/internal/domain"
)

// ServiceClient fetches one account's data from a school platform. Methods
// return domain.ErrUnsupportedDomain when the platform has no such data.
type ServiceClient interface {
	FetchNews(ctx context.Context, account domain.Account) ([]domain.NewsItem, error)
	FetchHomeworks(ctx context.Context, account domain.Account) ([]domain.Homework, error)
	FetchGrades(ctx context.Context, account domain.Account) ([]domain.Grade, error)
	FetchLessons(ctx context.Context, account domain.Account) ([]domain.TimetableClass, error)
	FetchAttendance(ctx context.Context, account domain.Account) ([]domain.Absence, error)
	FetchEvaluations(ctx context.Context, account domain.Account) ([]domain.Evaluation, error)
}

type ServiceClientResolver interface {
	Resolve(ctx context.Context, account domain.Account) (ServiceClient, error)
}
