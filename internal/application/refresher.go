package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/logging"
	"github.com/bnema/schoolsync/internal/ports"
)

// Refresher pulls each domain's data for an account, caches it and notifies
// about records that were not seen before.
type Refresher struct {
	clients   ports.ServiceClientResolver
	snapshots ports.SnapshotStore
	notifier  ports.Notifier
	log       logrus.FieldLogger
}

func NewRefresher(clients ports.ServiceClientResolver, snapshots ports.SnapshotStore, notifier ports.Notifier, logger logrus.FieldLogger) *Refresher {
	return &Refresher{
		clients:   clients,
		snapshots: snapshots,
		notifier:  notifier,
		log:       logging.Component(logger, logging.ComponentRefresh),
	}
}

// Steps returns the refresh operations in background cycle order.
func (r *Refresher) Steps() []RefreshStep {
	return []RefreshStep{
		{Domain: domain.RefreshNews, Run: r.fetchNews},
		{Domain: domain.RefreshHomework, Run: r.fetchHomeworks},
		{Domain: domain.RefreshGrades, Run: r.fetchGrade},
		{Domain: domain.RefreshLessons, Run: r.fetchLessons},
		{Domain: domain.RefreshAttendance, Run: r.fetchAttendance},
		{Domain: domain.RefreshEvaluation, Run: r.fetchEvaluation},
	}
}

func (r *Refresher) fetchNews(ctx context.Context, account domain.Account) error {
	return refresh(ctx, r, account, domain.RefreshNews, ports.ServiceClient.FetchNews, func(n domain.NewsItem) domain.SnapshotItem {
		return domain.SnapshotItem{ID: n.ID, Title: n.Title, Body: n.Content, At: n.Date}
	})
}

func (r *Refresher) fetchHomeworks(ctx context.Context, account domain.Account) error {
	return refresh(ctx, r, account, domain.RefreshHomework, ports.ServiceClient.FetchHomeworks, func(h domain.Homework) domain.SnapshotItem {
		return domain.SnapshotItem{ID: h.ID, Title: h.Subject, Body: h.Content, At: h.Due}
	})
}

func (r *Refresher) fetchGrade(ctx context.Context, account domain.Account) error {
	return refresh(ctx, r, account, domain.RefreshGrades, ports.ServiceClient.FetchGrades, func(g domain.Grade) domain.SnapshotItem {
		body := g.Description
		if g.Student.Value != nil && g.OutOf.Value != nil {
			body = fmt.Sprintf("%s: %g/%g", g.Description, *g.Student.Value, *g.OutOf.Value)
		}
		return domain.SnapshotItem{ID: g.ID, Title: g.SubjectName, Body: body, At: g.Timestamp}
	})
}

func (r *Refresher) fetchLessons(ctx context.Context, account domain.Account) error {
	return refresh(ctx, r, account, domain.RefreshLessons, ports.ServiceClient.FetchLessons, func(c domain.TimetableClass) domain.SnapshotItem {
		return domain.SnapshotItem{ID: c.ID, Title: c.Title, Body: c.Room, At: c.Start}
	})
}

func (r *Refresher) fetchAttendance(ctx context.Context, account domain.Account) error {
	return refresh(ctx, r, account, domain.RefreshAttendance, ports.ServiceClient.FetchAttendance, func(a domain.Absence) domain.SnapshotItem {
		return domain.SnapshotItem{ID: a.ID, Title: "Absence", Body: a.Reason, At: a.From}
	})
}

func (r *Refresher) fetchEvaluation(ctx context.Context, account domain.Account) error {
	return refresh(ctx, r, account, domain.RefreshEvaluation, ports.ServiceClient.FetchEvaluations, func(e domain.Evaluation) domain.SnapshotItem {
		return domain.SnapshotItem{ID: e.ID, Title: e.Name, Body: e.Subject, At: e.Date}
	})
}

func refresh[T any](
	ctx context.Context,
	r *Refresher,
	account domain.Account,
	refreshDomain domain.RefreshDomain,
	fetch func(ports.ServiceClient, context.Context, domain.Account) ([]T, error),
	toItem func(T) domain.SnapshotItem,
) error {
	client, err := r.clients.Resolve(ctx, account)
	if err != nil {
		return fmt.Errorf("resolve service client: %w", err)
	}

	records, err := fetch(client, ctx, account)
	if errors.Is(err, domain.ErrUnsupportedDomain) {
		r.log.WithFields(logrus.Fields{"account": account.ID, "domain": refreshDomain}).Debug("Domain not supported by service")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", refreshDomain, err)
	}

	items := make([]domain.SnapshotItem, 0, len(records))
	for _, record := range records {
		item := toItem(record)
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", refreshDomain, item.ID, err)
		}
		item.Payload = payload
		items = append(items, item)
	}

	added, hadPrevious, err := r.snapshots.ReplaceSnapshot(ctx, account.ID, refreshDomain, items)
	if err != nil {
		return fmt.Errorf("store %s snapshot: %w", refreshDomain, err)
	}

	r.log.WithFields(logrus.Fields{
		"account": account.ID,
		"domain":  refreshDomain,
		"items":   len(items),
		"new":     len(added),
	}).Debug("Snapshot replaced")

	// The first sync of a domain seeds the cache silently.
	if !hadPrevious {
		return nil
	}
	for _, item := range added {
		r.notify(ctx, account, refreshDomain, item)
	}

	return nil
}

func (r *Refresher) notify(ctx context.Context, account domain.Account, refreshDomain domain.RefreshDomain, item domain.SnapshotItem) {
	notification := domain.Notification{
		ID:      fmt.Sprintf("%s:%s:%s", account.ID, refreshDomain, item.ID),
		Title:   fmt.Sprintf("%s: %s", refreshDomain.Label(), item.Title),
		Body:    item.Body,
		Channel: string(refreshDomain),
	}
	if err := r.notifier.Notify(ctx, notification); err != nil {
		r.log.WithError(err).WithField("account", account.ID).Warn("Failed to send refresh notification")
	}
}
