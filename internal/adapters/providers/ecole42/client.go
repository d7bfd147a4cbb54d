// Package ecole42 fetches school data from the 42 intra API.
package ecole42

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

const (
	maxResponseBytes = 4 << 20
	userAgent        = "schoolsync/ecole42"

	// Project marks are out of 100 on the intra.
	gradeOutOf = 100
)

// gradeNamespace derives stable grade ids from projects_users ids.
var gradeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.intra.42.fr/v2/projects_users"))

// Client is bound to one account's credentials.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
	// expired is called when the session is rejected.
	expired func()
}

var _ ports.ServiceClient = (*Client)(nil)

func (c *Client) FetchGrades(ctx context.Context, account domain.Account) ([]domain.Grade, error) {
	me, err := c.get(ctx, "/me")
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	var grades []domain.Grade
	gjson.GetBytes(me, "projects_users").ForEach(func(_, project gjson.Result) bool {
		if project.Get("status").String() != "finished" {
			return true
		}

		name := project.Get("project.name").String()
		student := domain.DisabledGradeValue()
		if mark := project.Get("final_mark"); mark.Exists() && mark.Type != gjson.Null {
			student = domain.GradeValueOf(mark.Float())
		}

		grades = append(grades, domain.Grade{
			ID:          uuid.NewSHA1(gradeNamespace, []byte(project.Get("id").String())).String(),
			SubjectName: name,
			Description: name,
			Timestamp:   parseTime(project.Get("marked_at")),
			Student:     student,
			Min:         domain.DisabledGradeValue(),
			Max:         domain.DisabledGradeValue(),
			Average:     domain.DisabledGradeValue(),
			OutOf:       domain.GradeValueOf(gradeOutOf),
			Coefficient: 1,
		})
		return true
	})

	c.log.WithFields(logrus.Fields{"account": account.ID, "grades": len(grades)}).Debug("Fetched grades")
	return grades, nil
}

func (c *Client) FetchNews(ctx context.Context, account domain.Account) ([]domain.NewsItem, error) {
	userID, campus, err := c.identity(ctx, account)
	if err != nil {
		return nil, err
	}

	events, err := c.events(ctx, userID)
	if err != nil {
		return nil, err
	}

	news := make([]domain.NewsItem, 0, len(events))
	for _, event := range events {
		news = append(news, domain.NewsItem{
			ID:       event.Get("id").String(),
			Title:    event.Get("name").String(),
			Date:     parseTime(event.Get("created_at")),
			Content:  "\n" + event.Get("description").String(),
			Author:   "Campus " + campus,
			Category: event.Get("kind").String(),
			Read:     true,
		})
	}

	return news, nil
}

func (c *Client) FetchLessons(ctx context.Context, account domain.Account) ([]domain.TimetableClass, error) {
	userID, _, err := c.identity(ctx, account)
	if err != nil {
		return nil, err
	}

	events, err := c.events(ctx, userID)
	if err != nil {
		return nil, err
	}

	classes := make([]domain.TimetableClass, 0, len(events))
	for _, event := range events {
		kind := event.Get("kind").String()
		classes = append(classes, domain.TimetableClass{
			ID:              event.Get("id").String(),
			Subject:         kind,
			Type:            domain.ClassTypeActivity,
			Title:           event.Get("name").String(),
			ItemType:        kind,
			Start:           parseTime(event.Get("begin_at")),
			End:             parseTime(event.Get("end_at")),
			AdditionalNotes: event.Get("description").String(),
			Room:            event.Get("location").String(),
			Source:          string(domain.ServiceEcole42),
		})
	}

	return classes, nil
}

func (c *Client) FetchHomeworks(context.Context, domain.Account) ([]domain.Homework, error) {
	return nil, domain.ErrUnsupportedDomain
}

func (c *Client) FetchAttendance(context.Context, domain.Account) ([]domain.Absence, error) {
	return nil, domain.ErrUnsupportedDomain
}

func (c *Client) FetchEvaluations(context.Context, domain.Account) ([]domain.Evaluation, error) {
	return nil, domain.ErrUnsupportedDomain
}

// identity returns the intra user id and campus, asking /me for whatever the
// account metadata does not carry.
func (c *Client) identity(ctx context.Context, account domain.Account) (userID, campus string, err error) {
	userID = strings.TrimSpace(account.Metadata.RemoteUserID)
	campus = strings.TrimSpace(account.Metadata.Campus)
	if userID != "" && campus != "" {
		return userID, campus, nil
	}

	me, err := c.get(ctx, "/me")
	if err != nil {
		return "", "", fmt.Errorf("fetch profile: %w", err)
	}
	if userID == "" {
		userID = gjson.GetBytes(me, "id").String()
	}
	if campus == "" {
		campus = gjson.GetBytes(me, "campus.0.name").String()
	}
	if userID == "" {
		return "", "", errors.New("profile has no user id")
	}

	return userID, campus, nil
}

func (c *Client) events(ctx context.Context, userID string) ([]gjson.Result, error) {
	body, err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/events")
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, errors.New("fetch events: response is not a list")
	}
	return result.Array(), nil
}

func (c *Client) sessionExpired() {
	if c.expired != nil {
		c.expired()
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", userAgent)

	response, err := c.http.Do(request)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			c.sessionExpired()
			return nil, fmt.Errorf("%w: refresh token: %v", domain.ErrSessionExpired, retrieveErr)
		}
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
			c.sessionExpired()
			return nil, fmt.Errorf("%w: status %d", domain.ErrSessionExpired, response.StatusCode)
		}
		return nil, fmt.Errorf("status %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}

	return body, nil
}

func parseTime(value gjson.Result) time.Time {
	if value.Type != gjson.String {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value.String())
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
