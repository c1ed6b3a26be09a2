package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/model"
)

const (
	maxEvents = 50
	maxTasks  = 100
)

// CalendarInfo is one entry of the user's calendar list.
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}

// CalendarSource lists a user's calendars and upcoming events.
type CalendarSource interface {
	ListCalendars(ctx context.Context, tok Token) ([]CalendarInfo, error)
	ListEvents(ctx context.Context, tok Token, calendarID string, timeMin time.Time) ([]model.RemoteEvent, error)
}

// TaskSource lists open items from every task list of a user.
type TaskSource interface {
	ListTasks(ctx context.Context, tok Token) ([]model.RemoteTask, error)
}

// Client implements CalendarSource and TaskSource over the Google REST APIs.
type Client struct {
	cfg     *oauth2.Config
	timeout time.Duration
	loc     *time.Location

	// endpoint and httpClient override the API host, for tests.
	endpoint   string
	httpClient *http.Client
}

func NewClient(cfg *oauth2.Config, timeout time.Duration, loc *time.Location) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, timeout: timeout, loc: loc}
}

func (c *Client) options(ctx context.Context, tok Token) []option.ClientOption {
	if c.httpClient != nil {
		return []option.ClientOption{option.WithHTTPClient(c.httpClient), option.WithEndpoint(c.endpoint)}
	}
	return []option.ClientOption{option.WithTokenSource(c.cfg.TokenSource(ctx, tok.toOAuth2()))}
}

func (c *Client) calendar(ctx context.Context, tok Token) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, c.options(ctx, tok)...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

func (c *Client) ListCalendars(ctx context.Context, tok Token) ([]CalendarInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	svc, err := c.calendar(ctx, tok)
	if err != nil {
		return nil, err
	}
	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, apperr.Unavailable("google", fmt.Errorf("list calendars: %w", err))
	}

	out := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, CalendarInfo{ID: item.Id, Summary: item.Summary, Primary: item.Primary})
	}
	return out, nil
}

// ListEvents returns single (expanded) events starting at or after timeMin in
// start order.
func (c *Client) ListEvents(ctx context.Context, tok Token, calendarID string, timeMin time.Time) ([]model.RemoteEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	svc, err := c.calendar(ctx, tok)
	if err != nil {
		return nil, err
	}
	res, err := svc.Events.List(calendarID).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEvents).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apperr.Unavailable("google", fmt.Errorf("list events for %s: %w", calendarID, err))
	}

	out := make([]model.RemoteEvent, 0, len(res.Items))
	for _, item := range res.Items {
		re, ok := toRemoteEvent(item, c.loc)
		if !ok {
			continue
		}
		out = append(out, re)
	}
	return out, nil
}

func parseEventTime(dt *calendar.EventDateTime, loc *time.Location) (t time.Time, allDay, ok bool) {
	if dt == nil {
		return time.Time{}, false, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err == nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, loc)
		return t, true, err == nil
	}
	return time.Time{}, false, false
}

func toRemoteEvent(e *calendar.Event, loc *time.Location) (model.RemoteEvent, bool) {
	start, allDay, ok := parseEventTime(e.Start, loc)
	if !ok || e.Id == "" {
		return model.RemoteEvent{}, false
	}
	re := model.RemoteEvent{
		ID:         e.Id,
		Summary:    e.Summary,
		Start:      start,
		AllDay:     allDay,
		Location:   e.Location,
		Visibility: e.Visibility,
	}
	if end, _, ok := parseEventTime(e.End, loc); ok {
		re.End = &end
	}
	return re, true
}

func (c *Client) ListTasks(ctx context.Context, tok Token) ([]model.RemoteTask, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	svc, err := tasks.NewService(ctx, c.options(ctx, tok)...)
	if err != nil {
		return nil, fmt.Errorf("create tasks service: %w", err)
	}
	lists, err := svc.Tasklists.List().MaxResults(maxTasks).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Unavailable("google", fmt.Errorf("list task lists: %w", err))
	}

	var out []model.RemoteTask
	for _, list := range lists.Items {
		res, err := svc.Tasks.List(list.Id).ShowCompleted(false).MaxResults(maxTasks).Context(ctx).Do()
		if err != nil {
			return nil, apperr.Unavailable("google", fmt.Errorf("list tasks in %s: %w", list.Id, err))
		}
		for _, item := range res.Items {
			out = append(out, toRemoteTask(item))
		}
	}
	return out, nil
}

func toRemoteTask(t *tasks.Task) model.RemoteTask {
	rt := model.RemoteTask{
		ID:        t.Id,
		Title:     t.Title,
		Notes:     t.Notes,
		Completed: t.Status == "completed",
	}
	if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
		rt.Due = &due
	}
	return rt
}
