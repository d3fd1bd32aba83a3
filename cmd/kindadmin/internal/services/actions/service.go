// Package actions assembles the dashboard view of the actions list.
package actions

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// Empty-state copy shown by the dashboard.
const (
	MsgNoActions   = "No hay acciones disponibles"
	HintNoActions  = "Crea tu primera acción para comenzar"
	MsgNoMatches   = "No se encontraron acciones que coincidan con tu búsqueda"
	HintNoMatches  = "Intenta con otros términos de búsqueda"
	MsgLoadFailure = "Error al cargar las acciones"
)

// Lister is the SDK surface the dashboard needs.
type Lister interface {
	ListActions(ctx context.Context, input sdk.ListActionsInput) (*sdk.ActionPage, error)
}

// Query is the dashboard state carried in the URL.
type Query struct {
	Page     int
	PageSize int
	Search   string
	Filter   string
}

// ParseQuery reads page, pageSize, q and filter. Page sizes outside sizes fall
// back to the first option; pages below one become one.
func ParseQuery(values url.Values, sizes []int) Query {
	if len(sizes) == 0 {
		sizes = sdk.PageSizeOptions
	}

	q := Query{
		Page:     1,
		PageSize: sizes[0],
		Search:   strings.TrimSpace(values.Get("q")),
		Filter:   strings.TrimSpace(values.Get("filter")),
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 1 {
		q.Page = page
	}
	if size, err := strconv.Atoi(values.Get("pageSize")); err == nil && slices.Contains(sizes, size) {
		q.PageSize = size
	}
	return q
}

// Values encodes the query, omitting defaults.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	return v
}

// WithPage returns a copy pointing at page.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q
}

// WithPageSize returns a copy with a new page size. Changing the size resets to page one.
func (q Query) WithPageSize(size int) Query {
	q.PageSize = size
	q.Page = 1
	return q
}

// Narrowed reports whether search or filter hides part of the page.
func (q Query) Narrowed() bool {
	return q.Search != "" || q.Filter != ""
}

// View is everything the dashboard template renders.
type View struct {
	Query   Query
	Actions []sdk.Action
	// Fetched is the number of records the API returned for the page.
	Fetched     int
	TotalCount  int
	TotalPages  int
	FirstItem   int
	LastItem    int
	FilterError string
	EmptyTitle  string
	EmptyHint   string
	Shape       string
}

// HasPrev reports whether a previous page exists.
func (v *View) HasPrev() bool { return v.Query.Page > 1 }

// HasNext reports whether a next page exists.
func (v *View) HasNext() bool { return v.TotalPages > 0 && v.Query.Page < v.TotalPages }

// ShowPagination hides the pager when the list is empty.
func (v *View) ShowPagination() bool { return v.TotalCount > 0 }

// ShowRange is false for pages past the last one.
func (v *View) ShowRange() bool { return v.FirstItem > 0 }

// Service builds dashboard views.
type Service struct {
	logger logrus.FieldLogger
}

// NewService creates a Service.
func NewService(logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{logger: logger}
}

// Dashboard fetches one page and narrows it with the in-page search and the
// optional filter expression. An invalid filter is reported on the view and
// leaves the page unfiltered.
func (s *Service) Dashboard(ctx context.Context, lister Lister, q Query) (*View, error) {
	page, err := lister.ListActions(ctx, sdk.ListActionsInput{PageNumber: q.Page, PageSize: q.PageSize})
	if err != nil {
		return nil, err
	}

	view := &View{
		Query:      q,
		Fetched:    len(page.Items),
		TotalCount: page.TotalCount,
		TotalPages: TotalPages(page.TotalPages, page.TotalCount, q.PageSize),
		Shape:      page.Shape,
	}

	visible := Search(page.Items, q.Search)
	if q.Filter != "" {
		filtered, err := sdk.FilterActions(visible, q.Filter)
		if err != nil {
			s.logger.WithError(err).WithField("filter", q.Filter).Debug("rejected dashboard filter")
			view.FilterError = err.Error()
		} else {
			visible = filtered
		}
	}
	view.Actions = visible

	view.FirstItem, view.LastItem, _ = sdk.PageRange(q.Page, q.PageSize, view.TotalCount)

	if len(visible) == 0 {
		if q.Narrowed() {
			view.EmptyTitle, view.EmptyHint = MsgNoMatches, HintNoMatches
		} else {
			view.EmptyTitle, view.EmptyHint = MsgNoActions, HintNoActions
		}
	}
	return view, nil
}

// Search keeps actions whose name or description contains term, ignoring case.
func Search(items []sdk.Action, term string) []sdk.Action {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]sdk.Action, 0, len(items))
	for _, a := range items {
		if strings.Contains(strings.ToLower(a.DisplayName()), term) ||
			strings.Contains(strings.ToLower(a.Description), term) {
			out = append(out, a)
		}
	}
	return out
}

// TotalPages prefers the reported count and otherwise derives it, with one
// page as the floor for an empty list.
func TotalPages(reported, total, pageSize int) int {
	if reported > 0 {
		return reported
	}
	return max(sdk.PageCount(total, pageSize), 1)
}
