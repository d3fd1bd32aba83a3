package sdk

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DefaultPageSize is used when a list request does not specify a page size.
const DefaultPageSize = 10

// PageSizeOptions lists the page sizes offered by the dashboard.
var PageSizeOptions = []int{10, 20, 50, 100}

// Status is the normalized state of an action. The upstream API reports it
// as a string, a number or a boolean depending on the endpoint.
type Status int

const (
	StatusUnknown Status = iota
	StatusInactive
	StatusActive
)

// ParseStatus normalizes the loosely typed status values sent by the API.
// 1, true and the strings active, activo, true and 1 mean active.
func ParseStatus(v any) Status {
	switch t := v.(type) {
	case nil:
		return StatusUnknown
	case Status:
		return t
	case bool:
		if t {
			return StatusActive
		}
		return StatusInactive
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 1 {
			return StatusActive
		}
		return StatusInactive
	case float64:
		if t == 1 {
			return StatusActive
		}
		return StatusInactive
	case int:
		if t == 1 {
			return StatusActive
		}
		return StatusInactive
	case int64:
		if t == 1 {
			return StatusActive
		}
		return StatusInactive
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "":
			return StatusUnknown
		case "active", "activo", "true", "1":
			return StatusActive
		default:
			return StatusInactive
		}
	default:
		return StatusInactive
	}
}

// IsActive reports whether the status should render as active.
func (s Status) IsActive() bool {
	return s == StatusActive
}

// Label is the badge text shown on the dashboard.
func (s Status) Label() string {
	if s.IsActive() {
		return "Activo"
	}
	return "Inactivo"
}

// FormValue is the integer the create endpoint expects. Unknown defaults to active.
func (s Status) FormValue() int {
	if s == StatusInactive {
		return 0
	}
	return 1
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

func (s Status) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Action is a community good-deed record managed by the admin tool.
type Action struct {
	ID           string `json:"id" yaml:"id" mapstructure:"id"`
	Name         string `json:"name" yaml:"name" mapstructure:"name"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Description  string `json:"description" yaml:"description" mapstructure:"description"`
	CategoryID   string `json:"categoryId,omitempty" yaml:"categoryId,omitempty" mapstructure:"categoryId"`
	CategoryName string `json:"categoryName,omitempty" yaml:"categoryName,omitempty" mapstructure:"categoryName"`
	Icon         string `json:"icon,omitempty" yaml:"icon,omitempty" mapstructure:"icon"`
	Color        string `json:"color,omitempty" yaml:"color,omitempty" mapstructure:"color"`
	Status       Status `json:"status" yaml:"status" mapstructure:"status"`
	CreatedAt    string `json:"createdAt,omitempty" yaml:"createdAt,omitempty" mapstructure:"createdAt"`
	UpdatedAt    string `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty" mapstructure:"updatedAt"`
}

// DisplayName prefers name and falls back to title.
func (a Action) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Title
}

// HasImageIcon reports whether the icon is a URL rather than a glyph.
func (a Action) HasImageIcon() bool {
	return strings.HasPrefix(a.Icon, "http")
}

// ActionPage is a normalized page of actions.
type ActionPage struct {
	Items      []Action `json:"data" yaml:"data"`
	TotalCount int      `json:"totalCount" yaml:"totalCount"`
	PageNumber int      `json:"pageNumber" yaml:"pageNumber"`
	PageSize   int      `json:"pageSize" yaml:"pageSize"`
	TotalPages int      `json:"totalPages" yaml:"totalPages"`
	// Shape names the response layout the page was recovered from.
	Shape string `json:"-" yaml:"-"`
}

// User is the profile stored alongside the token.
type User struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Email string `json:"email" yaml:"email" mapstructure:"email"`
	Name  string `json:"name" yaml:"name" mapstructure:"name"`
}

var statusType = reflect.TypeOf(StatusUnknown)

// statusDecodeHook routes any value headed for a Status field through ParseStatus.
func statusDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != statusType {
		return data, nil
	}
	return ParseStatus(data), nil
}

// decodeRecord decodes a loosely typed JSON object into out. Numbers become
// strings where a string is expected and status values are normalized.
func decodeRecord(raw string, out any) error {
	var fields map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       statusDecodeHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(fields)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
