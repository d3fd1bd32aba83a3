package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// ListActionsInput selects a page of the admin list. PageNumber is 1-based.
type ListActionsInput struct {
	PageNumber int
	PageSize   int
}

// CreateActionInput describes a new action. Either File or Icon must be set;
// File takes precedence and is uploaded under the icon field.
type CreateActionInput struct {
	Name        string
	Description string
	Status      Status
	Color       string
	CategoryID  string
	Icon        string

	File            io.Reader
	FileName        string
	FileContentType string
}

// ListActions fetches one page of actions and normalizes the response.
func (c *Client) ListActions(ctx context.Context, input ListActionsInput) (*ActionPage, error) {
	pageNumber := input.PageNumber
	if pageNumber < 1 {
		pageNumber = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	query := url.Values{}
	query.Set("pageNumber", itoa(pageNumber))
	query.Set("pageSize", itoa(pageSize))
	endpoint, err := c.endpoint(c.baseURL, ActionsListPath, query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, OpListActions, req, true)
	if err != nil {
		return nil, err
	}

	if c.strict {
		if err := ValidateListContract(resp.body); err != nil {
			return nil, err
		}
	}

	page := NormalizeActionList(resp.body, pageNumber, pageSize)
	c.logger.WithFields(logrus.Fields{
		"shape":       page.Shape,
		"items":       len(page.Items),
		"total_count": page.TotalCount,
		"page":        page.PageNumber,
	}).Debug("normalized action list")
	return &page, nil
}

// CreateAction uploads a new action as multipart form data. A missing
// image and icon is rejected before any request is made.
func (c *Client) CreateAction(ctx context.Context, input CreateActionInput) (*Action, error) {
	if input.File == nil && strings.TrimSpace(input.Icon) == "" {
		return nil, ErrIconRequired
	}

	body, contentType, err := encodeCreateForm(input)
	if err != nil {
		return nil, err
	}

	endpoint, err := c.endpoint(c.baseURL, ActionsAddPath, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, OpCreateAction, req, true)
	if err != nil {
		return nil, err
	}
	return extractCreatedAction(resp.body)
}

func encodeCreateForm(input CreateActionInput) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	fields := [][2]string{
		{"name", input.Name},
		{"description", input.Description},
		{"status", itoa(input.Status.FormValue())},
	}
	if input.Color != "" {
		fields = append(fields, [2]string{"color", input.Color})
	}
	if input.CategoryID != "" {
		fields = append(fields, [2]string{"categoryId", input.CategoryID})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", f[0], err)
		}
	}

	if input.File != nil {
		part, err := mw.CreatePart(iconPartHeader(input.FileName, input.FileContentType))
		if err != nil {
			return nil, "", fmt.Errorf("create icon part: %w", err)
		}
		if _, err := io.Copy(part, input.File); err != nil {
			return nil, "", fmt.Errorf("copy icon file: %w", err)
		}
	} else if err := mw.WriteField("icon", input.Icon); err != nil {
		return nil, "", fmt.Errorf("write icon field: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func iconPartHeader(filename, contentType string) textproto.MIMEHeader {
	if filename == "" {
		filename = "icon"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="icon"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}

// extractCreatedAction accepts the record under data, at the top level, or under result.
func extractCreatedAction(body []byte) (*Action, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, ErrInvalidResponse
	}

	candidate := gjson.Result{}
	switch {
	case truthy(root.Get("data")):
		candidate = root.Get("data")
	case truthy(root.Get("id")) || truthy(root.Get("name")):
		candidate = root
	case truthy(root.Get("result")):
		candidate = root.Get("result")
	}
	if !candidate.IsObject() {
		return nil, ErrInvalidResponse
	}

	var action Action
	if err := decodeRecord(candidate.Raw, &action); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &action, nil
}
