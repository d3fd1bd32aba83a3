package sdk

import (
	"github.com/tidwall/gjson"
)

// Names of the response layouts recognized by NormalizeActionList.
const (
	ShapeBareArray    = "bare-array"
	ShapeDoubleNested = "double-nested"
	ShapeSingleNested = "single-nested"
	ShapeAlternate    = "alternate-fields"
	ShapeEmpty        = "empty"
)

// shapeMatcher recognizes one layout of the list endpoint response.
type shapeMatcher struct {
	name  string
	match func(root gjson.Result) bool
	build func(root gjson.Result, pageNumber, pageSize int) ActionPage
}

// listShapes is evaluated in order; the first match wins.
var listShapes = []shapeMatcher{
	{
		name:  ShapeBareArray,
		match: func(root gjson.Result) bool { return root.IsArray() },
		build: func(root gjson.Result, pageNumber, pageSize int) ActionPage {
			items := decodeActions(root)
			return ActionPage{
				Items:      items,
				TotalCount: len(items),
				PageNumber: pageNumber,
				PageSize:   pageSize,
				TotalPages: PageCount(len(items), pageSize),
			}
		},
	},
	{
		name: ShapeDoubleNested,
		match: func(root gjson.Result) bool {
			return root.IsObject() && root.Get("data").IsObject() && root.Get("data.data").IsArray()
		},
		build: func(root gjson.Result, pageNumber, pageSize int) ActionPage {
			inner := root.Get("data")
			items := decodeActions(inner.Get("data"))
			return envelopePage(inner, items, []string{"totalElements", "totalCount", "total"}, pageNumber, pageSize, true)
		},
	},
	{
		name: ShapeSingleNested,
		match: func(root gjson.Result) bool {
			return root.IsObject() && truthy(root.Get("data"))
		},
		build: func(root gjson.Result, pageNumber, pageSize int) ActionPage {
			var items []Action
			if data := root.Get("data"); data.IsArray() {
				items = decodeActions(data)
			}
			return envelopePage(root, items, []string{"totalCount", "totalElements", "total", "count"}, pageNumber, pageSize, true)
		},
	},
	{
		name:  ShapeAlternate,
		match: func(root gjson.Result) bool { return root.IsObject() },
		build: func(root gjson.Result, pageNumber, pageSize int) ActionPage {
			var items []Action
			for _, field := range []string{"items", "results", "actions"} {
				if v := root.Get(field); truthy(v) {
					if v.IsArray() {
						items = decodeActions(v)
					}
					break
				}
			}
			return envelopePage(root, items, []string{"totalCount", "total", "count"}, pageNumber, pageSize, false)
		},
	},
}

// NormalizeActionList rebuilds a page of actions from whatever layout the
// list endpoint returned. Unrecognized input yields an empty page; it never fails.
func NormalizeActionList(body []byte, pageNumber, pageSize int) ActionPage {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	if gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		for _, shape := range listShapes {
			if !shape.match(root) {
				continue
			}
			page := shape.build(root, pageNumber, pageSize)
			page.Shape = shape.name
			return clampPage(page)
		}
	}

	return ActionPage{
		Items:      []Action{},
		TotalCount: 0,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: 0,
		Shape:      ShapeEmpty,
	}
}

// envelopePage reads paging metadata from obj. When explicitPage is set a
// present pageNumber field is honoured even if zero; otherwise only non-zero
// values override the requested page.
func envelopePage(obj gjson.Result, items []Action, totalFields []string, pageNumber, pageSize int, explicitPage bool) ActionPage {
	total, ok := firstNonZero(obj, totalFields...)
	if !ok {
		total = len(items)
	}

	size := pageSize
	if v, ok := firstNonZero(obj, "pageSize"); ok {
		size = v
	}

	number := pageNumber
	if pn := obj.Get("pageNumber"); explicitPage && pn.Exists() && pn.Type != gjson.Null {
		number = int(pn.Int())
	} else if v, ok := firstNonZero(obj, "pageNumber"); ok {
		number = v
	}

	pages, ok := firstNonZero(obj, "totalPages")
	if !ok {
		pages = PageCount(total, size)
	}

	return ActionPage{
		Items:      items,
		TotalCount: total,
		PageNumber: number,
		PageSize:   size,
		TotalPages: pages,
	}
}

func decodeActions(arr gjson.Result) []Action {
	items := make([]Action, 0, len(arr.Array()))
	arr.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		var action Action
		// Partially decoded records are kept; drifted fields stay zero.
		_ = decodeRecord(value.Raw, &action)
		items = append(items, action)
		return true
	})
	return items
}

func clampPage(page ActionPage) ActionPage {
	if page.Items == nil {
		page.Items = []Action{}
	}
	if page.PageNumber < 1 {
		page.PageNumber = 1
	}
	if page.PageSize < 1 {
		page.PageSize = DefaultPageSize
	}
	if page.TotalCount < 0 {
		page.TotalCount = 0
	}
	if page.TotalPages < 0 {
		page.TotalPages = 0
	}
	return page
}

// firstNonZero returns the first of fields holding a non-zero number.
func firstNonZero(obj gjson.Result, fields ...string) (int, bool) {
	for _, field := range fields {
		v := obj.Get(field)
		if !v.Exists() {
			continue
		}
		if n := int(v.Int()); n != 0 {
			return n, true
		}
	}
	return 0, false
}

// truthy mirrors the loose truthiness the upstream payloads are written against.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.True, gjson.JSON:
		return true
	}
	return false
}

// PageCount is the number of pages of size needed for total items.
func PageCount(total, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return pages
}

// PageRange returns the 1-based positions of the first and last item of
// page. ok is false when the page starts past total.
func PageRange(page, size, total int) (first, last int, ok bool) {
	if page < 1 || size < 1 || total <= 0 || page-1 > (total-1)/size {
		return 0, 0, false
	}
	offset := (page - 1) * size
	return offset + 1, offset + min(size, total-offset), true
}
