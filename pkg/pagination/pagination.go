package pagination

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/JaimeStill/foreman/pkg/query"
)

// SortFields decodes from either a sort expression ("template_id,-total")
// or a JSON array of query.SortField values.
type SortFields []query.SortField

func (s *SortFields) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var expr string
		if err := json.Unmarshal(trimmed, &expr); err != nil {
			return err
		}
		*s = query.ParseSortFields(expr)
		return nil
	}

	var fields []query.SortField
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = fields
	return nil
}

// PageRequest selects one page of a listing. Search and Sort are optional.
type PageRequest struct {
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Search   *string    `json:"search,omitempty"`
	Sort     SortFields `json:"sort,omitempty"`
}

// Normalize clamps the page to at least 1 and the page size into
// [1, cfg.MaxPageSize], substituting cfg.DefaultPageSize when unset.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	r.PageSize = min(r.PageSize, cfg.MaxPageSize)
}

func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageRequestFromQuery reads page, page_size (alias size), search and sort
// from query values. The result is normalized against cfg.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	req := PageRequest{
		Page:     intParam(values, "page"),
		PageSize: intParam(values, "page_size", "size"),
		Sort:     query.ParseSortFields(values.Get("sort")),
	}
	if s := values.Get("search"); s != "" {
		req.Search = &s
	}

	req.Normalize(cfg)
	return req
}

// intParam returns the first of names that parses as an integer, or zero.
func intParam(values url.Values, names ...string) int {
	for _, name := range names {
		if n, err := strconv.Atoi(values.Get(name)); err == nil {
			return n
		}
	}
	return 0
}

// PageResult is one page of T plus the counts a client needs to page on.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

func (r PageResult[T]) HasNext() bool {
	return r.Page < r.TotalPages
}

// NewPageResult wraps data with its paging metadata. Data is never nil and
// TotalPages is never below one, so an empty listing still encodes as a page.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pageCount(total, pageSize),
	}
}

func pageCount(total, pageSize int) int {
	if pageSize < 1 || total < 1 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Map projects each item of r through fn. The paging metadata carries over.
func Map[T, U any](r PageResult[T], fn func(T) U) PageResult[U] {
	out := PageResult[U]{
		Data:       make([]U, 0, len(r.Data)),
		Total:      r.Total,
		Page:       r.Page,
		PageSize:   r.PageSize,
		TotalPages: r.TotalPages,
	}
	for _, v := range r.Data {
		out.Data = append(out.Data, fn(v))
	}
	return out
}
