package repos

import (
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListOptions is shared offset pagination: skip = (page-1)*size, size
// clamped to [1,100], page >= 1.
type ListOptions struct {
	Page      int
	Size      int
	SortBy    string
	SortOrder string
}

func (o ListOptions) Normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Size < 1 {
		o.Size = defaultPageSize
	}
	if o.Size > maxPageSize {
		o.Size = maxPageSize
	}
	if strings.ToLower(o.SortOrder) != "asc" {
		o.SortOrder = "desc"
	} else {
		o.SortOrder = "asc"
	}
	return o
}

func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Size
}

// applySort whitelists the sort column. Unknown fields fall back to the
// default column rather than erroring.
func applySort(q *gorm.DB, opts ListOptions, allowed map[string]string, defaultColumn string) *gorm.DB {
	column := defaultColumn
	if mapped, ok := allowed[opts.SortBy]; ok {
		column = mapped
	}
	return q.Order(column + " " + opts.SortOrder)
}
