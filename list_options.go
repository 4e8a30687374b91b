package main

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SortType is the direction signature listings are ordered by creation time.
type SortType string

const (
	SortTypeAscending  SortType = "asc"
	SortTypeDescending SortType = "desc"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListOptions pages through the signature audit log. A nil *ListOptions is
// the first page in the default order.
type ListOptions struct {
	Offset uint32    `json:"offset,omitempty"`
	Limit  uint32    `json:"limit,omitempty" validate:"lte=100"`
	Sort   *SortType `json:"sort,omitempty" validate:"omitempty,oneof=asc desc"`
}

func (o *ListOptions) offset() int {
	if o == nil {
		return 0
	}
	return int(o.Offset)
}

func (o *ListOptions) limit() int {
	switch {
	case o == nil || o.Limit == 0:
		return DefaultLimit
	case o.Limit > MaxLimit:
		return MaxLimit
	default:
		return int(o.Limit)
	}
}

func (o *ListOptions) descending(defaultSort SortType) bool {
	if o == nil || o.Sort == nil {
		return defaultSort == SortTypeDescending
	}
	return *o.Sort == SortTypeDescending
}

// scope orders by column, then by id so records sharing a value keep a
// stable position across pages, and selects one page.
func (o *ListOptions) scope(column string, defaultSort SortType) func(*gorm.DB) *gorm.DB {
	desc := o.descending(defaultSort)
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
			Offset(o.offset()).
			Limit(o.limit())
	}
}
