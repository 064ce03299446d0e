package handler

import "gorm.io/gorm"

// PaginationMeta locates one page within the full result set.
type PaginationMeta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// PaginatedResponse wraps one page of results together with its metadata.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NewPaginatedResponse builds the envelope around an already-fetched page.
func NewPaginatedResponse[T any](data []T, totalItems int64, page, limit int) PaginatedResponse[T] {
	if limit <= 0 {
		limit = 1
	}
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{
			TotalItems:  totalItems,
			TotalPages:  (int(totalItems) + limit - 1) / limit,
			CurrentPage: page,
			PageSize:    limit,
		},
	}
}

// Paginate counts the filtered query, then fetches the requested page of it.
func Paginate[T any](query *gorm.DB, page, limit int) (*PaginatedResponse[T], error) {
	var total int64
	if err := query.Model(new(T)).Count(&total).Error; err != nil {
		return nil, err
	}

	var items []T
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}

	resp := NewPaginatedResponse(items, total, page, limit)
	return &resp, nil
}
