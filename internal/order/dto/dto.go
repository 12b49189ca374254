package dto

import "time"

type OrderFilters struct {
	Search     string // order code substring
	Status     string
	CustomerID int64
	FromDate   *time.Time
	ToDate     *time.Time
	SortBy     string // created_at, order_date, total_amount, order_code
	SortOrder  string // asc, desc
	Page       int
	PageSize   int
}
