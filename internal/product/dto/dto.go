package dto

type ProductFilters struct {
	SearchQuery string // sku or name
	Category    string
	LowStock    bool   // at or below min_stock in some warehouse
	SortBy      string // name, sku, price, created_at
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}
