package dto

type WarehouseFilters struct {
	SearchQuery string // name or location
	Page        int
	PageSize    int
}
