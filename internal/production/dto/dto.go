package dto

import "time"

type ProductionFilters struct {
	Status    string
	ProductID int64
	FromDate  *time.Time // on start_date
	ToDate    *time.Time // on end_date
	Page      int
	PageSize  int
}
