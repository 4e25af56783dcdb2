package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      string
	Status      string
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
