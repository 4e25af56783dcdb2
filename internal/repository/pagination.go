package repository

import "gorm.io/gorm"

// MaxPageSize 列表接口单页上限
const MaxPageSize = 100

// NormalizePage 页码从 1 开始；页大小缺省取 defaultSize，超过 MaxPageSize 时截断
func NormalizePage(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// applyPagination 按规范化后的页码与页大小追加 LIMIT/OFFSET，页大小非法时不分页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	page, pageSize = NormalizePage(page, pageSize, pageSize)
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
