package shared

import "github.com/railbook-next/internal/http/response"

// BuildPagination 根据总数计算分页信息。
func BuildPagination(page, pageSize int, total int64) response.Pagination {
	if page < 1 {
		page = 1
	}
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	}
}
