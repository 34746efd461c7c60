package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// FilterParams carries the parsed list-endpoint parameters: filters in the
// filters[field]=value form, sorting, pagination and free-text search.
type FilterParams struct {
	Filters map[string]string `json:"filters"`
	Sort    SortParams        `json:"sort"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	Search  string            `json:"search"`
}

// SortParams represents sorting parameters
type SortParams struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// PaginationResponse represents pagination metadata
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ParseQueryParams extracts the standardized list parameters from a request.
// Out-of-range pagination values are clamped rather than rejected.
func ParseQueryParams(c *gin.Context) FilterParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	// filters[field_name]=value
	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, "filters[") || !strings.HasSuffix(key, "]") {
			continue
		}
		fieldName := key[len("filters[") : len(key)-1]
		if fieldName != "" && len(values) > 0 && values[0] != "" {
			filters[fieldName] = values[0]
		}
	}

	// sort[field]=field_name&sort[order]=asc|desc
	sortField := c.DefaultQuery("sort[field]", "created_at")
	sortOrder := c.DefaultQuery("sort[order]", "desc")
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return FilterParams{
		Filters: filters,
		Sort:    SortParams{Field: sortField, Order: sortOrder},
		Page:    page,
		Limit:   limit,
		Search:  c.Query("search"),
	}
}

// ApplyFilters adds equality conditions for every filter whose field appears
// in the allowlist. Unknown fields are ignored, never an error.
func ApplyFilters(query *gorm.DB, filters map[string]string, allowedFields map[string]string) *gorm.DB {
	for field, value := range filters {
		dbField, allowed := allowedFields[field]
		if !allowed || value == "" {
			continue
		}
		query = query.Where(fmt.Sprintf("%s = ?", dbField), value)
	}
	return query
}

// ApplySearch adds a case-insensitive substring match across the given
// columns, OR-combined.
func ApplySearch(query *gorm.DB, search string, searchFields []string) *gorm.DB {
	if search == "" || len(searchFields) == 0 {
		return query
	}

	conditions := make([]string, len(searchFields))
	args := make([]interface{}, len(searchFields))
	for i, field := range searchFields {
		conditions[i] = fmt.Sprintf("%s ILIKE ?", field)
		args[i] = "%" + search + "%"
	}

	return query.Where(strings.Join(conditions, " OR "), args...)
}

// ApplySort orders by the requested field when allowlisted, otherwise falls
// back to newest first.
func ApplySort(query *gorm.DB, sort SortParams, allowedSortFields map[string]string) *gorm.DB {
	if dbField, allowed := allowedSortFields[sort.Field]; allowed {
		return query.Order(fmt.Sprintf("%s %s", dbField, strings.ToUpper(sort.Order)))
	}
	return query.Order("created_at DESC")
}

// ApplyPagination applies offset pagination to a query
func ApplyPagination(query *gorm.DB, page, limit int) *gorm.DB {
	return query.Offset((page - 1) * limit).Limit(limit)
}

// BuildPaginationResponse creates pagination metadata
func BuildPaginationResponse(page, limit int, total int64) PaginationResponse {
	totalPages := (total + int64(limit) - 1) / int64(limit)

	return PaginationResponse{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < int(totalPages),
		HasPrev:    page > 1,
	}
}
