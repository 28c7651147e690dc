package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyCourseFilters applies common filters to course queries
func (h *SharedHelpers) ApplyCourseFilters(query *gorm.DB, filters repositories.CourseFilters) *gorm.DB {
	if filters.Department != nil {
		query = query.Where("department = ?", *filters.Department)
	}
	if filters.Term != nil {
		query = query.Where("term = ?", *filters.Term)
	}
	if filters.Year != nil {
		query = query.Where("year = ?", *filters.Year)
	}
	if filters.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filters.TeacherID)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("course_name ILIKE ? OR course_number ILIKE ?", like, like)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"id":          true,
		"course_name": true,
		"department":  true,
		"year":        true,
		"joined_at":   true,
		"uploaded_at": true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
