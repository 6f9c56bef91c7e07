package postgres

import (
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

// applyPaginationAndSort applies pagination and sorting with a column whitelist
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	allowedSortColumns := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"id":         true,
		"title":      true,
		"started_at": true,
		"score":      true,
		"points":     true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func applyAssessmentFilters(query *gorm.DB, filters repositories.AssessmentFilters) *gorm.DB {
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	return query
}

func applyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if len(filters.AssessmentIDs) > 0 {
		query = query.Where("assessment_id IN ?", filters.AssessmentIDs)
	}
	if len(filters.TraineeIDs) > 0 {
		query = query.Where("trainee_id IN ?", filters.TraineeIDs)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}
