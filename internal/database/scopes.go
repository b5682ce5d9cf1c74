package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/project-management-api/internal/utils"
)

// Paginate applies offset pagination to a GORM query. Zero values add no
// clause, so an unset limit never renders as LIMIT 0.
func Paginate(params utils.PageParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.Skip > 0 {
			db = db.Offset(params.Skip)
		}
		if params.Limit > 0 {
			db = db.Limit(params.Limit)
		}
		return db
	}
}
