package utils

import (
	"context"

	"bitbucket.org/papermoa/trade_backend/config"
)

// check if id exists scoped to the owning company, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, companyId int, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, companyId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// count records, using WHERE company_id = ? AND $condition
// companyId can be zero for admin tooling
func ResourceCountWhere[T any](ctx context.Context, companyId int, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if companyId != 0 {
		dbCtx = dbCtx.Where("company_id = ?", companyId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
