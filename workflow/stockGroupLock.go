package workflow

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
)

// AcquireStockGroupLock serializes check-then-reserve sequences per stock
// group across instances using MySQL advisory locks. GET_LOCK is
// connection-scoped and survives COMMIT, so the lock must be taken on the
// transaction's connection and explicitly released after the transaction
// completes; see ReleaseStockGroupLocks.
func AcquireStockGroupLock(tx *gorm.DB, key StockGroupKey) error {
	lockName := stockGroupLockName(key)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire stock group lock for company_id=%d", key.CompanyId)
	}
	return nil
}

// ReleaseStockGroupLocks drops every advisory lock the session holds. Call
// it on the pinned connection after the reserving transaction returns, so
// the lock outlives the commit but not the connection's stay in the pool.
func ReleaseStockGroupLocks(conn *gorm.DB, logger *logrus.Logger) {
	var released int
	if err := conn.Raw("SELECT RELEASE_ALL_LOCKS()").Scan(&released).Error; err != nil {
		config.LogError(logger, "stockGroupLock.go", "ReleaseStockGroupLocks", "ReleaseAllLocks", nil, err)
	}
}

// MySQL caps advisory lock names at 64 chars; hash the full group identity.
func stockGroupLockName(key StockGroupKey) string {
	sum := sha1.Sum([]byte(key.String()))
	return "stockgroup:" + hex.EncodeToString(sum[:])
}
