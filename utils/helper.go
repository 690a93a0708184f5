package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"

	"bitbucket.org/papermoa/trade_backend/config"
)

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errorResponse["error"] = err.Error()
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func randomDigits(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(err)
		}
		sb.WriteString(d.String())
	}
	return sb.String()
}

// SerialT generates an order serial: T + company invoice code + 10 digits.
func SerialT(invoiceCode string) string {
	return "T" + strings.ToUpper(invoiceCode) + randomDigits(10)
}

// SerialP generates a stock serial: P + company invoice code + 10 digits.
func SerialP(invoiceCode string) string {
	return "P" + strings.ToUpper(invoiceCode) + randomDigits(10)
}

// SerialW generates a plan serial: W + company invoice code + 10 digits.
func SerialW(invoiceCode string) string {
	return "W" + strings.ToUpper(invoiceCode) + randomDigits(10)
}

// WithRedisLock runs fn while holding a cross-instance lock. Used where an
// advisory DB lock does not fit, e.g. deposit lookup-or-create across
// replicas before the row exists.
func WithRedisLock(ctx context.Context, lockType string, key string, moduleName string, functionName string, fn func() error) error {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis lock may not be initialized in tests or tools; fall through
		// to the DB-level serialization alone.
		return fn()
	}
	lockKey := fmt.Sprintf("%s:%s", lockType, key)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, "utils/helper.go", functionName, "Could not obtain lock", lockKey, err)
		return errors.New("could not obtain lock for " + lockKey)
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock", lockKey, err)
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	return fn()
}
