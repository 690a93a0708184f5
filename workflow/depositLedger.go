package workflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// DepositKey identifies the jointly tracked balance between two legal
// entities for one good spec.
type DepositKey struct {
	SrcCompanyRegistrationNumber string
	DstCompanyRegistrationNumber string
	Spec                         models.GoodSpec
}

func (k DepositKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%d", k.SrcCompanyRegistrationNumber, k.DstCompanyRegistrationNumber, k.Spec.ProductId, k.Spec.PackagingId)
}

// GetOrCreateDeposit resolves the deposit row for the key, creating it on
// first use. The redis lock serializes the lookup-or-create across
// instances; before the row exists there is nothing to row-lock.
func GetOrCreateDeposit(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, key DepositKey) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := utils.WithRedisLock(ctx, "deposit", key.String(), "depositLedger.go", "GetOrCreateDeposit", func() error {
		found, err := findDeposit(tx, key)
		if err != nil {
			return err
		}
		if found != nil {
			deposit = found
			return nil
		}
		created := models.Deposit{
			SrcCompanyRegistrationNumber: key.SrcCompanyRegistrationNumber,
			DstCompanyRegistrationNumber: key.DstCompanyRegistrationNumber,
			GoodSpec:                     key.Spec,
		}
		if err := tx.Create(&created).Error; err != nil {
			config.LogError(logger, "depositLedger.go", "GetOrCreateDeposit", "CreateDeposit", key.String(), err)
			return err
		}
		deposit = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

func findDeposit(tx *gorm.DB, key DepositKey) (*models.Deposit, error) {
	q := tx.Model(&models.Deposit{}).
		Where("src_company_registration_number = ?", key.SrcCompanyRegistrationNumber).
		Where("dst_company_registration_number = ?", key.DstCompanyRegistrationNumber).
		Where("product_id = ?", key.Spec.ProductId).
		Where("packaging_id = ?", key.Spec.PackagingId).
		Where("grammage = ?", key.Spec.Grammage).
		Where("size_x = ?", key.Spec.SizeX).
		Where("size_y = ?", key.Spec.SizeY)
	q = whereNullableInt(q, "paper_color_group_id", key.Spec.PaperColorGroupId)
	q = whereNullableInt(q, "paper_color_id", key.Spec.PaperColorId)
	q = whereNullableInt(q, "paper_pattern_id", key.Spec.PaperPatternId)
	q = whereNullableInt(q, "paper_cert_id", key.Spec.PaperCertId)

	var deposits []models.Deposit
	if err := q.Limit(1).Find(&deposits).Error; err != nil {
		return nil, err
	}
	if len(deposits) == 0 {
		return nil, nil
	}
	return &deposits[0], nil
}

type DepositEventLinks struct {
	OrderDepositId *int
	TargetOrderId  *int
	UserId         *int
	Memo           string
}

// CreateDepositEvent appends one ledger entry to the deposit. Positive
// change grows the stored balance, negative spends it.
func CreateDepositEvent(tx *gorm.DB, logger *logrus.Logger, depositId int, change decimal.Decimal, links DepositEventLinks) (int, error) {
	if change.IsZero() {
		return 0, utils.BadRequestError("deposit change must not be zero")
	}
	event := models.DepositEvent{
		DepositId:      depositId,
		Change:         change,
		Status:         models.DepositEventStatusNormal,
		Memo:           links.Memo,
		OrderDepositId: links.OrderDepositId,
		TargetOrderId:  links.TargetOrderId,
		UserId:         links.UserId,
	}
	if err := tx.Create(&event).Error; err != nil {
		config.LogError(logger, "depositLedger.go", "CreateDepositEvent", "CreateEvent", depositId, err)
		return 0, err
	}
	return event.ID, nil
}

// CancelDepositEvent voids an entry; the row stays for history.
func CancelDepositEvent(tx *gorm.DB, logger *logrus.Logger, eventId int) error {
	err := tx.Model(&models.DepositEvent{}).
		Where("id = ?", eventId).
		Update("status", models.DepositEventStatusCancelled).Error
	if err != nil {
		config.LogError(logger, "depositLedger.go", "CancelDepositEvent", "UpdateStatus", eventId, err)
		return err
	}
	return nil
}

// cancelDepositEventsOfOrder voids every deposit entry an order produced
// (its own deposit sub-records and deposit releases spent on it).
func cancelDepositEventsOfOrder(tx *gorm.DB, logger *logrus.Logger, orderId int) error {
	var orderDepositIds []int
	if err := tx.Model(&models.OrderDeposit{}).
		Where("order_id = ? OR target_order_id = ?", orderId, orderId).
		Pluck("id", &orderDepositIds).Error; err != nil {
		config.LogError(logger, "depositLedger.go", "cancelDepositEventsOfOrder", "PluckOrderDeposits", orderId, err)
		return err
	}
	if len(orderDepositIds) == 0 {
		return nil
	}
	err := tx.Model(&models.DepositEvent{}).
		Where("order_deposit_id IN ?", orderDepositIds).
		Update("status", models.DepositEventStatusCancelled).Error
	if err != nil {
		config.LogError(logger, "depositLedger.go", "cancelDepositEventsOfOrder", "CancelEvents", orderId, err)
		return err
	}
	return nil
}

// GetDepositBalance sums non-cancelled entries.
func GetDepositBalance(tx *gorm.DB, depositId int) (decimal.Decimal, error) {
	var total *decimal.Decimal
	err := tx.Model(&models.DepositEvent{}).
		Where("deposit_id = ?", depositId).
		Where("status = ?", models.DepositEventStatusNormal).
		Select("SUM(`change`)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if total == nil {
		return decimal.Zero, nil
	}
	return *total, nil
}

// GetDepositList returns the deposits a company participates in, either
// side of the pair.
func GetDepositList(ctx context.Context, companyRegistrationNumber string) ([]models.Deposit, error) {
	db := config.GetDB()
	var deposits []models.Deposit
	err := db.WithContext(ctx).
		Where("src_company_registration_number = ? OR dst_company_registration_number = ?",
			companyRegistrationNumber, companyRegistrationNumber).
		Find(&deposits).Error
	if err != nil {
		return nil, err
	}
	return deposits, nil
}

// GetDepositHistory returns a deposit's full event trail, newest first.
func GetDepositHistory(ctx context.Context, depositId int) ([]models.DepositEvent, error) {
	db := config.GetDB()
	var events []models.DepositEvent
	err := db.WithContext(ctx).
		Where("deposit_id = ?", depositId).
		Order("id DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
