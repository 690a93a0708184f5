package models

import (
	"bitbucket.org/papermoa/trade_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Company{},
		&BusinessRelationship{},
		&User{},
		&Product{},
		&Packaging{},
		&Warehouse{},
		&Location{},
		&Order{},
		&OrderStock{},
		&OrderProcess{},
		&OrderDeposit{},
		&OrderReturn{},
		&OrderRefund{},
		&OrderEtc{},
		&OrderHistory{},
		&Stock{},
		&StockEvent{},
		&StockPrice{},
		&Plan{},
		&Task{},
		&Deposit{},
		&DepositEvent{},
		&TradePrice{},
		&OrderStockTradePrice{},
		&OrderStockTradeAltBundle{},
		&OrderDepositTradePrice{},
		&OrderDepositTradeAltBundle{},
	)
}
