package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// Seeds a minimal local dataset: two trading companies with a relationship,
// one user each, and a small catalog. Prints bearer tokens for both users.
func main() {
	migrate := flag.Bool("migrate", true, "Run AutoMigrate before seeding")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	// cache invalidation below is a no-op without a redis client
	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	if *migrate {
		models.MigrateTable()
	}

	buyer := models.Company{
		BusinessName:              "Hanlim Paper",
		CompanyRegistrationNumber: "1018164581",
		InvoiceCode:               "HLP",
		RepresentativeName:        "Kim",
	}
	seller := models.Company{
		BusinessName:              "Daesung Trade",
		CompanyRegistrationNumber: "2208801234",
		InvoiceCode:               "DST",
		RepresentativeName:        "Park",
	}
	for _, c := range []*models.Company{&buyer, &seller} {
		if err := db.Where("company_registration_number = ?", c.CompanyRegistrationNumber).
			FirstOrCreate(c).Error; err != nil {
			fmt.Fprintf(os.Stderr, "seed company %s: %v\n", c.BusinessName, err)
			os.Exit(1)
		}
	}

	relationship := models.BusinessRelationship{
		SrcCompanyId: buyer.ID,
		DstCompanyId: seller.ID,
		IsActivated:  true,
	}
	if err := db.Where("src_company_id = ? AND dst_company_id = ?", buyer.ID, seller.ID).
		FirstOrCreate(&relationship).Error; err != nil {
		fmt.Fprintf(os.Stderr, "seed relationship: %v\n", err)
		os.Exit(1)
	}

	buyerUser := models.User{CompanyId: buyer.ID, Username: "buyer", Name: "Buyer Dev"}
	sellerUser := models.User{CompanyId: seller.ID, Username: "seller", Name: "Seller Dev"}
	for _, u := range []*models.User{&buyerUser, &sellerUser} {
		if err := db.Where("username = ?", u.Username).FirstOrCreate(u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "seed user %s: %v\n", u.Username, err)
			os.Exit(1)
		}
	}

	product := models.Product{PaperDomainId: 1, PaperGroupId: 1, PaperTypeId: 1, ManufacturerId: 1}
	if err := db.FirstOrCreate(&product, models.Product{ID: 1}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "seed product: %v\n", err)
		os.Exit(1)
	}
	packagings := []models.Packaging{
		{Name: "SKID", Type: models.PackagingTypeSkid, PackCount: 1},
		{Name: "REAM 500", Type: models.PackagingTypeReam, PackCount: 500},
		{Name: "BOX", Type: models.PackagingTypeBox, PackCount: 250},
		{Name: "ROLL", Type: models.PackagingTypeRoll, PackCount: 1},
	}
	for i := range packagings {
		if err := db.Where("name = ?", packagings[i].Name).FirstOrCreate(&packagings[i]).Error; err != nil {
			fmt.Fprintf(os.Stderr, "seed packaging %s: %v\n", packagings[i].Name, err)
			os.Exit(1)
		}
	}
	warehouse := models.Warehouse{CompanyId: seller.ID, Name: "Main"}
	if err := db.Where("company_id = ? AND name = ?", seller.ID, warehouse.Name).
		FirstOrCreate(&warehouse).Error; err != nil {
		fmt.Fprintf(os.Stderr, "seed warehouse: %v\n", err)
		os.Exit(1)
	}

	// a running server caches directory rows with an expiry; drop the
	// entries this seeding touched so it serves fresh rows immediately
	for _, c := range []models.Company{buyer, seller} {
		if err := utils.RemoveRedisItem[models.Company](c.ID); err != nil {
			fmt.Fprintf(os.Stderr, "invalidate company cache %d: %v\n", c.ID, err)
		}
	}
	for _, p := range packagings {
		if err := utils.RemoveRedisItem[models.Packaging](p.ID); err != nil {
			fmt.Fprintf(os.Stderr, "invalidate packaging cache %d: %v\n", p.ID, err)
		}
	}
	if err := utils.RemoveRedisItem[models.Warehouse](warehouse.ID); err != nil {
		fmt.Fprintf(os.Stderr, "invalidate warehouse cache %d: %v\n", warehouse.ID, err)
	}

	for _, u := range []models.User{buyerUser, sellerUser} {
		token, err := utils.JwtGenerate(u.ID, u.CompanyId, u.Username)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token for %s: %v\n", u.Username, err)
			os.Exit(1)
		}
		fmt.Printf("%s (company %d): Bearer %s\n", u.Username, u.CompanyId, token)
	}
	fmt.Println("done")
}
