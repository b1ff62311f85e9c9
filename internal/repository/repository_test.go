package repository_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/vantage-media/quote-api/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// setupTestDB opens a fresh in-memory database with the full schema. Each
// call gets its own named database so pooled connections see the same data
// without tests seeing each other's.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&domain.Company{},
		&domain.Vendor{},
		&domain.VendorSupport{},
		&domain.VendorSupportFreeTier{},
		&domain.Product{},
		&domain.SupplierInfo{},
		&domain.Quote{},
		&domain.QuoteLine{},
		&domain.PurchaseCommitment{},
		&domain.PurchaseCommitmentLine{},
		&domain.ExchangeRate{},
		&domain.NumberSequence{},
		&domain.Activity{},
		&domain.User{},
		&domain.File{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	seedCompanies(t, db)

	return db
}

func seedCompanies(t *testing.T, db *gorm.DB) {
	t.Helper()
	companies := []domain.Company{
		{ID: domain.CompanyMedia, Name: "Vantage Media", Currency: "EUR", IsActive: true},
		{ID: domain.CompanyDigital, Name: "Vantage Digital", Currency: "EUR", IsActive: true},
		{ID: domain.CompanyRegie, Name: "Vantage Regie", Currency: "EUR", IsActive: true},
	}
	if err := db.Create(&companies).Error; err != nil {
		t.Fatalf("failed to seed companies: %v", err)
	}
}
