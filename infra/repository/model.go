package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a user record in the database.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"uniqueIndex;not null;size:50"`
	Password  string    `gorm:"not null"`
	CreatedAt time.Time
}

// Wallet is one balance row; a portfolio is all rows of a user.
type Wallet struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	CurrencyCode string    `gorm:"type:varchar(5);primaryKey"`
	Balance      float64   `gorm:"type:decimal(30,10);not null"`
}

// Rate is one row of the current snapshot. SnapshotAt is the refresh time
// shared by every row written together.
type Rate struct {
	Pair         string    `gorm:"type:varchar(11);primaryKey"`
	FromCurrency string    `gorm:"type:varchar(5);not null"`
	ToCurrency   string    `gorm:"type:varchar(5);not null"`
	Rate         float64   `gorm:"type:double precision;not null"`
	Source       string    `gorm:"type:varchar(64)"`
	ObservedAt   time.Time `gorm:"not null"`
	SnapshotAt   time.Time `gorm:"not null"`
}

// RateHistory is an append-only audit row.
type RateHistory struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecordID     string    `gorm:"type:varchar(64);index"`
	FromCurrency string    `gorm:"type:varchar(5);index:idx_rate_history_pair"`
	ToCurrency   string    `gorm:"type:varchar(5);index:idx_rate_history_pair"`
	Rate         float64   `gorm:"type:double precision;not null"`
	Timestamp    time.Time `gorm:"index"`
	Source       string    `gorm:"type:varchar(64)"`
	Client       string    `gorm:"type:varchar(64)"`
}

func (RateHistory) TableName() string {
	return "rate_history"
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Wallet{}, &Rate{}, &RateHistory{})
}
