package sql

import (
	"time"
)

// BatchEntity is the persistence representation of a Batch.
type BatchEntity struct {
	ID             string     `gorm:"column:id;primaryKey"`
	Name           string     `gorm:"column:name"`
	Status         string     `gorm:"column:status;index"`
	TotalCount     int        `gorm:"column:total_count"`
	CompletedCount int        `gorm:"column:completed_count"`
	FailedCount    int        `gorm:"column:failed_count"`
	ScheduledAt    *time.Time `gorm:"column:scheduled_at;index"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	StartedAt      *time.Time `gorm:"column:started_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	LastUpdated    time.Time  `gorm:"column:last_updated"`
	Version        int        `gorm:"column:version"`
}

// TableName overrides the GORM default table name.
func (BatchEntity) TableName() string {
	return "relist_batch"
}

// BatchItemEntity is the persistence representation of a BatchItem.
type BatchItemEntity struct {
	ID      string `gorm:"column:id;primaryKey"`
	BatchID string `gorm:"column:batch_id;index"`
	OfferID string `gorm:"column:offer_id"`

	ListingTitle   string `gorm:"column:listing_title"`
	ListingAddress string `gorm:"column:listing_address"`

	Status            string `gorm:"column:status"`
	ModifyStatus      string `gorm:"column:modify_status"`
	ReAdvertiseStatus string `gorm:"column:re_advertise_status"`
	ShouldReAdvertise bool   `gorm:"column:should_re_advertise"`

	ModifiedPrice         *int64 `gorm:"column:modified_price"`
	ModifiedRent          *int64 `gorm:"column:modified_rent"`
	ModifiedFloorExposure *bool  `gorm:"column:modified_floor_exposure"`

	CurrentStep  string `gorm:"column:current_step"`
	ErrorMessage string `gorm:"column:error_message"`
	RetryCount   int    `gorm:"column:retry_count"`

	CreatedAt              time.Time  `gorm:"column:created_at"`
	ModifyStartedAt        *time.Time `gorm:"column:modify_started_at"`
	ModifyCompletedAt      *time.Time `gorm:"column:modify_completed_at"`
	ReAdvertiseStartedAt   *time.Time `gorm:"column:re_advertise_started_at"`
	ReAdvertiseCompletedAt *time.Time `gorm:"column:re_advertise_completed_at"`
	LastUpdated            time.Time  `gorm:"column:last_updated"`
	Version                int        `gorm:"column:version"`
}

// TableName overrides the GORM default table name.
func (BatchItemEntity) TableName() string {
	return "relist_batch_item"
}
