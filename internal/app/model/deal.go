package model

import "time"

// Deal lifecycle statuses. Only the health engine moves deals between these;
// admin actions on the management surface may override them externally.
const (
	DealStatusApproved = "approved"
	DealStatusPending  = "pending"
	DealStatusRejected = "rejected"
	DealStatusDeleted  = "deleted"
)

// URL health classifications.
const (
	URLStatusUnchecked = "unchecked"
	URLStatusHealthy   = "healthy"
	URLStatusBroken    = "broken"
)

// Deal describes an aggregated affiliate deal stored in Postgres.
type Deal struct {
	ID                 string     `db:"id" gorm:"primaryKey;size:64"`
	Title              string     `db:"title" gorm:"type:text;not null"`
	Description        string     `db:"description" gorm:"type:text"`
	OriginalPrice      *float64   `db:"original_price" gorm:"type:numeric(10,2)"`
	SalePrice          *float64   `db:"sale_price" gorm:"type:numeric(10,2)"`
	DiscountPercentage int        `db:"discount_percentage" gorm:"not null;default:0"`
	ImageURL           string     `db:"image_url" gorm:"type:text"`
	AffiliateURL       string     `db:"affiliate_url" gorm:"type:text;not null"`
	Store              string     `db:"store" gorm:"size:128"`
	StoreLogoURL       string     `db:"store_logo_url" gorm:"type:text"`
	Category           string     `db:"category" gorm:"size:128"`
	Rating             *float64   `db:"rating" gorm:"type:numeric(2,1)"`
	ReviewCount        int        `db:"review_count" gorm:"not null;default:0"`
	ExpiresAt          *time.Time `db:"expires_at" gorm:"index"`
	IsActive           bool       `db:"is_active" gorm:"not null;default:true;index"`
	IsAIApproved       bool       `db:"is_ai_approved" gorm:"not null;default:false"`
	Popularity         int        `db:"popularity" gorm:"not null;default:0"`
	ClickCount         int        `db:"click_count" gorm:"not null;default:0"`
	ShareCount         int        `db:"share_count" gorm:"not null;default:0"`
	DealType           string     `db:"deal_type" gorm:"size:32;not null;default:latest"`
	SourceAPI          string     `db:"source_api" gorm:"size:64"`
	Status             string     `db:"status" gorm:"size:16;not null;default:pending;index"`

	// URL health state, owned by the health engine.
	URLLastChecked   *time.Time `db:"url_last_checked" gorm:"index"`
	URLCheckFailures int        `db:"url_check_failures" gorm:"not null;default:0"`
	URLStatus        string     `db:"url_status" gorm:"size:16;not null;default:unchecked;index"`
	URLFlaggedAt     *time.Time `db:"url_flagged_at"`

	DeletedAt *time.Time `db:"deleted_at"`
	CreatedAt time.Time  `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `db:"updated_at" gorm:"autoUpdateTime"`
}
