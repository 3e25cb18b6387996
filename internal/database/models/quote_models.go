package models

import "time"

// Quote lifecycle. Transitions are monotonic: a finalized quote never
// returns to pending, accepted and refused are terminal.
const (
	QuoteStatusPending   = "pending"
	QuoteStatusFinalized = "finalized"
	QuoteStatusAccepted  = "accepted"
	QuoteStatusRefused   = "refused"
)

// Item collections a quote task can live in.
const (
	ItemTypeService = "service"
	ItemTypePack    = "pack"
	ItemTypeAdhoc   = "adhoc"
)

type Service struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"uniqueIndex;not null" json:"name"`
	Type        string     `gorm:"not null" json:"type"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedAt   *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ServicePack struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string     `gorm:"uniqueIndex;not null" json:"name"`
	Services  []Service  `gorm:"many2many:service_pack_items" json:"services,omitempty"`
	Discount  string     `gorm:"type:decimal(18,2);default:'0.00'" json:"discount"`
	CreatedAt *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Quote struct {
	ID       int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID int64    `gorm:"not null;index:idx_quote_client_status" json:"client_id"`
	Client   *User    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	VehicleID int64   `gorm:"not null" json:"vehicle_id"`
	Vehicle  *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Problem  string   `gorm:"type:text;not null" json:"problem"`
	Status   string   `gorm:"not null;default:'pending';index:idx_quote_client_status" json:"status"`
	// Total is derived; it is recomputed from the line collections and
	// mechanic assignments on every mutation, never hand-edited.
	Total            string             `gorm:"type:decimal(18,2);default:'0.00'" json:"total"`
	InterventionDate *time.Time         `json:"intervention_date,omitempty"`
	ResponseDate     *time.Time         `json:"response_date,omitempty"`
	RespondedByID    *int64             `json:"responded_by_id,omitempty"`
	RespondedBy      *User              `gorm:"foreignKey:RespondedByID" json:"responded_by,omitempty"`
	ServiceLines     []QuoteServiceLine `gorm:"foreignKey:QuoteID" json:"service_lines"`
	PackLines        []QuotePackLine    `gorm:"foreignKey:QuoteID" json:"pack_lines"`
	AdhocLines       []QuoteAdhocLine   `gorm:"foreignKey:QuoteID" json:"adhoc_lines"`
	Mechanics        []QuoteMechanic    `gorm:"foreignKey:QuoteID" json:"mechanics"`
	Messages         []QuoteMessage     `gorm:"foreignKey:QuoteID" json:"messages,omitempty"`
	CreatedAt        *time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        *time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type QuoteServiceLine struct {
	ID            int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID       int64    `gorm:"not null;index" json:"quote_id"`
	ServiceID     int64    `gorm:"not null" json:"service_id"`
	Service       *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Price         string   `gorm:"type:decimal(18,2);not null" json:"price"`
	Note          string   `json:"note"`
	Priority      int32    `gorm:"default:0" json:"priority"`
	Completed     bool     `gorm:"default:false" json:"completed"`
	CompletedByID *int64   `json:"completed_by_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type QuotePackLine struct {
	ID            int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID       int64        `gorm:"not null;index" json:"quote_id"`
	PackID        int64        `gorm:"not null" json:"pack_id"`
	Pack          *ServicePack `gorm:"foreignKey:PackID" json:"pack,omitempty"`
	Price         string       `gorm:"type:decimal(18,2);not null" json:"price"`
	Note          string       `json:"note"`
	Priority      int32        `gorm:"default:0" json:"priority"`
	Completed     bool         `gorm:"default:false" json:"completed"`
	CompletedByID *int64       `json:"completed_by_id,omitempty"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

type QuoteAdhocLine struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID       int64     `gorm:"not null;index" json:"quote_id"`
	Name          string    `gorm:"not null" json:"name"`
	Price         string    `gorm:"type:decimal(18,2);not null" json:"price"`
	Quantity      int32     `gorm:"default:1" json:"quantity"`
	Category      string    `json:"category"`
	Note          string    `json:"note"`
	Priority      int32     `gorm:"default:0" json:"priority"`
	Completed     bool      `gorm:"default:false" json:"completed"`
	CompletedByID *int64    `json:"completed_by_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// QuoteMechanic is one mechanic booking on a quote. HourlyRate is the
// mechanic's rate at assignment time. StartDate stays nil until the
// manager schedules the intervention; unscheduled bookings occupy no
// calendar days.
type QuoteMechanic struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID        int64      `gorm:"not null;uniqueIndex:idx_quote_mechanic" json:"quote_id"`
	MechanicID     int64      `gorm:"not null;uniqueIndex:idx_quote_mechanic" json:"mechanic_id"`
	Mechanic       *User      `gorm:"foreignKey:MechanicID" json:"mechanic,omitempty"`
	HourlyRate     string     `gorm:"type:decimal(18,2);not null" json:"hourly_rate"`
	HoursAllocated float64    `gorm:"default:0" json:"hours_allocated"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type QuoteMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID    int64     `gorm:"not null;index" json:"quote_id"`
	SenderID   int64     `gorm:"not null" json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SenderRole string    `json:"sender_role"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	SentAt     time.Time `gorm:"autoCreateTime" json:"sent_at"`
}
