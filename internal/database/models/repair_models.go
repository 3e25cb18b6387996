package models

import "time"

// Repair order lifecycle. "invoiced" is only ever set by invoice
// derivation; "cancelled" is reachable from any non-terminal status.
const (
	RepairStatusPlanned       = "planned"
	RepairStatusInProgress    = "in_progress"
	RepairStatusAwaitingParts = "awaiting_parts"
	RepairStatusCompleted     = "completed"
	RepairStatusInvoiced      = "invoiced"
	RepairStatusCancelled     = "cancelled"
)

const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusDone       = "done"
	StepStatusBlocked    = "blocked"
)

// RepairOrder is created exactly once per accepted quote. Line items are
// snapshot copies so later quote edits never alter an in-progress repair.
type RepairOrder struct {
	ID            int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID       int64               `gorm:"not null;uniqueIndex" json:"quote_id"`
	Quote         *Quote              `gorm:"foreignKey:QuoteID" json:"quote,omitempty"`
	ClientID      int64               `gorm:"not null;index:idx_repair_client_status" json:"client_id"`
	Client        *User               `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	VehicleID     int64               `gorm:"not null" json:"vehicle_id"`
	Vehicle       *Vehicle            `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Status        string              `gorm:"not null;default:'planned';index:idx_repair_client_status" json:"status"`
	Problem       string              `gorm:"type:text" json:"problem"`
	EstimatedCost string              `gorm:"type:decimal(18,2);default:'0.00'" json:"estimated_cost"`
	FinalCost     string              `gorm:"type:decimal(18,2);default:'0.00'" json:"final_cost"`
	Mechanics     []RepairMechanic    `gorm:"foreignKey:RepairID" json:"mechanics"`
	Services      []RepairServiceItem `gorm:"foreignKey:RepairID" json:"services"`
	Packs         []RepairPackItem    `gorm:"foreignKey:RepairID" json:"packs"`
	Steps         []RepairStep        `gorm:"foreignKey:RepairID" json:"steps,omitempty"`
	Photos        []RepairPhoto       `gorm:"foreignKey:RepairID" json:"photos,omitempty"`
	PlannedStart  *time.Time          `json:"planned_start,omitempty"`
	PlannedEnd    *time.Time          `json:"planned_end,omitempty"`
	ActualStart   *time.Time          `json:"actual_start,omitempty"`
	ActualEnd     *time.Time          `json:"actual_end,omitempty"`
	CreatedAt     *time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     *time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type RepairMechanic struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RepairID   int64 `gorm:"not null;uniqueIndex:idx_repair_mechanic" json:"repair_id"`
	MechanicID int64 `gorm:"not null;uniqueIndex:idx_repair_mechanic" json:"mechanic_id"`
	Mechanic   *User `gorm:"foreignKey:MechanicID" json:"mechanic,omitempty"`
}

type RepairServiceItem struct {
	ID        int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RepairID  int64    `gorm:"not null;index" json:"repair_id"`
	ServiceID int64    `gorm:"not null" json:"service_id"`
	Service   *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Price     string   `gorm:"type:decimal(18,2);not null" json:"price"`
	Note      string   `json:"note"`
}

type RepairPackItem struct {
	ID       int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	RepairID int64        `gorm:"not null;index" json:"repair_id"`
	PackID   int64        `gorm:"not null" json:"pack_id"`
	Pack     *ServicePack `gorm:"foreignKey:PackID" json:"pack,omitempty"`
	Price    string       `gorm:"type:decimal(18,2);not null" json:"price"`
	Note     string       `json:"note"`
}

type RepairStep struct {
	ID          int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	RepairID    int64               `gorm:"not null;index" json:"repair_id"`
	Title       string              `gorm:"not null" json:"title"`
	Description string              `gorm:"type:text" json:"description"`
	Status      string              `gorm:"not null;default:'pending'" json:"status"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	Comments    []RepairStepComment `gorm:"foreignKey:StepID" json:"comments,omitempty"`
	CreatedAt   *time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   *time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type RepairStepComment struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StepID   int64     `gorm:"not null;index" json:"step_id"`
	AuthorID int64     `gorm:"not null" json:"author_id"`
	Author   *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Message  string    `gorm:"type:text;not null" json:"message"`
	SentAt   time.Time `gorm:"autoCreateTime" json:"sent_at"`
}

type RepairPhoto struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RepairID    int64     `gorm:"not null;index" json:"repair_id"`
	URL         string    `gorm:"not null" json:"url"`
	Description string    `json:"description"`
	AddedByID   int64     `json:"added_by_id"`
	StepID      *int64    `json:"step_id,omitempty"`
	AddedAt     time.Time `gorm:"autoCreateTime" json:"added_at"`
}
