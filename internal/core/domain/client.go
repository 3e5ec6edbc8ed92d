package domain

import "time"

// Client is a tenant: an organisation subscribing to services under a tariff.
type Client struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	TariffID  string    `json:"tariff_id" bson:"tariff_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Tariff is a named plan capping subscription and user counts.
type Tariff struct {
	ID          string  `json:"id" bson:"_id"`
	Name        string  `json:"name" bson:"name"`
	MaxUsers    int     `json:"max_users" bson:"max_users"`
	MaxServices int     `json:"max_services" bson:"max_services"`
	PeriodDays  int     `json:"period_days" bson:"period_days"`
	Price       float64 `json:"price" bson:"price"`
	// MaxUsersPerService is optional; nil means assignments are unlimited.
	MaxUsersPerService *int `json:"max_users_per_service,omitempty" bson:"max_users_per_service,omitempty"`
}

// Service is a global catalog entry, not tenant-scoped.
type Service struct {
	ID          string `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}
