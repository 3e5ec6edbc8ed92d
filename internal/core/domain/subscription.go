package domain

import "time"

// ClientService is a client's subscription to a catalog service.
type ClientService struct {
	ID          string     `json:"id" bson:"_id"`
	ClientID    string     `json:"client_id" bson:"client_id"`
	ServiceID   string     `json:"service_id" bson:"service_id"`
	ConnectedAt time.Time  `json:"connected_at" bson:"connected_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// ActiveAt reports whether the subscription has not expired at t.
func (cs *ClientService) ActiveAt(t time.Time) bool {
	return cs.ExpiresAt == nil || cs.ExpiresAt.After(t)
}

// UserService grants one user access to one subscription of the user's client.
type UserService struct {
	ID              string    `json:"id" bson:"_id"`
	UserID          string    `json:"user_id" bson:"user_id"`
	ClientServiceID string    `json:"client_service_id" bson:"client_service_id"`
	AssignedAt      time.Time `json:"assigned_at" bson:"assigned_at"`
}

// Usage is an append-only billing record. ClientID and ServiceID are copied
// from the subscription at write time so reports survive a disconnect.
type Usage struct {
	ID              string    `json:"id" bson:"_id"`
	ClientServiceID string    `json:"client_service_id" bson:"client_service_id"`
	UserID          string    `json:"user_id" bson:"user_id"`
	ClientID        string    `json:"client_id" bson:"client_id"`
	ServiceID       string    `json:"service_id" bson:"service_id"`
	UsageDate       time.Time `json:"usage_date" bson:"usage_date"`
	UsageAmount     int64     `json:"usage_amount" bson:"usage_amount"`
	ReportID        string    `json:"report_id,omitempty" bson:"report_id,omitempty"`
}
