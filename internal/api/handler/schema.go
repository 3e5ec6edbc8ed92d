package handler

import "time"

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type clientRequest struct {
	Name     string `json:"name"      validate:"required,max=255"`
	TariffID string `json:"tariff_id" validate:"required"`
}

type clientUpdateRequest struct {
	Name     string `json:"name"      validate:"omitempty,max=255"`
	TariffID string `json:"tariff_id"`
}

type serviceRequest struct {
	Name        string `json:"name"        validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

type serviceUpdateRequest struct {
	Name        string `json:"name"        validate:"omitempty,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

type tariffRequest struct {
	Name               string  `json:"name"                  validate:"required,max=255"`
	MaxUsers           int     `json:"max_users"             validate:"gte=0"`
	MaxServices        int     `json:"max_services"          validate:"gte=0"`
	PeriodDays         int     `json:"period_days"           validate:"gt=0"`
	Price              float64 `json:"price"                 validate:"gte=0"`
	MaxUsersPerService *int    `json:"max_users_per_service" validate:"omitempty,gte=0"`
}

type connectRequest struct {
	ClientID  string     `json:"client_id"  validate:"required"`
	ServiceID string     `json:"service_id" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type userRequest struct {
	Username string `json:"username"  validate:"required,min=3,max=64"`
	Email    string `json:"email"     validate:"omitempty,email"`
	Password string `json:"password"  validate:"required,min=6,max=72"`
	Role     string `json:"role"      validate:"required,oneof=portal_admin client_admin user"`
	ClientID string `json:"client_id"`
}

type userUpdateRequest struct {
	Email    string `json:"email"     validate:"omitempty,email"`
	Role     string `json:"role"      validate:"omitempty,oneof=portal_admin client_admin user"`
	ClientID string `json:"client_id"`
	Password string `json:"password"  validate:"omitempty,min=6,max=72"`
}

type assignRequest struct {
	UserID          string `json:"user_id"           validate:"required"`
	ClientServiceID string `json:"client_service_id" validate:"required"`
}

type usageRequest struct {
	ClientServiceID string    `json:"client_service_id" validate:"required"`
	UserID          string    `json:"user_id"           validate:"required"`
	UsageAmount     int64     `json:"usage_amount"      validate:"gte=0"`
	UsageDate       time.Time `json:"usage_date"`
	ReportID        string    `json:"report_id"         validate:"max=128"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}
