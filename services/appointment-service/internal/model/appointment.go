package model

import "time"

type ServiceType string

const (
	ServiceGeneralTuneUp   ServiceType = "Revisão Geral"
	ServiceBrakesGears     ServiceType = "Regulagem Freios/Marchas"
	ServiceTireTube        ServiceType = "Reparo Pneu/Câmara"
	ServiceCleanLube       ServiceType = "Limpeza e Lubrificação"
	ServiceQuoteDiagnostic ServiceType = "Orçamento/Diagnóstico"
	ServiceOther           ServiceType = "Outro"
)

// ServiceTypes lists the offered services in display order.
var ServiceTypes = []ServiceType{
	ServiceGeneralTuneUp,
	ServiceBrakesGears,
	ServiceTireTube,
	ServiceCleanLube,
	ServiceQuoteDiagnostic,
	ServiceOther,
}

func (s ServiceType) Valid() bool {
	for _, t := range ServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}

type Status string

const StatusPending Status = "Pending"

const (
	Condominio      = "Parque Universitário"
	ServiceProvider = "Jeferson"

	DefaultAppID = "default-app-id"

	// DateLayout and TimeLayout match the values produced by HTML date and time inputs.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// ServiceHoursOpen and ServiceHoursClose bound the hint shown next to the time input.
	ServiceHoursOpen  = "08:00"
	ServiceHoursClose = "18:00"
)

// Appointment is the document written for every accepted request. CreatedAt is
// left nil by callers; the store fills it at write time.
type Appointment struct {
	ServiceType     ServiceType `json:"serviceType"`
	UserName        string      `json:"userName"`
	ContactInfo     string      `json:"contactInfo"`
	PreferredDate   string      `json:"preferredDate"`
	PreferredTime   string      `json:"preferredTime"`
	Notes           string      `json:"notes"`
	Status          Status      `json:"status"`
	UserID          string      `json:"userId"`
	CreatedAt       *time.Time  `json:"createdAt,omitempty"`
	Condominio      string      `json:"condominio"`
	ServiceProvider string      `json:"serviceProvider"`
}

// CollectionPath is the public collection read by the service provider.
func CollectionPath(appID string) string {
	if appID == "" {
		appID = DefaultAppID
	}
	return "artifacts/" + appID + "/public/data/appointments"
}

// WithinServiceHours reports whether an HH:MM value falls inside opening hours.
func WithinServiceHours(hhmm string) bool {
	return hhmm >= ServiceHoursOpen && hhmm <= ServiceHoursClose
}
