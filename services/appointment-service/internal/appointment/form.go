package appointment

import (
	"strings"
	"time"

	"github.com/pubike/pubike/services/appointment-service/internal/model"
)

// FormInput is what the visitor typed, untrimmed.
type FormInput struct {
	ServiceType   string `json:"serviceType"`
	UserName      string `json:"userName"`
	ContactInfo   string `json:"contactInfo"`
	PreferredDate string `json:"preferredDate"`
	PreferredTime string `json:"preferredTime"`
	Notes         string `json:"notes"`
}

// Normalize trims the free-text fields the way the record stores them.
func (in FormInput) Normalize() FormInput {
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	in.UserName = strings.TrimSpace(in.UserName)
	in.ContactInfo = strings.TrimSpace(in.ContactInfo)
	in.PreferredDate = strings.TrimSpace(in.PreferredDate)
	in.PreferredTime = strings.TrimSpace(in.PreferredTime)
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}

// Validate checks a normalized input. Required fields are reported first; format
// checks only run on fields that are present.
func Validate(in FormInput) error {
	verr := &ValidationError{}
	required := []struct {
		name  string
		value string
	}{
		{"serviceType", in.ServiceType},
		{"userName", in.UserName},
		{"contactInfo", in.ContactInfo},
		{"preferredDate", in.PreferredDate},
		{"preferredTime", in.PreferredTime},
	}
	for _, f := range required {
		if f.value == "" {
			verr.Missing = append(verr.Missing, f.name)
		}
	}

	if in.ServiceType != "" && !model.ServiceType(in.ServiceType).Valid() {
		verr.Invalid = append(verr.Invalid, "serviceType")
	}
	if in.PreferredDate != "" {
		if _, err := time.Parse(model.DateLayout, in.PreferredDate); err != nil {
			verr.Invalid = append(verr.Invalid, "preferredDate")
		}
	}
	if in.PreferredTime != "" {
		if _, err := time.Parse(model.TimeLayout, in.PreferredTime); err != nil {
			verr.Invalid = append(verr.Invalid, "preferredTime")
		}
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}
