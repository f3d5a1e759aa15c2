// Package booking is the repair booking form: validation, submission and the
// single-use draft that survives a detour through login.
package booking

import (
	"errors"
	"strings"

	"github.com/ariefcatur/mobirepair-storefront/internal/security"
)

// Draft mirrors the form fields as typed.
type Draft struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DeviceBrand      string `json:"deviceBrand"`
	DeviceModel      string `json:"deviceModel"`
	IssueType        string `json:"issueType"`
	IssueDescription string `json:"issueDescription"`
	Address          string `json:"address"`
	PreferredDate    string `json:"preferredDate"`
	PreferredTime    string `json:"preferredTime"`
}

func (d Draft) IsZero() bool { return d == Draft{} }

var (
	Brands = []string{
		"Apple (iPhone)", "Samsung", "OnePlus", "Xiaomi (Mi/Redmi)", "Oppo", "Vivo", "Realme",
		"Google Pixel", "Motorola", "Nokia", "Huawei", "Honor", "Nothing", "Poco", "Other",
	}
	IssueTypes = []string{
		"Display/Screen Issues", "Battery Problems", "Charging Port Issues", "Speaker/Microphone Problems",
		"Camera Issues", "Water Damage", "Software Issues", "Button Problems",
		"Network/Connectivity Issues", "Other Hardware Issues",
	}
	TimeSlots = []string{
		"10:00 AM - 12:00 PM", "12:00 PM - 2:00 PM", "2:00 PM - 4:00 PM", "4:00 PM - 6:00 PM", "6:00 PM - 8:00 PM",
	}
)

var ErrValidation = errors.New("booking validation failed")

// ValidationError carries the one notice shown for a rejected form.
type ValidationError struct {
	Notice string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return "booking: " + e.Notice + " (" + strings.Join(e.Fields, ", ") + ")"
	}
	return "booking: " + e.Notice
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

const (
	noticeRequired = "Please fill in all required fields"
	noticeEmail    = "Please enter a valid email address"
	noticePhone    = "Please enter a valid 10-digit phone number"
)

// Validate checks every required field together and stops at the first
// failing rule group.
func Validate(d Draft) error {
	required := []struct{ name, value string }{
		{"name", d.Name},
		{"phone", d.Phone},
		{"deviceBrand", d.DeviceBrand},
		{"issueType", d.IssueType},
		{"issueDescription", d.IssueDescription},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Notice: noticeRequired, Fields: missing}
	}

	if email := strings.TrimSpace(d.Email); email != "" && !security.ValidEmail(d.Email) {
		return &ValidationError{Notice: noticeEmail, Fields: []string{"email"}}
	}

	// formatting characters are not accepted here, unlike at registration
	if security.DigitsOnly(d.Phone) != d.Phone || !security.ValidIndianPhone(d.Phone) {
		return &ValidationError{Notice: noticePhone, Fields: []string{"phone"}}
	}
	return nil
}
