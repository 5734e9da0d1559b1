package models

// Profile represents a cardholder profile of one issuing institution
type Profile struct {
	ID              string `json:"id"`
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	// NationalID holds the encrypted national identifier, or a bcrypt hash for
	// profiles onboarded before identifiers were encrypted.
	NationalID    string        `json:"-"`
	GeoThresholds *GeoOverrides `json:"geo_thresholds,omitempty"`
}
