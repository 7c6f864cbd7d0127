package entity

// Vehicle is the structured vehicle context supplied by the caller.
type Vehicle struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  string `json:"year,omitempty"`
	VIN   string `json:"vin,omitempty"`
}

// IsZero reports whether no field is set.
func (v *Vehicle) IsZero() bool {
	return v == nil || (v.Make == "" && v.Model == "" && v.Year == "" && v.VIN == "")
}

// CompatibilityEntry is one year/make/model fitment line for a listing.
type CompatibilityEntry struct {
	ID        string `json:"id"`
	Year      string `json:"year"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Verified  bool   `json:"verified"`
	Source    string `json:"source,omitempty"`
	SourceURL string `json:"sourceUrl,omitempty"`
}
