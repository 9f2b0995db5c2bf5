package models

// Property identifies one managed hotel/site in the dashboard.
// The numeric PMS code is the unit of work for discovery and reporting.
type Property struct {
	ID          int
	DisplayName string
}

// Channel describes one distribution channel bookings can arrive through.
// CompanyCode and Name drive document classification; RelayDomain is the
// guest-relay email domain used by the email report mode.
type Channel struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	CompanyCode string `yaml:"company_code"`
	RelayDomain string `yaml:"relay_domain"`
}

// BookingRecord holds the fields extracted from one booking XML document.
// All values are kept as the raw strings found in the document; Channel is
// the classified channel name, or empty when classification failed.
type BookingRecord struct {
	Arrival   string
	Departure string
	GivenName string
	Surname   string
	Phone     string
	Email     string
	Price     string
	Currency  string
	Channel   string
}

// FullName joins the guest name parts, tolerating either being empty.
func (r *BookingRecord) FullName() string {
	switch {
	case r.GivenName == "":
		return r.Surname
	case r.Surname == "":
		return r.GivenName
	default:
		return r.GivenName + " " + r.Surname
	}
}

// Empty reports whether no field of the record carries data. Records for
// which this is true are never written to a report.
func (r *BookingRecord) Empty() bool {
	return r.Arrival == "" && r.Departure == "" && r.GivenName == "" &&
		r.Surname == "" && r.Phone == "" && r.Email == "" &&
		r.Price == "" && r.Currency == ""
}

// ReportMode selects which per-property report artifact a run produces.
type ReportMode int

const (
	// ModePhone keeps only channel-classified records, one pipe-delimited
	// line per record with the guest phone number.
	ModePhone ReportMode = iota
	// ModeEmailRelay keeps records whose email matches one specific
	// channel's guest-relay domain, regardless of classification.
	ModeEmailRelay
	// ModeEmailFiltered keeps records whose email domain is not on the
	// configured exclusion list, regardless of classification.
	ModeEmailFiltered
	// ModeCSV exports every parsed record as a semicolon-delimited row
	// with the fixed 10-column header.
	ModeCSV
)

func (m ReportMode) String() string {
	switch m {
	case ModePhone:
		return "phone"
	case ModeEmailRelay:
		return "email-relay"
	case ModeEmailFiltered:
		return "email-filtered"
	case ModeCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// RunSummary holds the counts reported to the caller after a run.
type RunSummary struct {
	PropertiesFound int
	PropertiesDone  int
	TokensFound     int
	DocumentsSaved  int
	ReportsWritten  int
	Rows            int
	Emails          int
}
