package services

import (
	"fmt"
	"testing"

	"datahub-exporter/models"
)

var testChannels = []models.Channel{
	{Code: "BDC", Name: "Booking.com", CompanyCode: "19", RelayDomain: "guest.booking.com"},
	{Code: "EXP", Name: "Expedia"},
}

// bookingXML builds a minimal OTA reservation document in the default
// namespace, the shape the backend actually returns.
func bookingXML(given, surname, email, phone, start, end, price, currency, companyCode, companyName string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<OTA_ResRetrieveRS xmlns="http://www.opentravel.org/OTA/2003/05" Version="1.0">
  <ReservationsList>
    <HotelReservation>
      <RoomStays>
        <RoomStay>
          <TimeSpan Start="%s" End="%s"/>
          <Total AmountIncludingMarkup="%s" CurrencyCode="%s"/>
        </RoomStay>
      </RoomStays>
      <ResGuests>
        <ResGuest>
          <Profiles>
            <ProfileInfo>
              <Profile>
                <Customer>
                  <PersonName>
                    <GivenName>%s</GivenName>
                    <Surname>%s</Surname>
                  </PersonName>
                  <Telephone PhoneNumber="%s"/>
                  <Email>%s</Email>
                </Customer>
              </Profile>
            </ProfileInfo>
          </Profiles>
        </ResGuest>
      </ResGuests>
      <ResGlobalInfo>
        <Profiles>
          <ProfileInfo>
            <Profile>
              <CompanyInfo>
                <CompanyName Code="%s">%s</CompanyName>
              </CompanyInfo>
            </Profile>
          </ProfileInfo>
        </Profiles>
      </ResGlobalInfo>
    </HotelReservation>
  </ReservationsList>
</OTA_ResRetrieveRS>`, start, end, price, currency, given, surname, phone, email, companyCode, companyName)
}

func TestParserExtractsFields(t *testing.T) {
	p := NewParser(testChannels)

	doc := bookingXML("Anna", "Keller", "anna@example.com", "+49151123456",
		"2026-09-01", "2026-09-05", "540.00", "EUR", "19", "Booking.com")

	record, ok := p.Parse(doc)
	if !ok {
		t.Fatal("expected document to parse")
	}

	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"Arrival", record.Arrival, "2026-09-01"},
		{"Departure", record.Departure, "2026-09-05"},
		{"GivenName", record.GivenName, "Anna"},
		{"Surname", record.Surname, "Keller"},
		{"Phone", record.Phone, "+49151123456"},
		{"Email", record.Email, "anna@example.com"},
		{"Price", record.Price, "540.00"},
		{"Currency", record.Currency, "EUR"},
		{"Channel", record.Channel, "Booking.com"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.field, tt.got, tt.want)
		}
	}

	if record.FullName() != "Anna Keller" {
		t.Errorf("FullName: got %q", record.FullName())
	}
}

func TestParserIsDeterministic(t *testing.T) {
	p := NewParser(testChannels)
	doc := bookingXML("Bo", "Li", "bo@example.com", "+1555",
		"2026-09-10", "2026-09-12", "120.00", "USD", "19", "Booking.com")

	first, ok := p.Parse(doc)
	if !ok {
		t.Fatal("expected document to parse")
	}
	for i := 0; i < 10; i++ {
		again, ok := p.Parse(doc)
		if !ok || *again != *first {
			t.Fatalf("parse %d differed: %+v vs %+v", i, again, first)
		}
	}
}

func TestParserClassifiesByCompanyCode(t *testing.T) {
	p := NewParser(testChannels)

	// Company name does not mention any channel; the numeric code decides.
	doc := bookingXML("A", "B", "", "", "2026-01-01", "2026-01-02", "1", "EUR", "19", "Some OTA GmbH")
	record, ok := p.Parse(doc)
	if !ok {
		t.Fatal("expected document to parse")
	}
	if record.Channel != "Booking.com" {
		t.Errorf("channel: got %q, want %q", record.Channel, "Booking.com")
	}
}

func TestParserClassifiesByNameSubstring(t *testing.T) {
	p := NewParser(testChannels)

	doc := bookingXML("A", "B", "", "", "2026-01-01", "2026-01-02", "1", "USD", "999", "EXPEDIA Partner Central")
	record, ok := p.Parse(doc)
	if !ok {
		t.Fatal("expected document to parse")
	}
	if record.Channel != "Expedia" {
		t.Errorf("channel: got %q, want %q", record.Channel, "Expedia")
	}
}

func TestParserUnknownChannelStaysUnclassified(t *testing.T) {
	p := NewParser(testChannels)

	doc := bookingXML("A", "B", "", "", "2026-01-01", "2026-01-02", "1", "USD", "42", "Walk-In Desk")
	record, ok := p.Parse(doc)
	if !ok {
		t.Fatal("expected document to parse")
	}
	if record.Channel != "" {
		t.Errorf("channel: got %q, want empty", record.Channel)
	}
}

func TestParserRecoversFromLeadingJunk(t *testing.T) {
	p := NewParser(testChannels)

	doc := "response=ok;" + bookingXML("Cleo", "Marsh", "", "+44", "2026-02-01", "2026-02-03", "99", "GBP", "19", "Booking.com")
	record, ok := p.Parse(doc)
	if !ok {
		t.Fatal("expected document with leading junk to parse")
	}
	if record.GivenName != "Cleo" || record.Arrival != "2026-02-01" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestParserFallsBackToAmountBeforeTax(t *testing.T) {
	p := NewParser(testChannels)

	doc := `<OTA_ResRetrieveRS xmlns="http://www.opentravel.org/OTA/2003/05">
  <RoomStay>
    <TimeSpan Start="2026-03-01" End="2026-03-04"/>
    <Total AmountBeforeTax="210.50" CurrencyCode="CHF"/>
  </RoomStay>
</OTA_ResRetrieveRS>`

	record, ok := p.Parse(doc)
	if !ok {
		t.Fatal("expected document to parse")
	}
	if record.Price != "210.50" {
		t.Errorf("price: got %q, want %q", record.Price, "210.50")
	}
	if record.Currency != "CHF" {
		t.Errorf("currency: got %q, want %q", record.Currency, "CHF")
	}
}

func TestParserRejectsUselessInput(t *testing.T) {
	p := NewParser(testChannels)

	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t "},
		{"plain text", "service temporarily unavailable"},
		{"markup without booking fields", "<envelope><status>ok</status></envelope>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if record, ok := p.Parse(tt.doc); ok {
				t.Errorf("expected rejection, got %+v", record)
			}
		})
	}
}
