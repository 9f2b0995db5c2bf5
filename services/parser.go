package services

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"datahub-exporter/models"
)

// Parser extracts booking records from raw OTA booking XML and classifies
// them by originating channel. Parsing is a pure function of the document
// text: the same input always yields the same record.
type Parser struct {
	channels []models.Channel
}

// NewParser creates a Parser classifying against the given channels.
func NewParser(channels []models.Channel) *Parser {
	return &Parser{channels: channels}
}

// Parse extracts the booking fields from one document. The second return
// value is false when the document cannot be parsed as markup (even after
// prefix recovery) or yields no non-empty field.
func (p *Parser) Parse(xmlText string) (*models.BookingRecord, bool) {
	if strings.TrimSpace(xmlText) == "" {
		return nil, false
	}

	doc, err := xmlquery.Parse(strings.NewReader(xmlText))
	if err != nil {
		// Some documents carry junk before the markup; strip everything
		// up to the first '<' once and retry.
		idx := strings.Index(xmlText, "<")
		if idx <= 0 {
			return nil, false
		}
		doc, err = xmlquery.Parse(strings.NewReader(xmlText[idx:]))
		if err != nil {
			return nil, false
		}
	}

	record := &models.BookingRecord{
		GivenName: elementText(doc, "//GivenName"),
		Surname:   elementText(doc, "//Surname"),
		Email:     elementText(doc, "//Email"),
	}

	if ts := xmlquery.FindOne(doc, "//TimeSpan"); ts != nil {
		record.Arrival = strings.TrimSpace(ts.SelectAttr("Start"))
		record.Departure = strings.TrimSpace(ts.SelectAttr("End"))
	}

	if tel := xmlquery.FindOne(doc, "//Telephone"); tel != nil {
		record.Phone = strings.TrimSpace(tel.SelectAttr("PhoneNumber"))
	}

	if total := xmlquery.FindOne(doc, "//Total"); total != nil {
		record.Price = strings.TrimSpace(total.SelectAttr("AmountIncludingMarkup"))
		if record.Price == "" {
			record.Price = strings.TrimSpace(total.SelectAttr("AmountBeforeTax"))
		}
		record.Currency = strings.TrimSpace(total.SelectAttr("CurrencyCode"))
	}

	if record.Empty() {
		return nil, false
	}

	record.Channel = p.classify(doc)
	return record, true
}

// classify attributes the document to a channel by its company/source
// identifier: a known numeric company code, or a case-insensitive
// substring match on the channel's name. Returns "" when no channel
// matches.
func (p *Parser) classify(doc *xmlquery.Node) string {
	var companyName, companyCode string
	if company := xmlquery.FindOne(doc, "//CompanyName"); company != nil {
		companyName = strings.TrimSpace(company.InnerText())
		companyCode = strings.TrimSpace(company.SelectAttr("Code"))
	}
	if companyName == "" && companyCode == "" {
		return ""
	}

	lowerName := strings.ToLower(companyName)
	for _, ch := range p.channels {
		if ch.CompanyCode != "" && ch.CompanyCode == companyCode {
			return ch.Name
		}
		if ch.Name != "" && lowerName != "" && strings.Contains(lowerName, strings.ToLower(ch.Name)) {
			return ch.Name
		}
	}
	return ""
}

func elementText(doc *xmlquery.Node, path string) string {
	if n := xmlquery.FindOne(doc, path); n != nil {
		return strings.TrimSpace(n.InnerText())
	}
	return ""
}
