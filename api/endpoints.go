package api

import (
	"context"
	"encoding/json"
	"fmt"

	"datahub-exporter/config"
)

// BookingLogRow is one row of the booking-log query. The backend encodes
// echoToken inconsistently (number, or a float-like string), so the raw
// value is kept for the caller to coerce.
type BookingLogRow struct {
	EchoToken json.RawMessage `json:"echoToken"`
}

// BookingLog queries the booking log for one property and channel over the
// date range, with the fixed 0..50 pagination window.
func (c *Client) BookingLog(ctx context.Context, pms int, cmcode, from, to string, profile config.Retry) ([]BookingLogRow, error) {
	payload := map[string]any{
		"PmsCode":          pms,
		"CMCode":           cmcode,
		"From":             from,
		"To":               to,
		"PaginationFromId": "0",
		"PaginationToId":   "50",
		"Search":           "",
	}

	body, err := c.PostJSON(ctx, "/Bookinglog/IsBookinglog", payload, profile)
	if err != nil {
		return nil, err
	}

	var rows []BookingLogRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("booking log: non-array response: %w", err)
	}
	return rows, nil
}

// BookingXML fetches the raw booking document for one token. The backend
// answers in several shapes: an object with an xmlData field, an array of
// such objects, or a bare string. Anything else yields an empty document.
func (c *Client) BookingXML(ctx context.Context, pms, token int, cmcode string, profile config.Retry) (string, error) {
	payload := map[string]any{
		"pmscode": pms,
		"cmcode":  cmcode,
		"token":   token,
		"Type":    "ReceivedXML",
	}

	body, err := c.PostJSON(ctx, "/AriXml/IsAriBookXml", payload, profile)
	if err != nil {
		return "", err
	}

	type xmlEnvelope struct {
		XMLData string `json:"xmlData"`
	}

	var obj xmlEnvelope
	if err := json.Unmarshal(body, &obj); err == nil {
		return obj.XMLData, nil
	}

	var arr []xmlEnvelope
	if err := json.Unmarshal(body, &arr); err == nil {
		if len(arr) > 0 {
			return arr[0].XMLData, nil
		}
		return "", nil
	}

	var bare string
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	// Not JSON at all: the raw text may still be the document.
	return string(body), nil
}
