package storage

import "datahub-exporter/models"

// DocumentSaver persists one raw booking document. Implemented by Store;
// the persistence queue only depends on this.
type DocumentSaver interface {
	SaveDocument(propertyID, token int, body string) error
}

// RecordSink receives the parsed booking records of one property.
type RecordSink interface {
	Write(propertyID int, hotel string, records []*models.BookingRecord) error
	Close() error
}
