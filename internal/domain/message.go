package domain

import (
	"context"
	"time"
)

// RawMessage is an unprocessed record from the ingestion topic. Value holds
// one Cafe Nomad style JSON object; the city header is used when the record
// does not name its own city.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// HeaderCity is the message header carrying the city code of a record.
const HeaderCity = "city"

// ParseMessage decodes a message into a derived venue using t.
func (t *Tables) ParseMessage(msg RawMessage) (Venue, error) {
	raw, err := ParseRawVenue(msg.Value)
	if err != nil {
		return Venue{}, err
	}
	return t.Derive(raw.Venue(msg.Headers[HeaderCity])), nil
}
