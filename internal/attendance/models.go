package attendance

import "time"

// Record is one durable attendance entry. Key is the idempotency key derived
// from the scan triple; two deliveries of the same physical tap collapse to
// one Record.
//
// RecordedAt is assigned by the store at write time. It is provenance for
// when the sync engine saw the scan, not the attendance time itself; the
// attendance time is the Date/Time pair the device reported. Redelivery may
// move RecordedAt, never Date or Time.
type Record struct {
	Key        string    `json:"key"`
	RFID       string    `json:"rfid"`
	Date       string    `json:"date"` // YYYY-MM-DD, as scanned
	Time       string    `json:"time"` // HH:MM 24h, as scanned
	RecordedAt time.Time `json:"recorded_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Date matches the record's scan date exactly (YYYY-MM-DD).
	Date string
	// RFID matches the record's tag exactly.
	RFID string
}

func (f Filter) matches(rec Record) bool {
	if f.Date != "" && rec.Date != f.Date {
		return false
	}
	if f.RFID != "" && rec.RFID != f.RFID {
		return false
	}
	return true
}
