package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tapsync/internal/attendance"
	"tapsync/internal/students"
)

// Row is one dashboard attendance line: the durable record joined with the
// registry name and the 12-hour display form the kiosk screens use.
type Row struct {
	Key         string    `json:"key"`
	RFID        string    `json:"rfid"`
	Name        string    `json:"name"`
	Registered  bool      `json:"registered"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	DisplayTime string    `json:"display_time"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// timeParts is the 12-hour breakdown of a 24-hour scan time, tolerant of
// unpadded device clocks ("14:5" displays as "02:05 PM").
type timeParts struct {
	Full     string
	Hour     string // "01".."12"
	Minute   string // "00".."59"
	Meridiem string // "AM" / "PM"
}

func to12Hour(militaryTime string) timeParts {
	parts := strings.SplitN(militaryTime, ":", 2)
	if len(parts) != 2 {
		return timeParts{Full: "--:--"}
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return timeParts{Full: "--:--"}
	}

	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}

	hour := fmt.Sprintf("%02d", h12)
	minute := fmt.Sprintf("%02d", m)
	return timeParts{
		Full:     fmt.Sprintf("%d:%s %s", h12, minute, meridiem),
		Hour:     hour,
		Minute:   minute,
		Meridiem: meridiem,
	}
}

// rowFilter is the client-equivalent filtering the old dashboard did in the
// browser: free text over name and rfid plus 12-hour time part dropdowns.
type rowFilter struct {
	text     string
	hour     string
	minute   string
	meridiem string
}

func (f rowFilter) matches(row Row, parts timeParts) bool {
	if f.text != "" {
		name := strings.ToLower(row.Name)
		rfid := strings.ToLower(row.RFID)
		if !strings.Contains(name, f.text) && !strings.Contains(rfid, f.text) {
			return false
		}
	}
	if f.hour != "" && parts.Hour != f.hour {
		return false
	}
	if f.minute != "" && parts.Minute != f.minute {
		return false
	}
	if f.meridiem != "" && parts.Meridiem != f.meridiem {
		return false
	}
	return true
}

func buildRows(records []attendance.Record, roster []students.Student, f rowFilter) []Row {
	names := make(map[string]students.Student, len(roster))
	for _, st := range roster {
		names[st.RFID] = st
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		parts := to12Hour(rec.Time)
		st := names[rec.RFID]
		row := Row{
			Key:         rec.Key,
			RFID:        rec.RFID,
			Name:        strings.TrimSpace(st.Name),
			Registered:  st.Registered(),
			Date:        rec.Date,
			Time:        rec.Time,
			DisplayTime: parts.Full,
			RecordedAt:  rec.RecordedAt,
		}
		if f.matches(row, parts) {
			rows = append(rows, row)
		}
	}
	return rows
}
