package students

import "strings"

// BlankName marks a registry entry created by the sync engine before any
// human has typed a name. The kiosk UI distinguishes "present but blank"
// (tag seen, awaiting registration) from "absent" (tag never seen) through
// this marker, so it is a literal single space rather than an empty string.
const BlankName = " "

// Student is one registry entry keyed by RFID tag. Legacy entries carry only
// Name; the registration workflow also fills the split name fields and keeps
// Name populated as the display form. The sync engine only ever writes the
// legacy blank shape via Placeholder.
type Student struct {
	RFID       string `json:"rfid"`
	Name       string `json:"name"`
	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
}

// Registered reports whether any identity has been entered for the tag.
func (s Student) Registered() bool {
	return strings.TrimSpace(s.Name) != "" ||
		s.FirstName != "" || s.MiddleName != "" || s.LastName != ""
}

// Placeholder is the entry the sync engine creates for a first-seen tag.
func Placeholder(rfid string) Student {
	return Student{RFID: rfid, Name: BlankName}
}

// SplitFullName breaks a display name into first/middle/last the way the
// registration form expects: single word is a first name, two words are
// first and last, anything longer keeps the outer words and joins the rest
// as the middle name.
func SplitFullName(name string) (first, middle, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], " "), parts[len(parts)-1]
	}
}
