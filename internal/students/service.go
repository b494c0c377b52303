package students

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tapsync/internal/audit"
	"tapsync/internal/platform/middleware"
	"tapsync/pkg/sentinel"
)

// Validation errors returned to the registration handler.
var (
	ErrMissingRFID = errors.New("rfid is required")
	ErrMissingName = errors.New("name is required")
)

// AuditSink receives registration audit events without blocking the caller.
type AuditSink interface {
	TryEmit(ev audit.Event) bool
}

// Service is the registration workflow: the human-driven path that fills in
// identities the sync engine only placeholds. It is the sole writer allowed
// to overwrite registry entries.
type Service struct {
	store  Store
	sink   AuditSink
	logger *slog.Logger
}

func NewService(store Store, sink AuditSink, logger *slog.Logger) *Service {
	return &Service{store: store, sink: sink, logger: logger}
}

// Lookup fetches the entry for a scanned tag so the kiosk can pre-fill an
// existing name. The bool reports whether an identity has been registered; a
// blank placeholder entry reads as unregistered, same as a never-seen tag.
func (s *Service) Lookup(ctx context.Context, rfid string) (*Student, bool, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, false, ErrMissingRFID
	}

	st, err := s.store.Get(ctx, rfid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &Student{RFID: rfid}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup student: %w", err)
	}
	return st, st.Registered(), nil
}

// Register saves the identity for a tag, replacing a placeholder or
// correcting a previous registration. The display name is kept alongside the
// split fields for legacy readers.
func (s *Service) Register(ctx context.Context, rfid, fullName string) (*Student, error) {
	rfid = strings.TrimSpace(rfid)
	fullName = strings.TrimSpace(fullName)
	if rfid == "" {
		return nil, ErrMissingRFID
	}
	if fullName == "" {
		return nil, ErrMissingName
	}

	first, middle, last := SplitFullName(fullName)
	st := Student{
		RFID:       rfid,
		Name:       fullName,
		FirstName:  first,
		MiddleName: middle,
		LastName:   last,
	}
	if err := s.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("register student: %w", err)
	}

	s.logger.InfoContext(ctx, "student registered",
		"rfid", rfid,
		"staff", middleware.GetStaffUser(ctx),
	)
	s.sink.TryEmit(audit.Event{
		Action:    audit.ActionStudentRegistered,
		RFID:      rfid,
		Detail:    fullName,
		Staff:     middleware.GetStaffUser(ctx),
		ClientIP:  middleware.GetClientIP(ctx),
		UserAgent: middleware.GetDevice(ctx),
	})
	return &st, nil
}
