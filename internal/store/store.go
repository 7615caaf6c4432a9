package store

import (
	"practice/internal/model"

	"github.com/jonboulle/clockwork"
)

// Store owns every collection of the application. Construct one per process
// (or per test) and pass it to the repositories; there is no package-level state.
type Store struct {
	Users        *Collection[model.User, *model.User]
	Appointments *Collection[model.Appointment, *model.Appointment]
	Workbooks    *Collection[model.Workbook, *model.Workbook]
	AuditLogs    *Collection[model.AuditLog, *model.AuditLog]

	clock clockwork.Clock
}

type options struct {
	clock clockwork.Clock
	ids   IDGenerator
}

// Option configures a Store.
type Option func(*options)

// WithClock sets the clock used for CreatedAt/UpdatedAt stamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets the id generator shared by all collections.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// New builds an empty store.
func New(opts ...Option) *Store {
	o := options{clock: clockwork.NewRealClock(), ids: UUID}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		Users:        NewCollection[model.User]("users", o.ids, o.clock),
		Appointments: NewCollection[model.Appointment]("appointments", o.ids, o.clock),
		Workbooks:    NewCollection[model.Workbook]("workbooks", o.ids, o.clock),
		AuditLogs:    NewCollection[model.AuditLog]("audit_logs", o.ids, o.clock),
		clock:        o.clock,
	}
}

// Clock returns the clock the store stamps records with.
func (s *Store) Clock() clockwork.Clock { return s.clock }
