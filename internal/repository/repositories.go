package repository

import (
	"practice/internal/store"

	"gorm.io/gorm"
)

// Repositories bundles every data-access dependency of the services.
type Repositories struct {
	Users        UserRepository
	Appointments AppointmentRepository
	Workbooks    WorkbookRepository
	Audit        AuditRepository
	Tx           TransactionManager
}

// NewMemory wires every repository to the in-memory store. Data does not
// survive a restart.
func NewMemory(s *store.Store) Repositories {
	return Repositories{
		Users:        NewMemoryUserRepository(s),
		Appointments: NewMemoryAppointmentRepository(s),
		Workbooks:    NewMemoryWorkbookRepository(s),
		Audit:        NewMemoryAuditRepository(s),
		Tx:           NewMemoryTransactionManager(),
	}
}

// NewPostgres wires every repository to a gorm connection.
func NewPostgres(db *gorm.DB, ids store.IDGenerator) Repositories {
	return Repositories{
		Users:        NewUserRepository(db, ids),
		Appointments: NewAppointmentRepository(db, ids),
		Workbooks:    NewWorkbookRepository(db, ids),
		Audit:        NewAuditRepository(db, ids),
		Tx:           NewTransactionManager(db),
	}
}
