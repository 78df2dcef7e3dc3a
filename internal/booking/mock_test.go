package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/clinic-booking/internal/redis"
)

var errLockDenied = redisclient.ErrLockNotAcquired

// mockRepo is a map-backed Repository. ApplyReservation performs the same
// conditional flip the Postgres implementation does, guarded by a mutex, so
// concurrent reservations behave like they do against the real store.
type mockRepo struct {
	mu sync.Mutex

	clinics     map[uuid.UUID]string
	templates   map[uuid.UUID]WeeklyTemplate
	patients    map[uuid.UUID]*Patient
	tokens      map[string]*BookingToken
	inventories map[string]*DayInventory
	audit       []AuditEntry

	// hideInventoryReads makes the first N GetInventory calls miss, to
	// simulate another process inserting the row mid-flight.
	hideInventoryReads int
	// failInsert makes InsertInventory report a unique-constraint loss.
	failInsert bool

	insertCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		clinics:     make(map[uuid.UUID]string),
		templates:   make(map[uuid.UUID]WeeklyTemplate),
		patients:    make(map[uuid.UUID]*Patient),
		tokens:      make(map[string]*BookingToken),
		inventories: make(map[string]*DayInventory),
	}
}

func invKey(clinicID uuid.UUID, date time.Time) string {
	return clinicID.String() + "|" + date.Format(DateFormat)
}

func (m *mockRepo) addClinic(tpl WeeklyTemplate) uuid.UUID {
	id := uuid.New()
	m.clinics[id] = "Test Clinic"
	if tpl != nil {
		m.templates[id] = tpl
	}
	return id
}

func (m *mockRepo) addPatient(clinicID uuid.UUID, name string) *Patient {
	p := &Patient{ID: uuid.New(), ClinicID: clinicID, Name: name}
	m.patients[p.ID] = p
	return p
}

func (m *mockRepo) addToken(patientID uuid.UUID, createdAt time.Time) *BookingToken {
	str, _ := newTokenString()
	t := &BookingToken{
		ID:        uuid.New(),
		PatientID: patientID,
		Token:     str,
		CreatedAt: createdAt,
	}
	m.tokens[t.Token] = t
	return t
}

func (m *mockRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetClinicName(_ context.Context, clinicID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.clinics[clinicID]
	if !ok {
		return "", ErrClinicNotFound
	}
	return name, nil
}

func (m *mockRepo) GetTemplate(_ context.Context, clinicID uuid.UUID) (WeeklyTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clinics[clinicID]; !ok {
		return nil, ErrClinicNotFound
	}
	return m.templates[clinicID], nil
}

func (m *mockRepo) SetTemplate(_ context.Context, clinicID uuid.UUID, tpl WeeklyTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clinics[clinicID]; !ok {
		return ErrClinicNotFound
	}
	m.templates[clinicID] = tpl
	return nil
}

func (m *mockRepo) CreateToken(_ context.Context, t *BookingToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	m.tokens[t.Token] = t
	return nil
}

func (m *mockRepo) GetTokenByString(_ context.Context, token string) (*BookingToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepo) GetInventory(_ context.Context, clinicID uuid.UUID, date time.Time) (*DayInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideInventoryReads > 0 {
		m.hideInventoryReads--
		return nil, ErrInventoryNotFound
	}
	inv, ok := m.inventories[invKey(clinicID, date)]
	if !ok {
		return nil, ErrInventoryNotFound
	}
	cp := *inv
	cp.Slots = make(map[string]SlotState, len(inv.Slots))
	for k, v := range inv.Slots {
		cp.Slots[k] = v
	}
	return &cp, nil
}

func (m *mockRepo) InsertInventory(_ context.Context, inv *DayInventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	key := invKey(inv.ClinicID, inv.Date)
	if m.failInsert {
		return ErrInventoryExists
	}
	if _, exists := m.inventories[key]; exists {
		return ErrInventoryExists
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	stored := *inv
	stored.Slots = make(map[string]SlotState, len(inv.Slots))
	for k, v := range inv.Slots {
		stored.Slots[k] = v
	}
	m.inventories[key] = &stored
	return nil
}

func (m *mockRepo) ApplyReservation(_ context.Context, res Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.inventories[invKey(res.ClinicID, res.Date)]
	if !ok {
		return ErrInventoryNotFound
	}
	if inv.Slots[res.Slot] != SlotFree {
		return ErrConflict
	}

	inv.Slots[res.Slot] = SlotBooked
	m.audit = append(m.audit, AuditEntry{
		ID:          int64(len(m.audit) + 1),
		ClinicID:    res.ClinicID,
		PatientName: res.PatientName,
		Date:        res.Date,
		Slot:        res.Slot,
	})
	for _, t := range m.tokens {
		if t.ID == res.TokenID {
			t.Used = true
		}
	}
	if p, ok := m.patients[res.PatientID]; ok {
		d := res.Date
		p.NextVisit = &d
	}
	return nil
}

func (m *mockRepo) ListAuditByClinic(_ context.Context, clinicID uuid.UUID) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEntry
	for _, e := range m.audit {
		if e.ClinicID == clinicID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepo) FindDanglingSlots(_ context.Context) ([]DanglingSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	audited := make(map[string]bool)
	for _, e := range m.audit {
		audited[invKey(e.ClinicID, e.Date)+"|"+e.Slot] = true
	}

	var out []DanglingSlot
	for _, inv := range m.inventories {
		for slot, state := range inv.Slots {
			if state == SlotBooked && !audited[invKey(inv.ClinicID, inv.Date)+"|"+slot] {
				out = append(out, DanglingSlot{ClinicID: inv.ClinicID, Date: inv.Date, Slot: slot})
			}
		}
	}
	return out, nil
}

// passLocker runs the critical section directly; the mock repo's mutex and
// insert-once semantics provide the serialization under test.
type passLocker struct{}

func (passLocker) WithDayLock(ctx context.Context, _ uuid.UUID, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// deniedLocker always reports the lock as held elsewhere.
type deniedLocker struct{}

func (deniedLocker) WithDayLock(context.Context, uuid.UUID, string, func(context.Context) error) error {
	return errLockDenied
}
