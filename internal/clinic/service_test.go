package clinic

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-booking/internal/config"
)

type mockRepo struct {
	byID    map[uuid.UUID]*Clinic
	byEmail map[string]*Clinic

	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byID:     make(map[uuid.UUID]*Clinic),
		byEmail:  make(map[string]*Clinic),
		patients: make(map[uuid.UUID]*Patient),
	}
}

func (m *mockRepo) CreateClinic(_ context.Context, c *Clinic) error {
	if _, taken := m.byEmail[c.Email]; taken {
		return ErrEmailTaken
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.byID[c.ID] = c
	m.byEmail[c.Email] = c
	return nil
}

func (m *mockRepo) GetClinicByEmail(_ context.Context, email string) (*Clinic, error) {
	c, ok := m.byEmail[email]
	if !ok {
		return nil, ErrClinicNotFound
	}
	return c, nil
}

func (m *mockRepo) GetClinicByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	return c, nil
}

func (m *mockRepo) SetVerification(_ context.Context, id uuid.UUID, state VerificationState) error {
	c, ok := m.byID[id]
	if !ok {
		return ErrClinicNotFound
	}
	c.Verification = state
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	c, ok := m.byID[id]
	if !ok {
		return ErrClinicNotFound
	}
	c.Active = active
	return nil
}

func (m *mockRepo) CreatePatient(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) ListPatientsByClinic(_ context.Context, clinicID uuid.UUID) ([]Patient, error) {
	var out []Patient
	for _, p := range m.patients {
		if p.ClinicID == clinicID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) DeletePatient(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(m.patients, id)
	return nil
}

// failNotifier records sends and always fails delivery.
type failNotifier struct {
	sends int
}

func (n *failNotifier) Send(to, subject, body string) error {
	n.sends++
	return errors.New("smtp unreachable")
}

func newTestService(repo Repository, cfg config.Config) (*Service, *failNotifier) {
	notifier := &failNotifier{}
	return NewService(repo, notifier, cfg, zerolog.Nop()), notifier
}

func TestSignupVerifiedImmediatelyWhenVerificationDisabled(t *testing.T) {
	svc, _ := newTestService(newMockRepo(), config.Config{RequireEmailVerification: false})

	c, err := svc.Signup(context.Background(), "a@b.com", "Westside Clinic", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, Verified, c.Verification)
	assert.False(t, c.Active)
}

func TestSignupStartsUnverifiedWhenVerificationRequired(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo, config.Config{RequireEmailVerification: true})

	c, err := svc.Signup(context.Background(), "a@b.com", "Westside Clinic", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, Unverified, c.Verification)

	// unverified -> verified, then idempotent
	require.NoError(t, svc.Verify(context.Background(), c.ID))
	assert.Equal(t, Verified, repo.byID[c.ID].Verification)
	require.NoError(t, svc.Verify(context.Background(), c.ID))
	assert.Equal(t, Verified, repo.byID[c.ID].Verification)
}

func TestSignupSucceedsDespiteMailFailure(t *testing.T) {
	svc, notifier := newTestService(newMockRepo(), config.Config{})

	_, err := svc.Signup(context.Background(), "a@b.com", "Westside Clinic", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.sends)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(newMockRepo(), config.Config{})

	_, err := svc.Signup(context.Background(), "a@b.com", "First", "pw1")
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), "a@b.com", "Second", "pw2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(newMockRepo(), config.Config{})

	_, err := svc.Signup(context.Background(), "a@b.com", "Westside Clinic", "hunter22")
	require.NoError(t, err)

	c, err := svc.Login(context.Background(), "a@b.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "Westside Clinic", c.Name)

	_, err = svc.Login(context.Background(), "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Login(context.Background(), "nobody@b.com", "hunter22")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestActivateMatchesProductID(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo, config.Config{ActivationProductID: "prod_123"})

	c, err := svc.Signup(context.Background(), "a@b.com", "Westside Clinic", "hunter22")
	require.NoError(t, err)

	// Unrecognized product ids are ignored without error.
	require.NoError(t, svc.Activate(context.Background(), c.ID, "prod_other"))
	assert.False(t, repo.byID[c.ID].Active)
	require.NoError(t, svc.Activate(context.Background(), c.ID, ""))
	assert.False(t, repo.byID[c.ID].Active)

	require.NoError(t, svc.Activate(context.Background(), c.ID, "prod_123"))
	assert.True(t, repo.byID[c.ID].Active)
}

func TestPatientCRUD(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo, config.Config{})

	c, err := svc.Signup(context.Background(), "a@b.com", "Westside Clinic", "hunter22")
	require.NoError(t, err)

	p := &Patient{ClinicID: c.ID, Name: "Ada", Email: "ada@x.com"}
	require.NoError(t, svc.AddPatient(context.Background(), p))

	list, err := svc.ListPatients(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ada", list[0].Name)

	require.NoError(t, svc.DeletePatient(context.Background(), p.ID))
	assert.ErrorIs(t, svc.DeletePatient(context.Background(), p.ID), ErrPatientNotFound)
}

func TestAddPatientRequiresKnownClinic(t *testing.T) {
	svc, _ := newTestService(newMockRepo(), config.Config{})

	err := svc.AddPatient(context.Background(), &Patient{ClinicID: uuid.New(), Name: "Ada"})
	assert.ErrorIs(t, err, ErrClinicNotFound)
}
