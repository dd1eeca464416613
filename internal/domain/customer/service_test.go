package customer

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// --- Mock implementations ---

type mockCustomerRepo struct {
	byEmail   map[string]*Customer
	findErr   error
	createErr error
	created   []NewCustomer
}

func newCustomerRepo(customers ...Customer) *mockCustomerRepo {
	m := &mockCustomerRepo{byEmail: make(map[string]*Customer, len(customers))}
	for i := range customers {
		m.byEmail[customers[i].Email] = &customers[i]
	}
	return m
}

func (m *mockCustomerRepo) FindByEmail(_ context.Context, email string) (*Customer, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) FindByID(_ context.Context, id string) (*Customer, error) {
	for _, c := range m.byEmail {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockCustomerRepo) Create(_ context.Context, nc NewCustomer) (*Customer, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, nc)
	c := &Customer{ID: "c-new", Name: nc.Name, Email: nc.Email}
	m.byEmail[nc.Email] = c
	return c, nil
}

// --- Tests ---

func TestCreate_NewEmail(t *testing.T) {
	repo := newCustomerRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), CreateRequest{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, "Ada", c.Name)
	require.Len(t, repo.created, 1)
}

func TestCreate_EmailInUse(t *testing.T) {
	repo := newCustomerRepo(Customer{ID: "c1", Name: "Ada", Email: "ada@example.com"})
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{Name: "Other", Email: "ada@example.com"})
	require.ErrorIs(t, err, ErrEmailInUse)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Empty(t, repo.created, "no write on conflict")
}

func TestCreate_EmailIsCaseInsensitive(t *testing.T) {
	repo := newCustomerRepo(Customer{ID: "c1", Name: "Ada", Email: "ada@example.com"})
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{Name: "Ada", Email: "  ADA@Example.com "})
	require.ErrorIs(t, err, ErrEmailInUse)
	assert.Empty(t, repo.created)
}

func TestCreate_StoreUniqueViolation(t *testing.T) {
	repo := newCustomerRepo()
	repo.createErr = errors.Wrap(ErrEmailInUse, "insert customer")
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{Name: "Ada", Email: "ada@example.com"})
	require.ErrorIs(t, err, ErrEmailInUse)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{name: "blank name", req: CreateRequest{Name: "  ", Email: "a@b.c"}, wantErr: ErrNameRequired},
		{name: "blank email", req: CreateRequest{Name: "Ada", Email: ""}, wantErr: ErrEmailRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newCustomerRepo()
			_, err := NewService(repo).Create(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Empty(t, repo.created)
		})
	}
}

func TestCreate_LookupError(t *testing.T) {
	repo := newCustomerRepo()
	repo.findErr = errors.New("db down")

	_, err := NewService(repo).Create(context.Background(), CreateRequest{Name: "Ada", Email: "ada@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find customer by email")
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
	assert.Empty(t, repo.created)
}

func TestGet(t *testing.T) {
	repo := newCustomerRepo(Customer{ID: "c1", Name: "Ada", Email: "ada@example.com"})
	svc := NewService(repo)

	c, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.Name)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
