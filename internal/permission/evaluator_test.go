package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

type MockOwnershipStore struct {
	mock.Mock
}

func (m *MockOwnershipStore) FindOwnerID(ctx context.Context, resourceType string, resourceID int64) (int64, bool, error) {
	args := m.Called(ctx, resourceType, resourceID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

var (
	admin = &domain.Principal{ID: 1, Username: "root", Role: domain.RoleAdmin}
	alice = &domain.Principal{ID: 10, Username: "alice", Role: domain.RoleUser}
)

func TestEvaluator_NilPrincipal(t *testing.T) {
	store := new(MockOwnershipStore)
	e := NewEvaluator(store, nil)

	assert.False(t, e.Decide(context.Background(), nil, domain.ResourceUser, 10))
	assert.False(t, e.Decide(context.Background(), nil, domain.ResourceBoard, 5))
	store.AssertNotCalled(t, "FindOwnerID", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluator_AdminShortCircuit(t *testing.T) {
	store := new(MockOwnershipStore)
	e := NewEvaluator(store, nil)

	assert.True(t, e.Decide(context.Background(), admin, domain.ResourceUser, 999))
	assert.True(t, e.Decide(context.Background(), admin, domain.ResourceBoard, 999))
	assert.True(t, e.Decide(context.Background(), admin, "Anything", 1))
	store.AssertNotCalled(t, "FindOwnerID", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluator_UserSelfOnly(t *testing.T) {
	e := NewEvaluator(new(MockOwnershipStore), nil)

	assert.True(t, e.Decide(context.Background(), alice, domain.ResourceUser, 10))
	assert.False(t, e.Decide(context.Background(), alice, domain.ResourceUser, 11))
}

func TestEvaluator_BoardOwnership(t *testing.T) {
	tests := []struct {
		name    string
		ownerID int64
		found   bool
		err     error
		want    bool
	}{
		{"owner", 10, true, nil, true},
		{"not owner", 11, true, nil, false},
		{"board missing", 0, false, nil, false},
		{"lookup error", 0, false, errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockOwnershipStore)
			store.On("FindOwnerID", mock.Anything, domain.ResourceBoard, int64(5)).Return(tt.ownerID, tt.found, tt.err).Once()

			e := NewEvaluator(store, nil)
			assert.Equal(t, tt.want, e.Decide(context.Background(), alice, domain.ResourceBoard, 5))
			store.AssertExpectations(t)
		})
	}
}

func TestEvaluator_UnknownType(t *testing.T) {
	store := new(MockOwnershipStore)
	e := NewEvaluator(store, nil)

	assert.False(t, e.Decide(context.Background(), alice, "Comment", 10))
	assert.False(t, e.Decide(context.Background(), alice, "", 10))
	store.AssertNotCalled(t, "FindOwnerID", mock.Anything, mock.Anything, mock.Anything)
}
