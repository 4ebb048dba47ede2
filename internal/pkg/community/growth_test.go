package community

import (
	"context"
	"testing"
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSpaceRepo struct {
	spaces map[uint]*models.Space
}

func (r *fakeSpaceRepo) Create(space *models.Space) error {
	r.spaces[space.ID] = space
	return nil
}

func (r *fakeSpaceRepo) GetByID(id uint) (*models.Space, error) {
	if s, ok := r.spaces[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSpaceRepo) UpdateMemberCount(id uint, count int) error {
	s, ok := r.spaces[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.MemberCount = count
	return nil
}

func (r *fakeSpaceRepo) MarkGrowthRewarded(id uint) (bool, error) {
	s, ok := r.spaces[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if s.GrowthRewardGrantedAt != nil {
		return false, nil
	}
	now := time.Now()
	s.GrowthRewardGrantedAt = &now
	return true, nil
}

type fakeUserRepo struct {
	users      map[uint]*models.User
	freeAccess []uint
}

func (r *fakeUserRepo) Create(user *models.User) error              { return nil }
func (r *fakeUserRepo) GetByName(name string) (*models.User, error) { return nil, gorm.ErrRecordNotFound }
func (r *fakeUserRepo) Update(user *models.User) error              { return nil }
func (r *fakeUserRepo) AttachBillingCustomerRef(userID uint, ref string) (string, error) {
	return ref, nil
}
func (r *fakeUserRepo) ActivateSubscription(userID uint, subRef string, endsAt time.Time) error {
	return nil
}
func (r *fakeUserRepo) ExtendSubscription(subRef string, periodEnd time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeUserRepo) CancelBySubscriptionRef(subRef string) (int64, error) { return 0, nil }
func (r *fakeUserRepo) List(offset, limit int) ([]models.User, error)        { return nil, nil }
func (r *fakeUserRepo) Count() (int64, error)                                { return 0, nil }

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) SetFreeAccess(userID uint, granted bool) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.FreeAccessGranted = granted
	r.freeAccess = append(r.freeAccess, userID)
	return nil
}

func newGrowthFixture(threshold int) (*Service, *fakeSpaceRepo, *fakeUserRepo) {
	owner := &models.User{ID: 7, Name: "owner"}
	users := &fakeUserRepo{users: map[uint]*models.User{7: owner}}
	spaces := &fakeSpaceRepo{spaces: map[uint]*models.Space{
		1: {ID: 1, Name: "Creators Hub", OwnerID: 7, MemberCount: threshold - 1},
	}}
	return NewServiceWith(spaces, users, nil, threshold), spaces, users
}

func TestGrowthRewardFiresExactlyOnceAtThreshold(t *testing.T) {
	svc, spaces, users := newGrowthFixture(1000)

	// 999 members: nothing happens.
	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 999))
	assert.Empty(t, users.freeAccess)
	assert.Nil(t, spaces.spaces[1].GrowthRewardGrantedAt)

	// Member 1000 crosses the threshold.
	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 1000))
	assert.Equal(t, []uint{7}, users.freeAccess)
	assert.True(t, users.users[7].FreeAccessGranted)
	require.NotNil(t, spaces.spaces[1].GrowthRewardGrantedAt)

	// Member 1001 must not re-grant.
	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 1001))
	assert.Equal(t, []uint{7}, users.freeAccess, "the grant fired a second time")
}

func TestGrowthRewardDoesNotRefireAfterDip(t *testing.T) {
	svc, _, users := newGrowthFixture(1000)

	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 1000))
	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 950))
	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 1000))

	assert.Equal(t, []uint{7}, users.freeAccess)
}

func TestGrowthRewardKeepsFreeAccessAfterDip(t *testing.T) {
	svc, _, users := newGrowthFixture(1000)

	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 1000))
	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 500))

	assert.True(t, users.users[7].FreeAccessGranted, "a membership dip must not revoke the grant")
}

func TestGrowthRewardTracksMemberCount(t *testing.T) {
	svc, spaces, _ := newGrowthFixture(1000)

	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 42))
	assert.Equal(t, 42, spaces.spaces[1].MemberCount)
}

func TestGrowthRewardUnknownSpace(t *testing.T) {
	svc, _, _ := newGrowthFixture(1000)

	err := svc.OnMembershipChanged(context.Background(), 99, 1000)
	assert.Error(t, err)
}

func TestGrowthRewardCustomThreshold(t *testing.T) {
	svc, _, users := newGrowthFixture(10)

	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 9))
	assert.Empty(t, users.freeAccess)

	require.NoError(t, svc.OnMembershipChanged(context.Background(), 1, 10))
	assert.Equal(t, []uint{7}, users.freeAccess)
}
