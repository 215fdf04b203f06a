package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"consultapp/internal/caching"
	"consultapp/internal/models"
	"consultapp/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TenantServiceTestSuite struct {
	suite.Suite
	repo    *testhelpers.MemoryTenantRepo
	service TenantService
	clock   *fakeClock
	u1      *models.Subject
	u2      *models.Subject
	ctx     context.Context
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (suite *TenantServiceTestSuite) SetupTest() {
	suite.repo = testhelpers.NewMemoryTenantRepo()
	suite.clock = &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	suite.service = NewTenantService(suite.repo, TenantServiceOptions{Now: suite.clock.Now})
	suite.u1 = &models.Subject{ID: "u1", Email: strPtr("u1@example.com")}
	suite.u2 = &models.Subject{ID: "u2"}
	suite.ctx = context.Background()
}

func TestTenantServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceTestSuite))
}

func strPtr(s string) *string { return &s }

func customTheme() *models.ThemeConfig {
	radius := 4.0
	return &models.ThemeConfig{
		Background: "#000000",
		Foreground: "#fafafa",
		Primary:    "#e11d48",
		Muted:      "#27272a",
		Font:       models.FontMono,
		Radius:     &radius,
	}
}

func (suite *TenantServiceTestSuite) create(subject *models.Subject, slug string) *models.Tenant {
	theme := models.DefaultTheme()
	tenant, err := suite.service.Create(suite.ctx, subject, &CreateTenantRequest{
		TenantID:    slug,
		DisplayName: "Clinic " + slug,
		Theme:       &theme,
	})
	require.NoError(suite.T(), err)
	return tenant
}

func (suite *TenantServiceTestSuite) TestConcreteScenario() {
	theme := models.DefaultTheme()
	created, err := suite.service.Create(suite.ctx, suite.u1, &CreateTenantRequest{
		TenantID:    "My Clinic!!",
		DisplayName: "My Clinic",
		Theme:       &theme,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "my-clinic", created.TenantID)
	assert.Equal(suite.T(), created.CreatedAt, created.UpdatedAt)

	_, err = suite.service.Create(suite.ctx, suite.u2, &CreateTenantRequest{
		TenantID:    "my-clinic",
		DisplayName: "Other",
		Theme:       &theme,
	})
	assert.ErrorIs(suite.T(), err, models.ErrSlugTaken)

	suite.clock.Advance(time.Minute)
	_, err = suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID:     "my-clinic-2",
		PrevTenantID: strPtr("my-clinic"),
		Links: []models.TenantLink{
			{ID: "l1", Type: models.LinkInstagram, Href: "https://instagram.com/x", Label: nil},
		},
	})
	require.NoError(suite.T(), err)

	renamed, err := suite.service.GetBySlug(suite.ctx, suite.u1, "my-clinic-2")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), renamed)
	require.Len(suite.T(), renamed.Links, 1)
	assert.Equal(suite.T(), "l1", renamed.Links[0].ID)
	assert.Equal(suite.T(), "My Clinic", renamed.DisplayName)

	old, err := suite.service.GetBySlug(suite.ctx, suite.u1, "my-clinic")
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), old)

	view, err := suite.service.GetPublic(suite.ctx, "my-clinic-2")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), view)
	assert.Equal(suite.T(), "My Clinic", view.DisplayName)
}

func (suite *TenantServiceTestSuite) TestSlugTakenForOtherOwnerOnCreateAndRename() {
	suite.create(suite.u1, "taken-slug")
	suite.create(suite.u2, "u2-page")

	_, err := suite.service.Create(suite.ctx, suite.u2, &CreateTenantRequest{
		TenantID: "taken-slug", DisplayName: "Mine now",
	})
	assert.ErrorIs(suite.T(), err, models.ErrSlugTaken)

	_, err = suite.service.Update(suite.ctx, suite.u2, &UpdateTenantRequest{
		TenantID: "taken-slug", PrevTenantID: strPtr("u2-page"),
	})
	assert.ErrorIs(suite.T(), err, models.ErrSlugTaken)

	still, err := suite.service.GetBySlug(suite.ctx, suite.u1, "taken-slug")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), still)
	assert.Equal(suite.T(), "u1", still.OwnerID)

	mine, err := suite.service.GetBySlug(suite.ctx, suite.u2, "u2-page")
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), mine)
}

func (suite *TenantServiceTestSuite) TestGetBySlug_ForeignOwnerIsUnauthorizedButPublicWorks() {
	suite.create(suite.u1, "private-page")

	tenant, err := suite.service.GetBySlug(suite.ctx, suite.u2, "private-page")
	assert.ErrorIs(suite.T(), err, models.ErrUnauthorized)
	assert.Nil(suite.T(), tenant)

	view, err := suite.service.GetPublic(suite.ctx, "private-page")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), view)
	assert.Equal(suite.T(), "private-page", view.TenantID)
}

func (suite *TenantServiceTestSuite) TestGetBySlug_MissingIsNil() {
	tenant, err := suite.service.GetBySlug(suite.ctx, suite.u1, "nobody-here")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), tenant)
}

func (suite *TenantServiceTestSuite) TestRenamePreservesData() {
	theme := customTheme()
	links := []models.TenantLink{
		{ID: "a", Type: models.LinkInstagram, Href: "https://instagram.com/a"},
		{ID: "b", Type: models.LinkWhatsApp, Href: "https://wa.me/123", Label: strPtr("Chat")},
		{ID: "c", Type: models.LinkGoogleMaps, Href: "https://maps.google.com/?q=1"},
	}
	created, err := suite.service.Create(suite.ctx, suite.u1, &CreateTenantRequest{
		TenantID: "old-slug", DisplayName: "Dr. House", Theme: theme, Links: links,
	})
	require.NoError(suite.T(), err)

	suite.clock.Advance(time.Hour)
	renamed, err := suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "new-slug", PrevTenantID: strPtr("old-slug"),
	})
	require.NoError(suite.T(), err)

	got, err := suite.service.GetBySlug(suite.ctx, suite.u1, "new-slug")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)
	assert.Equal(suite.T(), "Dr. House", got.DisplayName)
	assert.Equal(suite.T(), *theme, got.Theme)
	assert.Equal(suite.T(), links, got.Links)
	assert.Equal(suite.T(), created.CreatedAt, got.CreatedAt)
	assert.True(suite.T(), renamed.UpdatedAt.After(created.UpdatedAt))

	for _, subject := range []*models.Subject{suite.u1, suite.u2} {
		old, err := suite.service.GetBySlug(suite.ctx, subject, "old-slug")
		assert.NoError(suite.T(), err)
		assert.Nil(suite.T(), old)
	}
	view, err := suite.service.GetPublic(suite.ctx, "old-slug")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), view)
}

func (suite *TenantServiceTestSuite) TestRenameOntoOwnDuplicateKeepsSourceCreatedAt() {
	srcCreated := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dstCreated := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.repo.Put(&models.Tenant{TenantID: "src-slug", OwnerID: "u1", DisplayName: "Source",
		Theme: models.DefaultTheme(), CreatedAt: srcCreated, UpdatedAt: srcCreated})
	suite.repo.Put(&models.Tenant{TenantID: "dst-slug", OwnerID: "u1", DisplayName: "Target",
		Theme: models.DefaultTheme(), CreatedAt: dstCreated, UpdatedAt: dstCreated})

	renamed, err := suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "dst-slug", PrevTenantID: strPtr("src-slug"),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), srcCreated, renamed.CreatedAt)

	got, err := suite.service.GetBySlug(suite.ctx, suite.u1, "dst-slug")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)
	assert.Equal(suite.T(), "Source", got.DisplayName)
	assert.Equal(suite.T(), srcCreated, got.CreatedAt)
	assert.Equal(suite.T(), 1, suite.repo.Len())
}

func (suite *TenantServiceTestSuite) TestUpdate_PartialMerge() {
	theme := customTheme()
	suite.service.Create(suite.ctx, suite.u1, &CreateTenantRequest{
		TenantID: "merge-me", DisplayName: "Before", Theme: theme,
		Links: []models.TenantLink{{ID: "x", Type: models.LinkX, Href: "https://x.com/me"}},
	})

	updated, err := suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "merge-me", DisplayName: strPtr("  After  "),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "After", updated.DisplayName)
	assert.Equal(suite.T(), *theme, updated.Theme)
	assert.Len(suite.T(), updated.Links, 1)
	assert.Equal(suite.T(), int64(2), updated.Version)

	cleared, err := suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "merge-me", Links: []models.TenantLink{},
	})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), cleared.Links)
	assert.Equal(suite.T(), "After", cleared.DisplayName)
}

func (suite *TenantServiceTestSuite) TestUpdate_Errors() {
	suite.create(suite.u1, "edit-target")

	_, err := suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{TenantID: "does-not-exist"})
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)

	_, err = suite.service.Update(suite.ctx, suite.u2, &UpdateTenantRequest{
		TenantID: "edit-target", DisplayName: strPtr("mine"),
	})
	assert.ErrorIs(suite.T(), err, models.ErrUnauthorized)

	_, err = suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "edit-target", DisplayName: strPtr("   "),
	})
	assert.ErrorIs(suite.T(), err, models.ErrValidation)

	stale := int64(7)
	_, err = suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "edit-target", DisplayName: strPtr("new"), Version: &stale,
	})
	assert.ErrorIs(suite.T(), err, models.ErrConflict)
}

func (suite *TenantServiceTestSuite) TestUpdate_LostRaceIsConflict() {
	suite.create(suite.u1, "race-page")
	first := int64(1)

	_, err := suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "race-page", DisplayName: strPtr("one"), Version: &first,
	})
	require.NoError(suite.T(), err)

	_, err = suite.service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{
		TenantID: "race-page", DisplayName: strPtr("two"), Version: &first,
	})
	assert.ErrorIs(suite.T(), err, models.ErrConflict)
}

func (suite *TenantServiceTestSuite) TestCreate_Validation() {
	tests := []struct {
		name  string
		req   *CreateTenantRequest
		field string
	}{
		{name: "short slug", req: &CreateTenantRequest{TenantID: "a!", DisplayName: "x"}, field: "tenantId"},
		{name: "blank slug", req: &CreateTenantRequest{TenantID: "  ", DisplayName: "x"}, field: "tenantId"},
		{name: "blank name", req: &CreateTenantRequest{TenantID: "fine-slug", DisplayName: " "}, field: "displayName"},
		{name: "bad font", req: &CreateTenantRequest{TenantID: "fine-slug", DisplayName: "x",
			Theme: &models.ThemeConfig{Background: "#fff", Foreground: "#000", Primary: "#00f", Muted: "#ccc", Font: "comic"}},
			field: "theme.font"},
		{name: "bad href", req: &CreateTenantRequest{TenantID: "fine-slug", DisplayName: "x",
			Links: []models.TenantLink{{Type: models.LinkOther, Href: "javascript:alert(1)"}}},
			field: "links[0].href"},
		{name: "bad link type", req: &CreateTenantRequest{TenantID: "fine-slug", DisplayName: "x",
			Links: []models.TenantLink{{Type: "myspace", Href: "https://myspace.com"}}},
			field: "links[0].type"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.Create(suite.ctx, suite.u1, tt.req)
			var vErr *models.ValidationError
			require.ErrorAs(suite.T(), err, &vErr)
			assert.Equal(suite.T(), tt.field, vErr.Field)
		})
	}
	assert.Equal(suite.T(), 0, suite.repo.Len())
}

func (suite *TenantServiceTestSuite) TestCreate_GeneratesLinkIDs() {
	tenant, err := suite.service.Create(suite.ctx, suite.u1, &CreateTenantRequest{
		TenantID: "links-page", DisplayName: "Links",
		Links: []models.TenantLink{{Type: models.LinkWaze, Href: "https://waze.com/ul?q=1"}},
	})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), tenant.Links, 1)
	assert.NotEmpty(suite.T(), tenant.Links[0].ID)
}

func (suite *TenantServiceTestSuite) TestCreate_OneTenantPerOwner() {
	suite.create(suite.u1, "first-page")

	_, err := suite.service.Create(suite.ctx, suite.u1, &CreateTenantRequest{
		TenantID: "second-page", DisplayName: "Second",
	})
	assert.ErrorIs(suite.T(), err, models.ErrOwnerHasTenant)

	// re-creating the same slug is a content replace
	suite.clock.Advance(time.Minute)
	again, err := suite.service.Create(suite.ctx, suite.u1, &CreateTenantRequest{
		TenantID: "first-page", DisplayName: "Replaced",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Replaced", again.DisplayName)
	assert.True(suite.T(), again.CreatedAt.Before(again.UpdatedAt))
}

func (suite *TenantServiceTestSuite) TestCreate_NoSubject() {
	_, err := suite.service.Create(suite.ctx, nil, &CreateTenantRequest{TenantID: "abc", DisplayName: "x"})
	assert.ErrorIs(suite.T(), err, models.ErrNoSession)
}

func (suite *TenantServiceTestSuite) TestRemove() {
	err := suite.service.Remove(suite.ctx, suite.u1, "never-existed")
	assert.NoError(suite.T(), err)

	suite.create(suite.u1, "remove-me")
	err = suite.service.Remove(suite.ctx, suite.u2, "remove-me")
	assert.ErrorIs(suite.T(), err, models.ErrUnauthorized)

	err = suite.service.Remove(suite.ctx, suite.u1, "remove-me")
	require.NoError(suite.T(), err)
	err = suite.service.Remove(suite.ctx, suite.u1, "remove-me")
	assert.NoError(suite.T(), err)

	gone, err := suite.service.GetBySlug(suite.ctx, suite.u1, "remove-me")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), gone)
}

func (suite *TenantServiceTestSuite) TestGetPublic_BlankSkipsStore() {
	for _, input := range []string{"", "   ", "\t\n"} {
		view, err := suite.service.GetPublic(suite.ctx, input)
		assert.NoError(suite.T(), err)
		assert.Nil(suite.T(), view)
	}
	assert.Equal(suite.T(), int64(0), suite.repo.Calls())
}

func (suite *TenantServiceTestSuite) TestGetByOwner() {
	none, err := suite.service.GetByOwner(suite.ctx, suite.u1)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), none)

	suite.create(suite.u1, "owner-page")
	mine, err := suite.service.GetByOwner(suite.ctx, suite.u1)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), mine)
	assert.Equal(suite.T(), "owner-page", mine.TenantID)
}

func (suite *TenantServiceTestSuite) TestStoreFailureIsUnavailable() {
	suite.repo.Err = models.Unavailable(errors.New("connection refused"))

	_, err := suite.service.GetByOwner(suite.ctx, suite.u1)
	assert.ErrorIs(suite.T(), err, models.ErrUnavailable)
	assert.NotErrorIs(suite.T(), err, models.ErrUnauthorized)

	_, err = suite.service.GetPublic(suite.ctx, "some-page")
	assert.ErrorIs(suite.T(), err, models.ErrUnavailable)
}

func (suite *TenantServiceTestSuite) TestUnclassifiedStoreErrorIsNotUnavailable() {
	suite.repo.Err = errors.New("decode theme: invalid character")

	_, err := suite.service.GetByOwner(suite.ctx, suite.u1)
	require.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, models.ErrUnavailable)
	assert.False(suite.T(), models.IsKnown(err))
}

func (suite *TenantServiceTestSuite) TestStoreTimeoutIsUnavailable() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.service.GetBySlug(ctx, suite.u1, "any-page")
	assert.ErrorIs(suite.T(), err, models.ErrUnavailable)
}

func (suite *TenantServiceTestSuite) TestThemeRoundTrip() {
	saved, err := suite.service.UpdateTheme(suite.ctx, suite.u1, &UpdateThemeRequest{
		TenantID: "themed", DisplayName: "Themed", Theme: customTheme(),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "themed", saved.TenantID)

	got, err := suite.service.GetTheme(suite.ctx, suite.u1, "themed")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FontMono, got.Theme.Font)

	theme := models.DefaultTheme()
	updated, err := suite.service.UpdateTheme(suite.ctx, suite.u1, &UpdateThemeRequest{
		TenantID: "themed", DisplayName: "Themed again", Theme: &theme,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FontGeist, updated.Theme.Font)

	_, err = suite.service.UpdateTheme(suite.ctx, suite.u2, &UpdateThemeRequest{
		TenantID: "themed", DisplayName: "Nope", Theme: &theme,
	})
	assert.ErrorIs(suite.T(), err, models.ErrSlugTaken)
}

func (suite *TenantServiceTestSuite) TestReconcileOwners() {
	base := suite.clock.now
	suite.repo.Put(&models.Tenant{TenantID: "older", OwnerID: "u1", DisplayName: "Old", UpdatedAt: base})
	suite.repo.Put(&models.Tenant{TenantID: "newer", OwnerID: "u1", DisplayName: "New", UpdatedAt: base.Add(time.Hour)})
	suite.repo.Put(&models.Tenant{TenantID: "single", OwnerID: "u2", DisplayName: "Only", UpdatedAt: base})

	archive := &MockArchiveService{}
	archive.On("ArchiveTenant", mock.Anything, mock.MatchedBy(func(t *models.Tenant) bool {
		return t.TenantID == "older"
	})).Return("tenants/u1/older-v1.json", nil).Once()

	service := NewTenantService(suite.repo, TenantServiceOptions{Now: suite.clock.Now, Archive: archive})
	report, err := service.ReconcileOwners(suite.ctx, 10)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, report.OwnersScanned)
	assert.Equal(suite.T(), 1, report.TenantsRemoved)
	assert.Equal(suite.T(), 0, report.Failures)
	archive.AssertExpectations(suite.T())

	kept, err := service.GetByOwner(suite.ctx, suite.u1)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "newer", kept.TenantID)
	assert.Equal(suite.T(), 2, suite.repo.Len())
}

func (suite *TenantServiceTestSuite) TestReconcileOwners_ArchiveFailureKeepsRecord() {
	base := suite.clock.now
	suite.repo.Put(&models.Tenant{TenantID: "older", OwnerID: "u1", UpdatedAt: base})
	suite.repo.Put(&models.Tenant{TenantID: "newer", OwnerID: "u1", UpdatedAt: base.Add(time.Hour)})

	archive := &MockArchiveService{}
	archive.On("ArchiveTenant", mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

	service := NewTenantService(suite.repo, TenantServiceOptions{Archive: archive})
	report, err := service.ReconcileOwners(suite.ctx, 10)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, report.TenantsRemoved)
	assert.Equal(suite.T(), 1, report.Failures)
	assert.Equal(suite.T(), 2, suite.repo.Len())
}

func (suite *TenantServiceTestSuite) TestPublicCacheInvalidatedOnWrite() {
	local, err := caching.NewLocalCache(1 << 20)
	require.NoError(suite.T(), err)
	defer local.Close()
	cache := caching.NewPublicTenantCache(caching.NewTieredCache(local, nil, time.Minute), time.Minute)
	service := NewTenantService(suite.repo, TenantServiceOptions{Now: suite.clock.Now, PublicCache: cache})

	_, err = service.Create(suite.ctx, suite.u1, &CreateTenantRequest{TenantID: "cached-page", DisplayName: "v1"})
	require.NoError(suite.T(), err)

	view, err := service.GetPublic(suite.ctx, "cached-page")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "v1", view.DisplayName)
	local.Wait()

	_, err = service.Update(suite.ctx, suite.u1, &UpdateTenantRequest{TenantID: "cached-page", DisplayName: strPtr("v2")})
	require.NoError(suite.T(), err)

	view, err = service.GetPublic(suite.ctx, "cached-page")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "v2", view.DisplayName)
}

// MockTenantRepository is used where the exact store calls matter
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByOwner(ctx context.Context, ownerID string) (*models.Tenant, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Tenant, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListDuplicateOwners(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTenantRepository) Upsert(ctx context.Context, tenant *models.Tenant) error {
	return m.Called(ctx, tenant).Error(0)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *models.Tenant, expectedVersion int64) error {
	return m.Called(ctx, tenant, expectedVersion).Error(0)
}

func (m *MockTenantRepository) Rename(ctx context.Context, fromID string, expectedVersion int64, tenant *models.Tenant) error {
	return m.Called(ctx, fromID, expectedVersion, tenant).Error(0)
}

func (m *MockTenantRepository) Delete(ctx context.Context, tenantID, ownerID string) (bool, error) {
	args := m.Called(ctx, tenantID, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) DeleteVersion(ctx context.Context, tenantID, ownerID string, version int64) (bool, error) {
	args := m.Called(ctx, tenantID, ownerID, version)
	return args.Bool(0), args.Error(1)
}

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) ArchiveTenant(ctx context.Context, tenant *models.Tenant) (string, error) {
	args := m.Called(ctx, tenant)
	return args.String(0), args.Error(1)
}

func (m *MockArchiveService) EnsureBucketExists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestCreate_WriteRaceLosesToForeignOwner(t *testing.T) {
	repo := &MockTenantRepository{}
	repo.Test(t)
	service := NewTenantService(repo, TenantServiceOptions{})
	subject := &models.Subject{ID: "u2"}

	// the read sees a free slug, the conditional write then finds u1's record
	repo.On("Get", mock.Anything, "contested").Return(nil, nil).Once()
	repo.On("GetByOwner", mock.Anything, "u2").Return(nil, nil).Once()
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Tenant")).Return(models.ErrSlugTaken).Once()

	_, err := service.Create(context.Background(), subject, &CreateTenantRequest{TenantID: "contested", DisplayName: "Late"})
	assert.ErrorIs(t, err, models.ErrSlugTaken)
	repo.AssertExpectations(t)
}

func TestRemove_DeleteIsOwnerScoped(t *testing.T) {
	repo := &MockTenantRepository{}
	repo.Test(t)
	service := NewTenantService(repo, TenantServiceOptions{})
	subject := &models.Subject{ID: "u1"}

	repo.On("Get", mock.Anything, "my-page").Return(&models.Tenant{TenantID: "my-page", OwnerID: "u1"}, nil).Once()
	repo.On("Delete", mock.Anything, "my-page", "u1").Return(true, nil).Once()

	require.NoError(t, service.Remove(context.Background(), subject, "My Page"))
	repo.AssertExpectations(t)
}

func TestGetPublic_NeverReturnsOwner(t *testing.T) {
	repo := &MockTenantRepository{}
	repo.Test(t)
	service := NewTenantService(repo, TenantServiceOptions{})

	repo.On("Get", mock.Anything, "landing").Return(&models.Tenant{
		TenantID: "landing", OwnerID: "secret-owner", DisplayName: "Landing",
	}, nil).Once()

	view, err := service.GetPublic(context.Background(), "  landing ")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "Landing", view.DisplayName)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "GetByOwner", mock.Anything, mock.Anything)
}
