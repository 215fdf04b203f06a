package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"consultapp/internal/caching"
	"consultapp/internal/common"
	"consultapp/internal/metrics"
	"consultapp/internal/models"
	"consultapp/internal/repositories"

	"go.uber.org/zap"
)

// TenantService is the authorization-aware directory over tenant records.
// Every method that takes a subject consults the access policy before
// touching the store.
type TenantService interface {
	GetByOwner(ctx context.Context, subject *models.Subject) (*models.Tenant, error)
	GetBySlug(ctx context.Context, subject *models.Subject, tenantID string) (*models.Tenant, error)
	Create(ctx context.Context, subject *models.Subject, req *CreateTenantRequest) (*models.Tenant, error)
	Update(ctx context.Context, subject *models.Subject, req *UpdateTenantRequest) (*models.Tenant, error)
	Remove(ctx context.Context, subject *models.Subject, tenantID string) error
	GetPublic(ctx context.Context, tenantID string) (*models.PublicTenant, error)

	GetTheme(ctx context.Context, subject *models.Subject, tenantID string) (*TenantTheme, error)
	UpdateTheme(ctx context.Context, subject *models.Subject, req *UpdateThemeRequest) (*TenantTheme, error)

	ReconcileOwners(ctx context.Context, limit int) (*ReconcileReport, error)
}

type CreateTenantRequest struct {
	TenantID    string              `json:"tenantId"`
	DisplayName string              `json:"displayName"`
	Theme       *models.ThemeConfig `json:"theme"`
	Links       []models.TenantLink `json:"links,omitempty"`
}

// UpdateTenantRequest is a partial update. Nil fields keep the stored value;
// a non-nil empty Links clears the list.
type UpdateTenantRequest struct {
	TenantID     string              `json:"tenantId"`
	PrevTenantID *string             `json:"prevTenantId,omitempty"`
	DisplayName  *string             `json:"displayName,omitempty"`
	Theme        *models.ThemeConfig `json:"theme,omitempty"`
	Links        []models.TenantLink `json:"links,omitempty"`
	// Version, when set, must match the stored version
	Version *int64 `json:"version,omitempty"`
}

type TenantTheme struct {
	TenantID    string             `json:"tenantId"`
	DisplayName string             `json:"displayName"`
	Theme       models.ThemeConfig `json:"theme"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type UpdateThemeRequest struct {
	TenantID    string              `json:"tenantId"`
	DisplayName string              `json:"displayName"`
	Theme       *models.ThemeConfig `json:"theme"`
}

type ReconcileReport struct {
	OwnersScanned  int `json:"ownersScanned"`
	TenantsRemoved int `json:"tenantsRemoved"`
	Failures       int `json:"failures"`
}

type TenantServiceOptions struct {
	StoreTimeout time.Duration
	Now          func() time.Time
	PublicCache  caching.PublicTenantCache
	Archive      ArchiveService
	Metrics      metrics.Recorder
	Logger       *zap.Logger
}

type tenantService struct {
	tenantRepo   repositories.TenantRepository
	storeTimeout time.Duration
	now          func() time.Time
	publicCache  caching.PublicTenantCache
	archive      ArchiveService
	metrics      metrics.Recorder
	logger       *zap.Logger
}

func NewTenantService(tenantRepo repositories.TenantRepository, opts TenantServiceOptions) TenantService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &tenantService{
		tenantRepo:   tenantRepo,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
		publicCache:  opts.PublicCache,
		archive:      opts.Archive,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
}

func (s *tenantService) GetByOwner(ctx context.Context, subject *models.Subject) (tenant *models.Tenant, err error) {
	defer s.track("get_by_owner", &err)()
	if err := requireSubject(subject); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.tenantRepo.GetByOwner(ctx, subject.ID)
}

func (s *tenantService) GetBySlug(ctx context.Context, subject *models.Subject, tenantID string) (tenant *models.Tenant, err error) {
	defer s.track("get_by_slug", &err)()
	if err := requireSubject(subject); err != nil {
		return nil, err
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, models.NewValidationError("tenantId", "is required")
	}
	slug := common.NormalizeTenantID(tenantID)
	if !common.IsSlug(slug) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	record, err := s.tenantRepo.Get(ctx, slug)
	if err != nil || record == nil {
		return nil, err
	}
	if !CanRead(subject, record) {
		return nil, models.ErrUnauthorized
	}
	return record, nil
}

func (s *tenantService) Create(ctx context.Context, subject *models.Subject, req *CreateTenantRequest) (tenant *models.Tenant, err error) {
	defer s.track("create", &err)()
	if err := requireSubject(subject); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewValidationError("tenantId", "is required")
	}

	slug, err := common.ValidateTenantID(req.TenantID, "tenantId")
	if err != nil {
		return nil, err
	}
	name, err := validateDisplayName(req.DisplayName)
	if err != nil {
		return nil, err
	}
	theme := models.DefaultTheme()
	if req.Theme != nil {
		theme = *req.Theme
	}
	if theme, err = validateTheme(theme); err != nil {
		return nil, err
	}
	links, err := validateLinks(req.Links)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	existing, err := s.tenantRepo.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !CanWrite(subject, existing) {
		return nil, models.ErrSlugTaken
	}

	// one tenant per owner; renames go through Update
	owned, err := s.tenantRepo.GetByOwner(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	if owned != nil && owned.TenantID != slug {
		return nil, models.ErrOwnerHasTenant
	}

	now := s.now().UTC()
	record := &models.Tenant{
		TenantID:    slug,
		OwnerID:     subject.ID,
		DisplayName: name,
		Theme:       theme,
		Links:       links,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// the write itself refuses a foreign owner, closing the window after the read above
	if err := s.tenantRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.invalidate(ctx, slug)
	s.logger.Info("tenant saved", zap.String("tenant_id", slug), zap.String("owner_id", subject.ID))
	return record, nil
}

func (s *tenantService) Update(ctx context.Context, subject *models.Subject, req *UpdateTenantRequest) (tenant *models.Tenant, err error) {
	defer s.track("update", &err)()
	if err := requireSubject(subject); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewValidationError("tenantId", "is required")
	}

	target, err := common.ValidateTenantID(req.TenantID, "tenantId")
	if err != nil {
		return nil, err
	}
	sourceID := target
	if req.PrevTenantID != nil && strings.TrimSpace(*req.PrevTenantID) != "" {
		if sourceID, err = common.ValidateTenantID(*req.PrevTenantID, "prevTenantId"); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	source, err := s.tenantRepo.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, models.ErrNotFound
	}
	if !CanWrite(subject, source) {
		return nil, models.ErrUnauthorized
	}
	if req.Version != nil && *req.Version != source.Version {
		return nil, models.ErrConflict
	}

	merged, err := mergeTenant(source, req)
	if err != nil {
		return nil, err
	}
	merged.TenantID = target
	merged.UpdatedAt = s.now().UTC()

	if target == sourceID {
		if err := s.tenantRepo.Update(ctx, merged, source.Version); err != nil {
			return nil, err
		}
		s.invalidate(ctx, target)
		return merged, nil
	}

	existing, err := s.tenantRepo.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	if !CanWrite(subject, existing) {
		return nil, models.ErrSlugTaken
	}
	if err := s.tenantRepo.Rename(ctx, sourceID, source.Version, merged); err != nil {
		return nil, err
	}

	s.invalidate(ctx, sourceID, target)
	s.logger.Info("tenant renamed",
		zap.String("from", sourceID),
		zap.String("to", target),
		zap.String("owner_id", subject.ID))
	return merged, nil
}

func mergeTenant(source *models.Tenant, req *UpdateTenantRequest) (*models.Tenant, error) {
	merged := source.Clone()

	if req.DisplayName != nil {
		name, err := validateDisplayName(*req.DisplayName)
		if err != nil {
			return nil, err
		}
		merged.DisplayName = name
	}
	if req.Theme != nil {
		theme, err := validateTheme(*req.Theme)
		if err != nil {
			return nil, err
		}
		merged.Theme = theme
	}
	if req.Links != nil {
		links, err := validateLinks(req.Links)
		if err != nil {
			return nil, err
		}
		merged.Links = links
	}
	return merged, nil
}

func (s *tenantService) Remove(ctx context.Context, subject *models.Subject, tenantID string) (err error) {
	defer s.track("remove", &err)()
	if err := requireSubject(subject); err != nil {
		return err
	}
	if strings.TrimSpace(tenantID) == "" {
		return models.NewValidationError("tenantId", "is required")
	}
	slug := common.NormalizeTenantID(tenantID)
	if !common.IsSlug(slug) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	existing, err := s.tenantRepo.Get(ctx, slug)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if !CanDelete(subject, existing) {
		return models.ErrUnauthorized
	}
	// owner is re-checked by the delete itself
	if _, err := s.tenantRepo.Delete(ctx, slug, subject.ID); err != nil {
		return err
	}

	s.invalidate(ctx, slug)
	s.logger.Info("tenant removed", zap.String("tenant_id", slug), zap.String("owner_id", subject.ID))
	return nil
}

func (s *tenantService) GetPublic(ctx context.Context, tenantID string) (view *models.PublicTenant, err error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, nil
	}
	defer s.track("get_public", &err)()

	slug := common.NormalizeTenantID(tenantID)
	if !common.IsSlug(slug) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if s.publicCache != nil {
		cached, found, err := s.publicCache.Get(ctx, slug)
		switch {
		case err != nil:
			s.metrics.RecordPublicCache("error")
			s.logger.Warn("public cache read failed", zap.String("tenant_id", slug), zap.Error(err))
		case found:
			s.metrics.RecordPublicCache("hit")
			return cached, nil
		default:
			s.metrics.RecordPublicCache("miss")
		}
	}

	record, err := s.tenantRepo.Get(ctx, slug)
	if err != nil || record == nil {
		return nil, err
	}
	view = record.Public()

	if s.publicCache != nil {
		if err := s.publicCache.Set(ctx, view); err != nil {
			s.logger.Warn("public cache write failed", zap.String("tenant_id", slug), zap.Error(err))
		}
	}
	return view, nil
}

func (s *tenantService) GetTheme(ctx context.Context, subject *models.Subject, tenantID string) (*TenantTheme, error) {
	record, err := s.GetBySlug(ctx, subject, tenantID)
	if err != nil || record == nil {
		return nil, err
	}
	return themeOf(record), nil
}

// UpdateTheme saves display name and theme, creating the tenant when the slug
// is still free.
func (s *tenantService) UpdateTheme(ctx context.Context, subject *models.Subject, req *UpdateThemeRequest) (*TenantTheme, error) {
	if err := requireSubject(subject); err != nil {
		return nil, err
	}
	if req == nil || req.Theme == nil {
		return nil, models.NewValidationError("theme", "is required")
	}

	record, err := s.GetBySlug(ctx, subject, req.TenantID)
	if errors.Is(err, models.ErrUnauthorized) {
		return nil, models.ErrSlugTaken
	}
	if err != nil {
		return nil, err
	}

	if record == nil {
		created, err := s.Create(ctx, subject, &CreateTenantRequest{
			TenantID:    req.TenantID,
			DisplayName: req.DisplayName,
			Theme:       req.Theme,
		})
		if err != nil {
			return nil, err
		}
		return themeOf(created), nil
	}

	name := req.DisplayName
	updated, err := s.Update(ctx, subject, &UpdateTenantRequest{
		TenantID:    record.TenantID,
		DisplayName: &name,
		Theme:       req.Theme,
	})
	if err != nil {
		return nil, err
	}
	return themeOf(updated), nil
}

func themeOf(t *models.Tenant) *TenantTheme {
	c := t.Clone()
	return &TenantTheme{
		TenantID:    c.TenantID,
		DisplayName: c.DisplayName,
		Theme:       c.Theme,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ReconcileOwners collapses owners holding more than one tenant down to the
// most recently updated one. Discarded records are archived first when an
// archive is configured; a failed archive keeps the record for the next pass.
func (s *tenantService) ReconcileOwners(ctx context.Context, limit int) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	listCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	owners, err := s.tenantRepo.ListDuplicateOwners(listCtx, limit)
	cancel()
	if err != nil {
		return report, contextFailure(err)
	}

	for _, owner := range owners {
		if ctx.Err() != nil {
			return report, models.Unavailable(ctx.Err())
		}
		report.OwnersScanned++
		removed, failures := s.reconcileOwner(ctx, owner)
		report.TenantsRemoved += removed
		report.Failures += failures
	}

	if report.OwnersScanned > 0 {
		s.logger.Info("owner reconciliation finished",
			zap.Int("owners", report.OwnersScanned),
			zap.Int("removed", report.TenantsRemoved),
			zap.Int("failures", report.Failures))
	}
	return report, nil
}

func (s *tenantService) reconcileOwner(ctx context.Context, owner string) (removed, failures int) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	tenants, err := s.tenantRepo.ListByOwner(ctx, owner)
	if err != nil {
		s.logger.Warn("list owner tenants failed", zap.String("owner_id", owner), zap.Error(err))
		return 0, 1
	}
	if len(tenants) < 2 {
		return 0, 0
	}

	keep := tenants[0]
	for _, t := range tenants[1:] {
		if s.archive != nil {
			name, err := s.archive.ArchiveTenant(ctx, t)
			if err != nil {
				s.logger.Warn("archive tenant failed", zap.String("tenant_id", t.TenantID), zap.Error(err))
				failures++
				continue
			}
			s.logger.Debug("tenant archived", zap.String("tenant_id", t.TenantID), zap.String("object", name))
		}

		deleted, err := s.tenantRepo.DeleteVersion(ctx, t.TenantID, owner, t.Version)
		if err != nil {
			s.logger.Warn("delete duplicate tenant failed", zap.String("tenant_id", t.TenantID), zap.Error(err))
			failures++
			continue
		}
		if deleted {
			removed++
			s.invalidate(ctx, t.TenantID)
			s.logger.Info("duplicate tenant removed",
				zap.String("tenant_id", t.TenantID),
				zap.String("kept", keep.TenantID),
				zap.String("owner_id", owner))
		}
	}
	s.metrics.RecordTenantOp("reconcile", "ok")
	return removed, failures
}

func (s *tenantService) invalidate(ctx context.Context, tenantIDs ...string) {
	if s.publicCache == nil {
		return
	}
	if err := s.publicCache.Invalidate(ctx, tenantIDs...); err != nil {
		s.logger.Warn("public cache invalidation failed", zap.Strings("tenant_ids", tenantIDs), zap.Error(err))
	}
}

// track records latency and outcome. The repository tags its own transient
// failures; deadlines and cancellation are tagged here.
func (s *tenantService) track(op string, errp *error) func() {
	start := time.Now()
	return func() {
		s.metrics.ObserveStoreLatency(op, time.Since(start))
		*errp = contextFailure(*errp)
		s.metrics.RecordTenantOp(op, resultLabel(*errp))
	}
}

func contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.Unavailable(err)
	}
	return err
}

func requireSubject(subject *models.Subject) error {
	if subject == nil || subject.ID == "" {
		return models.ErrNoSession
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrSlugTaken):
		return "slug_taken"
	case errors.Is(err, models.ErrOwnerHasTenant):
		return "owner_has_tenant"
	case errors.Is(err, models.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrNoSession):
		return "no_session"
	case errors.Is(err, models.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
