// Package catalog loads grants, ideas, profiles and saved ideas from Postgres,
// caching the hot reads in Redis.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/grants"
	"spark-workers/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	CatalogCacheKey    = "grants:catalog:active"
	profileCachePrefix = "user:profile:"
	DefaultCatalogTTL  = 5 * time.Minute
	DefaultProfileTTL  = 10 * time.Minute
)

var (
	ErrIdeaNotFound    = errors.New("IDEA_NOT_FOUND")
	ErrProfileNotFound = errors.New("PROFILE_NOT_FOUND")
)

const listActiveGrantsSQL = `
	SELECT id, name, description, province, industries, funding_min, funding_max,
	       eligibility, deadline, url, grant_type, active, eligibility_criteria,
	       age_restrictions, newcomer_eligible, experience_required,
	       side_hustle_eligible, application_complexity, approval_time
	FROM grants
	WHERE active = true
	ORDER BY name`

const getIdeaSQL = `
	SELECT id, name, province, industry, startup_cost_min
	FROM business_ideas
	WHERE id = $1`

const getProfileSQL = `
	SELECT is_newcomer, is_side_hustle, age, experience_level, province
	FROM profiles
	WHERE user_id = $1`

const getRecipientSQL = `
	SELECT email, phone, full_name
	FROM profiles
	WHERE user_id = $1`

// Repository reads the catalog tables. The Redis client is optional; with
// none every read goes to Postgres.
type Repository struct {
	db         *sql.DB
	cache      *redis.Client
	logger     logger.Logger
	catalogTTL time.Duration
	profileTTL time.Duration
}

type Option func(*Repository)

func WithCatalogTTL(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.catalogTTL = d
		}
	}
}

func WithProfileTTL(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.profileTTL = d
		}
	}
}

func NewRepository(db *sql.DB, cache *redis.Client, log logger.Logger, opts ...Option) *Repository {
	r := &Repository{
		db:         db,
		cache:      cache,
		logger:     log.WithFields(map[string]interface{}{"component": "catalog"}),
		catalogTTL: DefaultCatalogTTL,
		profileTTL: DefaultProfileTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListActiveGrants returns every active grant ordered by name. A cache read
// failure or corrupt entry falls through to Postgres.
func (r *Repository) ListActiveGrants(ctx context.Context) ([]grants.Grant, error) {
	var cached []grants.Grant
	if r.getCached(ctx, CatalogCacheKey, &cached) {
		metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()

	rows, err := r.db.QueryContext(ctx, listActiveGrantsSQL)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	list := make([]grants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	r.setCached(ctx, CatalogCacheKey, list, r.catalogTTL)
	return list, nil
}

// InvalidateCatalog drops the cached catalog.
func (r *Repository) InvalidateCatalog(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Del(ctx, CatalogCacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

func scanGrant(rows *sql.Rows) (grants.Grant, error) {
	var (
		g                                  grants.Grant
		description, province, eligibility sql.NullString
		url, ageRestrictions, experience   sql.NullString
		approvalTime                       sql.NullString
		industries                         pq.StringArray
		fundingMin, fundingMax             sql.NullInt64
		deadline                           sql.NullTime
		grantType                          string
		criteria                           []byte
		newcomer, sideHustle               sql.NullBool
		complexity                         sql.NullInt32
	)

	if err := rows.Scan(
		&g.ID, &g.Name, &description, &province, &industries, &fundingMin, &fundingMax,
		&eligibility, &deadline, &url, &grantType, &g.Active, &criteria,
		&ageRestrictions, &newcomer, &experience,
		&sideHustle, &complexity, &approvalTime,
	); err != nil {
		return grants.Grant{}, fmt.Errorf("scan grant: %w", err)
	}

	g.Description = description.String
	g.Province = nullString(province)
	g.Industries = []string(industries)
	g.FundingMin = nullInt64(fundingMin)
	g.FundingMax = nullInt64(fundingMax)
	g.Eligibility = eligibility.String
	if deadline.Valid {
		d := deadline.Time
		g.Deadline = &d
	}
	g.URL = url.String
	g.GrantType = grants.GrantType(grantType)
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &g.EligibilityCriteria); err != nil {
			return grants.Grant{}, fmt.Errorf("decode eligibility criteria for grant %s: %w", g.ID, err)
		}
	}
	g.AgeRestrictions = nullString(ageRestrictions)
	g.NewcomerEligible = nullBool(newcomer)
	g.ExperienceRequired = nullString(experience)
	g.SideHustleEligible = nullBool(sideHustle)
	if complexity.Valid {
		c := int(complexity.Int32)
		g.ApplicationComplexity = &c
	}
	g.ApprovalTime = nullString(approvalTime)
	return g, nil
}

// GetIdea loads the fields of a business idea the matcher reads.
func (r *Repository) GetIdea(ctx context.Context, ideaID string) (*grants.BusinessIdea, error) {
	var (
		idea    grants.BusinessIdea
		costMin sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, getIdeaSQL, ideaID).
		Scan(&idea.ID, &idea.Name, &idea.Province, &idea.Industry, &costMin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrIdeaNotFound, ideaID)
	}
	if err != nil {
		return nil, fmt.Errorf("query idea %s: %w", ideaID, err)
	}
	idea.StartupCostMin = nullInt64(costMin)
	return &idea, nil
}

// GetProfile loads a user's matching profile, cached per user.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*grants.UserProfile, error) {
	key := profileCachePrefix + userID

	var cached grants.UserProfile
	if r.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	var (
		p                    grants.UserProfile
		newcomer, sideHustle sql.NullBool
		age                  sql.NullInt32
		experience, province sql.NullString
	)
	err := r.db.QueryRowContext(ctx, getProfileSQL, userID).
		Scan(&newcomer, &sideHustle, &age, &experience, &province)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query profile %s: %w", userID, err)
	}

	p.IsNewcomer = nullBool(newcomer)
	p.IsSideHustle = nullBool(sideHustle)
	if age.Valid {
		a := int(age.Int32)
		p.Age = &a
	}
	p.ExperienceLevel = nullString(experience)
	p.Province = nullString(province)

	r.setCached(ctx, key, p, r.profileTTL)
	return &p, nil
}

// GetRecipient returns the contact details used for digests.
func (r *Repository) GetRecipient(ctx context.Context, userID string) (*models.Recipient, error) {
	var email, phone, name sql.NullString
	err := r.db.QueryRowContext(ctx, getRecipientSQL, userID).Scan(&email, &phone, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query recipient %s: %w", userID, err)
	}
	return &models.Recipient{
		UserID: userID,
		Email:  email.String,
		Phone:  phone.String,
		Name:   name.String,
	}, nil
}

func (r *Repository) getCached(ctx context.Context, key string, dst interface{}) bool {
	if r.cache == nil {
		return false
	}
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (r *Repository) setCached(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullBool(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}
