package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/medguard-interaction-server/internal/dataset"
	"github.com/medguard-interaction-server/internal/domain"
	"github.com/medguard-interaction-server/pkg/terminology"
)

// CachedDrugResolver implements domain.DrugResolver with multi-level caching.
// Lookup order: built-in dictionary, in-memory LRU, optional Redis tier,
// external terminology service. Every failure past the dictionary degrades to
// an unresolved identity so one unknown name never blocks an evaluation.
type CachedDrugResolver struct {
	// Dictionary index: normalized generic names and brand aliases to identity.
	dictionary     map[string]*domain.DrugIdentity
	datasetVersion string

	// External terminology client, nil when resolution is dictionary-only.
	terminology terminology.Client

	// Multi-level caching
	memoryCache *lru.Cache                 // Tier 1: in-memory LRU (hot data)
	redisCache  *terminology.IdentityCache // Tier 2: Redis distributed cache (warm data)

	memoryCacheTTL time.Duration
	redisCacheTTL  time.Duration

	// Concurrency control
	batchSemaphore chan struct{} // Limits concurrent external lookups
	maxConcurrency int

	// Per-lookup deadline for the terminology service. Expiry is a miss.
	terminologyTimeout time.Duration

	logger  *logrus.Logger
	stats   *ResolverStats
	statsMu sync.RWMutex
}

// ResolverStats represents resolution and cache performance statistics.
type ResolverStats struct {
	DictionaryHits int64     `json:"dictionary_hits"`
	MemoryHits     int64     `json:"memory_hits"`
	MemoryMisses   int64     `json:"memory_misses"`
	RedisHits      int64     `json:"redis_hits"`
	RedisMisses    int64     `json:"redis_misses"`
	ExternalCalls  int64     `json:"external_calls"`
	Unresolved     int64     `json:"unresolved"`
	TotalRequests  int64     `json:"total_requests"`
	LastReset      time.Time `json:"last_reset"`
}

// ResolverConfig represents configuration for the drug resolver.
type ResolverConfig struct {
	MemoryCacheTTL     time.Duration `json:"memory_cache_ttl"`
	RedisCacheTTL      time.Duration `json:"redis_cache_ttl"`
	MaxMemorySize      int           `json:"max_memory_size"`
	MaxConcurrency     int           `json:"max_concurrency"`
	TerminologyTimeout time.Duration `json:"terminology_timeout"`
}

// NewCachedDrugResolver creates a new cached drug resolver over the given
// dataset. The terminology client and the Redis cache may both be nil.
func NewCachedDrugResolver(
	ds *dataset.Dataset,
	config ResolverConfig,
	termClient terminology.Client,
	redisCache *terminology.IdentityCache,
	logger *logrus.Logger,
) (*CachedDrugResolver, error) {
	if config.MemoryCacheTTL == 0 {
		config.MemoryCacheTTL = time.Hour
	}
	if config.RedisCacheTTL == 0 {
		config.RedisCacheTTL = 24 * time.Hour
	}
	if config.MaxMemorySize == 0 {
		config.MaxMemorySize = 1000
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 8
	}
	if config.TerminologyTimeout == 0 {
		config.TerminologyTimeout = 3 * time.Second
	}

	memoryCache, err := lru.New(config.MaxMemorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	dictionary := make(map[string]*domain.DrugIdentity, len(ds.Drugs)*2)
	for i := range ds.Drugs {
		entry := &ds.Drugs[i]
		identity := entry.Identity
		dictionary[normalizeDrugName(entry.GenericName)] = &identity
		for _, brand := range entry.Brands {
			dictionary[normalizeDrugName(brand)] = &identity
		}
	}

	return &CachedDrugResolver{
		dictionary:         dictionary,
		datasetVersion:     ds.Version,
		terminology:        termClient,
		memoryCache:        memoryCache,
		redisCache:         redisCache,
		memoryCacheTTL:     config.MemoryCacheTTL,
		redisCacheTTL:      config.RedisCacheTTL,
		batchSemaphore:     make(chan struct{}, config.MaxConcurrency),
		maxConcurrency:     config.MaxConcurrency,
		terminologyTimeout: config.TerminologyTimeout,
		logger:             logger,
		stats: &ResolverStats{
			LastReset: time.Now(),
		},
	}, nil
}

// Resolve canonicalizes a single free-text drug name.
func (r *CachedDrugResolver) Resolve(ctx context.Context, name string) (*domain.DrugIdentity, error) {
	r.incrementStat("total_requests")

	normalized := normalizeDrugName(name)
	if normalized == "" {
		return nil, domain.NewValidationError("name", "drug name cannot be empty", name)
	}

	// Dictionary lookup covers the curated formulary and brand aliases.
	if identity, ok := r.dictionary[normalized]; ok {
		r.incrementStat("dictionary_hits")
		return identity, nil
	}

	// Try memory cache (Tier 1)
	if identity := r.getFromMemoryCache(normalized); identity != nil {
		r.incrementStat("memory_hits")
		return identity, nil
	}
	r.incrementStat("memory_misses")

	// Try Redis cache (Tier 2)
	if identity := r.getFromRedisCache(ctx, normalized); identity != nil {
		r.incrementStat("redis_hits")
		r.setInMemoryCache(normalized, identity)
		return identity, nil
	}
	r.incrementStat("redis_misses")

	// Cache miss: consult the external terminology service.
	identity := r.resolveExternal(ctx, normalized)
	if !identity.Resolved {
		r.incrementStat("unresolved")
	}

	r.setInMemoryCache(normalized, identity)
	r.setInRedisCache(ctx, normalized, identity)

	return identity, nil
}

// ResolveAll resolves a list of names concurrently, preserving input order.
// Concurrency is bounded by the resolver semaphore.
func (r *CachedDrugResolver) ResolveAll(ctx context.Context, names []string) ([]*domain.DrugIdentity, error) {
	if len(names) == 0 {
		return nil, nil
	}

	identities := make([]*domain.DrugIdentity, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup

	r.logger.WithField("batch_size", len(names)).Debug("Starting batch drug resolution")

	for i, name := range names {
		wg.Add(1)
		go func(idx int, drugName string) {
			defer wg.Done()

			select {
			case r.batchSemaphore <- struct{}{}:
				defer func() { <-r.batchSemaphore }()
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}

			identities[idx], errs[idx] = r.Resolve(ctx, drugName)
		}(i, name)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	resolved := 0
	for _, identity := range identities {
		if identity.Resolved {
			resolved++
		}
	}
	r.logger.WithFields(logrus.Fields{
		"batch_size": len(names),
		"resolved":   resolved,
		"unresolved": len(names) - resolved,
	}).Info("Completed batch drug resolution")

	return identities, nil
}

// Lookup returns the dictionary identity for a name without consulting caches
// or the terminology service. Used by the drug info endpoint.
func (r *CachedDrugResolver) Lookup(name string) (*domain.DrugIdentity, bool) {
	identity, ok := r.dictionary[normalizeDrugName(name)]
	return identity, ok
}

// InvalidateCache removes the cached resolution for a drug name.
func (r *CachedDrugResolver) InvalidateCache(ctx context.Context, name string) error {
	normalized := normalizeDrugName(name)
	if normalized == "" {
		return fmt.Errorf("drug name cannot be empty")
	}

	r.memoryCache.Remove(normalized)
	if r.redisCache != nil {
		if err := r.redisCache.InvalidateIdentity(ctx, normalized, r.datasetVersion); err != nil {
			return fmt.Errorf("failed to invalidate Redis entry: %w", err)
		}
	}

	r.logger.WithField("drug_name", normalized).Info("Invalidated resolution cache entry")
	return nil
}

// GetStats returns resolution statistics.
func (r *CachedDrugResolver) GetStats() ResolverStats {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()
	return *r.stats
}

// resolveExternal looks the name up in the terminology service. Any failure,
// including deadline expiry and the breaker being open, yields an unresolved
// identity carrying the original name.
func (r *CachedDrugResolver) resolveExternal(ctx context.Context, normalized string) *domain.DrugIdentity {
	unresolved := &domain.DrugIdentity{
		DisplayName: normalized,
		Resolved:    false,
		Source:      domain.SourceUnresolved,
	}

	if r.terminology == nil {
		return unresolved
	}

	r.incrementStat("external_calls")

	lookupCtx, cancel := context.WithTimeout(ctx, r.terminologyTimeout)
	defer cancel()

	concepts, err := r.terminology.SearchConcepts(lookupCtx, normalized)
	if err != nil || len(concepts) == 0 {
		r.logger.WithFields(logrus.Fields{
			"drug_name": normalized,
			"error":     fmt.Sprintf("%v", err),
		}).Warn("Terminology search failed, treating drug as unresolved")
		return unresolved
	}

	details, err := r.terminology.GetConceptDetails(lookupCtx, concepts[0].ConceptID)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"drug_name":  normalized,
			"concept_id": concepts[0].ConceptID,
			"error":      err.Error(),
		}).Warn("Terminology details lookup failed, treating drug as unresolved")
		return unresolved
	}

	identity := &domain.DrugIdentity{
		CanonicalID:        details.ConceptID,
		DisplayName:        details.Name,
		PharmacologicClass: details.PharmacologicClass,
		DoseForms:          details.DoseForms,
		Resolved:           true,
		Source:             domain.SourceTerminology,
	}

	r.logger.WithFields(logrus.Fields{
		"drug_name":    normalized,
		"canonical_id": identity.CanonicalID,
		"class":        identity.PharmacologicClass,
	}).Info("Resolved drug via terminology service")

	return identity
}

func (r *CachedDrugResolver) getFromMemoryCache(normalized string) *domain.DrugIdentity {
	if value, ok := r.memoryCache.Get(normalized); ok {
		if entry, ok := value.(*identityCacheEntry); ok && !entry.isExpired() {
			return entry.identity
		}
		r.memoryCache.Remove(normalized)
	}
	return nil
}

func (r *CachedDrugResolver) setInMemoryCache(normalized string, identity *domain.DrugIdentity) {
	r.memoryCache.Add(normalized, &identityCacheEntry{
		identity: identity,
		expiry:   time.Now().Add(r.memoryCacheTTL),
	})
}

func (r *CachedDrugResolver) getFromRedisCache(ctx context.Context, normalized string) *domain.DrugIdentity {
	if r.redisCache == nil {
		return nil
	}
	identity, found, err := r.redisCache.GetIdentity(ctx, normalized, r.datasetVersion)
	if err != nil {
		r.logger.WithError(err).Debug("Redis identity cache read failed")
		return nil
	}
	if !found {
		return nil
	}
	return identity
}

func (r *CachedDrugResolver) setInRedisCache(ctx context.Context, normalized string, identity *domain.DrugIdentity) {
	if r.redisCache == nil {
		return
	}
	if err := r.redisCache.SetIdentity(ctx, normalized, r.datasetVersion, identity, r.redisCacheTTL); err != nil {
		r.logger.WithError(err).Debug("Redis identity cache write failed")
	}
}

func (r *CachedDrugResolver) incrementStat(statName string) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	switch statName {
	case "dictionary_hits":
		r.stats.DictionaryHits++
	case "memory_hits":
		r.stats.MemoryHits++
	case "memory_misses":
		r.stats.MemoryMisses++
	case "redis_hits":
		r.stats.RedisHits++
	case "redis_misses":
		r.stats.RedisMisses++
	case "external_calls":
		r.stats.ExternalCalls++
	case "unresolved":
		r.stats.Unresolved++
	case "total_requests":
		r.stats.TotalRequests++
	}
}

type identityCacheEntry struct {
	identity *domain.DrugIdentity
	expiry   time.Time
}

func (e *identityCacheEntry) isExpired() bool {
	return time.Now().After(e.expiry)
}

// normalizeDrugName lowercases and trims a free-text drug name. Matching is
// case-insensitive everywhere downstream.
func normalizeDrugName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
