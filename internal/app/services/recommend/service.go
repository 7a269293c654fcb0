package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stamp-ai/recommender/internal/app/domain/recommend"
	"github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/metrics"
	"github.com/stamp-ai/recommender/internal/app/services/catalog"
	"github.com/stamp-ai/recommender/pkg/logger"
)

const sectionLimit = 2

// ResponseCache memoises recommendation responses. Implementations must be
// safe for concurrent use.
type ResponseCache interface {
	Get(ctx context.Context, req recommend.Request) (recommend.Response, bool)
	Set(ctx context.Context, req recommend.Request, resp recommend.Response)
}

// Service ranks stores for a user across the four recommendation categories.
type Service struct {
	catalog *catalog.Service
	cache   ResponseCache
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a recommendation service.
func New(catalogService *catalog.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("recommend")
	}
	return &Service{
		catalog: catalogService,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithCache attaches a response cache. Call before serving traffic.
func (s *Service) WithCache(cache ResponseCache) {
	s.cache = cache
}

// Recommend produces the four category sections, each with at most two
// stores ranked by score.
func (s *Service) Recommend(ctx context.Context, req recommend.Request) (recommend.Response, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return recommend.Response{}, fmt.Errorf("user_id is required")
	}
	if req.Location.Latitude < -90 || req.Location.Latitude > 90 ||
		req.Location.Longitude < -180 || req.Location.Longitude > 180 {
		return recommend.Response{}, fmt.Errorf("location out of range")
	}

	if s.cache != nil {
		if resp, ok := s.cache.Get(ctx, req); ok {
			metrics.RecordRecommendation("cache")
			return resp, nil
		}
	}

	s.catalog.EnsureLoaded(ctx)

	sections := []recommend.Section{
		{Category: recommend.CategoryEvent, Stores: s.eventStores(ctx, req)},
		{Category: recommend.CategoryNew, Stores: s.newStores(ctx, req)},
		{Category: recommend.CategoryPopular, Stores: s.popularStores(ctx, req)},
	}
	nearby, err := s.nearbyStores(ctx, req)
	if err != nil {
		return recommend.Response{}, err
	}
	sections = append(sections, recommend.Section{Category: recommend.CategoryNearby, Stores: nearby})

	resp := recommend.Response{
		Success:  true,
		UserID:   req.UserID,
		Sections: sections,
	}
	if s.cache != nil {
		s.cache.Set(ctx, req, resp)
	}
	metrics.RecordRecommendation("computed")
	return resp, nil
}

// eventStores ranks event participants: higher multiplier and shorter
// distance first.
func (s *Service) eventStores(ctx context.Context, req recommend.Request) []recommend.StoreInfo {
	var candidates []recommend.StoreInfo
	for _, ev := range req.EventStores {
		st, distance, ok := s.resolve(ctx, ev.StoreID, req.Location)
		if !ok {
			continue
		}
		score := round2(ev.ExpMultiplier*30 - distance*2)
		candidates = append(candidates, storeInfo(st, distance, score,
			fmt.Sprintf("%gx experience event", ev.ExpMultiplier),
			distanceReason(distance),
		))
	}
	return top(candidates)
}

// newStores ranks recently joined stores: newer and closer first.
func (s *Service) newStores(ctx context.Context, req recommend.Request) []recommend.StoreInfo {
	now := s.now()
	var candidates []recommend.StoreInfo
	for _, nc := range req.NewStores {
		st, distance, ok := s.resolve(ctx, nc.StoreID, req.Location)
		if !ok {
			continue
		}
		days := int(now.Sub(nc.JoinedAt).Hours() / 24)
		recency := float64(30-days) * 2
		if recency < 0 {
			recency = 0
		}
		score := round2(recency - distance*2)
		candidates = append(candidates, storeInfo(st, distance, score,
			fmt.Sprintf("joined %d days ago", days),
			distanceReason(distance),
		))
	}
	return top(candidates)
}

// popularStores ranks frequently visited stores: more visits and closer first.
func (s *Service) popularStores(ctx context.Context, req recommend.Request) []recommend.StoreInfo {
	var candidates []recommend.StoreInfo
	for _, pc := range req.PopularStores {
		st, distance, ok := s.resolve(ctx, pc.StoreID, req.Location)
		if !ok {
			continue
		}
		score := round2(float64(pc.VisitCount)/10 - distance*2)
		candidates = append(candidates, storeInfo(st, distance, score,
			fmt.Sprintf("%d visits", pc.VisitCount),
			distanceReason(distance),
			"popular with other users",
		))
	}
	return top(candidates)
}

// nearbyStores scans the whole catalog for stores within 5 km that the
// request did not already name, ranking by proximity and rating.
func (s *Service) nearbyStores(ctx context.Context, req recommend.Request) ([]recommend.StoreInfo, error) {
	stores, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	referenced := make(map[string]struct{})
	addRef := func(id string) {
		if normalized, err := store.NormalizeID(id); err == nil {
			referenced[normalized] = struct{}{}
		}
	}
	for _, ev := range req.EventStores {
		addRef(ev.StoreID)
	}
	for _, nc := range req.NewStores {
		addRef(nc.StoreID)
	}
	for _, pc := range req.PopularStores {
		addRef(pc.StoreID)
	}

	var candidates []recommend.StoreInfo
	for _, st := range stores {
		if _, seen := referenced[st.ID]; seen {
			continue
		}
		distance := HaversineKM(req.Location.Latitude, req.Location.Longitude, st.Latitude, st.Longitude)
		if distance > defaultMaxDistanceKM {
			continue
		}
		score := round2(30 - distance*5 + st.Rating*2)
		candidates = append(candidates, storeInfo(st, distance, score,
			distanceReason(distance),
			fmt.Sprintf("rated %.1f", st.Rating),
		))
	}
	return top(candidates), nil
}

// resolve maps an upstream id to a catalog store and computes the distance.
// Unresolvable candidates are skipped with a warning, matching the tolerant
// behaviour the upstream backend expects.
func (s *Service) resolve(ctx context.Context, id string, loc recommend.Location) (store.Store, float64, bool) {
	st, err := s.catalog.Get(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("store_id", id).Warn("candidate store not in catalog")
		return store.Store{}, 0, false
	}
	distance := HaversineKM(loc.Latitude, loc.Longitude, st.Latitude, st.Longitude)
	return st, distance, true
}

func storeInfo(st store.Store, distance, score float64, reasons ...string) recommend.StoreInfo {
	return recommend.StoreInfo{
		StoreID:    st.ID,
		Name:       st.Name,
		Category:   st.Category,
		Address:    st.Address,
		Latitude:   st.Latitude,
		Longitude:  st.Longitude,
		DistanceKM: distance,
		Rating:     st.Rating,
		Score:      score,
		Reasons:    reasons,
	}
}

func distanceReason(distance float64) string {
	return fmt.Sprintf("%.1f km away", distance)
}

// top sorts candidates by score descending and keeps the section limit. The
// sort is stable so equal scores keep request order.
func top(candidates []recommend.StoreInfo) []recommend.StoreInfo {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > sectionLimit {
		candidates = candidates[:sectionLimit]
	}
	if candidates == nil {
		candidates = []recommend.StoreInfo{}
	}
	return candidates
}
