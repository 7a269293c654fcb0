// Package cf implements user-based collaborative filtering over visit
// counts: cosine similarity between user visit vectors, nearest-neighbour
// score prediction, and a popularity fallback for cold starts.
package cf

import (
	"math"
	"sort"

	"github.com/stamp-ai/recommender/internal/app/domain/visit"
)

// UserScore pairs a user with a similarity value.
type UserScore struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// StoreScore pairs a store with a predicted preference score.
type StoreScore struct {
	StoreID string  `json:"store_id"`
	Score   float64 `json:"score"`
}

// Stats describes a trained model.
type Stats struct {
	Trained          bool    `json:"trained"`
	Users            int     `json:"users"`
	Stores           int     `json:"stores"`
	TotalVisits      int     `json:"total_visits"`
	SparsityPercent  float64 `json:"sparsity_percent"`
	AvgVisitsPerUser float64 `json:"avg_visits_per_user"`
}

// Model is an immutable user-item visit matrix. Build one with NewModel and
// swap the whole model on retrain.
type Model struct {
	users    []string
	stores   []string
	userIdx  map[string]int
	storeIdx map[string]int
	matrix   [][]float64 // rows follow users, columns follow stores
}

// NewModel builds the user-item matrix from visit records. Visits for the
// same (user, store) pair accumulate. A nil model is returned when there is
// no data.
func NewModel(visits []visit.Visit) *Model {
	if len(visits) == 0 {
		return nil
	}

	userIdx := make(map[string]int)
	storeIdx := make(map[string]int)
	var users, stores []string
	for _, v := range visits {
		if _, ok := userIdx[v.UserID]; !ok {
			userIdx[v.UserID] = len(users)
			users = append(users, v.UserID)
		}
		if _, ok := storeIdx[v.StoreID]; !ok {
			storeIdx[v.StoreID] = len(stores)
			stores = append(stores, v.StoreID)
		}
	}

	matrix := make([][]float64, len(users))
	for i := range matrix {
		matrix[i] = make([]float64, len(stores))
	}
	for _, v := range visits {
		matrix[userIdx[v.UserID]][storeIdx[v.StoreID]] += float64(v.VisitCount)
	}

	return &Model{
		users:    users,
		stores:   stores,
		userIdx:  userIdx,
		storeIdx: storeIdx,
		matrix:   matrix,
	}
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SimilarUsers returns up to n users most similar to userID, highest
// similarity first. Unknown users and single-user matrices yield nothing.
func (m *Model) SimilarUsers(userID string, n int) []UserScore {
	if m == nil || len(m.users) <= 1 {
		return nil
	}
	idx, ok := m.userIdx[userID]
	if !ok {
		return nil
	}

	scores := make([]UserScore, 0, len(m.users)-1)
	for i, other := range m.users {
		if i == idx {
			continue
		}
		scores = append(scores, UserScore{
			UserID:     other,
			Similarity: cosine(m.matrix[idx], m.matrix[i]),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Similarity > scores[j].Similarity })
	if n > 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

// Recommend predicts up to n stores for userID by similarity-weighted
// averaging of neighbour visit counts. Stores the user already visited are
// excluded. Unknown users and sparse matrices fall back to popularity.
func (m *Model) Recommend(userID string, n int) []StoreScore {
	if m == nil {
		return nil
	}
	if len(m.users) < 2 {
		return m.PopularStores(n)
	}
	idx, ok := m.userIdx[userID]
	if !ok {
		return m.PopularStores(n)
	}

	neighbours := m.SimilarUsers(userID, 10)
	if len(neighbours) == 0 {
		return m.PopularStores(n)
	}

	predicted := make([]float64, len(m.stores))
	totalSim := 0.0
	for _, nb := range neighbours {
		nbRow := m.matrix[m.userIdx[nb.UserID]]
		for j, count := range nbRow {
			predicted[j] += nb.Similarity * count
		}
		totalSim += nb.Similarity
	}
	if totalSim > 0 {
		for j := range predicted {
			predicted[j] /= totalSim
		}
	}

	for j, count := range m.matrix[idx] {
		if count > 0 {
			predicted[j] = -1
		}
	}

	return topStores(m.stores, predicted, n)
}

// PopularStores returns up to n stores by total visit count across all
// users, the cold-start answer.
func (m *Model) PopularStores(n int) []StoreScore {
	if m == nil {
		return nil
	}
	totals := make([]float64, len(m.stores))
	for _, row := range m.matrix {
		for j, count := range row {
			totals[j] += count
		}
	}
	return topStores(m.stores, totals, n)
}

func topStores(stores []string, scores []float64, n int) []StoreScore {
	result := make([]StoreScore, 0, len(stores))
	for j, score := range scores {
		if score > 0 {
			result = append(result, StoreScore{StoreID: stores[j], Score: score})
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Score > result[j].Score })
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}

// Stats summarises the matrix.
func (m *Model) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	total := 0.0
	nonZero := 0
	for _, row := range m.matrix {
		for _, count := range row {
			total += count
			if count > 0 {
				nonZero++
			}
		}
	}
	cells := len(m.users) * len(m.stores)
	sparsity := 0.0
	if cells > 0 {
		sparsity = (1 - float64(nonZero)/float64(cells)) * 100
	}
	avg := 0.0
	if len(m.users) > 0 {
		avg = total / float64(len(m.users))
	}
	return Stats{
		Trained:          true,
		Users:            len(m.users),
		Stores:           len(m.stores),
		TotalVisits:      int(total),
		SparsityPercent:  math.Round(sparsity*100) / 100,
		AvgVisitsPerUser: avg,
	}
}
