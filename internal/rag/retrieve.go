package rag

import (
	"context"
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"balcon-assistant/internal/index"
	"balcon-assistant/internal/models"
)

// Searcher is the slice of the index the retriever needs.
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]index.SearchHit, error)
}

// RetrievalConfig holds the rerank knobs.
type RetrievalConfig struct {
	SearchK int
	// MinScore drops candidates below the relevance cutoff.
	MinScore float64
	// SourceQuota caps accepted chunks per source filename;
	// RegulationQuota applies instead when the filename matches the
	// regulation naming pattern.
	SourceQuota     int
	RegulationQuota int
	// MinTotal relaxes the quota: quota-rejected candidates are
	// re-admitted only while the accepted total is below this floor.
	MinTotal  int
	MaxChunks int
}

var regulationRe = regexp.MustCompile(`(?i)reglamento|estatuto|normativ`)

// Retriever runs multi-query nearest-neighbor search and the rerank
// pipeline: role filter, threshold, sort, dedup, per-source quota, cap.
type Retriever struct {
	searcher Searcher
	embedder embeddings.Embedder
	cfg      RetrievalConfig
}

func NewRetriever(searcher Searcher, embedder embeddings.Embedder, cfg RetrievalConfig) *Retriever {
	return &Retriever{searcher: searcher, embedder: embedder, cfg: cfg}
}

// Retrieve merges all query variants' candidates and applies the ordered
// transform sequence. The role filter runs first, unconditionally: access
// control must never depend on ranking quality.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, profile models.AccessProfile) ([]models.DocumentChunk, error) {
	var pool []models.RetrievalCandidate
	for _, q := range queries {
		emb, err := r.embedder.EmbedQuery(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%w: embed query: %v", models.ErrUpstreamUnavailable, err)
		}
		hits, err := r.searcher.Search(ctx, emb, r.cfg.SearchK)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			pool = append(pool, models.RetrievalCandidate{
				Chunk: hit.Chunk,
				Score: ScoreFromSimilarity(hit.Similarity),
			})
		}
	}

	candidates := FilterByProfile(pool, profile)
	candidates = FilterByThreshold(candidates, r.cfg.MinScore)
	candidates = SortByScore(candidates)
	candidates = Deduplicate(candidates)
	candidates = ApplyQuotas(candidates, r.cfg)

	if len(candidates) == 0 {
		return nil, models.ErrNoRelevantContext
	}

	chunks := make([]models.DocumentChunk, len(candidates))
	for i, c := range candidates {
		chunks[i] = c.Chunk
	}
	log.Debug().Int("pool", len(pool)).Int("accepted", len(chunks)).
		Strs("categorias", profile.Categories()).Msg("retrieval done")
	return chunks, nil
}

// ScoreFromSimilarity converts cosine similarity into the normalized
// relevance score 1/(1+distance), distance being 1-similarity. Strictly
// monotonic, higher is better.
func ScoreFromSimilarity(similarity float32) float64 {
	distance := 1 - float64(similarity)
	return 1 / (1 + distance)
}

// FilterByProfile drops every candidate whose category the profile may
// not read.
func FilterByProfile(candidates []models.RetrievalCandidate, profile models.AccessProfile) []models.RetrievalCandidate {
	var out []models.RetrievalCandidate
	for _, c := range candidates {
		if profile.Allows(c.Chunk.Meta.Category) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByThreshold drops candidates below the relevance cutoff.
func FilterByThreshold(candidates []models.RetrievalCandidate, minScore float64) []models.RetrievalCandidate {
	var out []models.RetrievalCandidate
	for _, c := range candidates {
		if c.Score >= minScore {
			out = append(out, c)
		}
	}
	return out
}

// SortByScore returns a copy sorted descending by score. The sort is
// stable so equal-score candidates keep their merge order.
func SortByScore(candidates []models.RetrievalCandidate) []models.RetrievalCandidate {
	out := make([]models.RetrievalCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Deduplicate keeps the first occurrence per content hash. Run after the
// sort, so the highest-scoring copy wins.
func Deduplicate(candidates []models.RetrievalCandidate) []models.RetrievalCandidate {
	seen := map[[32]byte]bool{}
	var out []models.RetrievalCandidate
	for _, c := range candidates {
		h := sha256.Sum256([]byte(c.Chunk.Text))
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, c)
	}
	return out
}

// ApplyQuotas caps accepted chunks per source filename and overall.
// Regulation-named sources get the higher quota. If the quota pass leaves
// fewer than MinTotal chunks, the highest-scoring quota-rejected
// candidates are re-admitted up to that floor.
func ApplyQuotas(candidates []models.RetrievalCandidate, cfg RetrievalConfig) []models.RetrievalCandidate {
	perSource := map[string]int{}
	var accepted, rejected []models.RetrievalCandidate

	for _, c := range candidates {
		if len(accepted) >= cfg.MaxChunks {
			break
		}
		quota := cfg.SourceQuota
		if regulationRe.MatchString(c.Chunk.Meta.Filename) {
			quota = cfg.RegulationQuota
		}
		if perSource[c.Chunk.Meta.Filename] >= quota {
			rejected = append(rejected, c)
			continue
		}
		perSource[c.Chunk.Meta.Filename]++
		accepted = append(accepted, c)
	}

	for _, c := range rejected {
		if len(accepted) >= cfg.MinTotal || len(accepted) >= cfg.MaxChunks {
			break
		}
		accepted = append(accepted, c)
	}
	return accepted
}
