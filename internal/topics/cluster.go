package topics

// cluster.go supplements §4.10's cluster_prior input: an optional,
// pure pre-pass that groups heading blocks of one document version by
// embedding proximity and proposes a dominant topic guess per group.
// Grounded on
// original_source/archive_data/03_topic_mapping/cluster_headings.py,
// whose TF-IDF-plus-agglomerative-clustering pipeline is simplified here
// to single-link clustering over block embeddings (no TF-IDF/sklearn
// analog exists in the pack; embedding vectors are already computed for
// the chunker, so reusing them avoids a second text-similarity stack).

import "trialgraph/internal/domain"

const (
	clusterSimThreshold = 0.85
	clusterMinSize      = 3
	clusterMinAliasHint = 0.6
)

// ClusterPrior groups blocks by embedding similarity and, for groups at
// or above clusterMinSize, guesses a dominant topic by re-scoring each
// member's heading text against every topic's aliases and keeping the
// topic with the best average alias ratio, if it clears a floor. Returns
// a map of HeadingBlockID to the guessed TopicKey; blocks outside any
// qualifying cluster are absent from the map.
func ClusterPrior(docTitle string, blocks []domain.HeadingBlock, embeddings map[string][]float32, catalog []domain.Topic) map[string]string {
	groups := singleLinkGroups(blocks, embeddings, clusterSimThreshold)

	hints := make(map[string]string)
	for _, group := range groups {
		if len(group) < clusterMinSize {
			continue
		}
		topicKey, ok := dominantTopic(group, docTitle, catalog)
		if !ok {
			continue
		}
		for _, b := range group {
			hints[b.HeadingBlockID] = topicKey
		}
	}
	return hints
}

func singleLinkGroups(blocks []domain.HeadingBlock, embeddings map[string][]float32, threshold float64) [][]domain.HeadingBlock {
	n := len(blocks)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < n; i++ {
		ei := embeddings[blocks[i].HeadingBlockID]
		if len(ei) == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			ej := embeddings[blocks[j].HeadingBlockID]
			if len(ej) == 0 || len(ei) != len(ej) {
				continue
			}
			if cosineSimilarity32(ei, ej) >= threshold {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]domain.HeadingBlock)
	for i, b := range blocks {
		root := find(i)
		byRoot[root] = append(byRoot[root], b)
	}
	groups := make([][]domain.HeadingBlock, 0, len(byRoot))
	for _, g := range byRoot {
		if len(g) > 1 {
			groups = append(groups, g)
		}
	}
	return groups
}

func dominantTopic(group []domain.HeadingBlock, docTitle string, catalog []domain.Topic) (string, bool) {
	bestKey := ""
	bestAvg := 0.0
	for _, t := range catalog {
		var total float64
		for _, b := range group {
			score, _ := aliasMatchScore(b, t, docTitle)
			total += score
		}
		avg := total / float64(len(group))
		if avg > bestAvg {
			bestAvg, bestKey = avg, t.TopicKey
		}
	}
	if bestAvg < clusterMinAliasHint {
		return "", false
	}
	return bestKey, true
}
