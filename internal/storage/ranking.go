package storage

import "sort"

// rank orders results by descending score, breaking ties by ascending Seq,
// and assigns 0-based ranks.
func rank(results []RetrievedChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})
	for i := range results {
		results[i].Rank = i
	}
}
