package answer

import "github.com/caspianlab/georag/internal/tabql"

// MatchedFeatureColumn marks which feature produced each merged row.
const MatchedFeatureColumn = "matched_feature"

// FeatureResult pairs one feature with its query result.
type FeatureResult struct {
	Feature string
	Table   *tabql.Result
}

// Merge concatenates per-feature results into one table. Columns are the
// union in first-seen order plus matched_feature; cells missing from a
// source table stay nil.
func Merge(results []FeatureResult) *tabql.Result {
	merged := &tabql.Result{}
	colIndex := make(map[string]int)

	for _, fr := range results {
		if fr.Table == nil {
			continue
		}
		for _, c := range fr.Table.Columns {
			if _, ok := colIndex[c]; !ok {
				colIndex[c] = len(merged.Columns)
				merged.Columns = append(merged.Columns, c)
			}
		}
	}
	if len(merged.Columns) == 0 {
		return merged
	}

	featureIdx := len(merged.Columns)
	merged.Columns = append(merged.Columns, MatchedFeatureColumn)

	for _, fr := range results {
		if fr.Table == nil {
			continue
		}
		for _, src := range fr.Table.Rows {
			row := make([]any, len(merged.Columns))
			for i, c := range fr.Table.Columns {
				row[colIndex[c]] = src[i]
			}
			row[featureIdx] = fr.Feature
			merged.Rows = append(merged.Rows, row)
		}
	}
	return merged
}
