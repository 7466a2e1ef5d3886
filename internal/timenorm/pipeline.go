package timenorm

import "log"

// Process runs the full normalize + aggregate pipeline on one input table.
// Column-level and cell-level problems degrade to defaults inside Normalize;
// the only failures that reach this level are structural (an input that is
// not tabular at all) or a panic inside the pipeline itself, and both are
// converted into the synthetic demo dataset rather than surfaced. Process
// never returns an error: the dashboard always gets a renderable dataset.
func Process(t Table) (ds Dataset) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[timenorm] pipeline failure, serving synthetic dataset: %v", r)
			ds = Dataset{Aggregated: SyntheticDataset(), Synthetic: true}
		}
	}()

	if len(t.Columns) == 0 {
		log.Printf("[timenorm] input is not tabular, serving synthetic dataset")
		return Dataset{Aggregated: SyntheticDataset(), Synthetic: true}
	}

	normalized := Normalize(t)
	return Dataset{
		Normalized: normalized,
		Aggregated: Aggregate(normalized),
	}
}
