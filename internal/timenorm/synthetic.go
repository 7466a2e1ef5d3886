package timenorm

import (
	"fmt"
	"math/rand"
)

var (
	syntheticRoles       = []string{"Manager", "Supervisor", "Operative", "Director"}
	syntheticContractors = []string{"Contractor A", "Contractor B", "Contractor C"}
)

// SyntheticDataset produces the clearly-labeled demo dataset served when the
// pipeline cannot recover anything from the input: a Cartesian product of 14
// fixed 2023 weeks, four roles, and three placeholder contractors, with
// randomized worker counts in [1,20). The fixed labels make the data
// recognizable as demo output at a glance.
func SyntheticDataset() []AggregatedRecord {
	out := make([]AggregatedRecord, 0, 14*len(syntheticRoles)*len(syntheticContractors))
	for week := 1; week <= 14; week++ {
		period := fmt.Sprintf("2023-W%02d", week)
		for _, role := range syntheticRoles {
			for _, contractor := range syntheticContractors {
				out = append(out, AggregatedRecord{
					Period:      period,
					Role:        role,
					Contractor:  contractor,
					WorkerCount: 1 + rand.Intn(19),
				})
			}
		}
	}
	return out
}
