package aggregation

import "github.com/polkiloo/salesrollup/internal/domain/model"

// Plan turns a delta into the increments to merge into the aggregate document.
// Entries that net to zero are left out by model.Increments.Fields.
func Plan(d Delta, keys DateKeys) model.Increments {
	var inc model.Increments

	inc.Totals = model.TotalsIncrement{
		Revenue:              d.Revenue,
		Count:                d.Count,
		RealizedRevenue:      d.RealizedRevenue,
		RealizedCOGS:         d.RealizedCost,
		RealizedDeliveryCost: d.RealizedDelivery,
	}

	switch {
	case d.Kind == model.ChangeUpdate && keys.Old != keys.New:
		inc.AddDaily(keys.Old, d.BeforeValue.Neg(), -1)
		inc.AddDaily(keys.New, d.AfterValue, 1)
	case keys.New != "":
		inc.AddDaily(keys.New, d.Revenue, d.Count)
	case keys.Old != "":
		inc.AddDaily(keys.Old, d.Revenue, d.Count)
	}

	if d.BeforeStatus != d.AfterStatus {
		if d.BeforeStatus != "" {
			inc.AddStatus(d.BeforeStatus, -1)
		}
		if d.AfterStatus != "" {
			inc.AddStatus(d.AfterStatus, 1)
		}
	}

	return inc
}

