package sales

// Filter applies the criteria's region, product-set, and inclusive date
// range predicates to records, preserving source order. An inverted
// date range (end before start) yields an empty subset rather than an
// error. Callers must check the result for emptiness before running the
// rest of the pipeline.
func Filter(records []SalesRecord, criteria FilterCriteria) []SalesRecord {
	if len(criteria.Products) == 0 {
		return nil
	}

	products := make(map[string]struct{}, len(criteria.Products))
	for _, p := range criteria.Products {
		products[p] = struct{}{}
	}

	var subset []SalesRecord
	for _, r := range records {
		if r.Region != criteria.Region {
			continue
		}
		if _, ok := products[r.Product]; !ok {
			continue
		}
		if r.Date.Before(criteria.Start) || r.Date.After(criteria.End) {
			continue
		}
		subset = append(subset, r)
	}
	return subset
}
