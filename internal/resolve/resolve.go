// Package resolve joins raw records to canonical product identity.
package resolve

import (
	"fmt"
	"sort"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
)

// Policy selects how duplicate records of a dataset are collapsed.
type Policy int

const (
	// NoDedup keeps every record. Order lines are distinct orders even
	// when identical.
	NoDedup Policy = iota
	// ExactDuplicateDrop drops records whose full content repeats an
	// earlier record.
	ExactDuplicateDrop
	// KeepFirstPerMonth keeps the first record per (market, canonical
	// product, year, month). Used for monthly snapshot datasets.
	KeepFirstPerMonth
)

func (p Policy) String() string {
	switch p {
	case ExactDuplicateDrop:
		return "exact-duplicate-drop"
	case KeepFirstPerMonth:
		return "keep-first-per-month"
	default:
		return "no-dedup"
	}
}

// Resolution is the outcome of resolving one dataset.
type Resolution[T model.External] struct {
	Records []model.Resolved[T]
	// Unmatched lists the distinct external ids with no canonical
	// product, sorted.
	Unmatched []string
	// Dropped counts records removed by the dedup policy.
	Dropped int
}

type monthKey struct {
	market  string
	product string
	year    int
	month   int
}

// Resolve maps every record's external id through ids and attaches the
// brand and product group from products. Records without a canonical id
// are removed and reported once per distinct id. Records whose product
// lacks brand or product group are kept and reported once per product.
// Dedup runs after the join, in input order.
func Resolve[T model.External](records []T, ids model.IDMap, products model.ProductMap, policy Policy, stage string) diag.Result[Resolution[T]] {
	var res diag.Result[Resolution[T]]

	missing := make(map[string]int)
	unresolved := make(map[string]struct{})
	fingerprints := make(map[string]struct{})
	months := make(map[monthKey]struct{})

	out := make([]model.Resolved[T], 0, len(records))
	for _, rec := range records {
		ext := rec.ExternalRef()
		canonical, ok := ids[ext]
		if !ok {
			missing[ext]++
			continue
		}
		ref := products.Ref(canonical)

		switch policy {
		case ExactDuplicateDrop:
			fp := rec.Fingerprint()
			if _, dup := fingerprints[fp]; dup {
				res.Value.Dropped++
				continue
			}
			fingerprints[fp] = struct{}{}
		case KeepFirstPerMonth:
			p := rec.When()
			k := monthKey{market: rec.MarketPlace(), product: canonical, year: p.Year, month: int(p.Month)}
			if _, dup := months[k]; dup {
				res.Value.Dropped++
				continue
			}
			months[k] = struct{}{}
		}

		if !ref.Complete() {
			if _, seen := unresolved[canonical]; !seen {
				unresolved[canonical] = struct{}{}
				res.Addf(diag.UnresolvedProduct, stage, canonical,
					"product %s has no brand or product group", canonical)
			}
		}
		out = append(out, model.Resolved[T]{Record: rec, Product: ref})
	}

	unmatched := make([]string, 0, len(missing))
	for ext := range missing {
		unmatched = append(unmatched, ext)
	}
	sort.Strings(unmatched)
	for _, ext := range unmatched {
		res.Addf(diag.MissingReference, stage, missingKey(ext),
			"external id %q has no canonical product; %d record(s) excluded", ext, missing[ext])
	}

	res.Value.Records = out
	res.Value.Unmatched = unmatched
	return res
}

func missingKey(ext string) string {
	if ext == "" {
		return "<blank>"
	}
	return ext
}

// CheckProducts reports, once per product, the records of a table that
// already carries canonical ids (such as the historical promotion tables)
// whose product has no brand or product group. The records themselves are
// used as they are.
func CheckProducts(aggs []model.PeriodAggregate, products model.ProductMap, stage string) []diag.Diagnostic {
	var res diag.Result[struct{}]
	seen := make(map[string]struct{})
	for _, a := range aggs {
		if products.Ref(a.Product).Complete() {
			continue
		}
		if _, ok := seen[a.Product]; ok {
			continue
		}
		seen[a.Product] = struct{}{}
		res.Addf(diag.UnresolvedProduct, stage, a.Product, "product %s has no brand or product group", a.Product)
	}
	return res.Diagnostics
}

// String renders a resolution summary for logs.
func (r Resolution[T]) String() string {
	return fmt.Sprintf("%d resolved, %d unmatched ids, %d duplicates dropped", len(r.Records), len(r.Unmatched), r.Dropped)
}
