package series

import (
	"sort"

	"github.com/guregu/null/v6"

	"klinechart/internal/domain"
)

// Auxiliary is a per-date series joined onto the primary date axis.
type Auxiliary struct {
	Series Canonical
	// Fields designates which fields are copied. nil copies every field that
	// appears on at least one row of Series.
	Fields []string
}

// AlignedRow is a primary row extended with the fields pulled from each
// auxiliary series at the same date. Every designated field is present in
// Aux; it is an invalid null.Float when the auxiliary had no row that day.
type AlignedRow struct {
	domain.DatedRow
	Aux map[string]domain.Fields
}

// Value returns field of the named auxiliary, or an invalid value.
func (r AlignedRow) Value(aux, field string) null.Float {
	return r.Aux[aux][field]
}

// Aligned is the primary series with auxiliaries joined in. Its length and
// order always equal the primary series.
type Aligned struct {
	Rows []AlignedRow
	// Supplied maps each auxiliary name to the fields joined from it.
	Supplied map[string][]string
}

// Len returns the number of rows.
func (a Aligned) Len() int { return len(a.Rows) }

// Has reports whether field was supplied by the named auxiliary.
func (a Aligned) Has(aux, field string) bool {
	for _, f := range a.Supplied[aux] {
		if f == field {
			return true
		}
	}
	return false
}

// Join left-joins each auxiliary onto primary by trade date. Auxiliary rows
// whose date is absent from primary are ignored, and a missing value in one
// auxiliary never affects another.
func Join(primary Canonical, auxiliaries map[string]Auxiliary) Aligned {
	names := make([]string, 0, len(auxiliaries))
	for name := range auxiliaries {
		names = append(names, name)
	}
	sort.Strings(names)

	supplied := make(map[string][]string, len(names))
	lookups := make(map[string]map[int64]domain.Fields, len(names))
	for _, name := range names {
		aux := auxiliaries[name]
		fields := aux.Fields
		if fields == nil {
			fields = fieldNames(aux.Series)
		}
		supplied[name] = fields
		lookups[name] = byKey(aux.Series)
	}

	rows := make([]AlignedRow, len(primary))
	for i, p := range primary {
		rows[i] = AlignedRow{DatedRow: p}
		if len(names) == 0 {
			continue
		}
		key, _ := p.TradeDate.Key()
		rows[i].Aux = make(map[string]domain.Fields, len(names))
		for _, name := range names {
			match := lookups[name][key]
			values := make(domain.Fields, len(supplied[name]))
			for _, field := range supplied[name] {
				values[field] = match[field]
			}
			rows[i].Aux[name] = values
		}
	}

	return Aligned{Rows: rows, Supplied: supplied}
}

// byKey indexes a series by its integer date key.
func byKey(s Canonical) map[int64]domain.Fields {
	m := make(map[int64]domain.Fields, len(s))
	for _, row := range s {
		if key, ok := row.TradeDate.Key(); ok {
			m[key] = row.Fields
		}
	}
	return m
}

// fieldNames returns the sorted union of field names across s.
func fieldNames(s Canonical) []string {
	seen := make(map[string]bool)
	for _, row := range s {
		for name := range row.Fields {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
