package catalog

// MergeReport summarizes what a merge pass did.
type MergeReport struct {
	Replaced     int // incoming records that overwrote an existing entry in place
	Added        int // incoming records appended under their batch-local key
	DuplicateIDs int // incoming records whose id also appeared earlier in the same batch
}

// Merge reconciles a freshly extracted batch into an existing catalog.
//
// Matching is by record id, never by batch-local key. An incoming record
// whose id already exists replaces the existing entry in place: the stored
// key and its position are preserved, only the value changes. Ids with no
// match append under their own batch-local key, in batch order. Incoming
// always wins; staleness is only decided at the blob level.
//
// The id index is computed once over existing before the pass, so matches
// are evaluated against the pre-merge state: two incoming records with the
// same id do not collapse onto each other; each keeps its own key. That
// can leave duplicate ids inside one batch in the catalog; the report
// counts them so callers can log it.
//
// Existing entries without an id (malformed legacy data) are carried over
// untouched and never matched.
func Merge(existing, incoming *Catalog) (*Catalog, MergeReport) {
	var report MergeReport

	merged := New()
	if existing != nil {
		merged = existing.Clone()
	}

	keyByID := make(map[string]string, merged.Len())
	for _, key := range merged.keys {
		if rec := merged.entries[key]; rec.ID != "" {
			keyByID[rec.ID] = key
		}
	}

	if incoming == nil {
		return merged, report
	}

	seen := make(map[string]bool, incoming.Len())
	for _, key := range incoming.keys {
		rec := incoming.entries[key]
		if rec.ID != "" && seen[rec.ID] {
			report.DuplicateIDs++
		}
		seen[rec.ID] = true

		if existingKey, ok := keyByID[rec.ID]; ok && rec.ID != "" {
			merged.entries[existingKey] = rec
			report.Replaced++
			continue
		}
		merged.Set(key, rec)
		report.Added++
	}

	return merged, report
}
