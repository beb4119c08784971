package sticker

// Entry is static catalog reference data for one sticker. It is never
// persisted; usage counts reference entries by id only.
type Entry struct {
	ID       string  `json:"stickerId"`
	Image    string  `json:"image"`
	UnitCost float64 `json:"unitCost"`
}

// Unknown is the fallback entry for unrecognized sticker ids. Sending such a
// sticker still succeeds; it just costs nothing.
var Unknown = Entry{ID: "-1", Image: "stickers/default.png", UnitCost: 0}

// Catalog is a read-only sticker price list.
type Catalog struct {
	entries []Entry
}

// NewCatalog builds a catalog from entries. The Unknown entry is implicit
// and must not be listed.
func NewCatalog(entries []Entry) Catalog {
	return Catalog{entries: entries}
}

// DefaultCatalog returns the stickers shipped with the app.
func DefaultCatalog() Catalog {
	return NewCatalog([]Entry{
		{ID: "1", Image: "stickers/wave.png", UnitCost: 0.99},
		{ID: "2", Image: "stickers/party.png", UnitCost: 0.99},
		{ID: "3", Image: "stickers/heart.png", UnitCost: 1.49},
	})
}

// Lookup returns the entry for id, falling back to Unknown.
func (c Catalog) Lookup(id string) Entry {
	for _, e := range c.entries {
		if e.ID == id {
			return e
		}
	}
	return Unknown
}

// All returns the selectable entries, excluding Unknown.
func (c Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
