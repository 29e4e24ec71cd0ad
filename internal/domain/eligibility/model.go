package eligibility

import (
	"fmt"
	"time"
)

// Status is the classification of a catalog item for one subject.
type Status uint8

const (
	StatusOverdue Status = iota
	StatusDue
	StatusUpcoming
	StatusCompleted
)

var statusNames = [...]string{
	StatusOverdue:   "overdue",
	StatusDue:       "due",
	StatusUpcoming:  "upcoming",
	StatusCompleted: "completed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Priority orders statuses for display: overdue first, completed last.
func (s Status) Priority() int { return int(s) }

// Pending reports whether the item still needs action now.
func (s Status) Pending() bool { return s == StatusDue || s == StatusOverdue }

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus maps a status name back to its Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// HistoryRecord is one completed occurrence of a catalog item.
type HistoryRecord struct {
	ItemID      string     `json:"item_id"`
	Sequence    int        `json:"sequence"`
	CompletedOn *time.Time `json:"completed_on,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// Subject is the snapshot the engine evaluates. History may contain
// duplicates; they are counted as recorded.
type Subject struct {
	ID          string          `json:"id,omitempty"`
	DateOfBirth time.Time       `json:"date_of_birth"`
	History     []HistoryRecord `json:"history"`
}

// administered counts the history records for itemID.
func (s Subject) administered(itemID string) int {
	n := 0
	for _, h := range s.History {
		if h.ItemID == itemID {
			n++
		}
	}
	return n
}

// CatalogItem is a vaccine or procedure definition.
type CatalogItem struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Conditions  []string `json:"conditions,omitempty" yaml:"conditions"`
	AgeRanges   []string `json:"age_ranges,omitempty" yaml:"age_ranges"`
	DoseCount   int      `json:"dose_count" yaml:"dose_count"`
}

// ExpectedCount is the number of occurrences that completes the item.
// A missing count means a single occurrence.
func (c CatalogItem) ExpectedCount() int {
	if c.DoseCount < 1 {
		return 1
	}
	return c.DoseCount
}

// Catalog is read-only reference data indexed by item ID.
type Catalog struct {
	items []CatalogItem
	index map[string]int
}

// NewCatalog indexes items. Item IDs must be unique and non-empty.
func NewCatalog(items []CatalogItem) (*Catalog, error) {
	c := &Catalog{items: make([]CatalogItem, len(items)), index: make(map[string]int, len(items))}
	copy(c.items, items)
	for i, it := range c.items {
		if it.ID == "" {
			return nil, fmt.Errorf("catalog item %d has no id", i)
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog item %q", it.ID)
		}
		c.index[it.ID] = i
	}
	return c, nil
}

// Lookup returns the item with the given ID.
func (c *Catalog) Lookup(id string) (CatalogItem, bool) {
	if c == nil {
		return CatalogItem{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return CatalogItem{}, false
	}
	return c.items[i], true
}

// Items returns a copy of the catalog in load order.
func (c *Catalog) Items() []CatalogItem {
	if c == nil {
		return nil
	}
	out := make([]CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

// ScheduleEntry maps one age range to the items that become eligible at it.
type ScheduleEntry struct {
	AgeRange AgeRange `json:"age_range"`
	ItemIDs  []string `json:"item_ids"`
}

// NewScheduleEntry parses label once so evaluation never re-reads the text.
func NewScheduleEntry(label string, itemIDs ...string) ScheduleEntry {
	return ScheduleEntry{AgeRange: ParseAgeRange(label), ItemIDs: itemIDs}
}

func (e ScheduleEntry) references(itemID string) bool {
	for _, id := range e.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// Schedule is ordered as authored, which is not necessarily by age.
type Schedule []ScheduleEntry

// Classification is the status of one item for one subject.
type Classification struct {
	Status  Status     `json:"status"`
	DueDate *time.Time `json:"due_date,omitempty"`
	// AgeRange is the schedule entry that governs the next occurrence.
	AgeRange *AgeRange `json:"age_range,omitempty"`
	// DoseNumber is the next occurrence to give, or the count given when completed.
	DoseNumber int `json:"dose_number"`
}

// Recommendation is a classified catalog item. It is never persisted.
type Recommendation struct {
	Item CatalogItem `json:"item"`
	Classification
}
