package enumeration

import (
	"time"

	"github.com/google/uuid"
)

// Category names one of the six audit queries. The values double as the
// row labels in every report, matching the original tool's output.
type Category string

const (
	CategoryNoPreauth   Category = "No Pre-auth Users"
	CategorySIDHistory  Category = "SID History Users"
	CategoryDelegation  Category = "Delegation Users"
	CategoryDCSync      Category = "DC-Sync Users"
	CategoryFullControl Category = "Full Control Users"
	CategoryService     Category = "Service Users"
)

// Categories returns the fixed catalog order. The order only affects
// progress reporting, never correctness.
func Categories() []Category {
	return []Category{
		CategoryNoPreauth,
		CategorySIDHistory,
		CategoryDelegation,
		CategoryDCSync,
		CategoryFullControl,
		CategoryService,
	}
}

// Record is one finding: the category that produced it, the subject
// object, and at most one related value (a group, SPN, delegation target
// or descriptor digest depending on the category).
type Record struct {
	Category Category
	Subject  string
	Related  string
}

// Aggregate is the append-only result set of one run, handed whole to the
// report renderers together with run metadata.
type Aggregate struct {
	RunID    uuid.UUID
	Domain   string
	Endpoint string
	Started  time.Time
	Finished time.Time

	Records []Record

	// Failures maps skipped categories to the bind/search failure reason.
	Failures map[Category]string
}

func NewAggregate(domain, endpoint string) *Aggregate {
	return &Aggregate{
		RunID:    uuid.New(),
		Domain:   domain,
		Endpoint: endpoint,
		Started:  time.Now(),
		Failures: make(map[Category]string),
	}
}

func (a *Aggregate) append(records ...Record) {
	a.Records = append(a.Records, records...)
}

// Count returns the number of findings tagged with the given category.
func (a *Aggregate) Count(category Category) int {
	n := 0
	for _, record := range a.Records {
		if record.Category == category {
			n++
		}
	}
	return n
}

// Observer receives discrete progress events from the orchestrator. It is
// purely observational; the engine never owns or initializes the console.
type Observer interface {
	RunStarted(total int)
	QueryStarted(category Category)
	QueryFinished(category Category, found int)
	QueryFailed(category Category, err error)
}

// NopObserver satisfies Observer for callers that do not track progress.
type NopObserver struct{}

func (NopObserver) RunStarted(int)              {}
func (NopObserver) QueryStarted(Category)       {}
func (NopObserver) QueryFinished(Category, int) {}
func (NopObserver) QueryFailed(Category, error) {}
