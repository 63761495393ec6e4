package enumeration

import (
	"fmt"
	"time"

	"f0oster/adaudit/credentials"

	"github.com/go-ldap/ldap/v3"
)

// Searcher is the slice of a directory session the orchestrator needs:
// one blocking filtered search plus teardown.
type Searcher interface {
	Search(filter string, attributes []string, controls ...ldap.Control) ([]*ldap.Entry, error)
	Close()
}

// Opener binds a fresh session with the given credential.
type Opener func(cred credentials.Credential) (Searcher, error)

// Source selects the credential authenticating the next query. A Rotator
// in rotation mode, a Fixed credential otherwise.
type Source interface {
	Next() credentials.Credential
}

// Engine runs the catalog strictly sequentially: for each query it selects
// a credential, opens a session, executes the search, shapes the entries
// and appends them to the aggregate. A failed bind or search skips that
// query's category and the run continues.
type Engine struct {
	domain   string
	endpoint string
	open     Opener
	source   Source
	rotate   bool
	observer Observer
	catalog  []Query
}

func NewEngine(domain, endpoint string, open Opener, source Source, rotate bool, observer Observer) *Engine {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Engine{
		domain:   domain,
		endpoint: endpoint,
		open:     open,
		source:   source,
		rotate:   rotate,
		observer: observer,
		catalog:  Catalog(),
	}
}

// Run executes the full catalog exactly once and returns the aggregate.
// In single-credential mode the one bind happens up front and its failure
// is fatal; in rotation mode each query binds with the next rotated
// credential and a rejected bind only skips that category.
func (e *Engine) Run() (*Aggregate, error) {
	aggregate := NewAggregate(e.domain, e.endpoint)
	e.observer.RunStarted(len(e.catalog))

	var shared Searcher
	if !e.rotate {
		session, err := e.open(e.source.Next())
		if err != nil {
			return nil, fmt.Errorf("initial bind failed: %w", err)
		}
		shared = session
		defer shared.Close()
	}

	for _, query := range e.catalog {
		e.observer.QueryStarted(query.Category)

		session := shared
		if e.rotate {
			opened, err := e.open(e.source.Next())
			if err != nil {
				e.skip(aggregate, query.Category, err)
				continue
			}
			session = opened
		}

		entries, err := session.Search(query.Filter, query.Attributes, query.Controls...)
		if e.rotate {
			session.Close()
		}
		if err != nil {
			e.skip(aggregate, query.Category, err)
			continue
		}

		found := 0
		for _, entry := range entries {
			record, ok := query.Shape(entry)
			if !ok {
				continue
			}
			record.Category = query.Category
			aggregate.append(record)
			found++
		}
		e.observer.QueryFinished(query.Category, found)
	}

	aggregate.Finished = time.Now()
	return aggregate, nil
}

// skip records a zero-finding category and notifies the observer. The
// failed query is never retried.
func (e *Engine) skip(aggregate *Aggregate, category Category, err error) {
	aggregate.Failures[category] = err.Error()
	e.observer.QueryFailed(category, err)
}
