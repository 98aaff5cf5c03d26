package pagination

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/riksdag-client/pkg/models"
	"github.com/Sternrassler/riksdag-client/pkg/parser"
)

// Iterator is a forward-only, non-restartable stream of entities. It is not
// safe for concurrent use.
type Iterator struct {
	ctx     context.Context
	fetcher *Fetcher
	spec    Spec
	fetchID string
	logger  zerolog.Logger
	start   time.Time

	started bool
	done    bool
	err     error
	current models.Entity

	hits       []models.RawHit
	pos        int
	page       int // last requested page
	sida       int // last page as reported upstream
	totalPages int
	totalHits  int
	count      int

	override parser.Parser
	parsers  map[string]parser.Parser
}

func newIterator(ctx context.Context, f *Fetcher, spec Spec) *Iterator {
	id := uuid.NewString()
	return &Iterator{
		ctx:     ctx,
		fetcher: f,
		spec:    spec,
		fetchID: id,
		logger:  f.logger.With().Str("fetch_id", id).Logger(),
		parsers: make(map[string]parser.Parser),
	}
}

// Failed returns an iterator that produces nothing and reports err.
func Failed(err error) *Iterator {
	return &Iterator{started: true, done: true, err: err}
}

// Next advances to the next entity. It returns false when the stream ended,
// either normally or with an error reported by Err.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	it.current = nil

	if !it.started {
		it.started = true
		it.start = time.Now()
		if it.spec.Limit < 0 {
			return it.fail(fmt.Errorf("%w (got %d)", ErrInvalidLimit, it.spec.Limit))
		}
		it.logger.Debug().
			Interface("params", it.spec.Params).
			Int("limit", it.spec.Limit).
			Str("kind", it.spec.Kind).
			Msg("Starting fetch")
		if err := it.fetch(1); err != nil {
			return it.fail(err)
		}
	}

	for {
		if it.spec.Limit > 0 && it.count >= it.spec.Limit {
			return it.finish()
		}

		if it.pos < len(it.hits) {
			if it.spec.Limit == 0 && it.count >= it.fetcher.config.MaxResults {
				return it.fail(&ResultWindowExceededError{Limit: it.fetcher.config.MaxResults})
			}

			hit := it.hits[it.pos]
			it.pos++

			e, err := it.parse(hit)
			if err != nil {
				return it.fail(err)
			}
			it.count++
			it.current = e
			entitiesTotal.WithLabelValues(e.Kind()).Inc()
			return true
		}

		if it.page >= it.totalPages {
			return it.finish()
		}
		if err := it.fetch(it.page + 1); err != nil {
			return it.fail(err)
		}
	}
}

// Entity returns the entity produced by the last successful Next.
func (it *Iterator) Entity() models.Entity {
	return it.current
}

// Err returns the error that ended the stream, nil after a normal end.
func (it *Iterator) Err() error {
	return it.err
}

// Count returns the number of entities produced so far.
func (it *Iterator) Count() int {
	return it.count
}

// Page returns the current page as reported upstream.
func (it *Iterator) Page() int {
	return it.sida
}

// TotalPages returns the total page count of the most recent page.
func (it *Iterator) TotalPages() int {
	return it.totalPages
}

// TotalHits returns the upstream hit count of the most recent page.
func (it *Iterator) TotalHits() int {
	return it.totalHits
}

// FetchID identifies this fetch in logs and progress reports.
func (it *Iterator) FetchID() string {
	return it.fetchID
}

// All returns the stream as a range-over-func sequence. A terminating error
// is yielded once, with a nil entity, as the last element.
func (it *Iterator) All() iter.Seq2[models.Entity, error] {
	return func(yield func(models.Entity, error) bool) {
		for it.Next() {
			if !yield(it.Entity(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Collect drains the iterator. On error the entities produced before it are
// returned along with the error.
func (it *Iterator) Collect() ([]models.Entity, error) {
	var out []models.Entity
	for it.Next() {
		out = append(out, it.Entity())
	}
	return out, it.Err()
}

func (it *Iterator) fetch(page int) error {
	logger := it.logger.With().Int("page", page).Logger()

	env, err := it.fetcher.fetchPage(it.ctx, it.spec.Params, page, logger)
	if err != nil {
		return err
	}

	it.hits = env.Hits
	it.pos = 0
	it.page = page
	it.sida = env.Page
	if it.sida == 0 {
		it.sida = page
	}
	// personlista answers without "@sidor" and sends every member on one
	// page, so a missing page count marks the current page as the last
	// one rather than an empty result.
	it.totalPages = env.TotalPages
	if it.totalPages == 0 {
		it.totalPages = page
	}
	it.totalHits = env.TotalHits

	if it.fetcher.config.OnPage != nil {
		it.fetcher.config.OnPage(PageProgress{
			FetchID:    it.fetchID,
			Page:       it.sida,
			TotalPages: it.totalPages,
			TotalHits:  it.totalHits,
			Hits:       len(it.hits),
			Delivered:  it.count,
		})
	}
	return nil
}

func (it *Iterator) parse(hit models.RawHit) (models.Entity, error) {
	if it.spec.Kind != "" {
		if it.override == nil {
			p, err := it.fetcher.registry.Create(it.spec.Kind)
			if err != nil {
				return nil, err
			}
			it.override = p
		}
		return it.override.Parse(hit)
	}

	kind := parser.KindOf(hit)
	p, ok := it.parsers[kind]
	if !ok {
		var err error
		if p, err = it.fetcher.registry.Create(kind); err != nil {
			return nil, err
		}
		it.parsers[kind] = p
	}
	return p.Parse(hit)
}

func (it *Iterator) finish() bool {
	it.done = true
	it.current = nil
	it.logger.Info().
		Int("entities", it.count).
		Int("pages", it.page).
		Int("total_pages", it.totalPages).
		Dur("duration", time.Since(it.start)).
		Msg("Fetch complete")
	return false
}

func (it *Iterator) fail(err error) bool {
	it.done = true
	it.current = nil
	it.err = err
	it.logger.Error().
		Err(err).
		Int("entities", it.count).
		Int("page", it.page).
		Msg("Fetch failed")
	return false
}
