package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/riksdag-client/pkg/export"
	"github.com/Sternrassler/riksdag-client/pkg/models"
	"github.com/Sternrassler/riksdag-client/pkg/query"
)

// Output formats.
const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// searchFlags are the flags shared by the search commands.
type searchFlags struct {
	query   string
	docType string
	from    string
	to      string
	session string
	sort    string
	order   string
	limit   int
	filters []string
	format  string
	by      string
	where   string
}

func (f *searchFlags) register(cmd *cobra.Command, documents bool) {
	fl := cmd.Flags()
	fl.IntVarP(&f.limit, "limit", "n", 0, "maximum number of results (0 = all)")
	fl.StringArrayVar(&f.filters, "filter", nil, "extra filter as name=value (repeatable)")
	fl.StringVar(&f.sort, "sort", "", "sort field")
	fl.StringVar(&f.order, "order", "", "sort order (asc, desc)")
	fl.StringVar(&f.where, "where", "", "expr predicate applied to results, e.g. 'containsFold(title, \"skatt\")'")

	if documents {
		fl.StringVarP(&f.query, "query", "q", "", "free text search")
		fl.StringVar(&f.docType, "type", "", "document type, e.g. mot, bet, prop")
		fl.StringVar(&f.from, "from", "", "earliest date (YYYY-MM-DD)")
		fl.StringVar(&f.to, "to", "", "latest date (YYYY-MM-DD)")
		fl.StringVar(&f.session, "session", "", "parliamentary session, e.g. 2021/22")
		fl.StringVar(&f.format, "format", formatJSON, "output format (json, csv)")
		fl.StringVar(&f.by, "by", string(export.ByDocument), "csv layout (document, author)")
	} else {
		f.format = formatJSON
	}
}

// apply copies the flags onto b.
func (f *searchFlags) apply(b *query.Builder) error {
	b.Query(f.query).
		Kind(f.docType).
		From(f.from).
		To(f.to).
		Session(f.session).
		Limit(f.limit)
	if f.sort != "" || f.order != "" {
		b.Sort(f.sort, f.order)
	}
	for _, kv := range f.filters {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid filter %q, want name=value", kv)
		}
		b.Filter(strings.TrimSpace(name), value)
	}
	return b.Err()
}

func newDocumentsCmd(a *app, use, short, docType string) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if docType != "" {
				f.docType = docType
			}
			return a.runSearch(cmd, a.api.Documents(), f)
		},
	}
	f.register(cmd, true)
	if docType != "" {
		_ = cmd.Flags().MarkHidden("type")
	}
	return cmd
}

func newPersonsCmd(a *app) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:     "persons",
		Aliases: []string{"members"},
		Short:   "List members of parliament",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSearch(cmd, a.api.Persons(), f)
		},
	}
	f.register(cmd, false)
	return cmd
}

func newVotesCmd(a *app) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "votes",
		Short: "List roll-call votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSearch(cmd, a.api.Votes(), f)
		},
	}
	f.register(cmd, false)
	return cmd
}

func (a *app) runSearch(cmd *cobra.Command, b *query.Builder, f *searchFlags) error {
	if err := f.apply(b); err != nil {
		return err
	}

	var pred *export.Predicate
	if f.where != "" {
		var err error
		if pred, err = export.CompilePredicate(f.where); err != nil {
			return err
		}
	}

	switch f.format {
	case formatJSON:
		return a.streamJSON(cmd, b, pred)
	case formatCSV:
		by, err := export.ParseBy(f.by)
		if err != nil {
			return err
		}
		return a.writeCSV(cmd, b, pred, by)
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", f.format, formatJSON, formatCSV)
	}
}

// streamJSON writes entities as they are fetched.
func (a *app) streamJSON(cmd *cobra.Command, b *query.Builder, pred *export.Predicate) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)

	written := 0
	it := b.Get(cmd.Context())
	for it.Next() {
		e := it.Entity()
		ok, err := matches(pred, e)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := export.WriteJSONLine(enc, e); err != nil {
			return err
		}
		written++
	}
	if err := it.Err(); err != nil {
		return err
	}

	a.logger.Info().
		Str("fetch_id", it.FetchID()).
		Int("fetched", it.Count()).
		Int("written", written).
		Msg("Search complete")
	return nil
}

func (a *app) writeCSV(cmd *cobra.Command, b *query.Builder, pred *export.Predicate, by export.By) error {
	entities, err := b.Collect(cmd.Context())
	if err != nil {
		return err
	}
	if pred != nil {
		if entities, err = pred.Filter(entities); err != nil {
			return err
		}
	}

	motions := export.Motions(entities)
	if skipped := len(entities) - len(motions); skipped > 0 {
		a.logger.Warn().Int("skipped", skipped).Msg("CSV output only includes motions")
	}
	return export.WriteCSV(cmd.OutOrStdout(), motions, by)
}

func matches(pred *export.Predicate, e models.Entity) (bool, error) {
	if pred == nil {
		return true, nil
	}
	return pred.Match(e)
}
