// Package pagination turns a query into a lazy, forward-only stream of
// domain entities.
//
// Riksdagen search endpoints are paged: every response carries the total
// page count ("@sidor") and the current page ("@sida"). The Fetcher walks
// those pages strictly in order, one request at a time, and only when the
// caller has consumed every hit of the previous page. Nothing is fetched
// ahead and nothing runs in the background.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(c.Pages(client.Documents), parser.NewDefaultRegistry(), pagination.DefaultConfig())
//	it := fetcher.Iterate(ctx, pagination.Spec{
//		Params: url.Values{"sok": {"klimat"}, "doktyp": {"mot"}},
//		Limit:  50,
//	})
//	for it.Next() {
//		fmt.Println(it.Entity().ID())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// The fetcher:
//   - Requests page 1 on the first Next and reuses its hits
//   - Requests page N+1 only after page N is drained, and never past the
//     total reported by the most recent page
//   - Stops without further requests once Spec.Limit entities are produced
//   - Retries transient network failures up to MaxAttempts times with a
//     fixed backoff; any other failure ends the stream
//   - Caps unbounded fetches at MaxResults entities (the upstream result
//     window) with a ResultWindowExceededError
package pagination
