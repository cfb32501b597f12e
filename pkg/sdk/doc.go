// Package hybridsearch embeds the hybrid search engine in a Go program.
//
// The client opens the configured backends in-process, seeds them with a
// corpus and answers keyword, semantic and hybrid queries without an HTTP
// hop.
//
//	client, _ := hybridsearch.New(ctx,
//	    hybridsearch.WithEmbedded("/var/lib/hybridsearch"),
//	    hybridsearch.WithEmbedder(myEmbedder),
//	    hybridsearch.WithVectorDimensions(1024),
//	)
//	defer client.Close()
//
//	_, _ = client.Seed(ctx, docs)
//	resp, _ := client.Search().Query("solar power").Mode(hybridsearch.ModeHybrid).Limit(5).Do(ctx)
//	for _, r := range resp.Results {
//	    fmt.Println(r.ID, r.Title, r.Score)
//	}
//
// A client without an embedder can search stores seeded by another process.
// Only keyword retrieval answers then: hybrid queries degrade to keyword
// results and semantic queries fail with ErrEmbeddingFailure.
package hybridsearch
