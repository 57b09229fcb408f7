// Package statutefinder is a Go client for the statutefinder HTTP API.
//
// The client covers statute lookup, similarity options, batched narrowing,
// section ranking, interactive sessions and token usage.
//
//	c, _ := statutefinder.New("http://localhost:8080",
//	    statutefinder.WithAPIKey(os.Getenv("STATUTEFINDER_API_KEY")),
//	)
//	res, _ := c.Narrow(ctx, statutefinder.NarrowRequest{
//	    Query:    "my landlord kept my damage deposit",
//	    Strategy: statutefinder.VoteThenRefine,
//	})
//	fmt.Println(res.Candidates)
//
// Errors returned by the service map onto the package sentinels, so callers
// can branch with errors.Is.
package statutefinder
