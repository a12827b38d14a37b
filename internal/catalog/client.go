package catalog

import "context"

// Client fetches characters and related-work statistics from the upstream catalog.
// Every method returns an *UpstreamError for classified failures.
type Client interface {
	Character(ctx context.Context, id int) (Character, error)
	Popularity(ctx context.Context, ref RelatedWorkRef) (int, error)
	Detail(ctx context.Context, ref RelatedWorkRef) (WorkDetail, error)
}
