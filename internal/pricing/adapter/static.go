package adapter

import "context"

// StaticAdapter returns a fixed listing set or error, used by tests and
// local development in place of a real marketplace integration.
type StaticAdapter struct {
	Name     string
	Listings []FetchedListing
	Err      error
	Healthy  bool
}

func (s *StaticAdapter) ID() string { return s.Name }

func (s *StaticAdapter) FetchListings(ctx context.Context, q Query) ([]FetchedListing, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]FetchedListing, len(s.Listings))
	copy(out, s.Listings)
	return out, nil
}

func (s *StaticAdapter) BuildSearchURL(q Query) string {
	return "https://" + s.Name + ".example/search?q=" + q.Q
}

func (s *StaticAdapter) IsHealthy(ctx context.Context) bool {
	return s.Healthy
}
