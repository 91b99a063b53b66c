package model

import (
	"testing"

	"github.com/and161185/sublease/internal/errs"
	"github.com/stretchr/testify/require"
)

func sample() []Listing {
	return []Listing{
		{ID: 1, Title: "Sunny Studio", Description: "close to campus", Location: "Westwood", Price: 800, Bedrooms: 1},
		{ID: 2, Title: "Large house", Description: "3br with yard", Location: "Santa Monica", Price: 1500, Bedrooms: 3},
		{ID: 3, Title: "Loft", Description: "quiet", Location: "Studio City", Price: 1200, Bedrooms: 1},
		{ID: 4, Title: "Room", Description: "shared STUDIO space", Location: "Westwood", Price: 1000, Bedrooms: 2},
	}
}

func TestFilter_MaxPrice(t *testing.T) {
	t.Parallel()

	in := []Listing{{ID: 1, Price: 800}, {ID: 2, Price: 1500}}
	out := ListingFilter{MaxPrice: Float(1000)}.Apply(in)
	require.Len(t, out, 1)
	require.Equal(t, int64(1), out[0].ID)
}

func TestFilter_SearchCaseInsensitiveAcrossFields(t *testing.T) {
	t.Parallel()

	out := ListingFilter{Search: "studio"}.Apply(sample())
	require.Equal(t, []int64{1, 3, 4}, Listings(out).IDs())
}

func TestFilter_InclusiveRangeAndExactMatch(t *testing.T) {
	t.Parallel()

	f := ListingFilter{MinPrice: Float(1000), MaxPrice: Float(1500)}
	require.Equal(t, []int64{2, 3, 4}, Listings(f.Apply(sample())).IDs())

	f = ListingFilter{Location: "Westwood", Bedrooms: Int(1)}
	require.Equal(t, []int64{1}, Listings(f.Apply(sample())).IDs())

	f = ListingFilter{Location: AnyLocation}
	require.Len(t, f.Apply(sample()), 4)
}

func TestFilter_Pagination(t *testing.T) {
	t.Parallel()

	require.Equal(t, []int64{2, 3}, Listings(ListingFilter{Skip: 1, Limit: 2}.Apply(sample())).IDs())
	require.Empty(t, ListingFilter{Skip: 10}.Apply(sample()))
}

func TestFilter_Query(t *testing.T) {
	t.Parallel()

	require.Empty(t, ListingFilter{}.Query())
	require.Empty(t, ListingFilter{Location: AnyLocation}.Query())

	q := ListingFilter{Skip: 20, Limit: 10, Search: " studio ", MinPrice: Float(500), MaxPrice: Float(999.5), Location: "Westwood", Bedrooms: Int(2)}.Query()
	require.Equal(t, "20", q.Get("skip"))
	require.Equal(t, "10", q.Get("limit"))
	require.Equal(t, "studio", q.Get("search"))
	require.Equal(t, "500", q.Get("min_price"))
	require.Equal(t, "999.5", q.Get("max_price"))
	require.Equal(t, "Westwood", q.Get("location"))
	require.Equal(t, "2", q.Get("bedrooms"))
}

func TestFilter_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, ListingFilter{}.Validate())
	for _, f := range []ListingFilter{
		{Skip: -1},
		{Limit: 101},
		{MinPrice: Float(-1)},
		{MinPrice: Float(10), MaxPrice: Float(5)},
		{Bedrooms: Int(0)},
	} {
		require.ErrorIs(t, f.Validate(), errs.ErrValidation)
	}
}

func TestFilter_SelectThenPage(t *testing.T) {
	t.Parallel()

	f := ListingFilter{Search: "studio", Skip: 1, Limit: 1}
	require.Equal(t, []int64{1, 3, 4}, Listings(f.Select(sample())).IDs())
	require.Equal(t, []int64{2, 3}, Listings(f.Page(sample())).IDs())
	require.Equal(t, []int64{3}, Listings(f.Apply(sample())).IDs())
	require.Empty(t, ListingFilter{Skip: 10}.Page(sample()))

	var ve *errs.ValidationError
	require.ErrorAs(t, ListingFilter{Limit: 101}.Validate(), &ve)
	require.Equal(t, "limit", ve.Field)
	require.NoError(t, ListingFilter{Limit: 0}.Validate())
}
