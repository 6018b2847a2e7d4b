package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
	"github.com/couchcryptid/cafepick-api/internal/service"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeStore struct {
	venues []domain.Venue
	err    error
	cities []string
	asked  []string
}

func (f *fakeStore) Venues(_ context.Context, city string) ([]domain.Venue, error) {
	f.asked = append(f.asked, city)
	if f.err != nil {
		return nil, f.err
	}
	if city == "" {
		return f.venues, nil
	}
	var out []domain.Venue
	for _, v := range f.venues {
		if v.City == city {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) Venue(_ context.Context, id string) (domain.Venue, error) {
	for _, v := range f.venues {
		if v.ID == id {
			return v, nil
		}
	}
	return domain.Venue{}, domain.ErrNotFound
}

func (f *fakeStore) Cities(context.Context) ([]string, error) {
	return f.cities, nil
}

type readyStore struct {
	fakeStore
	err error
}

func (r *readyStore) CheckReadiness(context.Context) error { return r.err }

type fakePlaces struct {
	places      []domain.Place
	transit     map[domain.Coordinate]*domain.TransitInfo
	transitErr  error
	points      []domain.TransitPoint
	searchCity  string
	searchLimit int
}

func (f *fakePlaces) SearchCafes(_ context.Context, city, _ string, _ *domain.Coordinate, limit int) ([]domain.Place, error) {
	f.searchCity, f.searchLimit = city, limit
	return f.places, nil
}

func (f *fakePlaces) NearestTransit(_ context.Context, origin domain.Coordinate) (*domain.TransitInfo, error) {
	if f.transitErr != nil {
		return nil, f.transitErr
	}
	return f.transit[origin], nil
}

func (f *fakePlaces) SearchTransitPoints(_ context.Context, city, _, _ string, _ int) ([]domain.TransitPoint, error) {
	f.searchCity = city
	return f.points, nil
}

// --- helpers ---

func newService(store service.VenueStore, places service.PlacesLookup) *service.Service {
	return service.New(store, places, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func venue(id, city string, wifi float64) domain.Venue {
	return domain.DefaultTables().Derive(domain.Venue{
		ID: id, Name: id, City: city,
		Address: "台北市大安區復興南路一段1號",
		Transit: "忠孝復興站2號出口",
		Scores:  domain.Amenities{Wifi: wifi, Quiet: 3},
	})
}

func venueIDs(vs []domain.Venue) []string {
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	return ids
}

// --- tests ---

func TestListCafes_FiltersAndPaginates(t *testing.T) {
	store := &fakeStore{venues: []domain.Venue{
		venue("a", "taipei", 5), venue("b", "taipei", 0), venue("c", "taipei", 4),
		venue("d", "taipei", 3), venue("e", "tainan", 5),
	}}
	svc := newService(store, nil)

	res, err := svc.ListCafes(context.Background(), service.ListRequest{
		Query: domain.Query{City: "taipei", HasWifi: true},
		Limit: 2, Offset: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []string{"c", "d"}, venueIDs(res.Cafes))
	assert.Equal(t, []string{"taipei"}, store.asked)
}

func TestListCafes_OffsetPastEnd(t *testing.T) {
	svc := newService(&fakeStore{venues: []domain.Venue{venue("a", "taipei", 5)}}, nil)

	res, err := svc.ListCafes(context.Background(), service.ListRequest{Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.NotNil(t, res.Cafes)
	assert.Empty(t, res.Cafes)
}

func TestListCafes_StoreError(t *testing.T) {
	boom := errors.New("upstream down")
	svc := newService(&fakeStore{err: boom}, nil)

	_, err := svc.ListCafes(context.Background(), service.ListRequest{Limit: 10})
	assert.ErrorIs(t, err, boom)
}

func TestRecommend_RanksFilteredCandidates(t *testing.T) {
	store := &fakeStore{venues: []domain.Venue{
		venue("weak", "taipei", 2), venue("none", "taipei", 0), venue("strong", "taipei", 4),
	}}
	svc := newService(store, nil)

	got, err := svc.Recommend(context.Background(), domain.Query{City: "taipei", HasWifi: true}, 3)
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.Venue.ID
	}
	if diff := cmp.Diff([]string{"strong", "weak"}, ids); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 100.0, got[0].Score)
	assert.Equal(t, 25.0, got[1].Score)
}

func TestRecommendPlaces_Disabled(t *testing.T) {
	svc := newService(&fakeStore{}, nil)
	assert.False(t, svc.PlacesEnabled())

	_, err := svc.RecommendPlaces(context.Background(), domain.Query{}, 3)
	assert.ErrorIs(t, err, service.ErrPlacesDisabled)

	_, err = svc.TransitPoints(context.Background(), "", "", "")
	assert.ErrorIs(t, err, service.ErrPlacesDisabled)
}

func TestRecommendPlaces_OrdersByDistanceAndEnriches(t *testing.T) {
	origin := domain.Coordinate{Lat: 25.0, Lon: 121.5}
	near := domain.Coordinate{Lat: 25.001, Lon: 121.5}
	far := domain.Coordinate{Lat: 25.02, Lon: 121.5}
	station := domain.NewTransitInfo("捷運古亭站", near, domain.Coordinate{Lat: 25.002, Lon: 121.5})

	places := &fakePlaces{
		places: []domain.Place{
			{ID: "far", Geo: &far},
			{ID: "near", Geo: &near},
			{ID: "nogeo"},
		},
		transit: map[domain.Coordinate]*domain.TransitInfo{near: &station},
	}
	svc := newService(&fakeStore{}, places)

	got, err := svc.RecommendPlaces(context.Background(), domain.Query{Origin: &origin}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Place.ID)
	assert.Equal(t, "far", got[1].Place.ID)
	assert.Nil(t, got[0].Score)
	require.NotNil(t, got[0].Place.NearestTransit)
	assert.Equal(t, "古亭", got[0].Place.NearestTransit.Station)
	assert.Nil(t, got[1].Place.NearestTransit)
	assert.Equal(t, service.DefaultPlacesCity, places.searchCity)
}

func TestRecommendPlaces_TransitFailureFailsRequest(t *testing.T) {
	geo := domain.Coordinate{Lat: 25.0, Lon: 121.5}
	quota := errors.New("places api 500")
	places := &fakePlaces{
		places:     []domain.Place{{ID: "p", Geo: &geo}},
		transitErr: quota,
	}
	svc := newService(&fakeStore{}, places)

	got, err := svc.RecommendPlaces(context.Background(), domain.Query{City: "tainan"}, 3)
	require.ErrorIs(t, err, quota)
	assert.Contains(t, err.Error(), "nearest transit for p")
	assert.Nil(t, got)
	assert.Equal(t, "tainan", places.searchCity)
}

func TestRecommendPlaces_SkipsTransitWithoutCoordinates(t *testing.T) {
	places := &fakePlaces{
		places:     []domain.Place{{ID: "nogeo"}},
		transitErr: errors.New("must not be called"),
	}
	svc := newService(&fakeStore{}, places)

	got, err := svc.RecommendPlaces(context.Background(), domain.Query{}, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Place.NearestTransit)
}

func TestCafe_WithAndWithoutHint(t *testing.T) {
	store := &fakeStore{venues: []domain.Venue{venue("a", "taipei", 5), venue("b", "tainan", 5)}}
	svc := newService(store, nil)

	v, err := svc.Cafe(context.Background(), "b", "tainan")
	require.NoError(t, err)
	assert.Equal(t, "b", v.ID)
	assert.Equal(t, []string{"tainan"}, store.asked)

	v, err = svc.Cafe(context.Background(), "a", "tainan")
	require.NoError(t, err)
	assert.Equal(t, "a", v.ID)

	_, err = svc.Cafe(context.Background(), "missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAreas(t *testing.T) {
	store := &fakeStore{venues: []domain.Venue{venue("a", "taipei", 5), venue("b", "taipei", 0)}}
	svc := newService(store, nil)

	areas, err := svc.Areas(context.Background(), "taipei")
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, 2, areas[0].CafeCount)
	assert.Equal(t, []string{"忠孝復興"}, areas[0].Stations)
	require.Len(t, areas[0].Districts, 1)
	assert.Equal(t, "大安區", areas[0].Districts[0].Name)
}

func TestCities(t *testing.T) {
	svc := newService(&fakeStore{cities: []string{"taichung", "taipei"}}, nil)

	cities, err := svc.Cities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"taichung", "taipei"}, cities)
}

func TestTransitPoints(t *testing.T) {
	places := &fakePlaces{points: []domain.TransitPoint{{ID: "s1", Name: "古亭站"}}}
	svc := newService(&fakeStore{}, places)

	got, err := svc.TransitPoints(context.Background(), "taipei", "中正區", "")
	require.NoError(t, err)
	assert.Equal(t, places.points, got)
	assert.Equal(t, "taipei", places.searchCity)
}

func TestCheckReadiness(t *testing.T) {
	assert.NoError(t, newService(&fakeStore{}, nil).CheckReadiness(context.Background()))

	down := errors.New("db down")
	assert.ErrorIs(t, newService(&readyStore{err: down}, nil).CheckReadiness(context.Background()), down)
}
