package flyer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexPage = `<!DOCTYPE html>
<html><body>
<div class="flyer_listing" data-dealer-name="Metro">
  <a class="flyer_image" href="/flyers/metro/week-35"></a>
  <div class="flyer_title">Weekly Flyer</div>
  <div class="flyer_dates">Aug 28 - Sep 3</div>
</div>
<div class="flyer_listing" data-dealer-name="Best Buy">
  <a class="flyer_image" href="/flyers/bestbuy/week-35"></a>
  <div class="flyer_title">Tech Deals</div>
</div>
<div class="flyer_listing" data-dealer-name="Super C">
  <a class="flyer_image" href="https://cdn.example.com/superc/week-35"></a>
</div>
<div class="flyer_listing" data-dealer-name="Metro">
  <a class="flyer_image" href="/flyers/metro/week-34"></a>
</div>
<div class="flyer_listing">
  <a class="flyer_image" href="/flyers/mystery"></a>
</div>
</body></html>`

func TestDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage))
	}))
	defer srv.Close()

	d := NewDiscoverer(srv.URL + "/flyers/")
	flyers, err := d.Discover(context.Background())
	require.NoError(t, err)

	// Best Buy is not a grocery store, the second Metro card is a duplicate,
	// and the card without a dealer name is skipped.
	require.Len(t, flyers, 2)

	assert.Equal(t, "metro", flyers[0].Store)
	assert.Equal(t, "Weekly Flyer", flyers[0].Title)
	assert.Equal(t, "Aug 28 - Sep 3", flyers[0].DateRange)
	assert.Equal(t, srv.URL+"/flyers/metro/week-35", flyers[0].URL)

	assert.Equal(t, "super c", flyers[1].Store)
	assert.Equal(t, "Weekly Savings", flyers[1].Title)
	assert.Equal(t, "Current Week", flyers[1].DateRange)
	assert.Equal(t, "https://cdn.example.com/superc/week-35", flyers[1].URL)
}

func TestDiscoverServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDiscoverer(srv.URL)
	_, err := d.Discover(context.Background())
	assert.ErrorContains(t, err, "status 502")
}
