// Package flyer discovers current grocery store flyers from a deals
// aggregator index page.
package flyer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// Flyer describes one discovered store flyer.
type Flyer struct {
	Store     string `json:"store"`
	Title     string `json:"title"`
	DateRange string `json:"date_range"`
	URL       string `json:"url"`
}

// groceryStores filters flyer listings down to grocery chains worth scraping.
var groceryStores = []string{
	"super c", "metro", "walmart", "iga", "maxi",
	"provigo", "loblaws", "no frills", "food basics",
	"freshco", "costco", "carrefour",
}

// Discoverer fetches a flyer index page and extracts grocery flyer links.
type Discoverer struct {
	indexURL string
	client   *http.Client
}

// NewDiscoverer creates a Discoverer for the given index URL.
func NewDiscoverer(indexURL string) *Discoverer {
	return &Discoverer{
		indexURL: indexURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Discover fetches the index page and returns the grocery store flyers it
// lists, one per store, in page order.
func (d *Discoverer) Discover(ctx context.Context) ([]Flyer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flyer index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch flyer index: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flyer index: %w", err)
	}

	base, err := url.Parse(d.indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index URL: %w", err)
	}

	var flyers []Flyer
	seen := make(map[string]bool)

	doc.Find(".flyer_listing").Each(func(_ int, card *goquery.Selection) {
		store, ok := card.Attr("data-dealer-name")
		if !ok {
			return
		}
		store = strings.ToLower(strings.TrimSpace(store))
		if !isGrocery(store) || seen[store] {
			return
		}

		href, ok := card.Find("a.flyer_image").First().Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			log.Warn().Str("store", store).Str("href", href).Msg("Skipping flyer with bad link")
			return
		}

		title := strings.TrimSpace(card.Find(".flyer_title").First().Text())
		if title == "" {
			title = "Weekly Savings"
		}
		dates := strings.TrimSpace(card.Find(".flyer_dates").First().Text())
		if dates == "" {
			dates = "Current Week"
		}

		seen[store] = true
		flyers = append(flyers, Flyer{
			Store:     store,
			Title:     title,
			DateRange: dates,
			URL:       base.ResolveReference(ref).String(),
		})
	})

	log.Info().Int("count", len(flyers)).Msg("Discovered grocery flyers")
	return flyers, nil
}

func isGrocery(store string) bool {
	for _, g := range groceryStores {
		if strings.Contains(store, g) {
			return true
		}
	}
	return false
}
