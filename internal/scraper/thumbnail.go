// Package scraper probes video pages for display metadata the download
// engine has not reported yet.
package scraper

import (
	"errors"
	"time"

	"fetcharr/internal/utils/logging"
	"fetcharr/internal/validation"

	"github.com/gocolly/colly"
)

// PageInfo is the scraped display metadata of one video page.
type PageInfo struct {
	ThumbnailURL string `json:"thumbnail_url"`
	Title        string `json:"title"`
}

// Scraper fetches OpenGraph tags from video pages.
type Scraper struct {
	userAgent string
	timeout   time.Duration
}

// New returns a scraper with sane defaults.
func New() *Scraper {
	return &Scraper{
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		timeout:   10 * time.Second,
	}
}

// Probe fetches the page's og:image and og:title. When the page cannot
// be scraped it falls back to the thumbnail URL derivable from the
// video ID, returning an error only when neither route yields anything.
func (s *Scraper) Probe(pageURL string) (PageInfo, error) {
	var info PageInfo

	c := colly.NewCollector(colly.UserAgent(s.userAgent))
	c.SetRequestTimeout(s.timeout)

	c.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		if info.ThumbnailURL == "" {
			info.ThumbnailURL = e.Attr("content")
		}
	})
	c.OnHTML(`meta[property="og:title"]`, func(e *colly.HTMLElement) {
		if info.Title == "" {
			info.Title = e.Attr("content")
		}
	})

	if err := c.Visit(pageURL); err != nil {
		logging.D(1, "Thumbnail scrape of %s failed: %v", pageURL, err)
	}
	c.Wait()

	if info.ThumbnailURL == "" {
		info.ThumbnailURL = validation.ThumbnailURL(pageURL, "hqdefault")
	}
	if info.ThumbnailURL == "" {
		return PageInfo{}, errors.New("no thumbnail found")
	}
	return info, nil
}
