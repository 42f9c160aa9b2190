// Package watch resolves film titles to JustWatch pages for the
// where-to-watch redirect.
package watch

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

const (
	justwatchBase = "https://www.justwatch.com"
	browserUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	resolveTimeout = 12 * time.Second
	cacheTTL       = 12 * time.Hour
	cacheSweep     = time.Hour
	maxSearchBody  = 4 << 20
)

// The search page embeds title links both as plain hrefs and as
// JSON-escaped url fields; the first match of either wins.
var (
	hrefPattern    = regexp.MustCompile(`href="(/us/(?:movie|tv-show)/[^"#?]+)"`)
	jsonURLPattern = regexp.MustCompile(`"url":"(\\/us\\/(?:movie|tv-show)\\/[^"\\]+)"`)

	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_]+`)
)

// SlugifyTitle lowercases a title and reduces it to the hyphenated form
// JustWatch uses in movie URLs. Returns "" when nothing survives.
func SlugifyTitle(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, "&", " and ")
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Resolver finds the best JustWatch target for a title. Results are
// cached in memory; a scrape failure still yields a usable slug or
// search URL, never an error.
type Resolver struct {
	client *http.Client
	cache  *gocache.Cache
}

// NewResolver builds a resolver with its own HTTP client and TTL cache.
func NewResolver() *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: resolveTimeout},
		cache:  gocache.New(cacheTTL, cacheSweep),
	}
}

// HomeURL is the redirect target when no title is given.
func HomeURL() string { return justwatchBase + "/us" }

// Resolve returns the redirect target for a title: the first search
// result when the scrape succeeds, otherwise the guessed slug URL,
// otherwise the search page itself.
func (r *Resolver) Resolve(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return HomeURL()
	}
	cacheKey := strings.ToLower(title)
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.(string)
	}

	target := r.firstResultURL(title)
	r.cache.SetDefault(cacheKey, target)
	return target
}

func (r *Resolver) firstResultURL(title string) string {
	searchURL := fmt.Sprintf("%s/us/search?q=%s", justwatchBase, url.QueryEscape(title))

	html, errFetch := r.fetchSearchPage(searchURL)
	if errFetch != nil {
		log.WithError(errFetch).WithField("title", title).Debug("watch: search fetch failed")
		return fallbackURL(title, searchURL)
	}

	if match := hrefPattern.FindStringSubmatch(html); match != nil {
		return justwatchBase + match[1]
	}
	if match := jsonURLPattern.FindStringSubmatch(html); match != nil {
		path := strings.ReplaceAll(match[1], `\/`, "/")
		if strings.HasPrefix(path, "/us/") {
			return justwatchBase + path
		}
	}
	return fallbackURL(title, searchURL)
}

func (r *Resolver) fetchSearchPage(searchURL string) (string, error) {
	req, errReq := http.NewRequest(http.MethodGet, searchURL, nil)
	if errReq != nil {
		return "", errReq
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, errDo := r.client.Do(req)
	if errDo != nil {
		return "", errDo
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("watch: search returned %d", resp.StatusCode)
	}
	body, errRead := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if errRead != nil {
		return "", errRead
	}
	return string(body), nil
}

func fallbackURL(title, searchURL string) string {
	if slug := SlugifyTitle(title); slug != "" {
		return justwatchBase + "/us/movie/" + slug
	}
	return searchURL
}
