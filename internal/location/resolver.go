package location

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/observability"
)

// FallbackMapURL is substituted whenever a link cannot be resolved to a map
// URL, whether because of a transport failure or because the resolved target
// is simply not a map. Silent degradation here is documented behavior, not a
// defect: the original product preferred showing the bare map over an error.
const FallbackMapURL = "https://www.google.com/maps"

// Resolver turns user-supplied, possibly shortened map links into canonical
// URLs and extracts coordinates from the one link shape it understands.
type Resolver struct {
	client   *http.Client
	fallback string
	logger   *slog.Logger
}

func NewResolver(timeout time.Duration, fallback string, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if fallback == "" {
		fallback = FallbackMapURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	// The default client follows up to 10 redirects, which is exactly the
	// behavior we want for expanding shortened share links.
	return &Resolver{
		client:   &http.Client{Timeout: timeout},
		fallback: fallback,
		logger:   logger,
	}
}

// Resolve follows redirects from rawLink via a HEAD request and returns the
// final URL when its textual form contains "maps". Any other outcome yields
// the fallback URL; a transport failure additionally reports a non-nil error
// so callers that care can distinguish the two.
func (r *Resolver) Resolve(ctx context.Context, rawLink string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawLink, nil)
	if err != nil {
		observability.ResolverFallbacks.Inc()
		return r.fallback, fmt.Errorf("resolve link: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		observability.ResolverFallbacks.Inc()
		r.logger.Warn("link resolution failed", "link", rawLink, "error", err)
		return r.fallback, fmt.Errorf("resolve link: %w", err)
	}
	resp.Body.Close()
	final := resp.Request.URL.String()
	if strings.Contains(final, "maps") {
		return final, nil
	}
	observability.ResolverFallbacks.Inc()
	return r.fallback, nil
}

// ExtractCoordinates pulls a decimal latitude/longitude pair out of a map
// search link. It never panics; any unsupported shape reports ok=false.
//
// The longitude handling mirrors a quirk of one specific link encoding: when
// the longitude text contains a "-", the value is taken from between the
// first and second "+" instead. The heuristic is fragile but preserved
// exactly, because callers depend on its behavior for shared links.
func ExtractCoordinates(link string) (lat, lon float64, ok bool) {
	pieces := strings.Split(link, "search/")
	if len(pieces) < 2 {
		return 0, 0, false
	}
	part := pieces[1]
	comma := strings.Split(part, ",")
	if len(comma) < 2 {
		return 0, 0, false
	}
	latText := comma[0]
	lonText := strings.Split(comma[1], "?")[0]
	if strings.Contains(lonText, "-") {
		plus := strings.Split(lonText, "+")
		if len(plus) < 2 {
			return 0, 0, false
		}
		lonText = plus[1]
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(lonText, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// FormatCoordinates renders a pair the way the map screens display it.
func FormatCoordinates(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'g', -1, 64) + ", " + strconv.FormatFloat(lon, 'g', -1, 64)
}

// Session holds the last successfully extracted coordinate pair for one
// active map view. Each login session gets its own slot, so an employee-side
// view and a driver-side view never see each other's state.
type Session struct {
	mu  sync.Mutex
	gps string
	has bool
}

func NewSession() *Session { return &Session{} }

// Generate parses link and, on success, remembers the formatted pair so a
// later copy action can re-emit it without re-parsing. On failure the slot is
// left unchanged and the previously shown value stays valid.
func (s *Session) Generate(link string) (string, bool) {
	lat, lon, ok := ExtractCoordinates(link)
	if !ok {
		return "", false
	}
	formatted := FormatCoordinates(lat, lon)
	s.mu.Lock()
	s.gps = formatted
	s.has = true
	s.mu.Unlock()
	return formatted, true
}

// Coordinates returns the last generated pair, if any.
func (s *Session) Coordinates() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gps, s.has
}
