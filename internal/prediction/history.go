package prediction

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/TPP-insulA/insula-bot/internal/domain"
)

// PageSize is the number of predictions per history page
const PageSize = 5

// DefaultTimezone is the zone history dates are matched and shown in
const DefaultTimezone = "America/Argentina/Buenos_Aires"

var (
	locMu           sync.RWMutex
	displayLocation = mustLoadLocation(DefaultTimezone)
)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// SetDisplayTimezone changes the zone used for date filtering and display
func SetDisplayTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	locMu.Lock()
	displayLocation = loc
	locMu.Unlock()
	return nil
}

// DisplayLocation returns the zone used for date filtering and display
func DisplayLocation() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return displayLocation
}

// Operator compares a numeric field against a filter value
type Operator string

const (
	OpEqual   Operator = "="
	OpGreater Operator = ">"
	OpLess    Operator = "<"
)

// NumericFilter is inactive while Value is empty or unparseable
type NumericFilter struct {
	Op    Operator `json:"op"`
	Value string   `json:"value"`
}

// ParseNumericFilter reads filters such as ">100", "<4.5" or "=120".
// A bare number means equality.
func ParseNumericFilter(s string) (NumericFilter, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NumericFilter{}, false
	}
	op := OpEqual
	switch Operator(s[:1]) {
	case OpEqual, OpGreater, OpLess:
		op = Operator(s[:1])
		s = strings.TrimSpace(s[1:])
	}
	if _, ok := parseFilterValue(s); !ok {
		return NumericFilter{}, false
	}
	return NumericFilter{Op: op, Value: s}, true
}

func parseFilterValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Active reports whether the filter constrains anything
func (f NumericFilter) Active() bool {
	_, ok := parseFilterValue(f.Value)
	return ok
}

// Match compares v against the filter; inactive filters match everything
func (f NumericFilter) Match(v float64) bool {
	target, ok := parseFilterValue(f.Value)
	if !ok {
		return true
	}
	switch f.Op {
	case OpGreater:
		return v > target
	case OpLess:
		return v < target
	default:
		return math.Abs(v-target) < 1e-9
	}
}

// Filters narrows the history list
type Filters struct {
	// Date is matched as a substring of the dd/MM rendering of the
	// prediction date in the display zone
	Date string        `json:"date,omitempty"`
	CGM  NumericFilter `json:"cgm"`
	Dose NumericFilter `json:"dose"`
}

// Empty reports whether no filter is set
func (f Filters) Empty() bool {
	return strings.TrimSpace(f.Date) == "" && !f.CGM.Active() && !f.Dose.Active()
}

// Match applies every active filter to one prediction
func (f Filters) Match(r domain.InsulinPredictionResult, loc *time.Location) bool {
	if d := strings.TrimSpace(f.Date); d != "" {
		if !strings.Contains(r.Date.In(loc).Format("02/01"), d) {
			return false
		}
	}
	if f.CGM.Active() {
		first, ok := r.FirstCGM()
		if !ok || !f.CGM.Match(float64(first)) {
			return false
		}
	}
	if f.Dose.Active() && !f.Dose.Match(r.RecommendedDose) {
		return false
	}
	return true
}

// SortKey selects the history ordering
type SortKey string

const (
	SortByDate SortKey = "date"
	SortByCGM  SortKey = "cgm"
	SortByDose SortKey = "dose"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterPredictions keeps the predictions matching filters, in input order
func FilterPredictions(items []domain.InsulinPredictionResult, filters Filters, loc *time.Location) []domain.InsulinPredictionResult {
	out := make([]domain.InsulinPredictionResult, 0, len(items))
	for _, r := range items {
		if filters.Match(r, loc) {
			out = append(out, r)
		}
	}
	return out
}

// SortPredictions returns a sorted copy; ties keep their input order
func SortPredictions(items []domain.InsulinPredictionResult, key SortKey, dir SortDirection) []domain.InsulinPredictionResult {
	out := append([]domain.InsulinPredictionResult(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortValue(out[i], key), sortValue(out[j], key)
		if dir == SortAsc {
			return a < b
		}
		return a > b
	})
	return out
}

func sortValue(r domain.InsulinPredictionResult, key SortKey) float64 {
	switch key {
	case SortByCGM:
		v, _ := r.FirstCGM()
		return float64(v)
	case SortByDose:
		return r.RecommendedDose
	default:
		return float64(r.Date.UnixNano())
	}
}

// TotalPages is the number of pages needed for n items
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate returns page (1-based) of items
func Paginate(items []domain.InsulinPredictionResult, page, size int) []domain.InsulinPredictionResult {
	if page < 1 || size <= 0 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// HistoryView is the in-memory history list with its current filters,
// ordering and page. The visible page is recomputed from scratch on every
// read.
type HistoryView struct {
	Items   []domain.InsulinPredictionResult `json:"items"`
	Filters Filters                          `json:"filters"`
	SortKey SortKey                          `json:"sortKey"`
	SortDir SortDirection                    `json:"sortDir"`
	Page    int                              `json:"page"`
}

// NewHistoryView starts on page 1, newest first
func NewHistoryView(items []domain.InsulinPredictionResult) *HistoryView {
	return &HistoryView{
		Items:   items,
		SortKey: SortByDate,
		SortDir: SortDesc,
		Page:    1,
	}
}

// SetFilters replaces the filters and returns to page 1
func (v *HistoryView) SetFilters(f Filters) {
	v.Filters = f
	v.Page = 1
}

// SetSort changes key and direction and returns to page 1
func (v *HistoryView) SetSort(key SortKey, dir SortDirection) {
	v.SortKey = key
	v.SortDir = dir
	v.Page = 1
}

// ToggleDirection flips the sort direction and returns to page 1
func (v *HistoryView) ToggleDirection() {
	if v.SortDir == SortAsc {
		v.SetSort(v.SortKey, SortDesc)
	} else {
		v.SetSort(v.SortKey, SortAsc)
	}
}

// Filtered runs filter then sort over every item
func (v *HistoryView) Filtered() []domain.InsulinPredictionResult {
	return SortPredictions(FilterPredictions(v.Items, v.Filters, DisplayLocation()), v.SortKey, v.SortDir)
}

// Pages is the page count of the filtered list
func (v *HistoryView) Pages() int {
	return TotalPages(len(v.Filtered()), PageSize)
}

// Visible is the current page of the filtered, sorted list
func (v *HistoryView) Visible() []domain.InsulinPredictionResult {
	return Paginate(v.Filtered(), v.clampedPage(), PageSize)
}

// CurrentPage is Page clamped to the pages that exist
func (v *HistoryView) CurrentPage() int {
	return v.clampedPage()
}

func (v *HistoryView) clampedPage() int {
	pages := v.Pages()
	switch {
	case pages == 0 || v.Page < 1:
		return 1
	case v.Page > pages:
		return pages
	default:
		return v.Page
	}
}

// NextPage advances unless on the last page
func (v *HistoryView) NextPage() bool {
	if v.clampedPage() >= v.Pages() {
		return false
	}
	v.Page = v.clampedPage() + 1
	return true
}

// PrevPage goes back unless on the first page
func (v *HistoryView) PrevPage() bool {
	if v.clampedPage() <= 1 {
		return false
	}
	v.Page = v.clampedPage() - 1
	return true
}

// IsVisible reports whether id is a row of the current page; only those
// rows offer a delete action
func (v *HistoryView) IsVisible(id string) bool {
	for _, r := range v.Visible() {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Find returns the prediction with id
func (v *HistoryView) Find(id string) (domain.InsulinPredictionResult, bool) {
	for _, r := range v.Items {
		if r.ID == id {
			return r, true
		}
	}
	return domain.InsulinPredictionResult{}, false
}

// Replace swaps in an updated copy of a prediction
func (v *HistoryView) Replace(r domain.InsulinPredictionResult) bool {
	for i := range v.Items {
		if v.Items[i].ID == r.ID {
			v.Items[i] = r
			return true
		}
	}
	return false
}

// Remove drops exactly the prediction with id. Call only after the backend
// confirmed the deletion.
func (v *HistoryView) Remove(id string) bool {
	for i := range v.Items {
		if v.Items[i].ID == id {
			v.Items = append(v.Items[:i:i], v.Items[i+1:]...)
			v.Page = v.clampedPage()
			return true
		}
	}
	return false
}
