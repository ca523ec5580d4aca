package aggregate

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/domain"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

func TestExtend_MergesAcrossEngines(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "ddg", link("http://example.com/page", "Page"))
	mustExtend(t, c, "bing",
		link("https://other.org/1", "One"),
		link("https://other.org/2", "Two"),
		link("https://example.com/page", "Page"),
	)
	mustExtend(t, c, "brave",
		link("https://other.org/3", "Three"),
		link("http://www.example.com/page/", "Page"),
	)

	var found []*result.Result
	for _, r := range c.OrderedResults() {
		if strings.Contains(r.URL, "example.com/page") {
			found = append(found, r)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one merged result, got %d", len(found))
	}
	r := found[0]

	wantPos := []int{1, 3, 2}
	if fmt.Sprint(r.Positions) != fmt.Sprint(wantPos) {
		t.Errorf("Positions = %v, want %v", r.Positions, wantPos)
	}
	if r.ParsedURL.Scheme != "https" || r.URL != "https://example.com/page" {
		t.Errorf("URL = %q, want the https variant", r.URL)
	}
	for _, e := range []string{"ddg", "bing", "brave"} {
		if !r.Engines.Has(e) {
			t.Errorf("Engines = %v, missing %s", r.Engines.Sorted(), e)
		}
	}
	if len(r.Engines) != len(r.Positions) {
		t.Errorf("engines %d != positions %d", len(r.Engines), len(r.Positions))
	}
}

func TestExtend_MergesSchemelessURL(t *testing.T) {
	var hosts []string
	byHost := func(e result.Entry) bool {
		if r, ok := e.(*result.Result); ok {
			hosts = append(hosts, r.ParsedURL.Hostname())
			return r.ParsedURL.Hostname() != "blocked.com"
		}
		return true
	}
	c := New(testRegistry(), byHost, newRecordingTelemetry(), zap.NewNop())

	mustExtend(t, c, "ddg", result.Legacy{"url": "example.com/page", "title": "Page"})
	mustExtend(t, c, "bing",
		link("http://example.com/page", "Page"),
		result.Legacy{"url": "blocked.com/page", "title": "Blocked"},
	)

	got := c.OrderedResults()
	if len(got) != 1 {
		t.Fatalf("expected one merged result, got %d: %v", len(got), titles(got))
	}
	r := got[0]
	if r.URL != "http://example.com/page" || r.ParsedURL.Host != "example.com" {
		t.Errorf("URL = %q host %q", r.URL, r.ParsedURL.Host)
	}
	if !r.Engines.Has("ddg") || !r.Engines.Has("bing") {
		t.Errorf("Engines = %v, want ddg and bing", r.Engines.Sorted())
	}
	if fmt.Sprint(hosts) != "[example.com example.com blocked.com]" {
		t.Errorf("filter saw hosts %v", hosts)
	}
}

func TestExtend_ImagesWithDifferentSourceStaySeparate(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "flickr", &result.Result{
		URL: "https://photos.example.com/p/1", Template: result.TemplateImages, ImgSrc: "https://cdn/a.jpg",
	})
	mustExtend(t, c, "bing", &result.Result{
		URL: "https://photos.example.com/p/1", Template: result.TemplateImages, ImgSrc: "https://cdn/b.jpg",
	})
	mustExtend(t, c, "ddg", &result.Result{
		URL: "https://photos.example.com/p/1", Template: result.TemplateImages, ImgSrc: "https://cdn/a.jpg",
	})

	got := c.OrderedResults()
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
}

func TestExtend_NonImageIgnoresImageSource(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "ddg", &result.Result{URL: "https://example.com", ImgSrc: "a.png"})
	mustExtend(t, c, "bing", &result.Result{URL: "https://example.com", ImgSrc: "b.png"})

	if n := len(c.OrderedResults()); n != 1 {
		t.Fatalf("expected 1 result, got %d", n)
	}
}

func TestExtend_DifferentTemplatesStaySeparate(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "ddg", &result.Result{URL: "https://example.com/v"})
	mustExtend(t, c, "bing", &result.Result{URL: "https://example.com/v", Template: "videos"})

	if n := len(c.OrderedResults()); n != 2 {
		t.Fatalf("expected 2 results, got %d", n)
	}
}

func TestExtend_MergePrefersRicherFields(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "ddg", &result.Result{
		URL: "https://example.com", Title: "Ex", Content: "short",
	})
	mustExtend(t, c, "bing", &result.Result{
		URL:       "https://example.com",
		Title:     "Example Domain",
		Content:   "a considerably longer snippet",
		Thumbnail: "thumb.png",
		Author:    "IANA",
		Extra:     map[string]any{"seed": 3},
	})

	r := c.OrderedResults()[0]
	if r.Title != "Example Domain" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Content != "a considerably longer snippet" {
		t.Errorf("Content = %q", r.Content)
	}
	if r.Thumbnail != "thumb.png" || r.Author != "IANA" || r.Extra["seed"] != 3 {
		t.Errorf("missing fields not copied: %+v", r)
	}
}

func TestExtend_ValidationErrorsAreCoalesced(t *testing.T) {
	c, tel := newTestContainer(t)

	mustExtend(t, c, "ddg",
		result.Legacy{"url": 1.0},
		result.Legacy{"url": []any{}},
		result.Legacy{"url": "https://example.com", "title": 5.0},
		result.Legacy{"url": "http://[::1"},
		result.Legacy{"url": "https://example.com/ok", "title": "ok"},
	)

	// url: [] is falsy, so it becomes a no-url result instead of an error
	errs := tel.errors["ddg"]
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2 distinct messages", errs)
	}
	for _, msg := range errs {
		if !strings.HasPrefix(msg, "some results are invalids: ") {
			t.Errorf("unexpected message %q", msg)
		}
	}
	if got := tel.counts["ddg"]; len(got) != 1 || got[0] != 2 {
		t.Errorf("counts = %v, want [2]", got)
	}
}

func TestExtend_PositionsCountNoURLResults(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "ddg",
		&result.Result{Title: "no url"},
		link("https://example.com", "Example"),
	)

	for _, r := range c.OrderedResults() {
		if r.URL == "https://example.com" && r.Positions[0] != 2 {
			t.Errorf("Positions = %v, want [2]", r.Positions)
		}
	}
}

func TestExtend_Routing(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "ddg",
		result.Answer{Text: "42"},
		result.Legacy{"answer": "42"},
		result.Legacy{"suggestion": "golang"},
		result.Suggestion{Text: "golang"},
		result.Legacy{"correction": "go lang"},
		result.Legacy{"number_of_results": 1000.0},
		result.Legacy{"engine_data": "token-2", "key": "next"},
		result.Legacy{"infobox": "Go", "id": "https://en.wikipedia.org/wiki/Go"},
	)
	c.Close()

	if a := c.Answers(); len(a) != 1 || a[0].Engine != "ddg" {
		t.Errorf("Answers = %+v", a)
	}
	if s := c.Suggestions(); len(s) != 1 || s[0] != "golang" {
		t.Errorf("Suggestions = %v", s)
	}
	if cr := c.Corrections(); len(cr) != 1 {
		t.Errorf("Corrections = %v", cr)
	}
	if n := c.NumberOfResults(); n != 1000 {
		t.Errorf("NumberOfResults = %d", n)
	}
	if d := c.EngineData(); d["ddg"]["next"] != "token-2" {
		t.Errorf("EngineData = %v", d)
	}
	if ib := c.Infoboxes(); len(ib) != 1 {
		t.Errorf("Infoboxes = %v", ib)
	}
	if n := c.ResultsLength(); n != 0 {
		t.Errorf("ResultsLength = %d, want 0", n)
	}
}

func TestExtend_FilterRejects(t *testing.T) {
	reject := func(e result.Entry) bool {
		if r, ok := e.(*result.Result); ok {
			return !strings.Contains(r.URL, "blocked")
		}
		return e.Kind() != result.KindSuggestion
	}
	c := New(testRegistry(), reject, newRecordingTelemetry(), zap.NewNop())

	mustExtend(t, c, "ddg",
		link("https://blocked.example.com", "Blocked"),
		link("https://fine.example.com", "Fine"),
		result.Suggestion{Text: "dropped"},
	)

	got := c.OrderedResults()
	if len(got) != 1 || got[0].URL != "https://fine.example.com" {
		t.Fatalf("results = %v", titles(got))
	}
	if got[0].Positions[0] != 1 {
		t.Errorf("rejected entries must not consume positions, got %v", got[0].Positions)
	}
	if len(c.Suggestions()) != 0 {
		t.Error("rejected suggestion was kept")
	}
}

type bogusEntry struct{}

func (bogusEntry) Kind() result.Kind { return result.Kind(99) }

func TestExtend_UnsupportedKind(t *testing.T) {
	c, _ := newTestContainer(t)

	err := c.Extend("ddg", []result.Entry{link("https://example.com", "x"), bogusEntry{}})
	if !errors.Is(err, domain.ErrUnsupportedResult) {
		t.Fatalf("expected ErrUnsupportedResult, got %v", err)
	}
	if n := c.ResultsLength(); n != 0 {
		t.Errorf("batch must not be applied, got %d results", n)
	}
}

func TestExtend_AfterCloseIsIgnored(t *testing.T) {
	c, _ := newTestContainer(t)
	c.Close()

	if err := c.Extend("ddg", []result.Entry{link("https://example.com", "x")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := c.ResultsLength(); n != 0 {
		t.Errorf("ResultsLength = %d, want 0", n)
	}
}

func TestExtend_Paging(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "bing", link("https://example.com/b", "b"))
	if c.Paging() {
		t.Fatal("bing does not page")
	}
	mustExtend(t, c, "ddg")
	if c.Paging() {
		t.Fatal("empty batch must not enable paging")
	}
	mustExtend(t, c, "ddg", link("https://example.com/d", "d"))
	if !c.Paging() {
		t.Fatal("expected paging after ddg contributed results")
	}
}

func TestExtend_InfoboxMerging(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "wikidata", &result.Infobox{
		Name: "Go", ID: "https://www.wikidata.org/wiki/Q37227", Content: "language",
	})
	mustExtend(t, c, "wikipedia", &result.Infobox{
		Name: "Go", ID: "http://wikidata.org/wiki/Q37227/", Content: "Go is a programming language",
	})
	mustExtend(t, c, "ddg", &result.Infobox{Name: "No ID"}, &result.Infobox{Name: "No ID either"})

	got := c.Infoboxes()
	if len(got) != 3 {
		t.Fatalf("Infoboxes = %d, want 3", len(got))
	}
	merged := got[0]
	if merged.Engine != "wikipedia" {
		t.Errorf("Engine = %q, want heavier wikipedia", merged.Engine)
	}
	if !merged.Engines.Has("wikidata") || !merged.Engines.Has("wikipedia") {
		t.Errorf("Engines = %v", merged.Engines.Sorted())
	}
	if merged.Content != "Go is a programming language" {
		t.Errorf("Content = %q", merged.Content)
	}
}

func TestClose_ScoresSortsAndCleans(t *testing.T) {
	c, tel := newTestContainer(t)

	mustExtend(t, c, "ddg",
		&result.Result{URL: "https://a.example.com", Title: "  A \n  title  ", Content: "  body  "},
		link("https://b.example.com", "B"),
	)
	mustExtend(t, c, "bing", link("https://b.example.com", "B"))

	got := c.OrderedResults()
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	// b: weight 2 (two positions) * (1/2 + 1/1) = 3; a: 1
	if got[0].URL != "https://b.example.com" || got[0].Score != 3 {
		t.Errorf("first = %s (%f), want b with score 3", got[0].URL, got[0].Score)
	}
	if got[1].Title != "A title" || got[1].Content != "body" {
		t.Errorf("not cleaned: title %q content %q", got[1].Title, got[1].Content)
	}
	if got[0].Category != "general" {
		t.Errorf("Category = %q", got[0].Category)
	}
	if len(tel.scores["bing"]) != 1 || len(tel.scores["ddg"]) != 2 {
		t.Errorf("scores = %v", tel.scores)
	}
}

func TestClose_StableForTies(t *testing.T) {
	c, _ := newTestContainer(t)

	mustExtend(t, c, "ddg", link("https://one.example.com", "one"))
	mustExtend(t, c, "bing", link("https://two.example.com", "two"))
	mustExtend(t, c, "brave", link("https://three.example.com", "three"))

	assertOrder(t, c.OrderedResults(), []string{"one", "two", "three"})
}

func TestClose_Idempotent(t *testing.T) {
	c, tel := newTestContainer(t)
	mustExtend(t, c, "ddg", link("https://a.example.com", "a"), link("https://b.example.com", "b"))

	c.Close()
	first := titles(c.OrderedResults())
	c.Close()
	second := titles(c.OrderedResults())

	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("second close changed results: %v vs %v", first, second)
	}
	if len(tel.scores["ddg"]) != 2 {
		t.Errorf("scores recorded %d times, want 2", len(tel.scores["ddg"]))
	}
}

func TestOrderedResults_ReturnsCopy(t *testing.T) {
	c, _ := newTestContainer(t)
	mustExtend(t, c, "ddg", link("https://a.example.com", "a"))

	got := c.OrderedResults()
	got[0] = nil
	if c.OrderedResults()[0] == nil {
		t.Error("mutating the returned slice changed the container")
	}
}

func TestNumberOfResults(t *testing.T) {
	t.Run("before close", func(t *testing.T) {
		c, _ := newTestContainer(t)
		mustExtend(t, c, "ddg", result.ResultCount{Count: 100})
		if n := c.NumberOfResults(); n != 0 {
			t.Errorf("NumberOfResults = %d, want 0", n)
		}
	})

	t.Run("none reported", func(t *testing.T) {
		c, _ := newTestContainer(t)
		c.Close()
		if n := c.NumberOfResults(); n != 0 {
			t.Errorf("NumberOfResults = %d, want 0", n)
		}
	})

	t.Run("average", func(t *testing.T) {
		c, _ := newTestContainer(t)
		mustExtend(t, c, "ddg", result.ResultCount{Count: 100})
		mustExtend(t, c, "bing", result.ResultCount{Count: 51})
		c.Close()
		if n := c.NumberOfResults(); n != 75 {
			t.Errorf("NumberOfResults = %d, want 75", n)
		}
	})

	t.Run("below actual results", func(t *testing.T) {
		c, _ := newTestContainer(t)
		mustExtend(t, c, "ddg",
			result.ResultCount{Count: 1},
			link("https://a.example.com", "a"),
			link("https://b.example.com", "b"),
		)
		c.Close()
		if n := c.NumberOfResults(); n != 0 {
			t.Errorf("NumberOfResults = %d, want 0", n)
		}
	})
}

func TestTimings(t *testing.T) {
	c, _ := newTestContainer(t)
	c.AddTiming("ddg", 300*time.Millisecond, 200*time.Millisecond)

	if got := c.Timings(); len(got) != 0 {
		t.Errorf("Timings before close = %v, want empty", got)
	}

	c.Close()
	c.AddTiming("bing", time.Second, time.Second)

	got := c.Timings()
	if len(got) != 1 || got[0].Engine != "ddg" || got[0].Load != 200*time.Millisecond {
		t.Errorf("Timings = %+v", got)
	}
}

func TestAddUnresponsiveEngine(t *testing.T) {
	c, _ := newTestContainer(t)

	c.AddUnresponsiveEngine("ddg", "timeout", false)
	c.AddUnresponsiveEngine("ddg", "timeout", false)
	c.AddUnresponsiveEngine("bing", "http error", true)
	c.AddUnresponsiveEngine("brave", "timeout", false) // does not display errors
	c.AddUnresponsiveEngine("ghost", "timeout", false) // unknown
	c.Close()
	c.AddUnresponsiveEngine("ddg", "unexpected crash", false)

	got := c.UnresponsiveEngines()
	want := []result.UnresponsiveEngine{
		{Engine: "bing", ErrorType: "http error", Suspended: true},
		{Engine: "ddg", ErrorType: "timeout"},
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("UnresponsiveEngines = %+v, want %+v", got, want)
	}
}

func TestRedirectURL(t *testing.T) {
	c, _ := newTestContainer(t)
	c.SetRedirectURL("https://example.com/go")
	c.Close()
	c.SetRedirectURL("https://example.com/late")

	if got := c.RedirectURL(); got != "https://example.com/go" {
		t.Errorf("RedirectURL = %q", got)
	}
}

func TestExtend_Concurrent(t *testing.T) {
	c, _ := newTestContainer(t)

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("engine-%02d", i)
			_ = c.Extend(name, []result.Entry{
				link("https://shared.example.com/", "shared"),
				link(fmt.Sprintf("https://own.example.com/%d", i), "own"),
				&result.Infobox{Name: "Go", ID: "https://wikidata.org/wiki/Q37227"},
			})
			c.AddTiming(name, time.Millisecond, time.Millisecond)
		}(i)
	}
	wg.Wait()
	c.Close()

	got := c.OrderedResults()
	if len(got) != workers+1 {
		t.Fatalf("results = %d, want %d", len(got), workers+1)
	}
	shared := got[0]
	if shared.URL != "https://shared.example.com/" {
		t.Fatalf("top result = %s, want the shared one", shared.URL)
	}
	if len(shared.Positions) != workers || len(shared.Engines) != workers {
		t.Errorf("positions %d engines %d, want %d", len(shared.Positions), len(shared.Engines), workers)
	}
	if n := len(c.Infoboxes()); n != 1 {
		t.Errorf("Infoboxes = %d, want 1", n)
	}
	if n := len(c.Timings()); n != workers {
		t.Errorf("Timings = %d, want %d", n, workers)
	}
}
