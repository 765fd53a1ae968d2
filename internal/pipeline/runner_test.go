package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chorus/internal/cache"
	"chorus/internal/media/demucs"
	"chorus/internal/media/ffmpeg"
	"chorus/internal/media/lrclib"
	"chorus/internal/metadata"
	"chorus/internal/services"
	"chorus/internal/testsupport"
)

type fakeFetcher struct {
	calls      int
	err        error
	title      string
	titleCalls int
}

func (f *fakeFetcher) Title(ctx context.Context, url string) (string, error) {
	f.titleCalls++
	if f.title == "" {
		return "", errors.New("title unavailable")
	}
	return f.title, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destDir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(destDir, "audio.wav")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte("downloaded audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeSeparator struct {
	calls int
	err   error
}

func (f *fakeSeparator) Separate(ctx context.Context, audioPath, outDir string) (demucs.Stems, error) {
	f.calls++
	if f.err != nil {
		return demucs.Stems{}, f.err
	}
	stems := demucs.Stems{
		Vocals:       filepath.Join(outDir, "vocals.wav"),
		Instrumental: filepath.Join(outDir, "no_vocals.wav"),
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return demucs.Stems{}, err
	}
	for _, p := range []string{stems.Vocals, stems.Instrumental} {
		if err := os.WriteFile(p, []byte("stem "+filepath.Base(p)), 0o644); err != nil {
			return demucs.Stems{}, err
		}
	}
	return stems, nil
}

type fakeFinder struct {
	calls int
	err   error
}

func (f *fakeFinder) FindSynced(ctx context.Context, artist, title string) (lrclib.Result, error) {
	f.calls++
	if f.err != nil {
		return lrclib.Result{}, f.err
	}
	return lrclib.Result{
		Artist: artist,
		Title:  title,
		Synced: "[00:01.00]hello world\n[00:03.00]goodbye",
	}, nil
}

type fakeRenderer struct {
	calls int
	err   error
}

type fakeProber struct {
	calls  int
	err    error
	result ffmpeg.ProbeResult
}

func (f *fakeProber) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	f.calls++
	if f.err != nil {
		return ffmpeg.ProbeResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeRenderer) Render(ctx context.Context, spec ffmpeg.RenderSpec) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(spec.OutputPath, []byte("video of "+spec.AudioPath), 0o644)
}

type fixture struct {
	runner    *Runner
	store     *cache.Store
	fetcher   *fakeFetcher
	separator *fakeSeparator
	finder    *fakeFinder
	renderer  *fakeRenderer
	prober    *fakeProber
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.NewCacheStore(t, cfg)
	runs := testsupport.MustOpenRunStore(t, cfg)

	fx := &fixture{
		store:     store,
		fetcher:   &fakeFetcher{},
		separator: &fakeSeparator{},
		finder:    &fakeFinder{},
		renderer:  &fakeRenderer{},
		prober: &fakeProber{result: ffmpeg.ProbeResult{
			Streams: []ffmpeg.Stream{{CodecType: "audio", Channels: 2}},
			Format:  ffmpeg.Format{Duration: "212.5"},
		}},
	}
	fx.runner = NewRunner(cfg, store, runs, nil, fx.fetcher, fx.separator, fx.finder, fx.renderer, fx.prober)
	return fx
}

func localSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cohen - Hallelujah.wav")
	if err := os.WriteFile(path, []byte("local audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunProducesVideoFromLocalSource(t *testing.T) {
	fx := newFixture(t)
	source := localSource(t)

	result, err := fx.runner.Run(context.Background(), Job{Source: source})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Track.Artist != "Cohen" || result.Track.Title != "Hallelujah" {
		t.Errorf("unexpected track %+v", result.Track)
	}
	if fx.fetcher.calls != 0 {
		t.Errorf("local source must not hit the fetcher, got %d calls", fx.fetcher.calls)
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Errorf("expected published output: %v", err)
	}
	if filepath.Base(result.OutputPath) != "Cohen - Hallelujah (karaoke).mp4" {
		t.Errorf("unexpected output name %q", filepath.Base(result.OutputPath))
	}
	if len(result.CacheHits) != 0 {
		t.Errorf("first run must not hit the cache, got %v", result.CacheHits)
	}
}

func TestRunFetchesRemoteSource(t *testing.T) {
	fx := newFixture(t)

	result, err := fx.runner.Run(context.Background(), Job{
		Source: "https://example.com/watch?v=abc",
		Track:  metadata.Track{Artist: "Cohen", Title: "Hallelujah"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if fx.fetcher.calls != 1 {
		t.Errorf("expected one fetch call, got %d", fx.fetcher.calls)
	}
	if result.Track.Artist != "Cohen" {
		t.Errorf("explicit track metadata must win, got %+v", result.Track)
	}
	if fx.fetcher.titleCalls != 0 {
		t.Errorf("explicit metadata must skip the title lookup, got %d calls", fx.fetcher.titleCalls)
	}
}

func TestRemoteTitleNamesTrack(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.title = "Leonard Cohen - Hallelujah"

	result, err := fx.runner.Run(context.Background(), Job{Source: "https://example.com/watch?v=abc"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if fx.fetcher.titleCalls != 1 {
		t.Errorf("expected one title lookup, got %d", fx.fetcher.titleCalls)
	}
	want := metadata.Track{Artist: "Leonard Cohen", Title: "Hallelujah"}
	if result.Track != want {
		t.Errorf("track = %+v, want %+v", result.Track, want)
	}
}

func TestUnusableAudioFailsFetchStage(t *testing.T) {
	fx := newFixture(t)
	fx.prober.result = ffmpeg.ProbeResult{Format: ffmpeg.Format{Duration: "0"}}

	_, err := fx.runner.Run(context.Background(), Job{Source: localSource(t)})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if fx.prober.calls != 1 {
		t.Errorf("expected one probe, got %d", fx.prober.calls)
	}
	if fx.separator.calls != 0 {
		t.Errorf("separation must not run on unusable audio, got %d calls", fx.separator.calls)
	}
}

func TestCacheRecordsDescribeInputs(t *testing.T) {
	fx := newFixture(t)
	source := localSource(t)

	if _, err := fx.runner.Run(context.Background(), Job{Source: source}); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, category := range cache.Categories() {
		entries, err := fx.store.List(category)
		if err != nil {
			t.Fatalf("list %s: %v", category, err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected one %s entry, got %d", category, len(entries))
		}
		if entries[0].Inputs == "" {
			t.Errorf("%s record has no inputs description", category)
		}
	}
	audio, err := fx.store.List(cache.CategoryAudio)
	if err != nil {
		t.Fatal(err)
	}
	if audio[0].Inputs != source {
		t.Errorf("audio inputs = %q, want the source path %q", audio[0].Inputs, source)
	}
}

func TestRunTreatsMissingFileAsSearchQuery(t *testing.T) {
	fx := newFixture(t)

	result, err := fx.runner.Run(context.Background(), Job{Source: "Cohen - Hallelujah"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if fx.fetcher.calls != 1 {
		t.Errorf("expected the query to go through the fetcher, got %d calls", fx.fetcher.calls)
	}
	if result.Track.Artist != "Cohen" || result.Track.Title != "Hallelujah" {
		t.Errorf("expected track inferred from query, got %+v", result.Track)
	}
}

func TestSecondRunServedEntirelyFromCache(t *testing.T) {
	fx := newFixture(t)
	source := localSource(t)

	if _, err := fx.runner.Run(context.Background(), Job{Source: source}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := fx.runner.Run(context.Background(), Job{Source: source})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if fx.separator.calls != 1 || fx.finder.calls != 1 || fx.renderer.calls != 1 {
		t.Errorf("expected all collaborators called once, got separate=%d lyrics=%d render=%d",
			fx.separator.calls, fx.finder.calls, fx.renderer.calls)
	}
	if len(result.CacheHits) != 5 {
		t.Errorf("expected 5 cache hits, got %v", result.CacheHits)
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Errorf("expected republished output: %v", err)
	}
}

func TestFailureHaltsRunAndKeepsEarlierCacheEntries(t *testing.T) {
	fx := newFixture(t)
	fx.finder.err = services.Wrap(services.ErrNotFound, "fetch-lyrics", "lookup", "no lyrics", nil)
	source := localSource(t)

	_, err := fx.runner.Run(context.Background(), Job{Source: source})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if fx.renderer.calls != 0 {
		t.Errorf("stages after the failure must not run, renderer called %d times", fx.renderer.calls)
	}

	// Earlier stages stay cached: a retry after the failure is fixed reuses
	// the audio and stems without re-executing them.
	fx.finder.err = nil
	result, err := fx.runner.Run(context.Background(), Job{Source: source})
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if fx.separator.calls != 1 {
		t.Errorf("expected stems served from cache on retry, got %d calls", fx.separator.calls)
	}
	if fx.finder.calls != 2 {
		t.Errorf("expected lyrics re-fetched on retry, got %d calls", fx.finder.calls)
	}
	hits := map[string]bool{}
	for _, h := range result.CacheHits {
		hits[h] = true
	}
	if !hits["fetch-audio"] || !hits["separate-stems"] {
		t.Errorf("expected audio and stems cache hits on retry, got %v", result.CacheHits)
	}
}

func TestEmptyTranscriptHaltsCaptionStage(t *testing.T) {
	fx := newFixture(t)
	source := localSource(t)

	// Metadata-only lyrics produce no timed lines.
	orig := fx.finder
	fx.runner.finder = findSyncedFunc(func(ctx context.Context, artist, title string) (lrclib.Result, error) {
		orig.calls++
		return lrclib.Result{Synced: "[ti:Song]\n[ar:Somebody]"}, nil
	})

	_, err := fx.runner.Run(context.Background(), Job{Source: source})
	if !errors.Is(err, services.ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	if fx.renderer.calls != 0 {
		t.Errorf("render must not run after caption failure, got %d calls", fx.renderer.calls)
	}
}

type findSyncedFunc func(ctx context.Context, artist, title string) (lrclib.Result, error)

func (f findSyncedFunc) FindSynced(ctx context.Context, artist, title string) (lrclib.Result, error) {
	return f(ctx, artist, title)
}

func TestFullMixRendersTwoVideos(t *testing.T) {
	fx := newFixture(t)
	source := localSource(t)

	result, err := fx.runner.Run(context.Background(), Job{Source: source, FullMix: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if fx.renderer.calls != 2 {
		t.Errorf("expected two renders for full mix, got %d", fx.renderer.calls)
	}
	if result.FullMixOutput == "" {
		t.Fatal("expected full mix output path")
	}
	if _, err := os.Stat(result.FullMixOutput); err != nil {
		t.Errorf("expected published full mix: %v", err)
	}
}

func TestStreamEmitsStageEventsAndTerminal(t *testing.T) {
	fx := newFixture(t)
	source := localSource(t)

	var events []Event
	for ev := range fx.runner.Stream(context.Background(), Job{Source: source}) {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("expected events")
	}
	terminal := events[len(events)-1]
	if terminal.Stage != TerminalStage || terminal.Phase != PhaseCompleted {
		t.Fatalf("unexpected terminal event %+v", terminal)
	}

	stageOrder := []string{"fetch-audio", "separate-stems", "fetch-lyrics", "build-captions", "render-video"}
	var started []string
	for _, ev := range events {
		if ev.Phase == PhaseStarted {
			started = append(started, ev.Stage)
		}
	}
	if len(started) != len(stageOrder) {
		t.Fatalf("expected %d started events, got %v", len(stageOrder), started)
	}
	for i, name := range stageOrder {
		if started[i] != name {
			t.Errorf("stage %d: expected %s, got %s", i, name, started[i])
		}
	}
}

func TestStreamReportsFailure(t *testing.T) {
	fx := newFixture(t)
	fx.separator.err = services.Wrap(services.ErrExternalTool, "separate-stems", "separate", "boom", nil)
	source := localSource(t)

	var terminal Event
	for ev := range fx.runner.Stream(context.Background(), Job{Source: source}) {
		terminal = ev
	}
	if terminal.Stage != TerminalStage || terminal.Phase != PhaseFailed {
		t.Fatalf("unexpected terminal event %+v", terminal)
	}
	if !errors.Is(terminal.Err, services.ErrExternalTool) {
		t.Errorf("expected wrapped tool error, got %v", terminal.Err)
	}
}

func TestDisabledCacheAlwaysReexecutes(t *testing.T) {
	fx := newFixture(t, testsupport.WithCacheDisabled())
	source := localSource(t)

	for i := 0; i < 2; i++ {
		if _, err := fx.runner.Run(context.Background(), Job{Source: source}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if fx.separator.calls != 2 || fx.renderer.calls != 2 {
		t.Errorf("disabled cache must re-execute stages, got separate=%d render=%d",
			fx.separator.calls, fx.renderer.calls)
	}
}

func TestRunHistoryRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewCacheStore(t, cfg)
	runs := testsupport.MustOpenRunStore(t, cfg)
	fx := &fixture{fetcher: &fakeFetcher{}, separator: &fakeSeparator{}, finder: &fakeFinder{}, renderer: &fakeRenderer{},
		prober: &fakeProber{result: ffmpeg.ProbeResult{
			Streams: []ffmpeg.Stream{{CodecType: "audio", Channels: 2}},
			Format:  ffmpeg.Format{Duration: "212.5"},
		}}}
	fx.runner = NewRunner(cfg, store, runs, nil, fx.fetcher, fx.separator, fx.finder, fx.renderer, fx.prober)

	result, err := fx.runner.Run(context.Background(), Job{Source: localSource(t)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	recorded, err := runs.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if recorded.Status != "completed" || recorded.OutputPath != result.OutputPath {
		t.Errorf("unexpected run record %+v", recorded)
	}
}
