package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
	"git.home.luguber.info/inful/sitebuilder/internal/testutil"
)

type stageRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	stages   map[string]metrics.ResultLabel
	outcomes []metrics.ResultLabel
	planned  int
}

func (r *stageRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = map[string]metrics.ResultLabel{}
	}
	r.stages[stage] = result
}

func (r *stageRecorder) IncBuildOutcome(result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, result)
}

func (r *stageRecorder) SetPagesPlanned(n int) { r.planned = n }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func siteFixture(t *testing.T) string {
	t.Helper()
	return testutil.NewSite(t).Standard().
		File("content/plain.md", "# Plain\n").
		File("home.njk", "{{ title }}").
		File("_includes/base.njk", "{{ content }}").
		File("_data/site.json", "{}").
		Root()
}

func outputs(ps []pages.Page) map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.InputPath] = p.OutputPath
	}
	return m
}

func TestBuilder_Build(t *testing.T) {
	root := siteFixture(t)
	writeFile(t, filepath.Join(root, "_site", "stale.txt"), "old")
	rec := &stageRecorder{}
	manifestPath := filepath.Join(root, ".sitebuilder", "manifest.yaml")

	b := New(Options{Root: root, Clean: true, ManifestPath: manifestPath, Recorder: rec})
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	require.False(t, res.Incremental)
	require.NotEmpty(t, res.BuildID)
	require.Equal(t, filepath.Join(root, "_site"), res.OutputDir)
	require.Equal(t, 3, res.Passthrough.Files())

	out := filepath.Join(root, "_site")
	require.NoFileExists(t, filepath.Join(out, "stale.txt"))
	require.Equal(t, "nav()", readFile(t, filepath.Join(out, "modules", "nav.js")))
	require.Equal(t, `<a href="/index.html">home</a>`, readFile(t, filepath.Join(out, "sites", "about.html")))
	require.Equal(t, "misc", readFile(t, filepath.Join(out, "misc", "m.txt")))

	require.Equal(t, map[string]string{
		"content/plain.md": "content/plain/index.html",
		"content/post.md":  "post/index.html",
		"home.njk":         "home/index.html",
		"index.html":       "index.html",
	}, outputs(res.Pages))
	require.Len(t, res.Changes.Added, 4)

	for _, stage := range []string{StageConfigure, StageClean, StagePassthrough, StagePlan, StageManifest} {
		require.Equal(t, metrics.ResultSuccess, rec.stages[stage], stage)
	}
	require.Equal(t, []metrics.ResultLabel{metrics.ResultSuccess}, rec.outcomes)
	require.Equal(t, 4, rec.planned)

	m, err := manifest.Load(manifestPath)
	require.NoError(t, err)
	require.Equal(t, res.BuildID, m.ID)
	require.NotEmpty(t, res.ManifestHash)
	require.Equal(t, res.ManifestHash, m.Hash)
	require.Equal(t, []string{"modules", "misc", "sites", "content"}, m.Registrations.WatchTargets)
	require.Equal(t, []string{"computed"}, m.Registrations.GlobalData)
	require.Len(t, m.Pages, 4)

	require.NotNil(t, b.Registry())
}

func TestBuilder_SecondBuildSeesPreviousManifest(t *testing.T) {
	root := siteFixture(t)
	manifestPath := filepath.Join(root, ".sitebuilder", "manifest.yaml")
	_, err := New(Options{Root: root, ManifestPath: manifestPath}).Build(context.Background())
	require.NoError(t, err)

	same, err := New(Options{Root: root, ManifestPath: manifestPath}).Build(context.Background())
	require.NoError(t, err)
	require.True(t, same.Changes.Empty())

	writeFile(t, filepath.Join(root, "content", "plain.md"), "# Plain, edited\n")
	res, err := New(Options{Root: root, ManifestPath: manifestPath}).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, manifest.Changes{Changed: []string{"content/plain.md"}}, res.Changes)
	require.NotEqual(t, same.ManifestHash, res.ManifestHash)
}

func TestBuilder_RebuildCopiesAffectedEntries(t *testing.T) {
	root := siteFixture(t)
	b := New(Options{Root: root})
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "modules", "nav.js"), "nav(v2)")
	res, err := b.Rebuild(context.Background(), []string{"modules/nav.js", "content/post.md"})
	require.NoError(t, err)
	require.True(t, res.Incremental)
	require.Len(t, res.Passthrough.Entries, 1)
	require.Equal(t, "modules", res.Passthrough.Entries[0].Source)
	require.Equal(t, "nav(v2)", readFile(t, filepath.Join(root, "_site", "modules", "nav.js")))
	require.True(t, res.Changes.Empty())

	require.NoError(t, os.Remove(filepath.Join(root, "misc", "m.txt")))
	_, err = b.Rebuild(context.Background(), []string{"misc/m.txt"})
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(root, "_site", "misc", "m.txt"))

	writeFile(t, filepath.Join(root, "content", "post.md"), "---\npermalink: /post/\n---\n# Post v2\n")
	res, err = b.Rebuild(context.Background(), []string{"content/post.md"})
	require.NoError(t, err)
	require.Empty(t, res.Passthrough.Entries)
	require.Equal(t, []string{"content/post.md"}, res.Changes.Changed)
}

func TestBuilder_RebuildWithoutBuildRunsFullBuild(t *testing.T) {
	root := siteFixture(t)
	res, err := New(Options{Root: root}).Rebuild(context.Background(), []string{"modules/nav.js"})
	require.NoError(t, err)
	require.False(t, res.Incremental)
	require.Equal(t, 3, res.Passthrough.Files())
}

func TestBuilder_RebuildAfterFailedBuildRunsFullBuild(t *testing.T) {
	site := testutil.NewSite(t).Standard().Remove("misc")
	b := New(Options{Root: site.Root(), Clean: true})

	_, err := b.Build(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))

	site.File("misc/m.txt", "misc")
	res, err := b.Rebuild(context.Background(), []string{"modules/nav.js"})
	require.NoError(t, err)
	require.False(t, res.Incremental)
	require.Equal(t, StatusSuccess, res.Status)

	testutil.NewFileAssertions(t, site.Path("_site")).
		AssertFileEquals("misc/m.txt", "misc").
		AssertFileEquals("modules/nav.js", "nav()").
		AssertFileExists("sites/about.html")

	res, err = b.Rebuild(context.Background(), []string{"modules/nav.js"})
	require.NoError(t, err)
	require.True(t, res.Incremental)
}

func TestBuilder_FailedRebuildMakesNextRebuildFull(t *testing.T) {
	root := siteFixture(t)
	b := New(Options{Root: root})
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "content", "bad.md"), "---\npermalink: [\n---\n")
	_, err = b.Rebuild(context.Background(), []string{"content/bad.md"})
	require.Error(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "content", "bad.md")))
	res, err := b.Rebuild(context.Background(), []string{"content/bad.md"})
	require.NoError(t, err)
	require.False(t, res.Incremental)
}

func TestBuilder_MissingPassthroughSource(t *testing.T) {
	root := siteFixture(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "misc")))
	rec := &stageRecorder{}

	res, err := New(Options{Root: root, Recorder: rec}).Build(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	src, _ := ce.Context().GetString("source")
	require.Equal(t, "misc", src)
	require.Equal(t, metrics.ResultFailed, rec.stages[StagePassthrough])
	require.Equal(t, []metrics.ResultLabel{metrics.ResultFailed}, rec.outcomes)
}

func TestBuilder_DuplicateOutputPath(t *testing.T) {
	root := siteFixture(t)
	writeFile(t, filepath.Join(root, "content", "a.md"), "---\npermalink: /same/\n---\n")
	writeFile(t, filepath.Join(root, "content", "b.md"), "---\npermalink: /same/\n---\n")

	_, err := New(Options{Root: root}).Build(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryBuild))
}

func TestBuilder_Cancelled(t *testing.T) {
	root := siteFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(Options{Root: root}).Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusCancelled, res.Status)
}

func TestBuilder_RejectsUnsafeOutput(t *testing.T) {
	for _, output := range []string{".", "", "..", "../elsewhere", "/tmp/out"} {
		root := siteFixture(t)
		configure := func() siteconfig.Configuration {
			cfg := siteconfig.Configure()
			cfg.Settings.Output = output
			return cfg
		}
		_, err := New(Options{Root: root, Clean: true, Configure: configure}).Build(context.Background())
		require.True(t, errors.HasCategory(err, errors.CategoryValidation), output)
		require.FileExists(t, filepath.Join(root, "index.html"))
	}
}
