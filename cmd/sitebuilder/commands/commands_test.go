package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/testutil"
)

func runCLI(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cli := &CLI{}
	g := &Global{Out: &out, Err: &errOut}
	parser, err := kong.New(cli,
		kong.Name("sitebuilder"),
		kong.Vars{"version": "test"},
		kong.Bind(g),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return out.String(), err
	}
	err = kctx.Run(cli)
	return out.String(), err
}

func project(t *testing.T) (*testutil.Site, string) {
	t.Helper()
	site := testutil.NewSite(t).Standard()
	return site, site.Path("sitebuilder.yaml")
}

func TestBuildCmd(t *testing.T) {
	site, cfgPath := project(t)
	out, err := runCLI(context.Background(), t, "-c", cfgPath, "build", "--root", site.Root())
	require.NoError(t, err)
	require.Contains(t, out, "Build success: 3 files copied, 2 pages planned")
	testutil.NewFileAssertions(t, site.Path("_site")).
		AssertFileEquals("modules/nav.js", "nav()").
		AssertFileExists("sites/about.html")
}

func TestBuildCmd_MissingPassthroughSource(t *testing.T) {
	site, cfgPath := project(t)
	site.Remove("sites")

	_, err := runCLI(context.Background(), t, "-c", cfgPath, "build", "--root", site.Root())
	require.Error(t, err)
	require.Equal(t, 11, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuildCmd_InvalidConfig(t *testing.T) {
	site, cfgPath := project(t)
	site.File("sitebuilder.yaml", "unknown_key: 1\n")

	_, err := runCLI(context.Background(), t, "-c", cfgPath, "build", "--root", site.Root())
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestSettingsCmd(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sitebuilder.yaml")

	out, err := runCLI(context.Background(), t, "-c", cfgPath, "settings")
	require.NoError(t, err)
	require.Contains(t, out, "output: _site")
	require.Contains(t, out, "- content")

	out, err = runCLI(context.Background(), t, "-c", cfgPath, "settings", "--format", "json")
	require.NoError(t, err)
	var report settingsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "_site", report.Settings.Output)
	require.Equal(t, []string{"html", "njk", "md"}, report.Settings.TemplateFormats)
	require.Equal(t, map[string]string{"misc": "misc", "modules": "modules", "sites": "sites"}, report.Passthrough)
	require.Equal(t, []string{"modules", "misc", "sites", "content"}, report.WatchTargets)
	require.Equal(t, []string{"computed"}, report.GlobalData)
}

func TestPermalinkCmd(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sitebuilder.yaml")
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"sites/about.html"}, "permalink: sites/about.html\noutput: sites/about.html\n"},
		{[]string{"content/post.md", "--permalink", "/post/"}, "permalink: /post/\noutput: post/index.html\n"},
		{[]string{"content/plain.md"}, "permalink: (none)\noutput: content/plain/index.html (default)\n"},
		{[]string{"page.html", "--stem", "custom/stem"}, "permalink: custom/stem.html\noutput: custom/stem.html\n"},
	}
	for _, tc := range cases {
		args := append([]string{"-c", cfgPath, "permalink"}, tc.args...)
		out, err := runCLI(context.Background(), t, args...)
		require.NoError(t, err)
		require.Equal(t, tc.want, out, tc.args)
	}

	_, err := runCLI(context.Background(), t, "-c", cfgPath, "permalink", "a.md", "--permalink", "/../../etc/")
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRelinkCmd(t *testing.T) {
	site, cfgPath := project(t)
	root := site.Root()

	out, err := runCLI(context.Background(), t, "-c", cfgPath, "relink", "--root", root, "--dry-run")
	require.NoError(t, err)
	require.Equal(t, "would update sites/about.html\nFiles to update: 1\n", out)

	out, err = runCLI(context.Background(), t, "-c", cfgPath, "relink", "--root", root)
	require.NoError(t, err)
	require.Equal(t, "Files updated: 1\n", out)

	testutil.NewFileAssertions(t, root).AssertFileEquals("sites/about.html", `<a href="../index.html">home</a>`)
}

func TestInitCmd(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sitebuilder.yaml")

	out, err := runCLI(context.Background(), t, "-c", cfgPath, "init")
	require.NoError(t, err)
	require.Contains(t, out, "initialized successfully")
	require.FileExists(t, cfgPath)

	_, err = runCLI(context.Background(), t, "-c", cfgPath, "init")
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))

	_, err = runCLI(context.Background(), t, "-c", cfgPath, "init", "--force")
	require.NoError(t, err)
}

func TestWatchCmd_StopsOnCancel(t *testing.T) {
	site, cfgPath := project(t)
	root := site.Root()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := runCLI(ctx, t, "-c", cfgPath, "watch", "--root", root, "--metrics-addr", "127.0.0.1:0")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(root, "_site", "modules", "nav.js"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
