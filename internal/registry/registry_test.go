package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

func TestFromConfiguration(t *testing.T) {
	r := FromConfiguration(siteconfig.Configure())

	require.Equal(t, Counts{PassthroughCalls: 1, PassthroughPairs: 3, WatchTargets: 4, GlobalData: 1}, r.Counts())
	require.Equal(t, []Entry{
		{Source: "misc", Dest: "misc"},
		{Source: "modules", Dest: "modules"},
		{Source: "sites", Dest: "sites"},
	}, r.Passthrough())
	require.Equal(t, []string{"misc", "modules", "sites"}, r.PassthroughSources())
	require.Equal(t, []string{"modules", "misc", "sites", "content"}, r.WatchTargets())
	require.Equal(t, []string{"computed"}, r.GlobalDataKeys())

	permalink := r.ComputedPermalink()
	require.NotNil(t, permalink)
	got, ok := permalink(&siteconfig.PageData{Page: &siteconfig.PageInfo{InputPath: "index.html", FilePathStem: "index"}})
	require.True(t, ok)
	require.Equal(t, "index.html", got)
}

func TestRegistry_MergeAndDuplicates(t *testing.T) {
	r := New()
	r.AddPassthroughCopy(map[string]string{"files": "files"})
	r.AddPassthroughCopy(map[string]string{"files": "assets/files", "img": "img"})
	r.AddWatchTarget("content")
	r.AddWatchTarget("content")

	require.Equal(t, []Entry{{Source: "files", Dest: "assets/files"}, {Source: "img", Dest: "img"}}, r.Passthrough())
	require.Equal(t, []string{"content", "content"}, r.WatchTargets())
	require.Equal(t, 2, r.Counts().PassthroughCalls)
}

func TestRegistry_ComputedPermalinkMissingOrWrongType(t *testing.T) {
	r := New()
	require.Nil(t, r.ComputedPermalink())

	r.AddGlobalData(siteconfig.ComputedDataKey, map[string]string{"permalink": "nope"})
	require.Nil(t, r.ComputedPermalink())

	r.AddGlobalData(siteconfig.ComputedDataKey, siteconfig.Computed{})
	require.Nil(t, r.ComputedPermalink())
}

func TestRegistry_AccessorsReturnCopies(t *testing.T) {
	r := FromConfiguration(siteconfig.Configure())
	targets := r.WatchTargets()
	targets[0] = "mutated"
	require.Equal(t, "modules", r.WatchTargets()[0])
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := FromConfiguration(siteconfig.Configure())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Passthrough()
			_ = r.WatchTargets()
			_ = r.ComputedPermalink()
		}()
	}
	wg.Wait()
}
