package build

import (
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/passthrough"
)

// Stage names, also used as metric labels.
const (
	StageConfigure   = "configure"
	StageClean       = "clean"
	StagePassthrough = "passthrough"
	StagePlan        = "plan"
	StageManifest    = "manifest"
)

// Status represents the outcome of a build.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result describes a finished build.
type Result struct {
	BuildID string
	Status  Status
	// Incremental is set for builds started by Rebuild with a non-empty change set.
	Incremental bool

	OutputDir   string
	Passthrough passthrough.Result
	Pages       []pages.Page
	// Changes compares this page plan with the previous one.
	Changes manifest.Changes
	// ManifestHash identifies the settings, registrations and page plan.
	ManifestHash string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
