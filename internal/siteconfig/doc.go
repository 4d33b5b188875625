// Package siteconfig declares the site's build configuration.
//
// Configure is evaluated once per build process. It performs no I/O and returns
// an ordered, immutable list of registration commands together with the Settings
// record the host uses for directory resolution and template-engine selection:
//
//	cfg := siteconfig.Configure()
//	siteconfig.Apply(cfg.Commands(), registry)
//	out := filepath.Join(root, cfg.Settings.Output)
//
// The host owns every side effect: copying passthrough directories, watching
// targets and evaluating the computed permalink for each page.
package siteconfig
