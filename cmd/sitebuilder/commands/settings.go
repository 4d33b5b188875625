package commands

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/registry"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// SettingsCmd implements the 'settings' command.
type SettingsCmd struct {
	Format string `short:"f" enum:"yaml,json" default:"yaml" help:"Output format (yaml|json)"`
}

type settingsReport struct {
	Settings      siteconfig.Settings `yaml:"settings" json:"settings"`
	Passthrough   map[string]string   `yaml:"passthrough" json:"passthrough"`
	WatchTargets  []string            `yaml:"watchTargets" json:"watchTargets"`
	GlobalData    []string            `yaml:"globalData" json:"globalData"`
	Registrations registry.Counts     `yaml:"registrations" json:"registrations"`
}

func (s *SettingsCmd) Run(g *Global) error {
	cfg := siteconfig.Configure()
	reg := registry.FromConfiguration(cfg)

	report := settingsReport{
		Settings:      cfg.Settings,
		Passthrough:   map[string]string{},
		WatchTargets:  reg.WatchTargets(),
		GlobalData:    reg.GlobalDataKeys(),
		Registrations: reg.Counts(),
	}
	for _, e := range reg.Passthrough() {
		report.Passthrough[e.Source] = e.Dest
	}

	if s.Format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		_, err = fmt.Fprintln(g.out(), string(data))
		return err
	}
	enc := yaml.NewEncoder(g.out())
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}
