package siteconfig

import "maps"

// Keys used for computed global data.
const (
	ComputedDataKey = "computed"
	PermalinkKey    = "permalink"
)

// Settings is the record read by the host for the remainder of the build.
type Settings struct {
	Input                  string   `yaml:"input" json:"input"`
	Output                 string   `yaml:"output" json:"output"`
	Includes               string   `yaml:"includes" json:"includes"`
	Data                   string   `yaml:"data" json:"data"`
	TemplateFormats        []string `yaml:"templateFormats" json:"templateFormats"`
	HTMLTemplateEngine     string   `yaml:"htmlTemplateEngine" json:"htmlTemplateEngine"`
	MarkdownTemplateEngine string   `yaml:"markdownTemplateEngine" json:"markdownTemplateEngine"`
	PassthroughFileCopy    bool     `yaml:"passthroughFileCopy" json:"passthroughFileCopy"`
}

// HasTemplateFormat reports whether ext (with or without leading dot) is an accepted format.
func (s Settings) HasTemplateFormat(ext string) bool {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	for _, f := range s.TemplateFormats {
		if f == ext {
			return true
		}
	}
	return false
}

// Configuration is the result of Configure.
type Configuration struct {
	Settings Settings
	commands []Command
}

// Commands returns the registration commands in the order they were declared.
func (c Configuration) Commands() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// Configure declares passthrough directories, watch targets, the computed
// permalink and the settings record.
func Configure() Configuration {
	return Configuration{
		commands: []Command{
			// Static assets and legacy structure are copied as-is.
			PassthroughCopy{mapping: map[string]string{
				"modules": "modules",
				"misc":    "misc",
				"sites":   "sites",
			}},
			WatchTarget{Name: "modules"},
			WatchTarget{Name: "misc"},
			WatchTarget{Name: "sites"},
			WatchTarget{Name: "content"},
			// Keep original .html filenames in the output instead of directory indexes.
			GlobalData{Key: ComputedDataKey, Value: Computed{PermalinkKey: Permalink}},
		},
		Settings: Settings{
			Input:                  ".",
			Output:                 "_site",
			Includes:               "_includes",
			Data:                   "_data",
			TemplateFormats:        []string{"html", "njk", "md"},
			HTMLTemplateEngine:     "njk",
			MarkdownTemplateEngine: "njk",
			PassthroughFileCopy:    true,
		},
	}
}

// Handle receives registrations. Calls have no result.
type Handle interface {
	AddPassthroughCopy(mapping map[string]string)
	AddWatchTarget(name string)
	AddGlobalData(key string, value any)
}

// Command is a single registration replayed against a Handle.
type Command interface {
	apply(h Handle)
}

// PassthroughCopy registers directories copied verbatim: source to destination.
type PassthroughCopy struct {
	mapping map[string]string
}

// NewPassthroughCopy builds a passthrough command from a private copy of mapping.
func NewPassthroughCopy(mapping map[string]string) PassthroughCopy {
	return PassthroughCopy{mapping: maps.Clone(mapping)}
}

// Mapping returns a copy of the source to destination mapping.
func (p PassthroughCopy) Mapping() map[string]string { return maps.Clone(p.mapping) }

func (p PassthroughCopy) apply(h Handle) { h.AddPassthroughCopy(p.Mapping()) }

// WatchTarget registers a directory that triggers a rebuild when it changes.
type WatchTarget struct {
	Name string
}

func (w WatchTarget) apply(h Handle) { h.AddWatchTarget(w.Name) }

// GlobalData registers a value available to every page.
type GlobalData struct {
	Key   string
	Value any
}

func (g GlobalData) apply(h Handle) { h.AddGlobalData(g.Key, g.Value) }

// Apply replays commands against h in order.
func Apply(commands []Command, h Handle) {
	for _, c := range commands {
		c.apply(h)
	}
}
