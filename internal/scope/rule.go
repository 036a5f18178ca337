package scope

import "encoding/json"

// Rule pairs one style with the scope paths that use it. It encodes to the
// shape of an entry in a theme's tokenColors array.
type Rule struct {
	Name       string
	Scopes     []string
	Foreground string
	FontStyle  string
}

// Style returns the rule's structural style.
func (r Rule) Style() Style {
	return Style{Color: r.Foreground, FontStyle: r.FontStyle}
}

type ruleJSON struct {
	Name     string       `json:"name,omitempty"`
	Scope    []string     `json:"scope"`
	Settings settingsJSON `json:"settings"`
}

type settingsJSON struct {
	Foreground string `json:"foreground,omitempty"`
	FontStyle  string `json:"fontStyle,omitempty"`
}

func (r Rule) MarshalJSON() ([]byte, error) {
	scopes := r.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return json.Marshal(ruleJSON{
		Name:  r.Name,
		Scope: scopes,
		Settings: settingsJSON{
			Foreground: r.Foreground,
			FontStyle:  r.FontStyle,
		},
	})
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Rule{
		Name:       raw.Name,
		Scopes:     raw.Scope,
		Foreground: raw.Settings.Foreground,
		FontStyle:  raw.Settings.FontStyle,
	}
	return nil
}
