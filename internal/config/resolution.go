package config

// Output resolution sources, reported for debugging.
const (
	SourceFlag    = "config"
	SourceAuto    = "auto"
	SourceCI      = "ci"
	SourceNoColor = "no-color"
)

// ResolvedOutput is the final rendering choice for a run summary.
type ResolvedOutput struct {
	Format string // terminal, llm or json
	Theme  string

	FormatSource string
	ThemeSource  string
}

// ResolveOutput picks the renderer and theme.
//
// Priority for the format: an explicit format wins; "auto" means terminal
// on a TTY and llm when piped. The theme falls back to mono when CI mode is
// on or NO_COLOR is set (noColorEnv), since CI logs rarely render ANSI.
func ResolveOutput(out OutputConfig, isTTY, noColorEnv bool) ResolvedOutput {
	r := ResolvedOutput{
		Format:       out.Format,
		Theme:        out.Theme,
		FormatSource: SourceFlag,
		ThemeSource:  SourceFlag,
	}

	if r.Format == "" || r.Format == DefaultFormat {
		r.FormatSource = SourceAuto
		if isTTY && !out.CI {
			r.Format = "terminal"
		} else {
			r.Format = "llm"
		}
	}

	switch {
	case out.NoColor || noColorEnv:
		r.Theme, r.ThemeSource = "mono", SourceNoColor
	case out.CI:
		r.Theme, r.ThemeSource = "mono", SourceCI
	case r.Theme == "":
		r.Theme = DefaultTheme
	}
	return r
}
