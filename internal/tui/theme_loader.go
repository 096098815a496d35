package tui

import (
	"errors"
	"io"

	"github.com/BurntSushi/toml"
)

// themeFile represents the structure of the theme TOML file. A color left
// out of the file has a nil TerminalColor, so a file only overrides the
// colors it names.
type themeFile struct {
	Primary    Color `toml:"Primary,omitempty"`
	Subtle     Color `toml:"Subtle,omitempty"`
	Success    Color `toml:"Success,omitempty"`
	Error      Color `toml:"Error,omitempty"`
	Normal     Color `toml:"Normal,omitempty"`
	Disabled   Color `toml:"Disabled,omitempty"`
	Border     Color `toml:"Border,omitempty"`
	SignalHigh Color `toml:"SignalHigh,omitempty"`
	SignalLow  Color `toml:"SignalLow,omitempty"`
}

// LoadTheme reads a theme from r on top of the default theme.
func LoadTheme(r io.Reader) (Theme, error) {
	theme := NewDefaultTheme()
	if r == nil {
		return theme, errors.New("no theme to load")
	}

	var tf themeFile
	if _, err := toml.NewDecoder(r).Decode(&tf); err != nil {
		return theme, err
	}

	for _, o := range []struct {
		src Color
		dst *Color
	}{
		{tf.Primary, &theme.Primary},
		{tf.Subtle, &theme.Subtle},
		{tf.Success, &theme.Success},
		{tf.Error, &theme.Error},
		{tf.Normal, &theme.Normal},
		{tf.Disabled, &theme.Disabled},
		{tf.Border, &theme.Border},
		{tf.SignalHigh, &theme.SignalHigh},
		{tf.SignalLow, &theme.SignalLow},
	} {
		if o.src.TerminalColor != nil {
			*o.dst = o.src
		}
	}
	return theme, nil
}
