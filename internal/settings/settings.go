// Package settings persists interface preferences that live outside the
// session: theme, font and the speech toggles. They survive session resets.
package settings

import (
	"fmt"
	"strconv"

	"github.com/abhiramiramadas/minibot/internal/store"
)

const (
	themeKey = "theme"
	fontKey  = "font"
	ttsKey   = "ttsEnabled"
	sttKey   = "sttEnabled"

	customMainColorKey = "customMainColor"
	customBgColorKey   = "customBgColor"
	customFontURLKey   = "customFontUrl"
	customFontNameKey  = "customFontName"

	defaultTheme = "light"
	defaultFont  = "'Courier New', monospace"
)

// Settings reads and writes interface preferences.
type Settings struct {
	kv store.Storer
}

func New(kv store.Storer) *Settings {
	return &Settings{kv: kv}
}

// Theme returns the stored theme name, defaulting to dark.
func (s *Settings) Theme() (string, error) {
	return s.getString(themeKey, defaultTheme)
}

func (s *Settings) SetTheme(theme string) error {
	if theme == "" {
		return fmt.Errorf("settings: theme must not be empty")
	}
	return s.kv.Set(themeKey, theme)
}

// Font returns the stored font name, defaulting to sans.
func (s *Settings) Font() (string, error) {
	return s.getString(fontKey, defaultFont)
}

func (s *Settings) SetFont(font string) error {
	if font == "" {
		return fmt.Errorf("settings: font must not be empty")
	}
	return s.kv.Set(fontKey, font)
}

// CustomTheme holds the user-defined theme values. Absent values read as
// empty strings.
type CustomTheme struct {
	MainColor string
	BgColor   string
	FontURL   string
	FontName  string
}

// CustomTheme returns the stored custom theme values.
func (s *Settings) CustomTheme() (CustomTheme, error) {
	var theme CustomTheme
	var err error
	if theme.MainColor, err = s.getString(customMainColorKey, ""); err != nil {
		return CustomTheme{}, err
	}
	if theme.BgColor, err = s.getString(customBgColorKey, ""); err != nil {
		return CustomTheme{}, err
	}
	if theme.FontURL, err = s.getString(customFontURLKey, ""); err != nil {
		return CustomTheme{}, err
	}
	if theme.FontName, err = s.getString(customFontNameKey, ""); err != nil {
		return CustomTheme{}, err
	}
	return theme, nil
}

// SetCustomTheme stores the custom theme values and switches the active
// theme to "custom".
func (s *Settings) SetCustomTheme(theme CustomTheme) error {
	entries := map[string]string{
		customMainColorKey: theme.MainColor,
		customBgColorKey:   theme.BgColor,
		customFontURLKey:   theme.FontURL,
		customFontNameKey:  theme.FontName,
	}
	for key, value := range entries {
		if err := s.kv.Set(key, value); err != nil {
			return err
		}
	}
	return s.kv.Set(themeKey, "custom")
}

// TTSEnabled reports whether spoken replies are on. Off by default.
func (s *Settings) TTSEnabled() (bool, error) {
	return s.getBool(ttsKey)
}

func (s *Settings) SetTTSEnabled(enabled bool) error {
	return s.kv.Set(ttsKey, strconv.FormatBool(enabled))
}

// STTEnabled reports whether voice input is on. Off by default.
func (s *Settings) STTEnabled() (bool, error) {
	return s.getBool(sttKey)
}

func (s *Settings) SetSTTEnabled(enabled bool) error {
	return s.kv.Set(sttKey, strconv.FormatBool(enabled))
}

func (s *Settings) getString(key, fallback string) (string, error) {
	value, ok, err := s.kv.Get(key)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return fallback, nil
	}
	return value, nil
}

func (s *Settings) getBool(key string) (bool, error) {
	value, ok, err := s.kv.Get(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return value == "true", nil
}
