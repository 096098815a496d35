package config

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[WiFiAP]
Ssid = "Guest"
Password = "hunter22"
MaxConnections = 4

[Platform]
Backend = "mock"
Scanner = "iwd"

[Daemon]
Listen = "127.0.0.1:9000"
`

func TestReadAPSettings(t *testing.T) {
	f, err := Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	s, err := ReadAPSettings(f)
	require.NoError(t, err)

	assert.Equal(t, "Guest", s.SSID)
	assert.Equal(t, "hunter22", s.Password)
	assert.Equal(t, uint8(4), s.MaxConnections)
	// Missing keys keep their defaults.
	assert.Equal(t, "192.168.4.1", s.IPAddress)
	assert.Equal(t, "255.255.255.0", s.SubnetMask)
	assert.True(t, s.EnableDHCP)
	assert.NoError(t, s.Validate())
}

func TestReadAPSettings_MissingSection(t *testing.T) {
	f, err := Load(strings.NewReader(`[Other]
Key = 1
`))
	require.NoError(t, err)

	s, err := ReadAPSettings(f)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPSettings(), s)
}

func TestReadAPSettings_DisableDHCP(t *testing.T) {
	f, err := Load(strings.NewReader(`[WiFiAP]
EnableDhcp = false
`))
	require.NoError(t, err)

	s, err := ReadAPSettings(f)
	require.NoError(t, err)
	assert.False(t, s.EnableDHCP)
}

func TestReadAPSettings_WrongType(t *testing.T) {
	f, err := Load(strings.NewReader(`[WiFiAP]
MaxConnections = "many"
`))
	require.NoError(t, err)

	_, err = ReadAPSettings(f)
	assert.Error(t, err)
}

func TestLoad_InvalidToml(t *testing.T) {
	_, err := Load(strings.NewReader(`[WiFiAP`))
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Empty(t, f.Sections())

	s, err := ReadDaemonSettings(f)
	require.NoError(t, err)
	assert.Equal(t, DefaultDaemonSettings(), s)
}

func TestOtherSections(t *testing.T) {
	f, err := Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"Daemon", "Platform", "WiFiAP"}, f.Sections())

	pl, err := ReadPlatformSettings(f)
	require.NoError(t, err)
	assert.Equal(t, "mock", pl.Backend)
	assert.Equal(t, "iwd", pl.Scanner)
	assert.Equal(t, "wlan0", pl.StationInterface)

	d, err := ReadDaemonSettings(f)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", d.Listen)
	assert.True(t, d.CaptiveRedirect)
}

func TestAPSettingsValidate(t *testing.T) {
	s := DefaultAPSettings()
	s.IPAddress = "not-an-ip"
	assert.Error(t, s.Validate())

	s = DefaultAPSettings()
	s.SubnetMask = "0.0.0.0"
	assert.Error(t, s.Validate())

	s = DefaultAPSettings()
	assert.Equal(t, "http://192.168.4.1", s.CaptivePortalURL())
	ones, bits := s.Mask().Size()
	assert.Equal(t, 24, ones)
	assert.Equal(t, 32, bits)
}

func TestMetadata(t *testing.T) {
	md := Metadata()
	require.NotEmpty(t, md)
	assert.Equal(t, APSectionName, md[0].Name)

	data, err := json.Marshal(md[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name":"Password"`)
	assert.Contains(t, string(data), `"IsSecret":true`)
}
