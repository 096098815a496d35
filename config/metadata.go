package config

// ParameterMetadata describes a single configuration value for configuration
// editors.
type ParameterMetadata struct {
	Name         string `json:"Name"`
	Type         string `json:"Type"`
	Label        string `json:"Label"`
	IsHidden     bool   `json:"IsHidden"`
	IsSecret     bool   `json:"IsSecret"`
	DefaultValue any    `json:"DefaultValue"`
}

// SectionMetadata describes a configuration section.
type SectionMetadata struct {
	Name       string              `json:"Name"`
	Label      string              `json:"Label"`
	IsHidden   bool                `json:"IsHidden"`
	Parameters []ParameterMetadata `json:"Parameters"`
}

// Metadata returns the description of every known section.
func Metadata() []SectionMetadata {
	ap := DefaultAPSettings()
	pl := DefaultPlatformSettings()
	d := DefaultDaemonSettings()

	return []SectionMetadata{
		{
			Name:  APSectionName,
			Label: "Wi-Fi Access Point",
			Parameters: []ParameterMetadata{
				{Name: "Ssid", Type: "string", Label: "SSID"},
				{Name: "Password", Type: "string", Label: "Password", IsSecret: true},
				{Name: "IpAddress", Type: "string", Label: "IP address", IsHidden: true, DefaultValue: ap.IPAddress},
				{Name: "SubnetMask", Type: "string", Label: "Subnet mask", IsHidden: true, DefaultValue: ap.SubnetMask},
				{Name: "MaxConnections", Type: "int", Label: "Max no. of connections", IsHidden: true, DefaultValue: ap.MaxConnections},
				{Name: "EnableDhcp", Type: "bool", Label: "DHCP enabled", IsHidden: true, DefaultValue: ap.EnableDHCP},
			},
		},
		{
			Name:     PlatformSectionName,
			Label:    "Radio platform",
			IsHidden: true,
			Parameters: []ParameterMetadata{
				{Name: "Backend", Type: "string", Label: "Driver backend", DefaultValue: pl.Backend},
				{Name: "Scanner", Type: "string", Label: "Scan backend", DefaultValue: pl.Scanner},
				{Name: "StationInterface", Type: "string", Label: "Station interface", DefaultValue: pl.StationInterface},
				{Name: "AccessPointInterface", Type: "string", Label: "Access point interface", DefaultValue: pl.AccessPointInterface},
			},
		},
		{
			Name:     DaemonSectionName,
			Label:    "Daemon",
			IsHidden: true,
			Parameters: []ParameterMetadata{
				{Name: "Listen", Type: "string", Label: "API listen address", DefaultValue: d.Listen},
				{Name: "LeaseDB", Type: "string", Label: "Lease database"},
				{Name: "CaptiveRedirect", Type: "bool", Label: "Redirect HTTP to portal", DefaultValue: d.CaptiveRedirect},
			},
		},
	}
}
