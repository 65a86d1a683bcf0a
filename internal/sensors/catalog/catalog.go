package catalog

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Device is one fleet unit known to the installation.
type Device struct {
	HardwareID string `yaml:"hardwareId"`
	Model      string `yaml:"model"`
	Location   string `yaml:"location"`
}

// Catalog enumerates the hardware identifiers of the deployed fleet.
// It is static configuration, not derived from the database.
type Catalog struct {
	Devices []Device `yaml:"devices"`
}

// DefaultDevices is the built-in fleet used when no catalog file is
// configured.
var DefaultDevices = []Device{
	{HardwareID: "ESP32-FRIGO-01", Model: "esp32-ds18b20"},
	{HardwareID: "ESP32-FRIGO-02", Model: "esp32-ds18b20"},
	{HardwareID: "ESP32-CAMARA-01", Model: "esp32-ds18b20"},
}

// Load reads a catalog from a YAML file. An empty path yields the built-in
// default fleet.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{Devices: DefaultDevices}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	if len(catalog.Devices) == 0 {
		return nil, errors.New("catalog: no devices defined")
	}
	return &catalog, nil
}

// IDs returns the hardware identifiers in file order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Devices))
	for _, device := range c.Devices {
		ids = append(ids, device.HardwareID)
	}
	return ids
}
