package ingest

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed regioncodes.yaml
var regionCodesYAML []byte

var regionCodes map[string]string

func init() {
	if err := yaml.Unmarshal(regionCodesYAML, &regionCodes); err != nil {
		panic(fmt.Sprintf("ingest: bad embedded region code table: %v", err))
	}
}

// RegionCode looks up the region code for an administrative region name.
// The second return reports whether the name was in the lookup table.
func RegionCode(name string) (string, bool) {
	code, ok := regionCodes[name]
	return code, ok
}
