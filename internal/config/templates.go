package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a starter configuration to path. It refuses to clobber
// an existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const template = `listen_addr = ":8090"
cors_origins = ["http://localhost:3000"]
log_level = "info"

[[devices]]
id = "bar-mixer"
name = "Bar MTX48"
host = "192.168.1.40"
model = "mtx48"
zone_names = ["Bar", "Lounge", "Terrace", "Kitchen"]

[[devices]]
id = "source-rack"
name = "Rack XMP44"
host = "192.168.1.41"
model = "xmp44"
scan_interval = 15

[devices.slot_modules]
1 = "fmp40"
2 = "auto"
`
