package device

import "strings"

// Module is the functional card type detected or configured for an XMP slot.
type Module string

const (
	// ModuleAuto is a configuration value only: use the detected module.
	ModuleAuto Module = "auto"
	ModuleNone Module = "none"
	// ModuleNMP40 is the network streaming card, also the fallback for
	// detected type codes this build does not know.
	ModuleNMP40 Module = "nmp40"
	ModuleIMP40 Module = "imp40"
	ModuleFMP40 Module = "fmp40"
	// ModuleRMP40 is a legacy alias normalized to ModuleFMP40.
	ModuleRMP40 Module = "rmp40"
	ModuleDMP42 Module = "dmp42"
	ModuleBMP42 Module = "bmp42"
)

// NormalizeModule lowercases, trims, and resolves legacy aliases to their
// canonical successor.
func NormalizeModule(raw string) Module {
	module := Module(strings.ToLower(strings.TrimSpace(raw)))
	if module == ModuleRMP40 {
		return ModuleFMP40
	}
	return module
}

// KnownModule reports whether raw names a configurable module value.
func KnownModule(raw string) bool {
	switch NormalizeModule(raw) {
	case ModuleAuto, ModuleNone, ModuleNMP40, ModuleIMP40, ModuleFMP40, ModuleDMP42, ModuleBMP42:
		return true
	}
	return false
}

// Detected module type codes as reported by the TPS bulk reply.
var moduleTypeCodes = map[string]Module{
	"0": ModuleNone,
	"1": ModuleNMP40,
	"2": ModuleIMP40,
	"3": ModuleFMP40,
	"4": ModuleDMP42,
	"5": ModuleBMP42,
}

func moduleFromTypeCode(code string) Module {
	if module, ok := moduleTypeCodes[code]; ok {
		return module
	}
	return ModuleNMP40
}
