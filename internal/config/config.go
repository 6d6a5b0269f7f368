// Package config loads and validates the TOML configuration described in
// spec.md §6, substituting %key% user-defined placeholders and compiling
// every "...Regex"/"...Regexs" field into a *regexp.Regexp with DOTALL
// semantics.
//
// Grounded on original_source/src/testcrush/config.py (A0_KEYS /
// A0_PREPROCESSOR_KEYS nested-path tables, replace_toml_placeholders,
// replace_toml_regex, sanitize_a0_configuration), decoded with
// github.com/BurntSushi/toml — present in the retrieval pack
// (_examples/joeycumines-go-utilpkg/go.mod) and the idiomatic Go TOML
// library, used here instead of hand-rolling a TOML parser. Per spec.md
// §9 "Config objects with dynamic keys", the result is a typed Settings
// tree with enumerated fields, not an open map passed through to callers:
// the regex-by-key-name-convention of the Python original is expressed
// here as regex-typed fields named *Regex/*Regexs on LsimControl and
// FsimControl, compiled explicitly rather than by reflecting on field
// names.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Policy is the outer compaction policy (spec.md §6: compaction_policy).
type Policy string

const (
	PolicyMaximize  Policy = "Maximize"
	PolicyThreshold Policy = "Threshold"
)

// A1xxIntraBlockPolicy is A1xx's intra-block removal order.
type A1xxIntraBlockPolicy string

const (
	PolicyBack    A1xxIntraBlockPolicy = "B"
	PolicyForward A1xxIntraBlockPolicy = "F"
	PolicyRandom  A1xxIntraBlockPolicy = "R"
)

// ConfigError reports a configuration problem with the offending key
// path, per spec.md §7.1.
type ConfigError struct {
	KeyPath string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.KeyPath, e.Reason)
}

// LsimControl mirrors the [vcs_logic_simulation_control] table.
type LsimControl struct {
	Timeout                    float64 `toml:"timeout"`
	SimulationOKRegex          string  `toml:"simulation_ok_regex"`
	TestApplicationTimeRegex   string  `toml:"test_application_time_regex"`
	TestApplicationTimeGroupNo int     `toml:"test_application_time_regex_group_no"`

	CompiledSimulationOKRegex        *regexp.Regexp `toml:"-"`
	CompiledTestApplicationTimeRegex *regexp.Regexp `toml:"-"`
}

// FsimControl mirrors the [zoix_fault_simulation_control] table.
type FsimControl struct {
	Timeout     float64  `toml:"timeout"`
	AllowRegexs []string `toml:"allow_regexs"`

	CompiledAllowRegexs []*regexp.Regexp `toml:"-"`
}

// Preprocessing mirrors the [preprocessing] table.
type Preprocessing struct {
	Enabled        bool   `toml:"enabled"`
	ProcessorName  string `toml:"processor_name"`
	ProcessorTrace string `toml:"processor_trace"`
	ElfFile        string `toml:"elf_file"`
	ZoixToTrace    string `toml:"zoix_to_trace"`
}

// A1xx mirrors the [a1xx] table.
type A1xx struct {
	SegmentDimension int                  `toml:"a1xx_segment_dimension"`
	Policy           A1xxIntraBlockPolicy `toml:"a1xx_policy"`
}

// Settings is the fully decoded, placeholder-substituted, regex-compiled
// configuration tree, per spec.md §6.
type Settings struct {
	UserDefines map[string]string `toml:"user_defines"`

	ISA struct {
		ISAFile string `toml:"isa_file"`
	} `toml:"isa"`

	AssemblySources struct {
		Sources []string `toml:"sources"`
	} `toml:"assembly_sources"`

	CrossCompilation struct {
		Instructions []string `toml:"instructions"`
	} `toml:"cross_compilation"`

	VCSHDLCompilation struct {
		Instructions []string `toml:"instructions"`
	} `toml:"vcs_hdl_compilation"`

	VCSLogicSimulation struct {
		Instructions []string `toml:"instructions"`
	} `toml:"vcs_logic_simulation"`

	VCSLogicSimulationControl LsimControl `toml:"vcs_logic_simulation_control"`

	ZoixFaultSimulation struct {
		Instructions []string `toml:"instructions"`
	} `toml:"zoix_fault_simulation"`

	ZoixFaultSimulationControl FsimControl `toml:"zoix_fault_simulation_control"`

	FaultReport struct {
		FrptFile        string `toml:"frpt_file"`
		CoverageFormula string `toml:"coverage_formula"`
	} `toml:"fault_report"`

	Preprocessing Preprocessing `toml:"preprocessing"`

	A1xx A1xx `toml:"a1xx"`

	CompactionPolicy Policy `toml:"compaction_policy"`
}

var requiredSections = map[string][]string{
	"cross_compilation":             {"instructions"},
	"vcs_hdl_compilation":           {"instructions"},
	"vcs_logic_simulation":          {"instructions"},
	"vcs_logic_simulation_control":  nil,
	"zoix_fault_simulation":         {"instructions"},
	"zoix_fault_simulation_control": nil,
	"fault_report":                  {"frpt_file", "coverage_formula"},
	"isa":                           {"isa_file"},
	"assembly_sources":              {"sources"},
}

// Load reads, validates, placeholder-substitutes and regex-compiles the
// TOML configuration at path.
func Load(path string) (*Settings, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, &ConfigError{KeyPath: path, Reason: err.Error()}
	}
	if err := sanitize(raw); err != nil {
		return nil, err
	}

	var s Settings
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, &ConfigError{KeyPath: path, Reason: err.Error()}
	}
	_ = md

	if len(s.UserDefines) > 0 {
		substituteStrings(&s, s.UserDefines)
	}

	if err := compileRegexes(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// sanitize checks every required section/subsection is present, mirroring
// config.py's sanitize_a0_configuration.
func sanitize(raw map[string]any) error {
	for section, subkeys := range requiredSections {
		v, ok := raw[section]
		if !ok {
			return &ConfigError{KeyPath: section, Reason: "missing required section"}
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for _, sub := range subkeys {
			if _, ok := m[sub]; !ok {
				return &ConfigError{KeyPath: section + "." + sub, Reason: "missing required key"}
			}
		}
	}
	return nil
}

// substituteStrings replaces every %key% occurrence (for each key in
// defines) across every string-bearing field of s that plausibly carries
// a shell command, path, or regex — mirroring config.py's
// replace_toml_placeholders, but over the already-typed Settings tree
// instead of an open TOML map.
func substituteStrings(s *Settings, defines map[string]string) {
	sub := func(v string) string { return substitute(v, defines) }
	subAll := func(vs []string) {
		for i := range vs {
			vs[i] = sub(vs[i])
		}
	}

	s.ISA.ISAFile = sub(s.ISA.ISAFile)
	subAll(s.AssemblySources.Sources)
	subAll(s.CrossCompilation.Instructions)
	subAll(s.VCSHDLCompilation.Instructions)
	subAll(s.VCSLogicSimulation.Instructions)
	s.VCSLogicSimulationControl.SimulationOKRegex = sub(s.VCSLogicSimulationControl.SimulationOKRegex)
	s.VCSLogicSimulationControl.TestApplicationTimeRegex = sub(s.VCSLogicSimulationControl.TestApplicationTimeRegex)
	subAll(s.ZoixFaultSimulation.Instructions)
	subAll(s.ZoixFaultSimulationControl.AllowRegexs)
	s.FaultReport.FrptFile = sub(s.FaultReport.FrptFile)
	s.FaultReport.CoverageFormula = sub(s.FaultReport.CoverageFormula)
	s.Preprocessing.ProcessorTrace = sub(s.Preprocessing.ProcessorTrace)
	s.Preprocessing.ElfFile = sub(s.Preprocessing.ElfFile)
	s.Preprocessing.ZoixToTrace = sub(s.Preprocessing.ZoixToTrace)
}

func substitute(v string, defines map[string]string) string {
	for k, val := range defines {
		v = strings.ReplaceAll(v, "%"+k+"%", val)
	}
	return v
}

// compileRegexes compiles every *Regex/*Regexs field with DOTALL
// semantics ((?s) prefix), mirroring config.py's replace_toml_regex.
func compileRegexes(s *Settings) error {
	var err error
	if s.VCSLogicSimulationControl.SimulationOKRegex != "" {
		s.VCSLogicSimulationControl.CompiledSimulationOKRegex, err = compileDotAll(
			"vcs_logic_simulation_control.simulation_ok_regex", s.VCSLogicSimulationControl.SimulationOKRegex)
		if err != nil {
			return err
		}
	}
	if s.VCSLogicSimulationControl.TestApplicationTimeRegex != "" {
		s.VCSLogicSimulationControl.CompiledTestApplicationTimeRegex, err = compileDotAll(
			"vcs_logic_simulation_control.test_application_time_regex", s.VCSLogicSimulationControl.TestApplicationTimeRegex)
		if err != nil {
			return err
		}
	}
	for i, pattern := range s.ZoixFaultSimulationControl.AllowRegexs {
		re, err := compileDotAll(fmt.Sprintf("zoix_fault_simulation_control.allow_regexs[%d]", i), pattern)
		if err != nil {
			return err
		}
		s.ZoixFaultSimulationControl.CompiledAllowRegexs = append(s.ZoixFaultSimulationControl.CompiledAllowRegexs, re)
	}
	return nil
}

func compileDotAll(keyPath, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?s)" + pattern)
	if err != nil {
		return nil, &ConfigError{KeyPath: keyPath, Reason: err.Error()}
	}
	return re, nil
}

// ValidatePolicies rejects unknown compaction_policy/a1xx_policy values,
// per spec.md §7.1 "unknown policy" configuration errors.
func (s *Settings) ValidatePolicies() error {
	switch s.CompactionPolicy {
	case PolicyMaximize, PolicyThreshold:
	default:
		return &ConfigError{KeyPath: "compaction_policy", Reason: fmt.Sprintf("unknown policy %q", s.CompactionPolicy)}
	}
	switch s.A1xx.Policy {
	case "", PolicyBack, PolicyForward, PolicyRandom:
	default:
		return &ConfigError{KeyPath: "a1xx.a1xx_policy", Reason: fmt.Sprintf("unknown policy %q", s.A1xx.Policy)}
	}
	return nil
}
