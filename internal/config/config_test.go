package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
compaction_policy = "Maximize"

[user_defines]
root = "/srv/stl"

[isa]
isa_file = "%root%/isa.txt"

[assembly_sources]
sources = ["%root%/a.s"]

[cross_compilation]
instructions = ["cc %root%/a.s"]

[vcs_hdl_compilation]
instructions = ["vcs_compile"]

[vcs_logic_simulation]
instructions = ["vcs_run"]

[vcs_logic_simulation_control]
timeout = 30.0
simulation_ok_regex = "simulation ok"
test_application_time_regex = "tat=(\\d+)"
test_application_time_regex_group_no = 1

[zoix_fault_simulation]
instructions = ["zoix_run"]

[zoix_fault_simulation_control]
timeout = 60.0
allow_regexs = ["benign.*warning"]

[fault_report]
frpt_file = "%root%/report.txt"
coverage_formula = "fc"

[preprocessing]
enabled = false

[a1xx]
a1xx_segment_dimension = 4
a1xx_policy = "B"
`

func TestLoadSubstitutesAndCompiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(p, []byte(sampleTOML), 0o644))

	s, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "/srv/stl/isa.txt", s.ISA.ISAFile)
	require.NotNil(t, s.VCSLogicSimulationControl.CompiledSimulationOKRegex)
	require.NoError(t, s.ValidatePolicies())
}

func TestLoadMissingSectionIsConfigError(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(p, []byte(`compaction_policy = "Maximize"`), 0o644))

	_, err := Load(p)
	require.Error(t, err)
	require.IsType(t, &ConfigError{}, err)
}
