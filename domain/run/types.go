package run

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"goregime/domain/core"
)

// Seeds are the generator seeds a run was executed with
type Seeds struct {
	Permutation int64 `json:"permutation"`
	Bootstrap   int64 `json:"bootstrap"`
	Wild        int64 `json:"wild_cluster"`
}

// RunFingerprint ensures deterministic replay: two runs with equal
// fingerprints must produce identical tables.
type RunFingerprint struct {
	ConfigHash  core.Hash            `json:"config_hash"`
	InputHashes map[string]core.Hash `json:"input_hashes"`
	Seeds       Seeds                `json:"seeds"`
	CodeVersion string               `json:"code_version"`
	Fingerprint core.Hash            `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(configHash core.Hash, inputs map[string]core.Hash, seeds Seeds, codeVersion string) RunFingerprint {
	return RunFingerprint{
		ConfigHash:  configHash,
		InputHashes: inputs,
		Seeds:       seeds,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(configHash, inputs, seeds, codeVersion),
	}
}

// computeRunFingerprint hashes the parameters with inputs in sorted order
func computeRunFingerprint(configHash core.Hash, inputs map[string]core.Hash, seeds Seeds, codeVersion string) core.Hash {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var in strings.Builder
	for _, name := range names {
		fmt.Fprintf(&in, "%s=%s;", name, inputs[name])
	}

	data := fmt.Sprintf("config:%s|inputs:%s|perm:%d|boot:%d|wild:%d|code:%s",
		configHash, in.String(), seeds.Permutation, seeds.Bootstrap, seeds.Wild, codeVersion)
	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
