package run

import (
	"encoding/json"

	"goregime/domain/core"
)

// Manifest records everything needed to reproduce one command's outputs
type Manifest struct {
	RunID       core.RunID             `json:"run_id"`
	Command     string                 `json:"command"`
	Params      map[string]interface{} `json:"params"`
	Fingerprint RunFingerprint         `json:"fingerprint"`
	Outputs     []string               `json:"outputs"`
	CreatedAt   core.Timestamp         `json:"created_at"`
}

// NewManifest creates a manifest; the config hash is taken over params
func NewManifest(command string, params map[string]interface{}, inputs map[string]core.Hash, seeds Seeds, codeVersion string) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Command:     command,
		Params:      params,
		Fingerprint: NewRunFingerprint(core.ComputeParamsHash(params), inputs, seeds, codeVersion),
		CreatedAt:   core.Now(),
	}
}

// AddOutput records a written artifact
func (m *Manifest) AddOutput(path string) {
	m.Outputs = append(m.Outputs, path)
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Command == "" {
		return core.NewValidationError("run_manifest", "command cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	return nil
}

// Encode renders the manifest as indented JSON
func (m *Manifest) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}
